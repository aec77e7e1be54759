// Package detection proposes image regions that are likely to hold text.
//
// Proposals come from a sliding-window heuristic over a gradient edge map:
// printed characters produce a medium edge density with more horizontal than
// vertical runs. The detector knows nothing about what the text says; its
// proposals are cropped and passed to OCR.
//
// # Windows
//
// Two window sets are provided:
//
//   - TextWindows for ordinary lines of text such as shop signs and notices
//   - PlateWindows shaped like a vehicle registration plate
//
// Detect accepts any window set.
//
// # Algorithm
//
//  1. Convert to grayscale and mark pixels whose gradient to the right or
//     lower neighbour exceeds a fixed threshold.
//  2. Build a summed-area table over the edge map so each window's edge count
//     is four lookups.
//  3. Slide every window at half-window steps; keep positions whose density is
//     in the text band and score them by density and horizontal structure.
//  4. Merge overlapping hits and sort by confidence.
//
// # Coordinate System
//
// Proposal bounds are image.Rectangle values in the source image's own
// coordinate space, so sub-images keep their offsets.
package detection
