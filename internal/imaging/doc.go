// Package imaging loads images and turns them into appearance descriptors for
// visual similarity search.
//
// A Descriptor is a fixed-length, L2-normalized vector built from four blocks
// computed on a copy of the image reduced to at most NormalizeSize pixels on
// its longest side:
//   - an HSV color histogram (go-colorful)
//   - a magnitude-weighted gradient orientation histogram
//   - a spatial grid of Sobel edge density (bild)
//   - luminance mean and standard deviation
//
// Extraction is deterministic and side-effect free: the same pixels always
// produce the same descriptor. It is not a learned embedding; it captures
// palette, dominant line directions and layout, which is enough to rank
// photographs of the same facade or street corner above unrelated scenes.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based with (0,0) at the
// top-left corner. For regions, Min is inclusive and Max is exclusive, as with
// image.Rectangle.
//
// # Thread Safety
//
// ImageCache and Extractor are safe for concurrent use. The free functions are
// stateless and can be called concurrently on different images.
//
// # Error Handling
//
// Files that cannot be opened or decoded, and images with no pixels, fail with
// an error wrapping ErrUnreadableImage. Callers treat that as fatal for the one
// asset and continue with the rest of a batch or group.
package imaging
