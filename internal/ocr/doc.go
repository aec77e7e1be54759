// Package ocr defines the text recognition types shared by the location
// pipeline and the Tesseract engine in package ocr/tesseract.
//
// The split keeps cgo out of everything that only consumes OCR output: the
// pipeline depends on the Recognizer interface here, and only the binary links
// the engine.
//
// # Prerequisites
//
// The engine needs Tesseract and its language data at runtime:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-rus
//   - macOS: brew install tesseract tesseract-lang
//
// # Passes
//
// Recognize runs a general pass over the whole image with the configured
// languages. Its full text feeds the phone, postal code and address locator.
//
// RecognizePlates crops plate-shaped regions proposed by package detection,
// upscales short crops, and recognizes each as a single line restricted to
// PlateAlphabet. Its regions feed the plate locator, which needs the engine's
// per-line confidence.
//
// # Coordinates
//
// All bounds are in the source image's coordinate space, including regions
// recognized from crops.
package ocr
