package ocr

import (
	"image"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// BoundsOf converts an image.Rectangle.
func BoundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Rect converts b back to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// TextRegion represents a word or line with its location and OCR confidence.
type TextRegion struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this text in the source image.
	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the complete results of text extraction from an image.
type OCRResult struct {
	// FullText is all recognized text with original spacing and newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words with their bounding boxes and
	// confidence scores. May be empty when bounding boxes are unavailable.
	Regions []TextRegion `json:"regions"`
}

// PlateAlphabet lists every character a registration plate may contain, in
// both scripts. It is the whitelist for the plate pass.
const PlateAlphabet = "ABEKMHOPCTYXАВЕКМНОРСТУХ0123456789"

// Recognizer is the OCR surface the location pipeline needs.
// *tesseract.Engine implements it.
type Recognizer interface {
	// Recognize runs general OCR over the whole image.
	Recognize(img image.Image) (*OCRResult, error)

	// RecognizePlates runs a restricted single-line pass over plate-shaped
	// regions and returns one TextRegion per recognized line.
	RecognizePlates(img image.Image) ([]TextRegion, error)
}

// Config selects languages and the plate pass.
type Config struct {
	// Languages are Tesseract language codes, joined with "+".
	Languages []string `toml:"languages"`

	// TessdataPrefix overrides the directory holding *.traineddata.
	TessdataPrefix string `toml:"tessdata_prefix"`

	// PlatePass enables the whitelist pass over plate-shaped regions.
	PlatePass bool `toml:"plate_pass"`

	// MaxPlateProposals caps how many plate-shaped regions are recognized.
	MaxPlateProposals int `toml:"max_plate_proposals"`

	// MinPlateHeight upscales plate crops shorter than this many pixels.
	MinPlateHeight int `toml:"min_plate_height"`

	// MinProposalConfidence filters plate-shaped proposals.
	MinProposalConfidence float64 `toml:"min_proposal_confidence"`

	// MaxSignProposals is how many text-shaped regions are read again on
	// their own after the full-page pass. Small signs in wide shots are often
	// lost at page scale. Zero disables the sign pass.
	MaxSignProposals int `toml:"max_sign_proposals"`
}

// DefaultConfig reads Russian and English, with the plate pass on.
func DefaultConfig() Config {
	return Config{
		Languages:             []string{"rus", "eng"},
		PlatePass:             true,
		MaxPlateProposals:     8,
		MinPlateHeight:        48,
		MinProposalConfidence: 0.3,
		MaxSignProposals:      4,
	}
}
