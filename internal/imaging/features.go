package imaging

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"
)

// DescriptorDim is the fixed length of every Descriptor:
// ColorBins + OrientationBins + EdgeGridCells + 2 luminance statistics.
const DescriptorDim = ColorBins + OrientationBins + EdgeGridCells + 2

// Descriptor is a fixed-length, L2-normalized appearance vector of an image.
// Two descriptors of visually similar scenes are close in Euclidean distance.
// A Descriptor is never modified after extraction.
type Descriptor []float64

// IsZero reports whether d carries no signal (empty or all zeros).
func (d Descriptor) IsZero() bool {
	for _, v := range d {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clone returns a copy of d.
func (d Descriptor) Clone() Descriptor {
	if d == nil {
		return nil
	}
	out := make(Descriptor, len(d))
	copy(out, d)
	return out
}

// Extractor turns images into descriptors. It is stateless apart from the
// optional image cache and safe for concurrent use.
type Extractor struct {
	cache   *ImageCache
	maxSide int
}

// NewExtractor creates an extractor that loads files through cache. A nil
// cache gets a private one.
func NewExtractor(cache *ImageCache) *Extractor {
	if cache == nil {
		cache = NewImageCache()
	}
	return &Extractor{cache: cache, maxSide: NormalizeSize}
}

// ExtractFile loads the image at path and extracts its descriptor.
//
// Errors wrap ErrUnreadableImage when the file cannot be decoded.
func (e *Extractor) ExtractFile(path string) (Descriptor, error) {
	img, err := e.cache.Load(path)
	if err != nil {
		return nil, err
	}
	return e.Extract(img)
}

// Extract computes the descriptor of img.
//
// The image is first reduced with Normalize, then four feature blocks are
// concatenated:
//
//	[0, 72)   HSV color histogram
//	[72, 81)  gradient orientation histogram
//	[81, 97)  4x4 Sobel edge density grid
//	[97, 99)  luminance mean and standard deviation
//
// Each block is weighted equally by L1-normalizing it, and the whole vector is
// L2-normalized. The same image always yields the same descriptor.
//
// An image with no pixels, or with no visible ones, fails with
// ErrUnreadableImage rather than producing a zero vector.
func (e *Extractor) Extract(img image.Image) (Descriptor, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrUnreadableImage)
	}

	maxSide := e.maxSide
	if maxSide <= 0 {
		maxSide = NormalizeSize
	}
	small := Normalize(img, maxSide)

	mean, std := LuminanceStats(small)
	blocks := [][]float64{
		HSVHistogram(small),
		GradientOrientationHistogram(small),
		normalizeL1(EdgeDensityGrid(small)),
		normalizeL1([]float64{mean, std}),
	}

	desc := make(Descriptor, 0, DescriptorDim)
	for _, b := range blocks {
		desc = append(desc, b...)
	}
	if len(desc) != DescriptorDim {
		return nil, fmt.Errorf("descriptor has %d dimensions, want %d", len(desc), DescriptorDim)
	}

	norm := floats.Norm(desc, 2)
	if norm == 0 {
		return nil, fmt.Errorf("%w: image has no visible pixels", ErrUnreadableImage)
	}
	floats.Scale(1/norm, desc)
	return desc, nil
}

// normalizeL1 scales v in place so its entries sum to 1. All-zero input is
// returned unchanged.
func normalizeL1(v []float64) []float64 {
	if sum := floats.Sum(v); sum > 0 {
		floats.Scale(1/sum, v)
	}
	return v
}
