package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// NormalizeSize is the longest side an image is reduced to before features are
// computed. Smaller images are used as they are.
const NormalizeSize = 256

// Normalize fits img inside a maxSide x maxSide box, keeping its aspect ratio.
// The result always has its origin at (0,0).
func Normalize(img image.Image, maxSide int) *image.NRGBA {
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}

// Crop is a region cut out of a larger image, possibly upscaled.
type Crop struct {
	// Image holds the cropped pixels with its origin at (0,0).
	Image *image.NRGBA

	// Origin is the top-left corner of the crop in the source image.
	Origin image.Point

	// Scale is the factor the crop was resized by (1 when not resized).
	Scale float64
}

// ToSource maps a rectangle in crop pixels back to source image pixels.
func (c *Crop) ToSource(r image.Rectangle) image.Rectangle {
	s := c.Scale
	if s <= 0 {
		s = 1
	}
	return image.Rect(
		c.Origin.X+int(float64(r.Min.X)/s),
		c.Origin.Y+int(float64(r.Min.Y)/s),
		c.Origin.X+int(float64(r.Max.X)/s),
		c.Origin.Y+int(float64(r.Max.Y)/s),
	)
}

// CropRegion cuts r out of img, grown by padding pixels on every side and
// clipped to the image. When the clipped region is shorter than minHeight it is
// upscaled with Lanczos resampling so that small text such as a plate reaches a
// height OCR can read. A minHeight of zero disables upscaling.
func CropRegion(img image.Image, r image.Rectangle, padding, minHeight int) (*Crop, error) {
	bounds := img.Bounds()
	region := r.Inset(-padding).Intersect(bounds)
	if region.Empty() {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}

	cropped := imaging.Crop(img, region)
	scale := 1.0

	if minHeight > 0 && region.Dy() < minHeight {
		scale = float64(minHeight) / float64(region.Dy())
		newWidth := int(float64(region.Dx()) * scale)
		cropped = imaging.Resize(cropped, newWidth, minHeight, imaging.Lanczos)
	}

	return &Crop{
		Image:  cropped,
		Origin: region.Min,
		Scale:  scale,
	}, nil
}
