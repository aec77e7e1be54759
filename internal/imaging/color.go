package imaging

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat"
)

// Histogram bin layout for the HSV color block of a descriptor.
const (
	HueBins        = 8
	SaturationBins = 3
	ValueBins      = 3

	// ColorBins is the length of the HSV histogram block.
	ColorBins = HueBins * SaturationBins * ValueBins
)

// HSVHistogram returns a normalized hue/saturation/value histogram of img.
//
// Every opaque pixel is converted with go-colorful and counted in one of
// ColorBins bins:
//
//	bin = (hueBin*SaturationBins + satBin)*ValueBins + valBin
//
// Hue is split into HueBins equal sectors of the 0-360 degree wheel; saturation
// and value into equal thirds. Fully transparent pixels are skipped. The
// returned bins sum to 1, or are all zero when no pixel was counted.
func HSVHistogram(img image.Image) []float64 {
	hist := make([]float64, ColorBins)
	bounds := img.Bounds()
	total := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			h, s, v := c.Hsv()
			hb := binIndex(h/360.0, HueBins)
			sb := binIndex(s, SaturationBins)
			vb := binIndex(v, ValueBins)
			hist[(hb*SaturationBins+sb)*ValueBins+vb]++
			total++
		}
	}

	if total > 0 {
		for i := range hist {
			hist[i] /= float64(total)
		}
	}
	return hist
}

// LuminanceStats returns the mean and standard deviation of the ITU-R BT.601
// luminance of img, both in the 0-1 range.
func LuminanceStats(img image.Image) (mean, std float64) {
	bounds := img.Bounds()
	values := make([]float64, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			values = append(values, luminance(r, g, b))
		}
	}
	if len(values) == 0 {
		return 0, 0
	}
	if len(values) == 1 {
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// luminance converts 16-bit RGB components to 0-1 luminance using
// ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B).
func luminance(r, g, b uint32) float64 {
	rf := float64(r>>8) / 255.0
	gf := float64(g>>8) / 255.0
	bf := float64(b>>8) / 255.0
	return 0.299*rf + 0.587*gf + 0.114*bf
}

// binIndex maps v in [0,1] to one of n equal bins; 1.0 lands in the last bin.
func binIndex(v float64, n int) int {
	i := int(v * float64(n))
	return clamp(i, 0, n-1)
}
