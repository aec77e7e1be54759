package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// Edge feature layout.
const (
	// OrientationBins is the number of unsigned gradient orientation bins
	// covering 0-180 degrees.
	OrientationBins = 9

	// EdgeGridSize is the side of the spatial grid over which Sobel magnitude
	// is averaged; the block has EdgeGridSize*EdgeGridSize cells.
	EdgeGridSize = 4

	// EdgeGridCells is the length of the spatial edge block.
	EdgeGridCells = EdgeGridSize * EdgeGridSize
)

// blurRadius is the Gaussian radius applied before gradients are taken.
const blurRadius = 1.4

// GradientOrientationHistogram returns a magnitude-weighted histogram of
// gradient directions over img.
//
// # Algorithm
//
//  1. Grayscale conversion and Gaussian blur (bild) to reduce noise
//  2. Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx), folded into 0-180 degrees
//  3. Each pixel adds its magnitude to the bin of its direction
//
// Bins sum to 1, or are all zero for a flat image.
func GradientOrientationHistogram(img image.Image) []float64 {
	hist := make([]float64, OrientationBins)

	gray := effect.Grayscale(blur.Gaussian(img, blurRadius))
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return hist
	}

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	at := func(x, y int) float64 {
		px := clamp(x, 0, width-1) + bounds.Min.X
		py := clamp(y, 0, height-1) + bounds.Min.Y
		return float64(gray.RGBAAt(px, py).R) / 255.0
	}

	var total float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := at(x+kx, y+ky)
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			mag := math.Sqrt(gx*gx + gy*gy)
			if mag == 0 {
				continue
			}
			angle := math.Atan2(gy, gx)
			if angle < 0 {
				angle += math.Pi
			}
			hist[binIndex(angle/math.Pi, OrientationBins)] += mag
			total += mag
		}
	}

	if total > 0 {
		for i := range hist {
			hist[i] /= total
		}
	}
	return hist
}

// EdgeDensityGrid returns the mean Sobel edge response (0-1, red channel of
// bild's Sobel output) in each cell of an EdgeGridSize x EdgeGridSize grid
// laid over img, row-major from the top-left cell.
func EdgeDensityGrid(img image.Image) []float64 {
	cells := make([]float64, EdgeGridCells)
	counts := make([]int, EdgeGridCells)

	edges := effect.Sobel(img)
	bounds := edges.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return cells
	}

	for y := 0; y < height; y++ {
		cy := clamp(y*EdgeGridSize/height, 0, EdgeGridSize-1)
		for x := 0; x < width; x++ {
			cx := clamp(x*EdgeGridSize/width, 0, EdgeGridSize-1)
			i := cy*EdgeGridSize + cx
			cells[i] += float64(edges.RGBAAt(x+bounds.Min.X, y+bounds.Min.Y).R) / 255.0
			counts[i]++
		}
	}

	for i := range cells {
		if counts[i] > 0 {
			cells[i] /= float64(counts[i])
		}
	}
	return cells
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
