package detection

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createTextPatternImage draws rows of short strokes that look like a line
// of characters to the edge detector.
func createTextPatternImage(width, height int) *image.RGBA {
	img := createTestImage(width, height, color.White)
	for y := 20; y < height-20; y += 10 {
		for x := 20; x < width-20; x++ {
			if x%15 < 5 {
				img.Set(x, y, color.Black)
				img.Set(x, y+1, color.Black)
				img.Set(x, y+5, color.Black)
			}
		}
	}
	return img
}

func newEdges(width, height int) [][]bool {
	edges := make([][]bool, height)
	for y := range edges {
		edges[y] = make([]bool, width)
	}
	return edges
}

func TestDetect_EmptyImage(t *testing.T) {
	img := createTestImage(200, 150, color.White)
	assert.Empty(t, DetectTextRegions(img, 0.3))
	assert.Empty(t, DetectPlateRegions(img, 0.3))
}

func TestDetect_SmallerThanWindows(t *testing.T) {
	img := createTextPatternImage(50, 20)
	assert.Empty(t, DetectTextRegions(img, 0))
	assert.Empty(t, Detect(createTestImage(0, 0, color.White), TextWindows, 0))
}

func TestDetect_MinConfidenceIsMonotonic(t *testing.T) {
	img := createTextPatternImage(300, 200)

	low := DetectTextRegions(img, 0.1)
	high := DetectTextRegions(img, 0.8)
	assert.LessOrEqual(t, len(high), len(low))

	for _, p := range high {
		assert.GreaterOrEqual(t, p.Confidence, 0.8)
	}
}

func TestDetect_SortedAndWithinImage(t *testing.T) {
	img := createTextPatternImage(300, 200)

	props := Detect(img, append(TextWindows, PlateWindows...), 0.1)
	for i, p := range props {
		assert.True(t, p.Bounds.In(img.Bounds()), "proposal %v outside image", p.Bounds)
		assert.Equal(t, p.Bounds.Dx()*p.Bounds.Dy(), p.Area())
		if i > 0 {
			assert.GreaterOrEqual(t, props[i-1].Confidence, p.Confidence)
		}
	}
}

func TestDetect_SubImageOffsets(t *testing.T) {
	full := createTextPatternImage(400, 300)
	sub := full.SubImage(image.Rect(100, 50, 400, 250))

	for _, p := range DetectTextRegions(sub, 0.1) {
		assert.True(t, p.Bounds.In(sub.Bounds()), "proposal %v not in sub-image space", p.Bounds)
	}
}

func TestDetectEdges(t *testing.T) {
	img := createTestImage(20, 20, color.White)
	for y := 0; y < 20; y++ {
		for x := 10; x < 20; x++ {
			img.Set(x, y, color.Black)
		}
	}

	edges := detectEdges(img)
	require.Len(t, edges, 20)
	require.Len(t, edges[0], 20)

	assert.True(t, edges[5][9], "white pixel next to black is an edge")
	assert.False(t, edges[5][4])
	assert.False(t, edges[0][9], "border rows are never edges")
	assert.False(t, edges[5][15])
}

func TestIntegralMatchesBruteForce(t *testing.T) {
	const w, h = 37, 23
	edges := newEdges(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			edges[y][x] = (x*7+y*13)%5 == 0
		}
	}
	sums := newIntegral(edges, w, h)

	windows := []struct{ x, y, w, h int }{
		{0, 0, w, h},
		{0, 0, 1, 1},
		{3, 4, 10, 5},
		{20, 10, 17, 13},
		{36, 22, 1, 1},
	}
	for _, win := range windows {
		want := 0
		for y := win.y; y < win.y+win.h; y++ {
			for x := win.x; x < win.x+win.w; x++ {
				if edges[y][x] {
					want++
				}
			}
		}
		assert.Equal(t, want, sums.count(win.x, win.y, win.w, win.h), "window %+v", win)
	}
}

func TestHorizontalScore(t *testing.T) {
	edges := newEdges(50, 50)
	assert.Equal(t, 0.0, horizontalScore(edges, 0, 0, 50, 50))

	// A solid 10x3 block: three row runs, ten column runs.
	for y := 10; y < 13; y++ {
		for x := 5; x < 15; x++ {
			edges[y][x] = true
		}
	}
	assert.InDelta(t, 3.0/13.0, horizontalScore(edges, 0, 0, 50, 50), 1e-12)
	assert.Equal(t, 0.0, horizontalScore(edges, 20, 20, 10, 10), "window outside the block")
}

func TestMergeOverlapping(t *testing.T) {
	props := []Proposal{
		{Bounds: image.Rect(10, 10, 50, 30), Confidence: 0.7},
		{Bounds: image.Rect(30, 10, 70, 30), Confidence: 0.8},
		{Bounds: image.Rect(100, 100, 150, 130), Confidence: 0.6},
		{Bounds: image.Rect(150, 100, 160, 130), Confidence: 0.9},
	}

	merged := mergeOverlapping(props)
	require.Len(t, merged, 3, "touching edges do not overlap")
	assert.Equal(t, image.Rect(10, 10, 70, 30), merged[0].Bounds)
	assert.Equal(t, 0.8, merged[0].Confidence)

	assert.Empty(t, mergeOverlapping(nil))
}

func TestPlateWindowsAspect(t *testing.T) {
	for _, w := range PlateWindows {
		ratio := float64(w.W) / float64(w.H)
		assert.InDelta(t, 4.6, ratio, 0.1, "%+v", w)
	}
}
