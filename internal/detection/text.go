package detection

import (
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/effect"
)

// Window is a sliding-window size in pixels.
type Window struct {
	W, H int
}

// TextWindows cover lines of printed text from small captions to signage.
var TextWindows = []Window{
	{80, 25},
	{100, 30},
	{150, 40},
	{200, 50},
}

// PlateWindows follow the 520x112 mm registration plate, about 4.6:1.
var PlateWindows = []Window{
	{92, 20},
	{138, 30},
	{184, 40},
	{276, 60},
}

// Proposal is a region likely to contain text.
type Proposal struct {
	Bounds     image.Rectangle `json:"bounds"`
	Confidence float64         `json:"confidence"`
}

// Area returns the pixel area of the proposal.
func (p Proposal) Area() int {
	return p.Bounds.Dx() * p.Bounds.Dy()
}

// Edge density band accepted as text-like, and the density scored highest.
const (
	minDensity  = 0.05
	maxDensity  = 0.4
	peakDensity = 0.2

	edgeThreshold = 30
)

// DetectTextRegions proposes regions of img that look like horizontal text,
// using TextWindows.
func DetectTextRegions(img image.Image, minConfidence float64) []Proposal {
	return Detect(img, TextWindows, minConfidence)
}

// DetectPlateRegions proposes regions shaped like a registration plate.
func DetectPlateRegions(img image.Image, minConfidence float64) []Proposal {
	return Detect(img, PlateWindows, minConfidence)
}

// Detect slides each window over img at half-window steps and scores every
// position by edge density and horizontal structure. Overlapping hits are
// merged and the result is sorted by confidence, highest first. Bounds are in
// img's coordinate space.
func Detect(img image.Image, windows []Window, minConfidence float64) []Proposal {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	edges := detectEdges(img)
	sums := newIntegral(edges, width, height)

	var candidates []Proposal
	for _, ws := range windows {
		if ws.W > width || ws.H > height || ws.W <= 0 || ws.H <= 0 {
			continue
		}
		stepX, stepY := max(ws.W/2, 1), max(ws.H/2, 1)

		for y := 0; y <= height-ws.H; y += stepY {
			for x := 0; x <= width-ws.W; x += stepX {
				area := ws.W * ws.H
				density := float64(sums.count(x, y, ws.W, ws.H)) / float64(area)
				if density < minDensity || density > maxDensity {
					continue
				}

				horizontal := horizontalScore(edges, x, y, ws.W, ws.H)
				confidence := horizontal * (1.0 - math.Abs(density-peakDensity)/peakDensity)
				if confidence < minConfidence {
					continue
				}
				candidates = append(candidates, Proposal{
					Bounds:     image.Rect(x, y, x+ws.W, y+ws.H).Add(b.Min),
					Confidence: math.Round(confidence*1000) / 1000,
				})
			}
		}
	}

	merged := mergeOverlapping(candidates)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// detectEdges marks pixels whose grayscale value differs from the right or
// lower neighbour by more than edgeThreshold. Border pixels are never edges.
// The result is indexed [y][x] relative to img.Bounds().Min.
func detectEdges(img image.Image) [][]bool {
	gray := effect.Grayscale(img)
	gb := gray.Bounds()
	width, height := gb.Dx(), gb.Dy()

	at := func(x, y int) int {
		return int(gray.RGBAAt(gb.Min.X+x, gb.Min.Y+y).R)
	}

	edges := make([][]bool, height)
	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		if y == 0 || y == height-1 {
			continue
		}
		for x := 1; x < width-1; x++ {
			c := at(x, y)
			if abs(c-at(x+1, y)) > edgeThreshold || abs(c-at(x, y+1)) > edgeThreshold {
				edges[y][x] = true
			}
		}
	}
	return edges
}

// integral is a summed-area table over an edge map.
type integral struct {
	w    int
	sums []int
}

func newIntegral(edges [][]bool, width, height int) integral {
	w := width + 1
	sums := make([]int, w*(height+1))
	for y := 0; y < height; y++ {
		row := 0
		for x := 0; x < width; x++ {
			if edges[y][x] {
				row++
			}
			sums[(y+1)*w+x+1] = sums[y*w+x+1] + row
		}
	}
	return integral{w: w, sums: sums}
}

// count returns the number of edge pixels in the w x h window at (x, y).
func (s integral) count(x, y, w, h int) int {
	x2, y2 := x+w, y+h
	return s.sums[y2*s.w+x2] - s.sums[y*s.w+x2] - s.sums[y2*s.w+x] + s.sums[y*s.w+x]
}

// horizontalScore is the share of edge runs that are horizontal. Text lines
// have more horizontal runs than vertical ones.
func horizontalScore(edges [][]bool, x, y, w, h int) float64 {
	horizontalRuns := 0
	verticalRuns := 0

	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if edges[row][col] {
				if !inRun {
					horizontalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if edges[row][col] {
				if !inRun {
					verticalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	if horizontalRuns+verticalRuns == 0 {
		return 0
	}
	return float64(horizontalRuns) / float64(horizontalRuns+verticalRuns)
}

// mergeOverlapping folds each proposal into the first earlier one it overlaps,
// keeping the union of bounds and the higher confidence.
func mergeOverlapping(props []Proposal) []Proposal {
	merged := make([]Proposal, 0, len(props))
	for _, p := range props {
		found := false
		for i := range merged {
			if p.Bounds.Overlaps(merged[i].Bounds) {
				merged[i].Bounds = merged[i].Bounds.Union(p.Bounds)
				merged[i].Confidence = math.Max(p.Confidence, merged[i].Confidence)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, p)
		}
	}
	return merged
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
