package textdetect

import (
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/effect"
)

// edgeThreshold is the intensity step that marks a pixel as an edge.
const edgeThreshold = 30

// windows are the sliding window sizes, from small to large print.
var windows = []image.Point{
	{80, 25},
	{100, 30},
	{150, 40},
	{200, 50},
}

// EdgeDensity finds likely text areas without a network. Text has a medium
// density of edges dominated by vertical strokes, so windows are scored by
// density and by the share of horizontal edge runs, then merged when they
// overlap. Regions are axis aligned and sorted by confidence, highest first.
func EdgeDensity(img image.Image, minConfidence float64) []Region {
	b := img.Bounds()
	edges := edgeMap(img)
	sum := integral(edges)

	var candidates []Region
	for _, win := range windows {
		step := image.Pt(win.X/2, win.Y/2)
		for y := 0; y+win.Y <= edges.h; y += step.Y {
			for x := 0; x+win.X <= edges.w; x += step.X {
				area := win.X * win.Y
				density := float64(sum.count(x, y, win.X, win.Y)) / float64(area)
				if density < 0.05 || density > 0.4 {
					continue
				}
				conf := edges.horizontalScore(x, y, win.X, win.Y) * (1 - math.Abs(density-0.2)/0.2)
				if conf < minConfidence {
					continue
				}
				r := image.Rect(x, y, x+win.X, y+win.Y).Add(b.Min)
				candidates = append(candidates, axisRegion(r, float32(math.Round(conf*1000)/1000)))
			}
		}
	}

	merged := mergeOverlapping(candidates)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

func axisRegion(r image.Rectangle, conf float32) Region {
	return Region{
		Rect: RotatedRect{
			Center: Point{float64(r.Min.X+r.Max.X) / 2, float64(r.Min.Y+r.Max.Y) / 2},
			Width:  float64(r.Dx()),
			Height: float64(r.Dy()),
		},
		Bounds:     r,
		Confidence: conf,
	}
}

// mergeOverlapping folds every region into the first kept region it
// overlaps, keeping the higher confidence.
func mergeOverlapping(regions []Region) []Region {
	merged := make([]Region, 0, len(regions))
	for _, r := range regions {
		folded := false
		for i := range merged {
			if r.Bounds.Overlaps(merged[i].Bounds) {
				union := merged[i].Bounds.Union(r.Bounds)
				conf := merged[i].Confidence
				if r.Confidence > conf {
					conf = r.Confidence
				}
				merged[i] = axisRegion(union, conf)
				folded = true
				break
			}
		}
		if !folded {
			merged = append(merged, r)
		}
	}
	return merged
}

type edgeGrid struct {
	w, h int
	set  []bool
}

func (g *edgeGrid) at(x, y int) bool { return g.set[y*g.w+x] }

// edgeMap marks pixels whose intensity differs from the right or lower
// neighbor by more than edgeThreshold. Border pixels are never edges.
func edgeMap(img image.Image) *edgeGrid {
	gray := effect.Grayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	g := &edgeGrid{w: w, h: h, set: make([]bool, w*h)}
	// Grayscale returns RGBA with equal channels; read R.
	lum := func(x, y int) int { return int(gray.Pix[y*gray.Stride+x*4]) }

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := lum(x, y)
			if absInt(c-lum(x+1, y)) > edgeThreshold || absInt(c-lum(x, y+1)) > edgeThreshold {
				g.set[y*w+x] = true
			}
		}
	}
	return g
}

// horizontalScore is the share of edge runs that lie along rows. Vertical
// strokes of characters cut every row they cross.
func (g *edgeGrid) horizontalScore(x, y, w, h int) float64 {
	rows, cols := 0, 0
	for row := y; row < y+h; row++ {
		in := false
		for col := x; col < x+w; col++ {
			e := g.at(col, row)
			if e && !in {
				rows++
			}
			in = e
		}
	}
	for col := x; col < x+w; col++ {
		in := false
		for row := y; row < y+h; row++ {
			e := g.at(col, row)
			if e && !in {
				cols++
			}
			in = e
		}
	}
	if rows+cols == 0 {
		return 0
	}
	return float64(rows) / float64(rows+cols)
}

// summedArea answers edge counts over any window in constant time.
type summedArea struct {
	w   int
	sum []int
}

func integral(g *edgeGrid) summedArea {
	w := g.w + 1
	s := make([]int, w*(g.h+1))
	for y := 0; y < g.h; y++ {
		run := 0
		for x := 0; x < g.w; x++ {
			if g.at(x, y) {
				run++
			}
			s[(y+1)*w+x+1] = s[y*w+x+1] + run
		}
	}
	return summedArea{w: w, sum: s}
}

func (s summedArea) count(x, y, w, h int) int {
	at := func(x, y int) int { return s.sum[y*s.w+x] }
	return at(x+w, y+h) - at(x, y+h) - at(x+w, y) + at(x, y)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
