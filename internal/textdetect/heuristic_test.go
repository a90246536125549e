package textdetect

import (
	"image"
	"image/color"
	"testing"
)

// strokeImage draws three bands of 2px vertical strokes, which is how a line
// of print looks to an edge detector.
func strokeImage() *image.RGBA {
	img := uniformImage(200, 120, color.RGBA{255, 255, 255, 255})
	for _, top := range []int{20, 45, 70} {
		for y := top; y < top+10; y++ {
			for x := 20; x < 180; x++ {
				if x%6 < 2 {
					img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
				}
			}
		}
	}
	return img
}

func TestEdgeDensity_FindsStrokes(t *testing.T) {
	img := strokeImage()
	regions := EdgeDensity(img, 0.3)
	if len(regions) == 0 {
		t.Fatal("expected at least one region")
	}

	text := image.Rect(20, 20, 180, 80)
	for i, r := range regions {
		if !r.Bounds.In(img.Bounds()) {
			t.Errorf("region %d: %v outside image", i, r.Bounds)
		}
		if !r.Bounds.Overlaps(text) {
			t.Errorf("region %d: %v misses the strokes", i, r.Bounds)
		}
		if r.Confidence < 0.3 || r.Confidence > 1 {
			t.Errorf("region %d: confidence %v out of range", i, r.Confidence)
		}
		if r.Rect.Angle != 0 {
			t.Errorf("region %d: angle %v, want 0", i, r.Rect.Angle)
		}
		if i > 0 && r.Confidence > regions[i-1].Confidence {
			t.Errorf("regions not sorted by confidence")
		}
	}
}

func TestEdgeDensity_MergedRegionsDoNotOverlap(t *testing.T) {
	regions := EdgeDensity(strokeImage(), 0.1)
	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			if regions[i].Bounds.Overlaps(regions[j].Bounds) {
				t.Errorf("regions %d and %d overlap: %v %v", i, j, regions[i].Bounds, regions[j].Bounds)
			}
		}
	}
}

func TestEdgeDensity_RejectsFlatAndNoisy(t *testing.T) {
	flat := uniformImage(200, 120, color.RGBA{128, 128, 128, 255})
	if got := EdgeDensity(flat, 0); len(got) != 0 {
		t.Errorf("flat image: got %d regions", len(got))
	}

	checker := uniformImage(200, 120, color.RGBA{255, 255, 255, 255})
	for y := 0; y < 120; y++ {
		for x := 0; x < 200; x++ {
			if (x+y)%2 == 0 {
				checker.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	if got := EdgeDensity(checker, 0); len(got) != 0 {
		t.Errorf("checkerboard: got %d regions", len(got))
	}
}

func TestEdgeDensity_OffsetBounds(t *testing.T) {
	sub := strokeImage().SubImage(image.Rect(10, 10, 190, 110))
	for _, r := range EdgeDensity(sub, 0.3) {
		if !r.Bounds.In(sub.Bounds()) {
			t.Errorf("%v outside %v", r.Bounds, sub.Bounds())
		}
	}
}
