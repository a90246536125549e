package imaging

import (
	"image"
	"image/color"
	"testing"
)

func maskWith(width, height int, rects ...image.Rectangle) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, width, height))
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				m.SetGray(x, y, color.Gray{255})
			}
		}
	}
	return m
}

func TestComponents_Empty(t *testing.T) {
	if got := Components(maskWith(20, 20), 0); len(got) != 0 {
		t.Errorf("expected no components, got %d", len(got))
	}
}

func TestComponents_TwoBlobs(t *testing.T) {
	m := maskWith(40, 30, image.Rect(2, 2, 6, 6), image.Rect(20, 10, 30, 25))

	comps := Components(m, 0)
	if len(comps) != 2 {
		t.Fatalf("expected 2 components, got %d", len(comps))
	}
	// largest first
	if comps[0].Bounds != image.Rect(20, 10, 30, 25) {
		t.Errorf("largest bounds: got %v", comps[0].Bounds)
	}
	if comps[0].Area() != 150 {
		t.Errorf("largest area: got %d, want 150", comps[0].Area())
	}
	if comps[1].Bounds != image.Rect(2, 2, 6, 6) {
		t.Errorf("smallest bounds: got %v", comps[1].Bounds)
	}
}

func TestComponents_DiagonalIsConnected(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 5, 5))
	for i := 0; i < 5; i++ {
		m.SetGray(i, i, color.Gray{255})
	}
	comps := Components(m, 0)
	if len(comps) != 1 {
		t.Fatalf("8-connectivity should join a diagonal line, got %d components", len(comps))
	}
	if comps[0].Bounds != image.Rect(0, 0, 5, 5) {
		t.Errorf("bounds: got %v", comps[0].Bounds)
	}
}

func TestComponents_MinPixels(t *testing.T) {
	m := maskWith(40, 30, image.Rect(2, 2, 4, 4), image.Rect(20, 10, 30, 25))
	comps := Components(m, 10)
	if len(comps) != 1 {
		t.Errorf("expected small blob filtered, got %d components", len(comps))
	}
}

func TestComponents_OffsetBounds(t *testing.T) {
	m := image.NewGray(image.Rect(10, 10, 20, 20))
	m.SetGray(12, 13, color.Gray{255})
	comps := Components(m, 0)
	if len(comps) != 1 {
		t.Fatalf("expected 1 component, got %d", len(comps))
	}
	if comps[0].Bounds != image.Rect(12, 13, 13, 14) {
		t.Errorf("bounds: got %v", comps[0].Bounds)
	}
}
