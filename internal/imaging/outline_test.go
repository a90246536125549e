package imaging

import (
	"image"
	"testing"
)

func TestOutline_TwoSquares(t *testing.T) {
	img := createEdgeTestImage(80, 40, image.Rect(10, 10, 25, 25))
	// second square painted on the same canvas
	second := createEdgeTestImage(80, 40, image.Rect(50, 10, 70, 30))
	for y := 10; y < 30; y++ {
		for x := 50; x < 70; x++ {
			img.SetRGBA(x, y, second.RGBAAt(x, y))
		}
	}

	res := Outline(img, 100, 200, 10)

	// Corners can split a square outline, so only a lower bound is stable.
	if res.Shapes < 2 {
		t.Fatalf("expected at least 2 shapes, got %d", res.Shapes)
	}
	if len(res.Bounds) != res.Shapes {
		t.Fatalf("expected one bounds entry per shape, got %d", len(res.Bounds))
	}
	if res.Image.Bounds() != img.Bounds() {
		t.Errorf("canvas bounds: got %v", res.Image.Bounds())
	}
	// background stays black
	if c := res.Image.RGBAAt(0, 0); c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("background: got %v", c)
	}
}

func TestOutline_Blank(t *testing.T) {
	res := Outline(image.NewRGBA(image.Rect(0, 0, 30, 30)), 100, 200, 0)
	if res.Shapes != 0 {
		t.Errorf("expected no shapes, got %d", res.Shapes)
	}
}
