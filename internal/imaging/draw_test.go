package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestDrawRectangle(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	red := color.RGBA{255, 0, 0, 255}

	DrawRectangle(img, image.Rect(5, 5, 15, 15), red, 2)

	if img.RGBAAt(5, 5) != red || img.RGBAAt(14, 14) != red || img.RGBAAt(6, 10) != red {
		t.Error("outline pixels not drawn")
	}
	if img.RGBAAt(10, 10) == red {
		t.Error("interior should stay untouched")
	}
}

func TestDrawRectangle_Clipped(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	DrawRectangle(img, image.Rect(-5, -5, 50, 50), color.White, 1)
	if img.RGBAAt(0, 0).A == 0 || img.RGBAAt(9, 9).A == 0 {
		t.Error("clipped outline should land on the image border")
	}
}

func TestDrawPolygon(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	c := color.RGBA{0, 255, 0, 255}
	DrawPolygon(img, []image.Point{{2, 2}, {17, 2}, {17, 17}, {2, 17}}, c)

	for _, p := range []image.Point{{2, 2}, {10, 2}, {17, 10}, {10, 17}, {2, 10}} {
		if img.RGBAAt(p.X, p.Y) != c {
			t.Errorf("expected polygon pixel at %v", p)
		}
	}
}

func TestDrawLabel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 60, 30))
	bg := color.RGBA{0, 0, 0, 255}
	DrawLabel(img, image.Pt(2, 2), "12", color.White, bg)

	white := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if img.RGBAAt(x, y).R > 200 {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("label glyphs were not drawn")
	}
	// background box starts one pixel before the anchor
	if img.RGBAAt(1, 1) != bg {
		t.Errorf("background: got %v", img.RGBAAt(1, 1))
	}
}

func TestPalette(t *testing.T) {
	if Palette(0) != nil {
		t.Error("Palette(0) should be nil")
	}
	p := Palette(5)
	if len(p) != 5 {
		t.Fatalf("expected 5 colors, got %d", len(p))
	}
	for _, c := range p {
		if c.A != 255 {
			t.Errorf("palette color should be opaque: %v", c)
		}
	}
}

func TestToRGBA(t *testing.T) {
	src := image.NewGray(image.Rect(3, 3, 8, 6))
	src.SetGray(3, 3, color.Gray{200})
	out := ToRGBA(src)
	if out.Bounds() != image.Rect(0, 0, 5, 3) {
		t.Errorf("bounds: got %v", out.Bounds())
	}
	if out.RGBAAt(0, 0).R != 200 {
		t.Errorf("pixel: got %v", out.RGBAAt(0, 0))
	}
}
