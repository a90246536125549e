package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createEdgeTestImage returns a black image with a filled white square.
func createEdgeTestImage(width, height int, square image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if image.Pt(x, y).In(square) {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func countSet(g *image.Gray) int {
	n := 0
	for _, v := range g.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestCanny_UniformImage(t *testing.T) {
	img := createEdgeTestImage(50, 50, image.Rectangle{})
	edges := Canny(img, 100, 200)
	if n := countSet(edges); n != 0 {
		t.Errorf("uniform image should have no edges, got %d", n)
	}
}

func TestCanny_SquareOutline(t *testing.T) {
	square := image.Rect(15, 15, 35, 35)
	img := createEdgeTestImage(50, 50, square)

	edges := Canny(img, 100, 200)

	if edges.Bounds() != image.Rect(0, 0, 50, 50) {
		t.Errorf("bounds: got %v", edges.Bounds())
	}
	if countSet(edges) == 0 {
		t.Fatal("expected edges around the square")
	}

	// Edges hug the square border, never the far corners or the center.
	if edges.GrayAt(2, 2).Y != 0 {
		t.Error("unexpected edge far from the square")
	}
	if edges.GrayAt(25, 25).Y != 0 {
		t.Error("unexpected edge in the square interior")
	}

	found := false
	for x := 13; x <= 16; x++ {
		if edges.GrayAt(x, 25).Y == 255 {
			found = true
		}
	}
	if !found {
		t.Error("expected an edge near the left side of the square")
	}
}

func TestCanny_HigherThresholdsFindFewerEdges(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 60, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 60; x++ {
			// weak step at x=20, strong step at x=40
			v := uint8(0)
			if x >= 20 {
				v = 40
			}
			if x >= 40 {
				v = 255
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}

	low := countSet(Canny(img, 20, 40))
	high := countSet(Canny(img, 150, 300))
	if high > low {
		t.Errorf("higher thresholds should not find more edges: low=%d high=%d", low, high)
	}
}

func TestCanny_TinyImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	edges := Canny(img, 100, 200)
	if edges.Bounds().Dx() != 2 {
		t.Errorf("tiny image should return a mask of the same size")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
	}
	for _, tt := range tests {
		if got := clamp(tt.val, tt.lo, tt.hi); got != tt.want {
			t.Errorf("clamp(%d,%d,%d): got %d, want %d", tt.val, tt.lo, tt.hi, got, tt.want)
		}
	}
}
