package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// createQuadrantImage returns an image with red, green, blue and white
// quadrants.
func createQuadrantImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.RGBA
			switch {
			case x < width/2 && y < height/2:
				c = color.RGBA{255, 0, 0, 255}
			case x >= width/2 && y < height/2:
				c = color.RGBA{0, 255, 0, 255}
			case x < width/2:
				c = color.RGBA{0, 0, 255, 255}
			default:
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCrop(t *testing.T) {
	img := createQuadrantImage(100, 80)

	out, err := Crop(img, image.Rect(50, 0, 100, 40), 1)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 40 {
		t.Errorf("size: got %v, want 50x40", out.Bounds().Size())
	}
	r, g, b, _ := out.At(10, 10).RGBA()
	if r>>8 != 0 || g>>8 != 255 || b>>8 != 0 {
		t.Errorf("expected green quadrant, got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestCrop_WithScale(t *testing.T) {
	img := createQuadrantImage(100, 80)

	out, err := Crop(img, image.Rect(0, 0, 20, 10), 2)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 20 {
		t.Errorf("size: got %v, want 40x20", out.Bounds().Size())
	}
}

func TestCrop_Invalid(t *testing.T) {
	img := createQuadrantImage(100, 80)

	tests := []struct {
		name  string
		rect  image.Rectangle
		scale float64
	}{
		{"outside", image.Rect(50, 50, 150, 90), 1},
		{"empty", image.Rect(10, 10, 10, 20), 1},
		{"collapsing scale", image.Rect(0, 0, 2, 2), 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.rect, tt.scale); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClampRect(t *testing.T) {
	got := ClampRect(image.Rect(-5, 10, 120, 200), image.Rect(0, 0, 100, 80))
	want := image.Rect(0, 10, 100, 80)
	if got != want {
		t.Errorf("ClampRect: got %v, want %v", got, want)
	}
}

func TestEncodePNG(t *testing.T) {
	img := createQuadrantImage(10, 6)

	enc, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if enc.MimeType != "image/png" || enc.Width != 10 || enc.Height != 6 {
		t.Errorf("unexpected metadata: %+v", enc)
	}

	data, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("payload is not a PNG: %v", err)
	}
}

func TestEncodeJPEG(t *testing.T) {
	data, err := EncodeJPEG(createQuadrantImage(16, 16), 80)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("payload is not a JPEG: %v", err)
	}
}
