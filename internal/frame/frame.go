package frame

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"
)

// Layout identifies the channel order of a Frame's pixel buffer.
type Layout int

const (
	// LayoutRGB stores three bytes per pixel in red, green, blue order.
	LayoutRGB Layout = iota
	// LayoutBGR stores three bytes per pixel in blue, green, red order.
	// OpenCV devices deliver this layout.
	LayoutBGR
	// LayoutGray stores one luminance byte per pixel.
	LayoutGray
)

// Channels returns the number of bytes per pixel for the layout.
func (l Layout) Channels() int {
	if l == LayoutGray {
		return 1
	}
	return 3
}

func (l Layout) String() string {
	switch l {
	case LayoutRGB:
		return "rgb"
	case LayoutBGR:
		return "bgr"
	case LayoutGray:
		return "gray"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// Frame is one captured image plus the metadata the pipeline needs.
type Frame struct {
	// Pix holds Height rows of Stride bytes each.
	Pix []byte

	Width  int
	Height int

	// Stride is the number of bytes between the starts of two rows.
	Stride int

	Layout Layout

	// Seq is assigned by the producer and increases by one per frame read.
	Seq uint64

	// Time is the capture timestamp.
	Time time.Time
}

// New allocates a zeroed frame with a packed stride.
func New(width, height int, layout Layout) Frame {
	stride := width * layout.Channels()
	return Frame{
		Pix:    make([]byte, stride*height),
		Width:  width,
		Height: height,
		Stride: stride,
		Layout: layout,
	}
}

// Empty reports whether the frame carries no pixels. Sources signal the end of
// a stream with an empty frame.
func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0 || len(f.Pix) == 0
}

// Size returns the frame dimensions as a point.
func (f Frame) Size() image.Point {
	return image.Pt(f.Width, f.Height)
}

// Bounds returns the frame rectangle anchored at the origin.
func (f Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Clone returns a deep copy with a packed stride.
func (f Frame) Clone() Frame {
	out := New(f.Width, f.Height, f.Layout)
	out.Seq = f.Seq
	out.Time = f.Time
	rowBytes := f.Width * f.Layout.Channels()
	for y := 0; y < f.Height; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+rowBytes], f.Pix[y*f.Stride:y*f.Stride+rowBytes])
	}
	return out
}

// ToRGB returns the frame converted to LayoutRGB. An RGB frame is returned
// unchanged; other layouts produce a new buffer.
func (f Frame) ToRGB() Frame {
	if f.Layout == LayoutRGB {
		return f
	}
	out := New(f.Width, f.Height, LayoutRGB)
	out.Seq = f.Seq
	out.Time = f.Time
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < f.Width; x++ {
			switch f.Layout {
			case LayoutBGR:
				dst[x*3+0] = src[x*3+2]
				dst[x*3+1] = src[x*3+1]
				dst[x*3+2] = src[x*3+0]
			case LayoutGray:
				v := src[x]
				dst[x*3+0], dst[x*3+1], dst[x*3+2] = v, v, v
			}
		}
	}
	return out
}

// RGBAt returns the red, green and blue components at (x, y) regardless of
// layout.
func (f Frame) RGBAt(x, y int) (r, g, b uint8) {
	i := y*f.Stride + x*f.Layout.Channels()
	switch f.Layout {
	case LayoutBGR:
		return f.Pix[i+2], f.Pix[i+1], f.Pix[i]
	case LayoutGray:
		return f.Pix[i], f.Pix[i], f.Pix[i]
	default:
		return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
	}
}

// SetRGB writes a color at (x, y) in the frame's own layout. Points outside the
// frame are ignored.
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := y*f.Stride + x*f.Layout.Channels()
	switch f.Layout {
	case LayoutBGR:
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
	case LayoutGray:
		f.Pix[i] = uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
	default:
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
	}
}

// DrawRect outlines r with the given color and line thickness. The outline is
// drawn inside r and clipped to the frame.
func (f *Frame) DrawRect(r image.Rectangle, c color.RGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	r = r.Intersect(f.Bounds())
	if r.Empty() {
		return
	}
	for t := 0; t < thickness; t++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			f.SetRGB(x, r.Min.Y+t, c.R, c.G, c.B)
			f.SetRGB(x, r.Max.Y-1-t, c.R, c.G, c.B)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			f.SetRGB(r.Min.X+t, y, c.R, c.G, c.B)
			f.SetRGB(r.Max.X-1-t, y, c.R, c.G, c.B)
		}
	}
}

// Image converts the frame into an *image.RGBA for encoders and drawing code.
func (f Frame) Image() *image.RGBA {
	img := image.NewRGBA(f.Bounds())
	for y := 0; y < f.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < f.Width; x++ {
			r, g, b := f.RGBAt(x, y)
			row[x*4+0] = r
			row[x*4+1] = g
			row[x*4+2] = b
			row[x*4+3] = 0xff
		}
	}
	return img
}

// Gray converts the frame into an 8-bit luminance image using BT.601 weights.
func (f Frame) Gray() *image.Gray {
	img := image.NewGray(f.Bounds())
	for y := 0; y < f.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < f.Width; x++ {
			if f.Layout == LayoutGray {
				row[x] = f.Pix[y*f.Stride+x]
				continue
			}
			r, g, b := f.RGBAt(x, y)
			row[x] = uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
		}
	}
	return img
}

// FromImage copies any image into an RGB frame anchored at the origin.
func FromImage(img image.Image) Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	out := New(b.Dx(), b.Dy(), LayoutRGB)
	for y := 0; y < out.Height; y++ {
		src := rgba.Pix[y*rgba.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < out.Width; x++ {
			dst[x*3+0] = src[x*4+0]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return out
}
