package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestFrame creates a frame filled with a single color in the given layout.
func createTestFrame(width, height int, layout Layout, r, g, b uint8) Frame {
	f := New(width, height, layout)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			f.SetRGB(x, y, r, g, b)
		}
	}
	return f
}

func TestLayout_Channels(t *testing.T) {
	assert.Equal(t, 3, LayoutRGB.Channels())
	assert.Equal(t, 3, LayoutBGR.Channels())
	assert.Equal(t, 1, LayoutGray.Channels())
	assert.Equal(t, "bgr", LayoutBGR.String())
}

func TestFrame_Empty(t *testing.T) {
	assert.True(t, Frame{}.Empty())
	assert.False(t, New(2, 2, LayoutRGB).Empty())
}

func TestFrame_CloneIsIndependent(t *testing.T) {
	f := createTestFrame(4, 3, LayoutRGB, 10, 20, 30)
	f.Seq = 7

	c := f.Clone()
	c.SetRGB(0, 0, 255, 255, 255)

	r, g, b := f.RGBAt(0, 0)
	assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{r, g, b})
	assert.Equal(t, uint64(7), c.Seq)
}

func TestFrame_ClonePacksStride(t *testing.T) {
	f := Frame{
		Pix:    make([]byte, 2*8),
		Width:  2,
		Height: 2,
		Stride: 8,
		Layout: LayoutRGB,
	}
	f.SetRGB(1, 1, 1, 2, 3)

	c := f.Clone()
	assert.Equal(t, 6, c.Stride)
	r, g, b := c.RGBAt(1, 1)
	assert.Equal(t, [3]uint8{1, 2, 3}, [3]uint8{r, g, b})
}

func TestFrame_ToRGB(t *testing.T) {
	bgr := New(1, 1, LayoutBGR)
	bgr.Pix[0], bgr.Pix[1], bgr.Pix[2] = 1, 2, 3 // b, g, r

	rgb := bgr.ToRGB()
	require.Equal(t, LayoutRGB, rgb.Layout)
	assert.Equal(t, []byte{3, 2, 1}, rgb.Pix)

	gray := New(1, 1, LayoutGray)
	gray.Pix[0] = 90
	assert.Equal(t, []byte{90, 90, 90}, gray.ToRGB().Pix)
}

func TestFrame_DrawRectClipped(t *testing.T) {
	f := createTestFrame(10, 10, LayoutBGR, 0, 0, 0)
	f.DrawRect(image.Rect(5, 5, 20, 20), color.RGBA{R: 255, A: 255}, 1)

	r, g, b := f.RGBAt(5, 5)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})
	// bottom-right corner of the clipped rectangle
	r, _, _ = f.RGBAt(9, 9)
	assert.Equal(t, uint8(255), r)
	// interior untouched
	r, _, _ = f.RGBAt(7, 7)
	assert.Equal(t, uint8(0), r)
	// BGR storage order
	assert.Equal(t, uint8(255), f.Pix[5*f.Stride+5*3+2])
}

func TestFromImage_RoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(2, 3, 6, 5))
	img.Set(2, 3, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	f := FromImage(img)
	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 2, f.Height)
	r, g, b := f.RGBAt(0, 0)
	assert.Equal(t, [3]uint8{200, 100, 50}, [3]uint8{r, g, b})

	back := f.Image()
	assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, back.RGBAAt(0, 0))
}

func TestFrame_Gray(t *testing.T) {
	f := createTestFrame(2, 2, LayoutRGB, 255, 255, 255)
	g := f.Gray()
	assert.Equal(t, uint8(255), g.GrayAt(1, 1).Y)
}
