package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// Canny runs Canny edge detection and returns a binary mask where 255 marks an
// edge pixel.
//
// Parameters:
//   - img: Source image (color or grayscale).
//   - low: Gradient magnitude below which a pixel is never an edge. The
//     magnitude is measured on 0-255 intensities.
//   - high: Gradient magnitude above which a pixel is always an edge.
//
// # Algorithm
//
//  1. Grayscale conversion and a Gaussian blur (sigma 1.4) to suppress noise
//  2. Sobel gradients, magnitude = sqrt(Gx² + Gy²)
//  3. Non-maximum suppression along the quantized gradient direction
//  4. Hysteresis: strong pixels seed a flood that keeps every connected weak
//     pixel
//
// The original outline tool used thresholds 100 and 200 on photographs.
func Canny(img image.Image, low, high float64) *image.Gray {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width < 3 || height < 3 {
		return out
	}

	blurred := blur.Gaussian(effect.Grayscale(img), 1.4)
	lum := make([]float64, width*height)
	for y := 0; y < height; y++ {
		row := blurred.Pix[y*blurred.Stride:]
		for x := 0; x < width; x++ {
			lum[y*width+x] = float64(row[x*4])
		}
	}

	at := func(x, y int) float64 {
		return lum[clamp(y, 0, height-1)*width+clamp(x, 0, width-1)]
	}

	magnitude := make([]float64, width*height)
	direction := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) -
				2*at(x-1, y) + 2*at(x+1, y) -
				at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			magnitude[y*width+x] = math.Hypot(gx, gy)
			direction[y*width+x] = math.Atan2(gy, gx)
		}
	}

	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			n1, n2 := neighborsAlong(direction[i], magnitude, width, x, y)
			if magnitude[i] >= n1 && magnitude[i] >= n2 {
				suppressed[i] = magnitude[i]
			}
		}
	}

	// Hysteresis tracking from every strong pixel.
	stack := make([]int, 0, 1024)
	for i, v := range suppressed {
		if v >= high && out.Pix[i] == 0 {
			out.Pix[i] = 255
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			px, py := p%width, p/width
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := px+dx, py+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					j := ny*width + nx
					if out.Pix[j] == 0 && suppressed[j] >= low {
						out.Pix[j] = 255
						stack = append(stack, j)
					}
				}
			}
		}
	}

	return out
}

// neighborsAlong returns the two magnitudes adjacent to (x, y) along the
// gradient direction quantized to 0, 45, 90 or 135 degrees.
func neighborsAlong(angle float64, magnitude []float64, width, x, y int) (float64, float64) {
	m := func(x, y int) float64 { return magnitude[y*width+x] }
	switch {
	case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
		return m(x-1, y), m(x+1, y)
	case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
		return m(x-1, y-1), m(x+1, y+1)
	case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
		return m(x, y-1), m(x, y+1)
	default:
		return m(x+1, y-1), m(x-1, y+1)
	}
}

// clamp constrains val to [lo, hi]. Used for replicated-border sampling.
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
