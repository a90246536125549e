package imaging

import (
	"image"
	"sort"
)

// Component is one 8-connected group of set pixels in a binary mask.
type Component struct {
	// Bounds is the half-open bounding rectangle in mask coordinates.
	Bounds image.Rectangle `json:"bounds"`

	// Points lists every pixel of the component.
	Points []image.Point `json:"-"`
}

// Area returns the number of pixels in the component.
func (c Component) Area() int { return len(c.Points) }

// Components labels the 8-connected groups of non-zero pixels in mask.
//
// Parameters:
//   - mask: Binary image; any non-zero value counts as set.
//   - minPixels: Groups with fewer pixels are discarded. Zero keeps everything.
//
// Returns the components ordered by area, largest first.
//
// The labelling uses an explicit stack rather than recursion so that large
// blobs cannot exhaust the goroutine stack.
func Components(mask *image.Gray, minPixels int) []Component {
	b := mask.Bounds()
	width, height := b.Dx(), b.Dy()
	visited := make([]bool, width*height)

	set := func(x, y int) bool {
		return mask.Pix[y*mask.Stride+x] != 0
	}

	var components []Component
	stack := make([]image.Point, 0, 256)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || !set(x, y) {
				continue
			}

			var points []image.Point
			minX, minY, maxX, maxY := x, y, x, y
			stack = append(stack[:0], image.Pt(x, y))
			visited[y*width+x] = true

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				points = append(points, p.Add(b.Min))

				if p.X < minX {
					minX = p.X
				}
				if p.X > maxX {
					maxX = p.X
				}
				if p.Y < minY {
					minY = p.Y
				}
				if p.Y > maxY {
					maxY = p.Y
				}

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= width || ny >= height {
							continue
						}
						if visited[ny*width+nx] || !set(nx, ny) {
							continue
						}
						visited[ny*width+nx] = true
						stack = append(stack, image.Pt(nx, ny))
					}
				}
			}

			if len(points) < minPixels {
				continue
			}
			components = append(components, Component{
				Bounds: image.Rect(minX, minY, maxX+1, maxY+1).Add(b.Min),
				Points: points,
			})
		}
	}

	sort.SliceStable(components, func(i, j int) bool {
		return components[i].Area() > components[j].Area()
	})
	return components
}
