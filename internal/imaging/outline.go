package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// OutlineResult is the rendered outline of an image plus its shape count.
type OutlineResult struct {
	Image *image.RGBA
	// Shapes is the number of connected edge groups that were drawn.
	Shapes int
	// Bounds lists the bounding rectangle of each shape, largest first.
	Bounds []image.Rectangle
}

// Outline extracts edge contours from img and paints each connected group in
// its own color on a black canvas. It gives a quick view of the shapes and
// their extents in a still.
//
// Parameters:
//   - img: Source image.
//   - low, high: Canny hysteresis thresholds (100 and 200 suit photographs).
//   - minPixels: Edge groups smaller than this are skipped.
func Outline(img image.Image, low, high float64, minPixels int) *OutlineResult {
	edges := Canny(img, low, high)
	comps := Components(edges, minPixels)

	canvas := image.NewRGBA(edges.Bounds())
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	palette := Palette(len(comps))
	bounds := make([]image.Rectangle, 0, len(comps))
	for i, c := range comps {
		for _, p := range c.Points {
			canvas.SetRGBA(p.X, p.Y, palette[i])
		}
		bounds = append(bounds, c.Bounds)
	}

	return &OutlineResult{
		Image:  canvas,
		Shapes: len(comps),
		Bounds: bounds,
	}
}
