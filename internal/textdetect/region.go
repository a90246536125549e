package textdetect

import (
	"fmt"
	"image"
	"image/color"

	imgproc "github.com/hardsoftkoop/hsk-vision/internal/imaging"
)

// Region is a kept detection mapped back to the original image.
type Region struct {
	// Rect is the oriented box in original image coordinates.
	Rect RotatedRect
	// Bounds is the axis-aligned box, computed at network resolution and
	// scaled per axis.
	Bounds     image.Rectangle
	Confidence float32
}

// Rescale maps detections from the network input size to the original image
// size. X and Y are scaled independently.
func Rescale(dets []Detection, original, input image.Point) []Region {
	rx := float64(original.X) / float64(input.X)
	ry := float64(original.Y) / float64(input.Y)

	regions := make([]Region, 0, len(dets))
	for _, d := range dets {
		b := d.Rect.BoundingRect()
		x := int(float64(b.Min.X) * rx)
		y := int(float64(b.Min.Y) * ry)
		w := int(float64(b.Dx()) * rx)
		h := int(float64(b.Dy()) * ry)

		regions = append(regions, Region{
			Rect: RotatedRect{
				Center: Point{d.Rect.Center.X * rx, d.Rect.Center.Y * ry},
				Width:  d.Rect.Width * rx,
				Height: d.Rect.Height * ry,
				Angle:  d.Rect.Angle,
			},
			Bounds:     image.Rect(x, y, x+w, y+h),
			Confidence: d.Confidence,
		})
	}
	return regions
}

// Annotate returns a copy of img with each region's bounds outlined and
// labelled with its index.
func Annotate(img image.Image, regions []Region) *image.RGBA {
	out := imgproc.ToRGBA(img)
	colors := imgproc.Palette(len(regions))
	for i, r := range regions {
		imgproc.DrawRectangle(out, r.Bounds, colors[i], 1)
	}
	// Labels go on top so later boxes cannot hide them.
	for i, r := range regions {
		pt := image.Pt(r.Bounds.Min.X, r.Bounds.Min.Y-15)
		if pt.Y < out.Bounds().Min.Y {
			pt.Y = r.Bounds.Min.Y + 2
		}
		imgproc.DrawLabel(out, pt, fmt.Sprintf("%d", i), colors[i], color.Black)
	}
	return out
}
