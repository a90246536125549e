package textdetect

import (
	"image"
	"math"
)

// Point is a sub-pixel position.
type Point struct {
	X, Y float64
}

func (p Point) add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// RotatedRect is a rectangle of the given Width and Height centered on
// Center and rotated by Angle degrees.
type RotatedRect struct {
	Center Point
	Width  float64
	Height float64
	Angle  float64
}

// Points returns the four corners. Corners 0 and 2 are diagonal, as are 1
// and 3.
func (r RotatedRect) Points() [4]Point {
	rad := r.Angle * math.Pi / 180
	b := math.Cos(rad) * 0.5
	a := math.Sin(rad) * 0.5

	var pts [4]Point
	pts[0] = Point{
		X: r.Center.X - a*r.Height - b*r.Width,
		Y: r.Center.Y + b*r.Height - a*r.Width,
	}
	pts[1] = Point{
		X: r.Center.X + a*r.Height - b*r.Width,
		Y: r.Center.Y - b*r.Height - a*r.Width,
	}
	pts[2] = Point{2*r.Center.X - pts[0].X, 2*r.Center.Y - pts[0].Y}
	pts[3] = Point{2*r.Center.X - pts[1].X, 2*r.Center.Y - pts[1].Y}
	return pts
}

// BoundingRect returns the smallest integer rectangle containing every
// corner, including the pixels the corners fall in.
func (r RotatedRect) BoundingRect() image.Rectangle {
	pts := r.Points()
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return image.Rect(
		int(math.Floor(minX)),
		int(math.Floor(minY)),
		int(math.Ceil(maxX))+1,
		int(math.Ceil(maxY))+1,
	)
}

// Area is Width times Height.
func (r RotatedRect) Area() float64 { return r.Width * r.Height }

// IoU returns the intersection over union of two rotated rectangles.
func IoU(a, b RotatedRect) float64 {
	inter := polygonArea(clipPolygon(a.corners(), b.corners()))
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// corners returns the points in counter-clockwise order.
func (r RotatedRect) corners() []Point {
	pts := r.Points()
	poly := pts[:]
	if signedArea(poly) < 0 {
		poly = []Point{pts[3], pts[2], pts[1], pts[0]}
	}
	return poly
}

// clipPolygon intersects subject with the convex, counter-clockwise clip
// polygon (Sutherland-Hodgman).
func clipPolygon(subject, clip []Point) []Point {
	out := subject
	for i := range clip {
		if len(out) == 0 {
			return nil
		}
		a, b := clip[i], clip[(i+1)%len(clip)]
		in := out
		out = make([]Point, 0, len(in)+1)
		for j := range in {
			cur, prev := in[j], in[(j+len(in)-1)%len(in)]
			curIn, prevIn := inside(a, b, cur), inside(a, b, prev)
			switch {
			case curIn && prevIn:
				out = append(out, cur)
			case curIn:
				out = append(out, intersect(prev, cur, a, b), cur)
			case prevIn:
				out = append(out, intersect(prev, cur, a, b))
			}
		}
	}
	return out
}

func inside(a, b, p Point) bool {
	return cross(b.sub(a), p.sub(a)) >= 0
}

// intersect returns where segment pq crosses the line through ab.
func intersect(p, q, a, b Point) Point {
	d1 := q.sub(p)
	d2 := b.sub(a)
	den := cross(d1, d2)
	if den == 0 {
		return q
	}
	t := cross(a.sub(p), d2) / den
	return p.add(Point{d1.X * t, d1.Y * t})
}

func cross(u, v Point) float64 { return u.X*v.Y - u.Y*v.X }

func signedArea(poly []Point) float64 {
	var s float64
	for i := range poly {
		j := (i + 1) % len(poly)
		s += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return s / 2
}

func polygonArea(poly []Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	return math.Abs(signedArea(poly))
}
