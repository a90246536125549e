package textdetect

import (
	"fmt"
	"math"
	"sort"
)

// Stride is the ratio between network input and output map resolution.
const Stride = 4

// Maps are the two network outputs in planar layout: Scores holds one value
// per cell, Geometry holds five planes (distances to the top, right, bottom
// and left edges, then the angle in radians).
type Maps struct {
	Width    int
	Height   int
	Scores   []float32
	Geometry []float32
}

// Validate checks the slice lengths against the grid size.
func (m Maps) Validate() error {
	cells := m.Width * m.Height
	if cells <= 0 {
		return fmt.Errorf("empty output grid %dx%d", m.Width, m.Height)
	}
	if len(m.Scores) != cells {
		return fmt.Errorf("score map has %d values, want %d", len(m.Scores), cells)
	}
	if len(m.Geometry) != 5*cells {
		return fmt.Errorf("geometry map has %d values, want %d", len(m.Geometry), 5*cells)
	}
	return nil
}

func (m Maps) geometry(plane, x, y int) float64 {
	return float64(m.Geometry[plane*m.Width*m.Height+y*m.Width+x])
}

// Detection is one decoded candidate in network input coordinates.
type Detection struct {
	Rect       RotatedRect
	Confidence float32
}

// Decode turns every cell scoring at least threshold into a rotated box.
func Decode(m Maps, threshold float32) ([]Detection, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var dets []Detection
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			score := m.Scores[y*m.Width+x]
			if score < threshold {
				continue
			}

			d0, d1 := m.geometry(0, x, y), m.geometry(1, x, y)
			d2, d3 := m.geometry(2, x, y), m.geometry(3, x, y)
			angle := m.geometry(4, x, y)

			cosA, sinA := math.Cos(angle), math.Sin(angle)
			h := d0 + d2
			w := d1 + d3

			offset := Point{
				X: float64(x*Stride) + cosA*d1 + sinA*d2,
				Y: float64(y*Stride) - sinA*d1 + cosA*d2,
			}
			p1 := Point{-sinA * h, -cosA * h}.add(offset)
			p3 := Point{-cosA * w, sinA * w}.add(offset)

			dets = append(dets, Detection{
				Rect: RotatedRect{
					Center: Point{(p1.X + p3.X) / 2, (p1.Y + p3.Y) / 2},
					Width:  w,
					Height: h,
					Angle:  normalizeAngle(-angle * 180 / math.Pi),
				},
				Confidence: score,
			})
		}
	}
	return dets, nil
}

// normalizeAngle maps degrees into (-180, 180].
func normalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg <= -180 {
		deg += 360
	} else if deg > 180 {
		deg -= 360
	}
	return deg
}

// NMS returns the indices of the detections to keep, highest confidence
// first. Detections below scoreThreshold are ignored; a candidate overlapping
// an already kept box by more than overlapThreshold (IoU) is dropped.
func NMS(dets []Detection, scoreThreshold, overlapThreshold float32) []int {
	order := make([]int, 0, len(dets))
	for i, d := range dets {
		if d.Confidence >= scoreThreshold {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dets[order[a]].Confidence > dets[order[b]].Confidence
	})

	var keep []int
	for _, i := range order {
		ok := true
		for _, k := range keep {
			if IoU(dets[i].Rect, dets[k].Rect) > float64(overlapThreshold) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	return keep
}
