package geometry

import (
	"image"
	"math"
)

// Epsilon is the length below which a segment is treated as a point.
const Epsilon = 1e-9

// Segment is a directed line from From to To.
type Segment struct {
	From, To Point
}

// Seg builds a segment from integer endpoints.
func Seg(from, to image.Point) Segment {
	return Segment{From: PointOf(from), To: PointOf(to)}
}

func (s Segment) delta() (dx, dy float64) {
	return s.To.X - s.From.X, s.To.Y - s.From.Y
}

// Length is the euclidean length.
func (s Segment) Length() float64 {
	dx, dy := s.delta()
	return math.Hypot(dx, dy)
}

// Midpoint is the centre of the segment.
func (s Segment) Midpoint() Point {
	return Point{X: (s.From.X + s.To.X) / 2, Y: (s.From.Y + s.To.Y) / 2}
}

// Direction is the unit direction vector; zero for a degenerate segment.
func (s Segment) Direction() Point {
	l := s.Length()
	if l < Epsilon {
		return Point{}
	}
	dx, dy := s.delta()
	return Point{X: dx / l, Y: dy / l}
}

// Normal is the unit normal (-dy, dx)/len; zero for a degenerate segment.
func (s Segment) Normal() Point {
	d := s.Direction()
	return Point{X: -d.Y, Y: d.X}
}

// IsDegenerate reports whether the segment is shorter than eps.
func (s Segment) IsDegenerate(eps float64) bool {
	return s.Length() < eps
}

// Canonical reports whether the segment runs left to right, or top to bottom
// when vertical.
func (s Segment) Canonical() bool {
	dx, dy := s.delta()
	if dx != 0 {
		return dx > 0
	}
	return dy >= 0
}

// Shorten scales both endpoints toward the midpoint by ratio. Ratios outside
// (0,1) leave the segment unchanged.
func (s Segment) Shorten(ratio float64) Segment {
	if ratio >= 1 || ratio <= 0 {
		return s
	}
	m := s.Midpoint()
	scale := func(p Point) Point {
		return Point{X: m.X + (p.X-m.X)*ratio, Y: m.Y + (p.Y-m.Y)*ratio}
	}
	return Segment{From: scale(s.From), To: scale(s.To)}
}

// Offset translates the segment d pixels along its unit normal.
func (s Segment) Offset(d float64) Segment {
	if d == 0 || s.IsDegenerate(Epsilon) {
		return s
	}
	n := s.Normal()
	shift := func(p Point) Point {
		return Point{X: p.X + n.X*d, Y: p.Y + n.Y*d}
	}
	return Segment{From: shift(s.From), To: shift(s.To)}
}

// Bounds is the integer box around the segment grown by padding on every
// side, widened symmetrically to at least minSize on each axis.
func (s Segment) Bounds(padding, minSize int) image.Rectangle {
	x0 := int(math.Floor(math.Min(s.From.X, s.To.X))) - padding
	y0 := int(math.Floor(math.Min(s.From.Y, s.To.Y))) - padding
	x1 := int(math.Ceil(math.Max(s.From.X, s.To.X))) + padding
	y1 := int(math.Ceil(math.Max(s.From.Y, s.To.Y))) + padding
	x0, x1 = widen(x0, x1, minSize)
	y0, y1 = widen(y0, y1, minSize)
	return image.Rect(x0, y0, x1, y1)
}

func widen(lo, hi, size int) (int, int) {
	if d := size - (hi - lo); d > 0 {
		lo -= d / 2
		hi = lo + size
	}
	return lo, hi
}

// Dot is the dot product of two vectors.
func Dot(a, b Point) float64 {
	return a.X*b.X + a.Y*b.Y
}

// Sub returns a-b.
func Sub(a, b Point) Point {
	return Point{X: a.X - b.X, Y: a.Y - b.Y}
}

// Centre returns the centre pixel of r.
func Centre(r image.Rectangle) image.Point {
	return image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
}
