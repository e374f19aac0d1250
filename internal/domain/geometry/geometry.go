// Package geometry maps relative pitch coordinates onto ground pixels and
// provides the segment math used to lay out arrows.
package geometry

import (
	"image"
	"math"

	"github.com/okian/drillsheet/internal/domain/plan"
)

// Point is a position in ground pixel space.
type Point struct {
	X, Y float64
}

// Size is a pixel size.
type Size struct {
	W, H int
}

// PointOf converts an integer pixel to a Point.
func PointOf(p image.Point) Point {
	return Point{X: float64(p.X), Y: float64(p.Y)}
}

// Round returns the nearest integer pixel.
func (p Point) Round() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// SizeOf returns the size of r.
func SizeOf(r image.Rectangle) Size {
	return Size{W: r.Dx(), H: r.Dy()}
}

// ToAbsolute maps rel onto a ground of the given size, rounding to the
// nearest pixel. Values outside [0,1] extrapolate.
func ToAbsolute(rel plan.Position, ground Size) image.Point {
	return image.Pt(
		int(math.Round(rel.X*float64(ground.W))),
		int(math.Round(rel.Y*float64(ground.H))),
	)
}

// Clamp01 limits both coordinates to [0,1].
func Clamp01(rel plan.Position) plan.Position {
	return plan.Position{X: clamp(rel.X, 0, 1), Y: clamp(rel.Y, 0, 1)}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
