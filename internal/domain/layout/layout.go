// Package layout fits a composed diagram into a display budget with one
// uniform scale factor shared by the ground and every overlay.
package layout

import (
	"image"
	"math"

	"github.com/okian/drillsheet/internal/domain/geometry"
)

// Budget is the largest display size a diagram may occupy.
type Budget struct {
	MaxWidth  int
	MaxHeight int
}

// DefaultBudget fits a diagram into one workbook cell.
func DefaultBudget() Budget {
	return Budget{MaxWidth: 350, MaxHeight: 200}
}

// Scale is a uniform shrink factor in (0,1].
type Scale float64

// Fit returns the largest scale that fits native inside budget without
// upscaling.
func Fit(native geometry.Size, budget Budget) Scale {
	if native.W <= 0 || native.H <= 0 {
		return 1
	}
	s := math.Min(1, math.Min(
		float64(budget.MaxWidth)/float64(native.W),
		float64(budget.MaxHeight)/float64(native.H),
	))
	if s <= 0 {
		return 1
	}
	return Scale(s)
}

// Placement is a scaled image positioned relative to the ground's top-left.
type Placement struct {
	OffsetX int
	OffsetY int
	Width   int
	Height  int
}

// Ground places the ground image itself.
func (s Scale) Ground(native geometry.Size) Placement {
	return Placement{Width: s.length(native.W), Height: s.length(native.H)}
}

// Apply scales an overlay of the given size centred at center and returns
// where its top-left lands.
func (s Scale) Apply(center image.Point, size geometry.Size) Placement {
	w, h := s.length(size.W), s.length(size.H)
	return Placement{
		OffsetX: int(float64(center.X)*float64(s)) - w/2,
		OffsetY: int(float64(center.Y)*float64(s)) - h/2,
		Width:   w,
		Height:  h,
	}
}

func (s Scale) length(n int) int {
	return max(1, int(float64(n)*float64(s)))
}
