// Package diagram composites practice steps into a ground image plus
// independently anchored player and arrow overlays.
package diagram

import (
	"fmt"
	"image/color"
)

// ReferencePolicy decides what happens to a movement whose origin player is
// not on the step.
type ReferencePolicy int

const (
	// Lenient skips the movement.
	Lenient ReferencePolicy = iota
	// Strict fails the step with ErrUnknownPlayer.
	Strict
)

func (p ReferencePolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// Style holds every drawing constant used by the renderers.
type Style struct {
	BallColor        color.RGBA
	PlayerMoveColor  color.RGBA
	BallDashed       bool
	PlayerMoveDashed bool

	DashLength          float64
	LineWidth           float64
	ShortenRatio        float64
	PerpendicularOffset float64
	Padding             int
	MinCanvas           int
	ArrowHeadAngleDeg   float64
	ArrowHeadLength     float64

	LabelHeight    int
	LabelPadding   int
	LabelCharWidth int

	MarkerMinSize       int
	MarkerGroundDivisor int

	ReferencePolicy ReferencePolicy
	ClampPositions  bool
}

// DefaultStyle returns the standard look: dashed orange passes, solid blue runs.
func DefaultStyle() Style {
	return Style{
		BallColor:        color.RGBA{R: 255, G: 165, A: 255},
		PlayerMoveColor:  color.RGBA{B: 255, A: 255},
		BallDashed:       true,
		PlayerMoveDashed: false,

		DashLength:          15,
		LineWidth:           5,
		ShortenRatio:        0.75,
		PerpendicularOffset: 6,
		Padding:             25,
		MinCanvas:           40,
		ArrowHeadAngleDeg:   30,
		ArrowHeadLength:     18,

		LabelHeight:    20,
		LabelPadding:   4,
		LabelCharWidth: 8,

		MarkerMinSize:       30,
		MarkerGroundDivisor: 15,

		ReferencePolicy: Lenient,
	}
}

// Validate rejects values the renderers cannot draw with.
func (s Style) Validate() error {
	switch {
	case s.ShortenRatio <= 0 || s.ShortenRatio > 1:
		return fmt.Errorf("%w: shorten ratio %v not in (0,1]", ErrInvalidStyle, s.ShortenRatio)
	case s.DashLength <= 0:
		return fmt.Errorf("%w: dash length must be positive", ErrInvalidStyle)
	case s.LineWidth <= 0:
		return fmt.Errorf("%w: line width must be positive", ErrInvalidStyle)
	case s.PerpendicularOffset < 0:
		return fmt.Errorf("%w: perpendicular offset must not be negative", ErrInvalidStyle)
	case s.Padding < 0:
		return fmt.Errorf("%w: padding must not be negative", ErrInvalidStyle)
	case s.MinCanvas <= 0:
		return fmt.Errorf("%w: min canvas must be positive", ErrInvalidStyle)
	case s.ArrowHeadAngleDeg <= 0 || s.ArrowHeadAngleDeg >= 90:
		return fmt.Errorf("%w: arrowhead angle %v not in (0,90)", ErrInvalidStyle, s.ArrowHeadAngleDeg)
	case s.ArrowHeadLength <= 0:
		return fmt.Errorf("%w: arrowhead length must be positive", ErrInvalidStyle)
	case s.LabelHeight <= 0 || s.LabelCharWidth <= 0 || s.LabelPadding < 0:
		return fmt.Errorf("%w: label metrics must be positive", ErrInvalidStyle)
	case s.MarkerMinSize <= 0 || s.MarkerGroundDivisor <= 0:
		return fmt.Errorf("%w: marker sizing must be positive", ErrInvalidStyle)
	}
	return nil
}

// paint returns the colour, dash flag and offset sign for an arrow kind.
func (s Style) paint(kind Kind) (color.RGBA, bool, float64) {
	if kind == KindBall {
		return s.BallColor, s.BallDashed, 1
	}
	return s.PlayerMoveColor, s.PlayerMoveDashed, -1
}

// markerSize is the square edge of the person figure on a ground of w×h.
func (s Style) markerSize(w, h int) int {
	return max(s.MarkerMinSize, min(w, h)/s.MarkerGroundDivisor)
}
