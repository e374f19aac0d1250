package diagram

import (
	"image"
	"image/draw"
	"math"

	"github.com/fogleman/gg"

	"github.com/okian/drillsheet/internal/domain/geometry"
)

// RenderArrow draws an arrow from one ground pixel to another on a minimal
// transparent canvas. Ball arrows are dashed and pushed to the positive side
// of the segment, player runs are solid and pushed to the negative side; the
// side is measured against the segment's canonical orientation so the two
// kinds stay apart whichever way they run.
func RenderArrow(from, to image.Point, kind Kind, style Style) Overlay {
	seg := geometry.Seg(from, to)
	if seg.IsDegenerate(geometry.Epsilon) {
		n := style.MinCanvas
		return Overlay{Kind: kind, Image: image.NewRGBA(image.Rect(0, 0, n, n)), Center: from}
	}

	col, dashed, side := style.paint(kind)
	seg = seg.Shorten(style.ShortenRatio)
	if !seg.Canonical() {
		side = -side
	}
	seg = seg.Offset(side * style.PerpendicularOffset)

	box := seg.Bounds(style.Padding, style.MinCanvas)
	origin := geometry.PointOf(box.Min)
	local := geometry.Segment{
		From: geometry.Sub(seg.From, origin),
		To:   geometry.Sub(seg.To, origin),
	}

	dc := gg.NewContext(box.Dx(), box.Dy())
	dc.SetColor(col)
	dc.SetLineWidth(style.LineWidth)
	if dashed {
		dashLine(dc, local, style.DashLength)
	} else {
		dc.DrawLine(local.From.X, local.From.Y, local.To.X, local.To.Y)
	}
	dc.Stroke()
	arrowHead(dc, local, style.ArrowHeadAngleDeg, style.ArrowHeadLength)

	return Overlay{Kind: kind, Image: asRGBA(dc.Image()), Center: geometry.Centre(box)}
}

// dashLine splits s into floor(len/dash) equal pieces and draws the even ones.
func dashLine(dc *gg.Context, s geometry.Segment, dash float64) {
	n := int(s.Length() / dash)
	if n < 1 {
		n = 1
	}
	dx, dy := s.To.X-s.From.X, s.To.Y-s.From.Y
	for i := 0; i < n; i += 2 {
		t0 := float64(i) / float64(n)
		t1 := math.Min(float64(i+1)/float64(n), 1)
		dc.DrawLine(s.From.X+dx*t0, s.From.Y+dy*t0, s.From.X+dx*t1, s.From.Y+dy*t1)
	}
}

func arrowHead(dc *gg.Context, s geometry.Segment, angleDeg, length float64) {
	a := math.Atan2(s.To.Y-s.From.Y, s.To.X-s.From.X)
	h := angleDeg * math.Pi / 180
	dc.MoveTo(s.To.X, s.To.Y)
	dc.LineTo(s.To.X-length*math.Cos(a-h), s.To.Y-length*math.Sin(a-h))
	dc.LineTo(s.To.X-length*math.Cos(a+h), s.To.Y-length*math.Sin(a+h))
	dc.ClosePath()
	dc.Fill()
}

func asRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst
}
