package diagram

import (
	"image"
	"image/color"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// RenderMarker draws the person figure with label on a white plate above it.
// The canvas is wide enough for the label estimate and the figure is centred
// beneath it.
func RenderMarker(person image.Image, label string, style Style) *image.RGBA {
	pw, ph := person.Bounds().Dx(), person.Bounds().Dy()
	w := max(pw, utf8.RuneCountInString(label)*style.LabelCharWidth+2*style.LabelPadding)
	h := ph + style.LabelHeight

	dc := gg.NewContext(w, h)
	dc.DrawImage(person, (w-pw)/2, style.LabelHeight)

	if label != "" {
		dc.SetFontFace(basicfont.Face7x13)
		tw, th := dc.MeasureString(label)
		cx, cy := float64(w)/2, float64(style.LabelHeight)/2
		pad := float64(style.LabelPadding)
		dc.SetColor(color.White)
		dc.DrawRectangle(cx-tw/2-pad, cy-th/2-pad, tw+2*pad, th+2*pad)
		dc.Fill()
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(label, cx, cy, 0.5, 0.5)
	}
	return asRGBA(dc.Image())
}
