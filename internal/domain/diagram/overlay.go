package diagram

import (
	"image"
	"image/draw"
	"image/png"
	"io"

	"github.com/okian/drillsheet/internal/domain/geometry"
)

// Kind tags an overlay.
type Kind string

const (
	KindPlayer Kind = "player"
	KindBall   Kind = "ball"
	KindMove   Kind = "move"
)

// Overlay is a transparent image whose centre sits at Center in ground pixels.
type Overlay struct {
	Kind   Kind
	Label  string
	Image  *image.RGBA
	Center image.Point
}

// Size is the overlay's pixel size.
func (o Overlay) Size() geometry.Size {
	return geometry.SizeOf(o.Image.Bounds())
}

// Bounds is the rectangle the overlay covers on the ground.
func (o Overlay) Bounds() image.Rectangle {
	sz := o.Size()
	topLeft := image.Pt(o.Center.X-sz.W/2, o.Center.Y-sz.H/2)
	return image.Rectangle{Min: topLeft, Max: topLeft.Add(image.Pt(sz.W, sz.H))}
}

// Bundle is one composed step: the ground and the overlays drawn over it.
type Bundle struct {
	Step    int
	Ground  *image.RGBA
	Size    geometry.Size
	Players []Overlay
	Arrows  []Overlay
}

// Overlays returns arrows followed by players, the order they are stacked in.
func (b *Bundle) Overlays() []Overlay {
	out := make([]Overlay, 0, len(b.Arrows)+len(b.Players))
	out = append(out, b.Arrows...)
	return append(out, b.Players...)
}

// Flatten draws every overlay onto a copy of the ground.
func (b *Bundle) Flatten() *image.RGBA {
	dst := cloneRGBA(b.Ground)
	for _, o := range b.Overlays() {
		r := o.Bounds()
		draw.Draw(dst, r, o.Image, o.Image.Bounds().Min, draw.Over)
	}
	return dst
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func cloneRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
