package diagram

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // ground photos are often JPEG
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/okian/drillsheet/internal/domain/geometry"
)

// Asset file names inside an assets directory.
const (
	GroundFile = "ground.png"
	PersonFile = "person.png"
)

// Assets are the read-only source bitmaps shared by every step.
type Assets struct {
	ground *image.RGBA
	person *image.RGBA
}

// LoadAssets reads ground.png and person.png from dir.
func LoadAssets(dir string, style Style) (*Assets, error) {
	ground, err := loadImage(filepath.Join(dir, GroundFile))
	if err != nil {
		return nil, err
	}
	person, err := loadImage(filepath.Join(dir, PersonFile))
	if err != nil {
		return nil, err
	}
	return NewAssets(ground, person, style)
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetMissing, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetMissing, path, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetDecode, path, err)
	}
	return img, nil
}

// NewAssets wraps in-memory images. The person figure is resized to a square
// proportional to the ground.
func NewAssets(ground, person image.Image, style Style) (*Assets, error) {
	if ground == nil || person == nil {
		return nil, ErrAssetMissing
	}
	g := cloneRGBA(ground)
	if g.Rect.Dx() == 0 || g.Rect.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty ground image", ErrAssetDecode)
	}
	size := style.markerSize(g.Rect.Dx(), g.Rect.Dy())
	p := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(p, p.Bounds(), person, person.Bounds(), xdraw.Src, nil)
	return &Assets{ground: g, person: p}, nil
}

// Ground returns a fresh copy of the ground image.
func (a *Assets) Ground() *image.RGBA {
	return cloneRGBA(a.ground)
}

// GroundSize is the ground's pixel size.
func (a *Assets) GroundSize() geometry.Size {
	return geometry.SizeOf(a.ground.Bounds())
}

// Person returns the resized figure. Callers must not modify it.
func (a *Assets) Person() *image.RGBA {
	return a.person
}

// Default pitch dimensions for the built-in assets.
const (
	defaultGroundW = 1000
	defaultGroundH = 600
)

// DefaultAssets draws a plain pitch and figure so the tool works without an
// assets directory.
func DefaultAssets(style Style) (*Assets, error) {
	return NewAssets(drawPitch(defaultGroundW, defaultGroundH), drawFigure(128), style)
}

func drawPitch(w, h int) image.Image {
	dc := gg.NewContext(w, h)
	dc.SetColor(color.RGBA{R: 46, G: 139, B: 87, A: 255})
	dc.Clear()

	fw, fh := float64(w), float64(h)
	m := fh * 0.05
	dc.SetColor(color.White)
	dc.SetLineWidth(3)
	dc.DrawRectangle(m, m, fw-2*m, fh-2*m)
	dc.DrawLine(fw/2, m, fw/2, fh-m)
	dc.DrawCircle(fw/2, fh/2, fh*0.15)
	boxW, boxH := fw*0.14, fh*0.5
	dc.DrawRectangle(m, (fh-boxH)/2, boxW, boxH)
	dc.DrawRectangle(fw-m-boxW, (fh-boxH)/2, boxW, boxH)
	dc.Stroke()
	dc.DrawCircle(fw/2, fh/2, 4)
	dc.Fill()
	return dc.Image()
}

func drawFigure(size int) image.Image {
	dc := gg.NewContext(size, size)
	s := float64(size)
	dc.SetColor(color.RGBA{R: 220, G: 30, B: 30, A: 255})
	dc.DrawCircle(s/2, s*0.22, s*0.18)
	dc.Fill()
	dc.DrawRoundedRectangle(s*0.25, s*0.42, s*0.5, s*0.52, s*0.1)
	dc.Fill()
	dc.SetColor(color.Black)
	dc.SetLineWidth(s * 0.03)
	dc.DrawCircle(s/2, s*0.22, s*0.18)
	dc.DrawRoundedRectangle(s*0.25, s*0.42, s*0.5, s*0.52, s*0.1)
	dc.Stroke()
	return dc.Image()
}
