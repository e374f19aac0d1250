package diagram

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/drillsheet/internal/domain/plan"
	. "github.com/smartystreets/goconvey/convey"
)

var pitchGreen = color.RGBA{G: 128, A: 255}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func testAssets(style Style) *Assets {
	a, err := NewAssets(solid(1000, 600, pitchGreen), solid(64, 64, color.Black), style)
	if err != nil {
		panic(err)
	}
	return a
}

func scenarioStep() *plan.Step {
	return &plan.Step{
		Number:  1,
		Players: []plan.Player{{ID: "A", Position: plan.Position{X: 0.5, Y: 0.5}}},
		Movements: []plan.PlayerMovement{
			{FromPlayer: "A", To: plan.Position{X: 0.7, Y: 0.5}},
		},
		BallMovements: []plan.BallMovement{
			{From: plan.Position{X: 0.5, Y: 0.5}, To: plan.Position{X: 0.3, Y: 0.5}},
		},
	}
}

func TestCompose(t *testing.T) {
	Convey("Given a compositor over a 1000x600 ground", t, func() {
		ctx := context.Background()
		c, err := New(testAssets(DefaultStyle()))
		So(err, ShouldBeNil)

		Convey("When composing a step with one player, one run and one pass", func() {
			b, err := c.Compose(ctx, scenarioStep())
			So(err, ShouldBeNil)

			Convey("Then the player marker is anchored at the player", func() {
				So(b.Size.W, ShouldEqual, 1000)
				So(b.Size.H, ShouldEqual, 600)
				So(b.Players, ShouldHaveLength, 1)
				So(b.Players[0].Center, ShouldResemble, image.Pt(500, 300))
				So(b.Players[0].Label, ShouldEqual, "A")
			})

			Convey("Then the run arrow sits between the endpoints, 6px to the negative side", func() {
				So(b.Arrows, ShouldHaveLength, 2)
				move := b.Arrows[1]
				So(move.Kind, ShouldEqual, KindMove)
				So(move.Center.X, ShouldBeGreaterThan, 500)
				So(move.Center.X, ShouldBeLessThan, 700)
				So(move.Center.Y, ShouldEqual, 300-6)

				line := move.Image.RGBAAt(move.Image.Bounds().Dx()/2, 300-6-move.Bounds().Min.Y)
				So(line, ShouldResemble, color.RGBA{B: 255, A: 255})
			})

			Convey("Then the pass arrow sits 6px to the opposite side and is dashed", func() {
				ball := b.Arrows[0]
				So(ball.Kind, ShouldEqual, KindBall)
				So(ball.Center.X, ShouldBeGreaterThan, 300)
				So(ball.Center.X, ShouldBeLessThan, 500)
				So(ball.Center.Y, ShouldEqual, 300+6)

				// shortened pass runs x 475 -> 325 at y 306 on a box starting at (300, 281)
				y := 306 - ball.Bounds().Min.Y
				So(ball.Image.RGBAAt(167, y), ShouldResemble, color.RGBA{R: 255, G: 165, A: 255})
				So(ball.Image.RGBAAt(152, y).A, ShouldEqual, 0)
			})

			Convey("Then flattening paints overlays over a copy of the ground", func() {
				flat := b.Flatten()
				So(flat.Bounds().Dx(), ShouldEqual, 1000)
				So(flat.RGBAAt(600, 294), ShouldResemble, color.RGBA{B: 255, A: 255})
				So(flat.RGBAAt(10, 10), ShouldResemble, pitchGreen)
				So(b.Ground.RGBAAt(600, 294), ShouldResemble, pitchGreen)
			})
		})

		Convey("When the bundle's ground is modified", func() {
			b, err := c.Compose(ctx, scenarioStep())
			So(err, ShouldBeNil)
			b.Ground.Set(0, 0, color.White)

			Convey("Then later steps still get a clean ground", func() {
				next, err := c.Compose(ctx, scenarioStep())
				So(err, ShouldBeNil)
				So(next.Ground.RGBAAt(0, 0), ShouldResemble, pitchGreen)
			})
		})

		Convey("When a run references an unknown player", func() {
			step := scenarioStep()
			step.Movements = []plan.PlayerMovement{{FromPlayer: "Z", To: plan.Position{X: 0.1, Y: 0.1}}}
			b, err := c.Compose(ctx, step)

			Convey("Then the run is skipped without error", func() {
				So(err, ShouldBeNil)
				So(b.Arrows, ShouldHaveLength, 1)
				So(b.Arrows[0].Kind, ShouldEqual, KindBall)
			})

			Convey("And the policy is strict", func() {
				style := DefaultStyle()
				style.ReferencePolicy = Strict
				strict, err := New(testAssets(style), WithStyle(style))
				So(err, ShouldBeNil)

				_, err = strict.Compose(ctx, step)
				So(errors.Is(err, ErrUnknownPlayer), ShouldBeTrue)
			})
		})

		Convey("When a pass starts and ends on the same spot", func() {
			step := &plan.Step{BallMovements: []plan.BallMovement{
				{From: plan.Position{X: 0.4, Y: 0.4}, To: plan.Position{X: 0.4, Y: 0.4}},
			}}
			b, err := c.Compose(ctx, step)

			Convey("Then a blank 40x40 overlay is produced", func() {
				So(err, ShouldBeNil)
				So(b.Arrows, ShouldHaveLength, 1)
				img := b.Arrows[0].Image
				So(img.Bounds().Dx(), ShouldEqual, 40)
				So(img.Bounds().Dy(), ShouldEqual, 40)
				So(b.Arrows[0].Center, ShouldResemble, image.Pt(400, 240))
				for _, px := range img.Pix {
					So(px, ShouldEqual, 0)
				}
			})
		})

		Convey("When positions fall outside the pitch", func() {
			step := &plan.Step{Players: []plan.Player{{ID: "A", Position: plan.Position{X: 1.2, Y: -0.1}}}}

			Convey("Then they extrapolate by default", func() {
				b, err := c.Compose(ctx, step)
				So(err, ShouldBeNil)
				So(b.Players[0].Center, ShouldResemble, image.Pt(1200, -60))
			})

			Convey("Then clamping keeps them on the ground", func() {
				style := DefaultStyle()
				style.ClampPositions = true
				clamped, err := New(testAssets(style), WithStyle(style))
				So(err, ShouldBeNil)
				b, err := clamped.Compose(ctx, step)
				So(err, ShouldBeNil)
				So(b.Players[0].Center, ShouldResemble, image.Pt(1000, 0))
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := c.Compose(cctx, scenarioStep())

			Convey("Then composing stops", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestComposePlan(t *testing.T) {
	Convey("Given a plan with several steps", t, func() {
		c, err := New(testAssets(DefaultStyle()))
		So(err, ShouldBeNil)
		p := &plan.PracticePlan{}
		for i := 1; i <= 6; i++ {
			s := *scenarioStep()
			s.Number = i
			p.Steps = append(p.Steps, s)
		}

		for _, parallelism := range []int{1, 4} {
			bundles, err := c.ComposePlan(context.Background(), p, parallelism)
			So(err, ShouldBeNil)
			So(bundles, ShouldHaveLength, 6)
			for i, b := range bundles {
				So(b.Step, ShouldEqual, i+1)
			}
		}
	})
}

func TestRenderArrow(t *testing.T) {
	Convey("Given the default style", t, func() {
		style := DefaultStyle()

		Convey("Then a pass and a run between the same points land on opposite sides", func() {
			from, to := image.Pt(100, 100), image.Pt(300, 400)
			ball := RenderArrow(from, to, KindBall, style)
			move := RenderArrow(from, to, KindMove, style)
			back := RenderArrow(to, from, KindBall, style)

			// unit normal of (200,300) points to (-300,200)/len
			So(ball.Center.X, ShouldBeLessThan, move.Center.X)
			So(back.Center, ShouldResemble, ball.Center)
		})

		Convey("Then the canvas covers the padded segment", func() {
			o := RenderArrow(image.Pt(0, 0), image.Pt(400, 0), KindMove, style)
			So(o.Image.Bounds().Dx(), ShouldEqual, 300+50)
			So(o.Image.Bounds().Dy(), ShouldEqual, 50)
		})
	})
}

func TestRenderMarker(t *testing.T) {
	Convey("Given a 40px figure", t, func() {
		style := DefaultStyle()
		person := solid(40, 40, color.Black)

		Convey("Then a short label keeps the figure width", func() {
			img := RenderMarker(person, "A", style)
			So(img.Bounds().Dx(), ShouldEqual, 40)
			So(img.Bounds().Dy(), ShouldEqual, 60)
			So(img.RGBAAt(20, 40), ShouldResemble, color.RGBA{A: 255})
			So(img.RGBAAt(2, 1).A, ShouldEqual, 0)
		})

		Convey("Then a long label widens the canvas and centres the figure", func() {
			img := RenderMarker(person, "GOALKEEPER", style)
			So(img.Bounds().Dx(), ShouldEqual, 10*8+2*4)
			So(img.RGBAAt(24, 40).A, ShouldEqual, 255)
			So(img.RGBAAt(5, 40).A, ShouldEqual, 0)
			So(img.RGBAAt(44, 10).A, ShouldEqual, 255)
		})
	})
}

func TestAssets(t *testing.T) {
	Convey("Given an assets directory", t, func() {
		dir := t.TempDir()
		style := DefaultStyle()

		Convey("When it is empty", func() {
			_, err := LoadAssets(dir, style)

			Convey("Then loading fails with a missing asset", func() {
				So(errors.Is(err, ErrAssetMissing), ShouldBeTrue)
			})
		})

		Convey("When a file is not an image", func() {
			writePNG(t, filepath.Join(dir, GroundFile), solid(300, 150, pitchGreen))
			So(os.WriteFile(filepath.Join(dir, PersonFile), []byte("nope"), 0o600), ShouldBeNil)
			_, err := LoadAssets(dir, style)

			Convey("Then loading fails with a decode error", func() {
				So(errors.Is(err, ErrAssetDecode), ShouldBeTrue)
			})
		})

		Convey("When both images are present", func() {
			writePNG(t, filepath.Join(dir, GroundFile), solid(900, 600, pitchGreen))
			writePNG(t, filepath.Join(dir, PersonFile), solid(256, 256, color.Black))
			a, err := LoadAssets(dir, style)

			Convey("Then the figure is resized relative to the ground", func() {
				So(err, ShouldBeNil)
				So(a.GroundSize().W, ShouldEqual, 900)
				So(a.Person().Bounds().Dx(), ShouldEqual, 40)
			})
		})

		Convey("When the ground is small", func() {
			a, err := NewAssets(solid(200, 100, pitchGreen), solid(10, 10, color.Black), style)

			Convey("Then the figure keeps the minimum size", func() {
				So(err, ShouldBeNil)
				So(a.Person().Bounds().Dx(), ShouldEqual, 30)
			})
		})
	})

	Convey("Given the built-in assets", t, func() {
		a, err := DefaultAssets(DefaultStyle())

		Convey("Then a full-size pitch is available", func() {
			So(err, ShouldBeNil)
			So(a.GroundSize().W, ShouldEqual, 1000)
			So(a.GroundSize().H, ShouldEqual, 600)
		})
	})
}

func TestStyleValidate(t *testing.T) {
	Convey("Given style variants", t, func() {
		So(DefaultStyle().Validate(), ShouldBeNil)

		bad := DefaultStyle()
		bad.ShortenRatio = 0
		So(errors.Is(bad.Validate(), ErrInvalidStyle), ShouldBeTrue)

		bad = DefaultStyle()
		bad.ArrowHeadAngleDeg = 90
		So(bad.Validate(), ShouldNotBeNil)

		_, err := New(testAssets(DefaultStyle()), WithStyle(bad))
		So(errors.Is(err, ErrInvalidStyle), ShouldBeTrue)
	})
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}
