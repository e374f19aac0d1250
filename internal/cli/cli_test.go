package cli

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/okian/drillsheet/internal/adapters/http/api"
	"github.com/okian/drillsheet/internal/adapters/llm"
	"github.com/okian/drillsheet/internal/adapters/sheet"
	service "github.com/okian/drillsheet/internal/app"
	"github.com/okian/drillsheet/internal/config"
	"github.com/okian/drillsheet/internal/domain/plan"
	"github.com/okian/drillsheet/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const planJSON = `{
  "title": "3対1ロンド",
  "description": "ボール保持",
  "steps": [
    {
      "name": "ロンド",
      "players": [
        {"id": "A", "position": {"x": 0.2, "y": 0.5}},
        {"id": "B", "position": {"x": 0.8, "y": 0.5}},
        {"id": "D", "position": {"x": 0.5, "y": 0.5}, "role": "DF"}
      ],
      "movements": [{"from_player": "D", "to_position": {"x": 0.6, "y": 0.4}}],
      "ball_movements": [{"from": {"x": 0.2, "y": 0.5}, "to": {"x": 0.8, "y": 0.5}, "type": "pass"}]
    }
  ],
  "key_points": ["体の向き"]
}`

type harness struct {
	app *App
	out *bytes.Buffer
	dir string
}

func newHarness(t *testing.T, provider llm.Provider, stdin string, interactive bool) *harness {
	out := &bytes.Buffer{}
	h := &harness{out: out, dir: t.TempDir()}
	h.app = &App{
		In:            strings.NewReader(stdin),
		Out:           out,
		Err:           &bytes.Buffer{},
		IsInteractive: func() bool { return interactive },
		Build: func(_ context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
			opts := []service.Option{service.WithLogger(log), service.WithRenderParallelism(1)}
			if provider != nil {
				opts = append(opts, service.WithProvider(provider))
			}
			return service.New(opts...)
		},
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := NewRootCmd(h.app)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func staticProvider() llm.Provider {
	p, err := plan.Parse([]byte(planJSON))
	if err != nil {
		panic(err)
	}
	return &llm.StaticProvider{Plan: p}
}

func TestGenerateCommand(t *testing.T) {
	Convey("Given a CLI with a static provider", t, func() {
		h := newHarness(t, staticProvider(), "", true)
		out := filepath.Join(h.dir, "menu.xlsx")

		Convey("When the challenge is an argument", func() {
			err := h.run("generate", "パス", "練習", "-o", out)
			So(err, ShouldBeNil)

			Convey("Then the workbook is written", func() {
				f, err := excelize.OpenFile(out)
				So(err, ShouldBeNil)
				defer f.Close()
				title, _ := f.GetCellValue(sheet.SheetName, "A1")
				So(title, ShouldEqual, "3対1ロンド")
			})

			Convey("And progress is reported", func() {
				So(h.out.String(), ShouldContainSubstring, "練習課題を分析中: パス 練習")
				So(h.out.String(), ShouldContainSubstring, "ステップ 1/1: ロンド")
				So(h.out.String(), ShouldContainSubstring, "完成")
			})
		})

		Convey("When no challenge is given on a terminal", func() {
			err := h.run("generate", "-o", out)
			So(err, ShouldEqual, errNoChallenge)
		})
	})

	Convey("Given a challenge piped on stdin", t, func() {
		h := newHarness(t, staticProvider(), "  守備練習\n", false)
		out := filepath.Join(h.dir, "nested", "menu.xlsx")

		err := h.run("generate", "-o", out)

		Convey("Then it is read and the output directory is created", func() {
			So(err, ShouldBeNil)
			So(h.out.String(), ShouldContainSubstring, "練習課題を分析中: 守備練習")
			_, statErr := os.Stat(out)
			So(statErr, ShouldBeNil)
		})
	})

	Convey("Given blank stdin", t, func() {
		h := newHarness(t, staticProvider(), "   ", false)
		err := h.run("generate")

		Convey("Then the challenge is reported empty", func() {
			So(err, ShouldEqual, errEmptyChallenge)
		})
	})

	Convey("Given no provider", t, func() {
		h := newHarness(t, nil, "", true)
		err := h.run("generate", "パス")

		Convey("Then the error names the missing credentials", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "OPENROUTER_API_KEY")
		})
	})
}

func TestRenderCommand(t *testing.T) {
	Convey("Given a plan file", t, func() {
		h := newHarness(t, nil, "", true)
		planPath := filepath.Join(h.dir, "plan.json")
		So(os.WriteFile(planPath, []byte(planJSON), 0o644), ShouldBeNil)
		out := filepath.Join(h.dir, "rondo.xlsx")

		Convey("When rendering it", func() {
			err := h.run("render", planPath, "-o", out)
			So(err, ShouldBeNil)

			Convey("Then the workbook has the diagram pictures", func() {
				f, err := excelize.OpenFile(out)
				So(err, ShouldBeNil)
				defer f.Close()
				pics, err := f.GetPictures(sheet.SheetName, "B5")
				So(err, ShouldBeNil)
				// ground, one ball arrow, one move arrow, three players
				So(len(pics), ShouldEqual, 6)
			})
		})

		Convey("When rendering from stdin", func() {
			h.app.In = strings.NewReader(planJSON)
			So(h.run("render", "-", "-o", out), ShouldBeNil)
		})

		Convey("When the file does not exist", func() {
			err := h.run("render", filepath.Join(h.dir, "missing.json"))
			So(err, ShouldNotBeNil)
		})

		Convey("When the file is not JSON", func() {
			bad := filepath.Join(h.dir, "bad.json")
			So(os.WriteFile(bad, []byte("{"), 0o644), ShouldBeNil)
			err := h.run("render", bad)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPreviewCommand(t *testing.T) {
	Convey("Given a plan file", t, func() {
		h := newHarness(t, nil, "", true)
		planPath := filepath.Join(h.dir, "plan.json")
		So(os.WriteFile(planPath, []byte(planJSON), 0o644), ShouldBeNil)

		Convey("When previewing step 1", func() {
			out := filepath.Join(h.dir, "step.png")
			So(h.run("preview", planPath, "--step", "1", "-o", out), ShouldBeNil)

			Convey("Then a ground-sized PNG is written", func() {
				f, err := os.Open(out)
				So(err, ShouldBeNil)
				defer f.Close()
				img, err := png.Decode(f)
				So(err, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 1000)
			})
		})

		Convey("When the step is out of range", func() {
			err := h.run("preview", planPath, "--step", "3")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestGlobalFlags(t *testing.T) {
	Convey("Given the global flags", t, func() {
		h := newHarness(t, nil, "", true)
		planPath := filepath.Join(h.dir, "plan.json")
		So(os.WriteFile(planPath, []byte(planJSON), 0o644), ShouldBeNil)
		out := filepath.Join(h.dir, "out.xlsx")

		Convey("When --strict and --log-level are set", func() {
			So(h.run("--strict", "--log-level", "debug", "render", planPath, "-o", out), ShouldBeNil)

			Convey("Then they reach the configuration", func() {
				So(h.app.cfg.StrictPlayerRefs, ShouldBeTrue)
				So(h.app.cfg.LogLevel, ShouldEqual, "debug")
			})
		})

		Convey("When --assets names an empty directory", func() {
			h.app.Build = func(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
				return service.NewFromConfig(ctx, cfg, log)
			}
			err := h.run("--assets", h.dir, "render", planPath, "-o", out)

			Convey("Then loading the assets fails", func() {
				So(err, ShouldNotBeNil)
				So(h.app.cfg.AssetsDir, ShouldEqual, h.dir)
			})
		})

		Convey("When --config points at a missing file", func() {
			err := h.run("--config", filepath.Join(h.dir, "nope.yaml"), "render", planPath)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoadtestCommand(t *testing.T) {
	Convey("Given a running render API", t, func() {
		svc, err := service.New(service.WithRenderParallelism(1), service.WithWorkerCount(2))
		So(err, ShouldBeNil)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop(context.Background())

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		h := newHarness(t, nil, "", true)

		Convey("When sending a few render requests", func() {
			err := h.run("loadtest", "--url", srv.URL, "-n", "4", "-w", "1")

			Convey("Then a summary is printed", func() {
				So(err, ShouldBeNil)
				So(h.out.String(), ShouldContainSubstring, "負荷試験完了")
				So(h.out.String(), ShouldContainSubstring, "成功: 4")
			})
		})

		Convey("When the endpoint is unknown", func() {
			err := h.run("loadtest", "--url", srv.URL, "--endpoint", "bogus")
			So(err, ShouldNotBeNil)
		})
	})
}
