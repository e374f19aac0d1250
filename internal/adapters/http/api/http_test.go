package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/drillsheet/internal/adapters/http/api"
	"github.com/okian/drillsheet/internal/adapters/llm"
	service "github.com/okian/drillsheet/internal/app"
	"github.com/okian/drillsheet/internal/domain/diagram"
	"github.com/okian/drillsheet/internal/domain/plan"
	. "github.com/smartystreets/goconvey/convey"
)

type mockGenerator struct {
	result     *service.Result
	err        error
	doErr      error
	preview    []byte
	ready      bool
	challenge  string
	plan       *plan.PracticePlan
	previewArg int
}

func (m *mockGenerator) Generate(_ context.Context, challenge string) (*service.Result, error) {
	m.challenge = challenge
	if strings.TrimSpace(challenge) == "" {
		return nil, service.ErrEmptyChallenge
	}
	return m.result, m.err
}

func (m *mockGenerator) GenerateFromPlan(_ context.Context, p *plan.PracticePlan) (*service.Result, error) {
	m.plan = p
	if err := p.Validate(); err != nil {
		return nil, service.ErrInvalidPlan
	}
	return m.result, m.err
}

func (m *mockGenerator) Preview(_ context.Context, p *plan.PracticePlan, step int) ([]byte, error) {
	m.plan = p
	m.previewArg = step
	if step > len(p.Steps) {
		return nil, service.ErrStepOutOfRange
	}
	return m.preview, m.err
}

func (m *mockGenerator) Do(ctx context.Context, fn func(context.Context) (*service.Result, error)) (*service.Result, error) {
	if m.doErr != nil {
		return nil, m.doErr
	}
	return fn(ctx)
}

func (m *mockGenerator) ProviderInfo() (llm.ProviderInfo, bool) {
	if !m.ready {
		return llm.ProviderInfo{}, false
	}
	return llm.ProviderInfo{Provider: llm.OpenRouter, Model: "openai/gpt-4o"}, true
}

type mockStats struct{}

func (mockStats) GetStats() service.Stats {
	return service.Stats{Started: true, Workers: 2, QueueCapacity: 16}
}

const planJSON = `{"title":"t","steps":[{"name":"s","players":[{"id":"A","position":{"x":0.5,"y":0.5}}]}]}`

func newMux(gen *mockGenerator) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(gen, mockStats{}).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestGenerateHandler(t *testing.T) {
	Convey("Given a server with a working generator", t, func() {
		gen := &mockGenerator{result: &service.Result{Workbook: []byte("PK\x03\x04xlsx"), Steps: 3}, ready: true}
		mux := newMux(gen)

		Convey("When posting a challenge", func() {
			w := do(mux, http.MethodPost, "/api/generate", `{"challenge":"パスが下手"}`)

			Convey("Then it should return the workbook as an attachment", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "spreadsheetml")
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, api.WorkbookFilename)
				So(w.Header().Get("X-Plan-Steps"), ShouldEqual, "3")
				So(w.Body.String(), ShouldStartWith, "PK")
				So(gen.challenge, ShouldEqual, "パスが下手")
			})
		})

		Convey("When the challenge is blank", func() {
			w := do(mux, http.MethodPost, "/api/generate", `{"challenge":"  "}`)

			Convey("Then it should be a bad request with the input prompt", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldEqual, "練習課題を入力してください")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/api/generate", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When using GET", func() {
			w := do(mux, http.MethodGet, "/api/generate", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
			So(decodeError(w)["code"], ShouldEqual, "method_not_allowed")
		})

		Convey("Every response carries a request id", func() {
			w := do(mux, http.MethodPost, "/api/generate", `{"challenge":"x"}`)
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})
	})

	Convey("Given pipeline failures", t, func() {
		cases := []struct {
			name   string
			gen    *mockGenerator
			status int
			code   string
		}{
			{"no provider", &mockGenerator{err: llm.ErrNotConfigured}, http.StatusServiceUnavailable, "not_configured"},
			{"queue full", &mockGenerator{doErr: service.ErrBackpressure}, http.StatusTooManyRequests, "backpressure"},
			{"llm output", &mockGenerator{err: fmt.Errorf("generate plan: %w", llm.ErrInvalidOutput)}, http.StatusInternalServerError, "generation_failed"},
		}
		for _, tc := range cases {
			Convey("When "+tc.name, func() {
				w := do(newMux(tc.gen), http.MethodPost, "/api/generate", `{"challenge":"x"}`)
				So(w.Code, ShouldEqual, tc.status)
				So(decodeError(w)["code"], ShouldEqual, tc.code)
			})
		}

		Convey("When an unexpected error occurs the message is prefixed", func() {
			gen := &mockGenerator{err: errors.New("boom")}
			w := do(newMux(gen), http.MethodPost, "/api/generate", `{"challenge":"x"}`)
			So(decodeError(w)["message"], ShouldEqual, "生成エラー: boom")
		})
	})
}

func TestRenderHandler(t *testing.T) {
	Convey("Given a server", t, func() {
		gen := &mockGenerator{result: &service.Result{Workbook: []byte("PK"), Steps: 1}}
		mux := newMux(gen)

		Convey("When posting a plan", func() {
			w := do(mux, http.MethodPost, "/api/render", planJSON)

			Convey("Then it should decode the plan and return a workbook", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(gen.plan.Title, ShouldEqual, "t")
				So(gen.plan.Steps[0].Number, ShouldEqual, 1)
			})
		})

		Convey("When posting malformed JSON", func() {
			w := do(mux, http.MethodPost, "/api/render", `{"steps": [`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When posting a plan without steps", func() {
			w := do(mux, http.MethodPost, "/api/render", `{"title":"empty"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a movement names a player the step does not have", func() {
			gen.err = fmt.Errorf("compose: %w: step 1: %q", diagram.ErrUnknownPlayer, "Z")
			w := do(mux, http.MethodPost, "/api/render", planJSON)

			Convey("Then the client is told its plan is wrong", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "bad_request")
				So(body["message"], ShouldContainSubstring, "unknown player")
			})
		})
	})
}

func TestPreviewHandler(t *testing.T) {
	Convey("Given a server", t, func() {
		gen := &mockGenerator{preview: []byte("\x89PNG")}
		mux := newMux(gen)

		Convey("When the step is omitted", func() {
			w := do(mux, http.MethodPost, "/api/preview", planJSON)

			Convey("Then step 1 is rendered as PNG", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
				So(gen.previewArg, ShouldEqual, 1)
			})
		})

		Convey("When the step is not a number", func() {
			w := do(mux, http.MethodPost, "/api/preview?step=abc", planJSON)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the step is out of range", func() {
			w := do(mux, http.MethodPost, "/api/preview?step=2", planJSON)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the step moves an unknown player", func() {
			gen.err = fmt.Errorf("%w: step 1: %q", diagram.ErrUnknownPlayer, "Z")
			w := do(mux, http.MethodPost, "/api/preview", planJSON)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "bad_request")
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given a server with a configured provider", t, func() {
		mux := newMux(&mockGenerator{ready: true})

		Convey("Health reports the provider", func() {
			w := do(mux, http.MethodGet, "/api/health", "")
			So(w.Code, ShouldEqual, http.StatusOK)

			var body struct {
				Status           string           `json:"status"`
				APIKeyConfigured bool             `json:"api_key_configured"`
				Provider         llm.ProviderInfo `json:"provider"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Status, ShouldEqual, "ok")
			So(body.APIKeyConfigured, ShouldBeTrue)
			So(body.Provider.Provider, ShouldEqual, llm.OpenRouter)
		})

		Convey("Stats returns the service snapshot", func() {
			w := do(mux, http.MethodGet, "/api/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)

			var st service.Stats
			So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
			So(st.Started, ShouldBeTrue)
			So(st.Workers, ShouldEqual, 2)
		})

		Convey("Metrics are exposed in Prometheus format", func() {
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestCORS(t *testing.T) {
	Convey("Given a server restricted to one origin", t, func() {
		srv := api.NewServer(&mockGenerator{}, mockStats{},
			api.WithAllowedOrigins([]string{"https://coach.example"}))
		mux := http.NewServeMux()
		srv.Register(context.Background(), mux)
		h := srv.CORS(mux)

		Convey("When the allowed origin calls health", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.Header.Set("Origin", "https://coach.example")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then the origin is echoed", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://coach.example")
			})
		})

		Convey("When another origin calls health", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.Header.Set("Origin", "https://evil.example")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then no CORS header is set", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
			})
		})
	})
}
