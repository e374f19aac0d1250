// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"

	"github.com/okian/drillsheet/internal/adapters/llm"
	service "github.com/okian/drillsheet/internal/app"
	"github.com/okian/drillsheet/internal/domain/plan"
	"github.com/okian/drillsheet/pkg/logger"
)

// Generator is the part of the generation service the handlers use.
type Generator interface {
	Generate(ctx context.Context, challenge string) (*service.Result, error)
	GenerateFromPlan(ctx context.Context, p *plan.PracticePlan) (*service.Result, error)
	Preview(ctx context.Context, p *plan.PracticePlan, step int) ([]byte, error)
	Do(ctx context.Context, fn func(context.Context) (*service.Result, error)) (*service.Result, error)
	ProviderInfo() (llm.ProviderInfo, bool)
}

// StatsProvider exposes service statistics.
type StatsProvider interface {
	GetStats() service.Stats
}

const (
	defaultRequestTimeout = 180 * time.Second
	maxBodyBytes          = 1 << 20

	// WorkbookFilename is the attachment name of generated workbooks.
	WorkbookFilename = "practice_menu.xlsx"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Server wires HTTP routes for the business API.
type Server struct {
	gen            Generator
	stats          StatsProvider
	requestTimeout time.Duration
	allowedOrigins []string
	logger         logger.Logger

	generateHandler *GenerateHandler
	renderHandler   *RenderHandler
	previewHandler  *PreviewHandler
}

// Option configures a Server.
type Option func(*Server)

// WithRequestTimeout caps each generation request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithAllowedOrigins sets the CORS origin list.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(gen Generator, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		gen:            gen,
		stats:          stats,
		requestTimeout: defaultRequestTimeout,
		allowedOrigins: []string{"*"},
		logger:         logger.GetOrDiscard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.generateHandler = &GenerateHandler{gen: gen, timeout: s.requestTimeout, logger: s.logger}
	s.renderHandler = &RenderHandler{gen: gen, timeout: s.requestTimeout, logger: s.logger}
	s.previewHandler = &PreviewHandler{gen: gen, timeout: s.requestTimeout, logger: s.logger}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.route("health", http.MethodGet, s.handleHealth))
	mux.HandleFunc("/api/stats", s.route("stats", http.MethodGet, s.handleStats))
	mux.HandleFunc("/api/generate", s.route("generate", http.MethodPost, s.generateHandler.HandleGenerate))
	mux.HandleFunc("/api/render", s.route("render", http.MethodPost, s.renderHandler.HandleRender))
	mux.HandleFunc("/api/preview", s.route("preview", http.MethodPost, s.previewHandler.HandlePreview))
	mux.Handle("/metrics", MetricsHandler())
}

// CORS wraps h with the configured cross-origin policy.
func (s *Server) CORS(h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Plan-Steps", RequestIDHeader},
		AllowCredentials: true,
	}).Handler(h)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeWorkbook(w http.ResponseWriter, res *service.Result) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+WorkbookFilename+`"`)
	w.Header().Set("X-Plan-Steps", strconv.Itoa(res.Steps))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Workbook)
}
