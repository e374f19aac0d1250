// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults and Load(ctx) to layer
//   file and environment values on top.
// - Derived views (Style, Budget, provider) are computed here so callers never
//   re-implement defaulting.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/drillsheet/internal/domain/diagram"
	"github.com/okian/drillsheet/internal/domain/layout"
)

// LLM provider names.
const (
	ProviderAuto       = "auto"
	ProviderOpenRouter = "openrouter"
	ProviderAzure      = "azure"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`
	// AssetsDir holds ground.png and person.png. Empty uses built-in assets.
	AssetsDir string `koanf:"assets_dir"`

	// JobQueueSize bounds the number of generation requests waiting for a worker.
	JobQueueSize int `koanf:"job_queue_size"`
	// WorkerCount sets the number of generation workers.
	WorkerCount int `koanf:"worker_count"`
	// RenderParallelism bounds concurrent step compositing within one plan.
	RenderParallelism int `koanf:"render_parallelism"`
	// RenderCacheSize bounds cached workbooks and previews; 0 disables caching.
	RenderCacheSize int `koanf:"render_cache_size"`
	// RequestTimeoutSec caps one generation request end to end.
	RequestTimeoutSec int `koanf:"request_timeout_sec"`
	// CORSAllowedOrigins is a comma-separated origin list; "*" allows all.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	// LLMProvider is auto, openrouter or azure.
	LLMProvider      string  `koanf:"llm_provider"`
	OpenRouterAPIKey string  `koanf:"openrouter_api_key"`
	OpenRouterModel  string  `koanf:"openrouter_model"`
	OpenRouterURL    string  `koanf:"openrouter_base_url"`
	AzureAPIKey      string  `koanf:"azure_api_key"`
	AzureEndpoint    string  `koanf:"azure_endpoint"`
	AzureDeployment  string  `koanf:"azure_deployment"`
	AzureAPIVersion  string  `koanf:"azure_api_version"`
	LLMTemperature   float64 `koanf:"llm_temperature"`
	LLMMaxTokens     int     `koanf:"llm_max_tokens"`
	LLMMaxRetries    int     `koanf:"llm_max_retries"`
	LLMTimeoutSec    int     `koanf:"llm_timeout_sec"`

	// StrictPlayerRefs turns unknown movement origins into errors.
	StrictPlayerRefs bool `koanf:"strict_player_refs"`
	// ClampPositions clamps relative coordinates into [0,1] before drawing.
	ClampPositions bool `koanf:"clamp_positions"`

	// DisplayMaxWidth and DisplayMaxHeight bound the embedded diagram size.
	DisplayMaxWidth  int `koanf:"display_max_width"`
	DisplayMaxHeight int `koanf:"display_max_height"`

	// Arrow styling overrides.
	ArrowShortenRatio float64 `koanf:"arrow_shorten_ratio"`
	ArrowOffsetPx     float64 `koanf:"arrow_offset_px"`
	ArrowPaddingPx    int     `koanf:"arrow_padding_px"`
	ArrowMinCanvasPx  int     `koanf:"arrow_min_canvas_px"`
	ArrowHeadAngleDeg float64 `koanf:"arrow_head_angle_deg"`
	ArrowHeadLengthPx float64 `koanf:"arrow_head_length_px"`
	DashLengthPx      float64 `koanf:"dash_length_px"`
	LineWidthPx       float64 `koanf:"line_width_px"`
}

// New creates a Config populated with defaults.
func New() *Config {
	style := diagram.DefaultStyle()
	budget := layout.DefaultBudget()
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":8000",
		JobQueueSize:       16,
		WorkerCount:        runtime.NumCPU(),
		RenderParallelism:  4,
		RenderCacheSize:    64,
		RequestTimeoutSec:  180,
		CORSAllowedOrigins: "*",

		LLMProvider:     ProviderAuto,
		OpenRouterModel: "openai/gpt-4o",
		OpenRouterURL:   "https://openrouter.ai/api/v1",
		AzureDeployment: "gpt-4o",
		AzureAPIVersion: "2024-02-15-preview",
		LLMTemperature:  0.7,
		LLMMaxTokens:    2000,
		LLMMaxRetries:   2,
		LLMTimeoutSec:   120,

		DisplayMaxWidth:  budget.MaxWidth,
		DisplayMaxHeight: budget.MaxHeight,

		ArrowShortenRatio: style.ShortenRatio,
		ArrowOffsetPx:     style.PerpendicularOffset,
		ArrowPaddingPx:    style.Padding,
		ArrowMinCanvasPx:  style.MinCanvas,
		ArrowHeadAngleDeg: style.ArrowHeadAngleDeg,
		ArrowHeadLengthPx: style.ArrowHeadLength,
		DashLengthPx:      style.DashLength,
		LineWidthPx:       style.LineWidth,
	}
}

// Style returns the diagram style described by this configuration.
func (c *Config) Style() diagram.Style {
	s := diagram.DefaultStyle()
	s.ShortenRatio = c.ArrowShortenRatio
	s.PerpendicularOffset = c.ArrowOffsetPx
	s.Padding = c.ArrowPaddingPx
	s.MinCanvas = c.ArrowMinCanvasPx
	s.ArrowHeadAngleDeg = c.ArrowHeadAngleDeg
	s.ArrowHeadLength = c.ArrowHeadLengthPx
	s.DashLength = c.DashLengthPx
	s.LineWidth = c.LineWidthPx
	s.ClampPositions = c.ClampPositions
	if c.StrictPlayerRefs {
		s.ReferencePolicy = diagram.Strict
	}
	return s
}

// Budget returns the display budget for embedded diagrams.
func (c *Config) Budget() layout.Budget {
	return layout.Budget{MaxWidth: c.DisplayMaxWidth, MaxHeight: c.DisplayMaxHeight}
}

// RequestTimeout returns the per-request deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// LLMTimeout returns the per-call provider deadline.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

// AllowedOrigins splits CORSAllowedOrigins into a list.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// ResolvedProvider returns the concrete provider name. "auto" picks Azure
// when any Azure credential is present, otherwise OpenRouter.
func (c *Config) ResolvedProvider() string {
	switch p := strings.ToLower(strings.TrimSpace(c.LLMProvider)); p {
	case "", ProviderAuto:
		if c.AzureAPIKey != "" || c.AzureEndpoint != "" {
			return ProviderAzure
		}
		return ProviderOpenRouter
	default:
		return p
	}
}

// APIKeyConfigured reports whether the resolved provider has credentials.
func (c *Config) APIKeyConfigured() bool {
	switch c.ResolvedProvider() {
	case ProviderAzure:
		return c.AzureAPIKey != "" && c.AzureEndpoint != ""
	case ProviderOpenRouter:
		return c.OpenRouterAPIKey != ""
	default:
		return false
	}
}

// Validate checks invariants that would otherwise fail deep in the pipeline.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DisplayMaxWidth <= 0 || c.DisplayMaxHeight <= 0 {
		return fmt.Errorf("%w: display budget must be positive", ErrInvalidConfig)
	}
	switch c.ResolvedProvider() {
	case ProviderOpenRouter, ProviderAzure:
	default:
		return fmt.Errorf("%w %q", ErrUnknownProvider, c.LLMProvider)
	}
	if err := c.Style().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStyle, err)
	}
	return nil
}
