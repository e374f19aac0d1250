package service

import (
	"context"
	"fmt"

	"github.com/okian/drillsheet/internal/adapters/cache"
	"github.com/okian/drillsheet/internal/adapters/llm"
	"github.com/okian/drillsheet/internal/adapters/sheet"
	"github.com/okian/drillsheet/internal/config"
	"github.com/okian/drillsheet/internal/domain/diagram"
	"github.com/okian/drillsheet/pkg/logger"
)

// LLMConfig maps the resolved provider settings onto the adapter config.
func LLMConfig(cfg *config.Config) llm.Config {
	out := llm.Config{
		Provider:    cfg.ResolvedProvider(),
		Temperature: float32(cfg.LLMTemperature),
		MaxTokens:   cfg.LLMMaxTokens,
		MaxRetries:  cfg.LLMMaxRetries,
		Timeout:     cfg.LLMTimeout(),
	}
	switch out.Provider {
	case config.ProviderAzure:
		out.APIKey = cfg.AzureAPIKey
		out.AzureEndpoint = cfg.AzureEndpoint
		out.AzureDeployment = cfg.AzureDeployment
		out.AzureAPIVersion = cfg.AzureAPIVersion
	default:
		out.APIKey = cfg.OpenRouterAPIKey
		out.Model = cfg.OpenRouterModel
		out.BaseURL = cfg.OpenRouterURL
	}
	return out
}

// NewFromConfig assembles a Service from process configuration. A missing
// API key is not fatal: rendering from a supplied plan still works.
func NewFromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.GetOrDiscard()
	}
	style := cfg.Style()

	var (
		assets *diagram.Assets
		err    error
	)
	if cfg.AssetsDir != "" {
		assets, err = diagram.LoadAssets(cfg.AssetsDir, style)
	} else {
		assets, err = diagram.DefaultAssets(style)
	}
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	compositor, err := diagram.New(assets,
		diagram.WithStyle(style),
		diagram.WithLogger(log.Named("diagram")))
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithLogger(log.Named("service")),
		WithCompositor(compositor),
		WithSheetOptions(sheet.WithBudget(cfg.Budget())),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.JobQueueSize),
		WithRenderParallelism(cfg.RenderParallelism),
		WithCache(cache.NewInMemoryCache(cache.WithMaxSize(cfg.RenderCacheSize))),
	}

	if cfg.APIKeyConfigured() {
		p, err := llm.NewOpenAIProvider(LLMConfig(cfg), llm.WithLogger(log.Named("llm")))
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithProvider(p))
	} else {
		log.Warn(ctx, "no LLM credentials configured; only plan rendering is available",
			logger.String("provider", cfg.ResolvedProvider()))
	}

	return New(opts...)
}
