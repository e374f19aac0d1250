package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/okian/drillsheet/internal/domain/plan"
	"github.com/okian/drillsheet/pkg/logger"
	"github.com/okian/drillsheet/pkg/metrics"
)

// Defaults for Config fields left zero.
const (
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultModel           = "openai/gpt-4o"
	DefaultAzureDeployment = "gpt-4o"
	DefaultAzureAPIVersion = "2024-02-15-preview"
	defaultTemperature     = 0.7
	defaultMaxTokens       = 2000
	defaultTimeout         = 120 * time.Second
	defaultBackoff         = 500 * time.Millisecond
)

// Config selects and tunes the backend.
type Config struct {
	Provider string // openrouter or azure

	APIKey  string
	Model   string
	BaseURL string

	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	Temperature float32
	MaxTokens   int
	MaxRetries  int
	Timeout     time.Duration
}

// ChatClient is the part of *openai.Client the provider uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Option configures an OpenAIProvider.
type Option func(*OpenAIProvider)

// WithLogger sets the provider logger.
func WithLogger(l logger.Logger) Option {
	return func(p *OpenAIProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithChatClient replaces the HTTP client, e.g. with a fake in tests.
func WithChatClient(c ChatClient) Option {
	return func(p *OpenAIProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithBackoff sets the delay unit between retries.
func WithBackoff(d time.Duration) Option {
	return func(p *OpenAIProvider) {
		if d >= 0 {
			p.backoff = d
		}
	}
}

// OpenAIProvider talks to OpenRouter or Azure OpenAI through go-openai.
type OpenAIProvider struct {
	client  ChatClient
	cfg     Config
	model   string
	backoff time.Duration
	logger  logger.Logger
}

// NewOpenAIProvider validates cfg and builds a client for it.
func NewOpenAIProvider(cfg Config, opts ...Option) (*OpenAIProvider, error) {
	cfg = withDefaults(cfg)

	var (
		client *openai.Client
		model  string
	)
	switch cfg.Provider {
	case OpenRouter:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: OPENROUTER_API_KEY is required", ErrNotConfigured)
		}
		oc := openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = cfg.BaseURL
		client = openai.NewClientWithConfig(oc)
		model = cfg.Model
	case Azure:
		if cfg.APIKey == "" || cfg.AzureEndpoint == "" {
			return nil, fmt.Errorf("%w: AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT are required", ErrNotConfigured)
		}
		oc := openai.DefaultAzureConfig(cfg.APIKey, cfg.AzureEndpoint)
		oc.APIVersion = cfg.AzureAPIVersion
		deployment := cfg.AzureDeployment
		oc.AzureModelMapperFunc = func(string) string { return deployment }
		client = openai.NewClientWithConfig(oc)
		model = deployment
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	p := &OpenAIProvider{
		client:  client,
		cfg:     cfg,
		model:   model,
		backoff: defaultBackoff,
		logger:  logger.GetOrDiscard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func withDefaults(cfg Config) Config {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = OpenRouter
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.AzureDeployment == "" {
		cfg.AzureDeployment = DefaultAzureDeployment
	}
	if cfg.AzureAPIVersion == "" {
		cfg.AzureAPIVersion = DefaultAzureAPIVersion
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}

// Info implements Provider.
func (p *OpenAIProvider) Info() ProviderInfo {
	if p.cfg.Provider == Azure {
		return ProviderInfo{
			Provider:   Azure,
			Endpoint:   p.cfg.AzureEndpoint,
			Deployment: p.cfg.AzureDeployment,
			APIVersion: p.cfg.AzureAPIVersion,
		}
	}
	return ProviderInfo{Provider: OpenRouter, Model: p.model}
}

// GeneratePlan asks the model for a plan, retrying transport failures and
// unusable output up to MaxRetries times.
func (p *OpenAIProvider) GeneratePlan(ctx context.Context, challenge string) (*plan.PracticePlan, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(challenge)},
		},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	}
	p.logger.Debug(ctx, "requesting plan",
		logger.String("provider", p.cfg.Provider),
		logger.String("model", p.model),
		logger.Float64("temperature", float64(req.Temperature)),
		logger.Int("max_tokens", req.MaxTokens))

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * p.backoff):
			}
		}

		out, err := p.attempt(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
		p.logger.Warn(ctx, "plan generation attempt failed",
			logger.String("provider", p.cfg.Provider),
			logger.Int("attempt", attempt+1),
			logger.Error(err))
	}
	return nil, lastErr
}

func (p *OpenAIProvider) attempt(ctx context.Context, req openai.ChatCompletionRequest) (*plan.PracticePlan, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(callCtx, req)
	metrics.RecordLLMLatency(p.cfg.Provider, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordLLMError(p.cfg.Provider, errorReason(err))
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.RecordLLMError(p.cfg.Provider, "empty")
		return nil, ErrEmptyResponse
	}

	out, err := ExtractJSON(resp.Choices[0].Message.Content, func(pp *plan.PracticePlan) error {
		return pp.Validate()
	})
	if err != nil {
		metrics.RecordLLMError(p.cfg.Provider, "invalid_output")
		return nil, err
	}
	out.Normalize()
	return out, nil
}

func errorReason(err error) string {
	var apiErr *openai.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("http_%d", apiErr.HTTPStatusCode)
	default:
		return "transport"
	}
}
