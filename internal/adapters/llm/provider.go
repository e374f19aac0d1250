// Package llm asks a chat-completion model for a practice plan.
package llm

import (
	"context"

	"github.com/okian/drillsheet/internal/domain/plan"
)

// Provider names.
const (
	OpenRouter = "openrouter"
	Azure      = "azure"
	Static     = "static"
)

// Provider turns a free-text challenge into a practice plan.
type Provider interface {
	GeneratePlan(ctx context.Context, challenge string) (*plan.PracticePlan, error)
	Info() ProviderInfo
}

// ProviderInfo describes the configured backend for health output.
type ProviderInfo struct {
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
	Deployment string `json:"deployment,omitempty"`
	APIVersion string `json:"api_version,omitempty"`
}

// StaticProvider always returns the same plan.
type StaticProvider struct {
	Plan *plan.PracticePlan
	Err  error
}

// GeneratePlan returns a normalized copy of the fixed plan.
func (s *StaticProvider) GeneratePlan(ctx context.Context, _ string) (*plan.PracticePlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Plan == nil {
		return nil, ErrEmptyResponse
	}
	p := *s.Plan
	p.Steps = append([]plan.Step(nil), s.Plan.Steps...)
	p.KeyPoints = append([]string(nil), s.Plan.KeyPoints...)
	p.Normalize()
	return &p, nil
}

// Info implements Provider.
func (s *StaticProvider) Info() ProviderInfo {
	return ProviderInfo{Provider: Static}
}
