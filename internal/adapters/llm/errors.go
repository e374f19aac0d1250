package llm

import "errors"

var (
	// ErrNotConfigured means the selected provider has no credentials.
	ErrNotConfigured   = errors.New("llm provider not configured")
	ErrEmptyResponse   = errors.New("llm returned no choices")
	ErrInvalidOutput   = errors.New("llm output is not a valid plan")
	ErrUnknownProvider = errors.New("unknown llm provider")
)
