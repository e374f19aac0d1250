package config

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every validation failure wraps ErrInvalidConfig.
var (
	ErrLoadConfig    = errors.New("load config failed")
	ErrInvalidConfig = errors.New("invalid config")

	ErrUnknownProvider = fmt.Errorf("%w: unknown llm_provider", ErrInvalidConfig)
	ErrInvalidStyle    = fmt.Errorf("%w: diagram style", ErrInvalidConfig)
)
