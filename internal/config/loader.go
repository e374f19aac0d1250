package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnv names the environment variable pointing at a YAML config file.
const ConfigPathEnv = "DRILLSHEET_CONFIG"

// providerEnv maps the conventional provider variables onto config keys so
// an existing OPENROUTER_API_KEY / AZURE_OPENAI_* setup works unchanged.
var providerEnv = map[string]string{
	"OPENROUTER_API_KEY":       "openrouter_api_key",
	"OPENROUTER_MODEL":         "openrouter_model",
	"AZURE_OPENAI_API_KEY":     "azure_api_key",
	"AZURE_OPENAI_ENDPOINT":    "azure_endpoint",
	"AZURE_OPENAI_DEPLOYMENT":  "azure_deployment",
	"AZURE_OPENAI_API_VERSION": "azure_api_version",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) named by path, or by DRILLSHEET_CONFIG when path is empty
//  3. provider env (OPENROUTER_*, AZURE_OPENAI_*)
//  4. env (prefix DRILLSHEET_)
func Load(_ context.Context, path ...string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	cfgPath := os.Getenv(ConfigPathEnv)
	if len(path) > 0 && path[0] != "" {
		cfgPath = path[0]
	}
	if cfgPath != "" {
		if err := k.Load(file.Provider(cfgPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, cfgPath, err)
		}
	}

	compat := env.Provider("", ".", func(s string) string {
		return providerEnv[s]
	})
	if err := k.Load(compat, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// DRILLSHEET_WORKER_COUNT -> worker_count (flat keys, underscores kept)
	envProvider := env.Provider("DRILLSHEET_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "drillsheet_")
		if s == "config" {
			return ""
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
