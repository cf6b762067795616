package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds the effective configuration with precedence
// defaults < YAML file < environment variables. An empty path skips the
// file layer entirely.
//
// Error cases:
//   - File given but not readable or invalid YAML
//   - Environment variable with an unparsable value
//   - Validation failure on the merged result
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
		}
		if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
			return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Region = v
	}
	if v := os.Getenv("AWS_PROFILE"); v != "" {
		cfg.Profile = v
	}
	if v := os.Getenv("AWS_ENDPOINT_URL"); v != "" {
		cfg.Endpoint = v
	}

	var err error
	if cfg.AllowWrite, err = envBool("ALLOW_WRITE", cfg.AllowWrite); err != nil {
		return err
	}
	if cfg.AllowSensitiveData, err = envBool("ALLOW_SENSITIVE_DATA", cfg.AllowSensitiveData); err != nil {
		return err
	}
	if cfg.DefaultTimeWindow, err = envInt("FLARE_TIME_WINDOW", cfg.DefaultTimeWindow); err != nil {
		return err
	}
	if cfg.MaxConcurrency, err = envInt("FLARE_MAX_CONCURRENCY", cfg.MaxConcurrency); err != nil {
		return err
	}
	if cfg.TracingEnabled, err = envBool("TRACING_ENABLED", cfg.TracingEnabled); err != nil {
		return err
	}
	if v := os.Getenv("TRACING_ENDPOINT"); v != "" {
		cfg.TracingEndpoint = v
	}
	if v := os.Getenv("TRACING_TLS_CA_PATH"); v != "" {
		cfg.TracingTLSCAPath = v
	}
	if cfg.TracingTLSInsecure, err = envBool("TRACING_TLS_INSECURE", cfg.TracingTLSInsecure); err != nil {
		return err
	}

	return nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, NewConfigError(fmt.Sprintf("%s must be a boolean, got %q", key, v))
	}
	return parsed, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewConfigError(fmt.Sprintf("%s must be an integer, got %q", key, v))
	}
	return parsed, nil
}
