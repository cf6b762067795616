package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AWS_REGION", "AWS_PROFILE", "AWS_ENDPOINT_URL",
		"ALLOW_WRITE", "ALLOW_SENSITIVE_DATA",
		"FLARE_TIME_WINDOW", "FLARE_MAX_CONCURRENCY",
		"TRACING_ENABLED", "TRACING_ENDPOINT", "TRACING_TLS_CA_PATH", "TRACING_TLS_INSECURE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3600, cfg.DefaultTimeWindow)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.False(t, cfg.AllowWrite)
	assert.False(t, cfg.AllowSensitiveData)
	assert.Empty(t, cfg.Region)
}

func TestFileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "flare.yaml")
	content := []byte("region: eu-west-1\ndefault_time_window: 900\nallow_sensitive_data: true\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, 900, cfg.DefaultTimeWindow)
	assert.True(t, cfg.AllowSensitiveData)
	// Untouched keys keep their defaults.
	assert.Equal(t, 4, cfg.MaxConcurrency)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "flare.yaml")
	require.NoError(t, os.WriteFile(path, []byte("region: eu-west-1\n"), 0o600))

	t.Setenv("AWS_REGION", "us-west-2")
	t.Setenv("FLARE_MAX_CONCURRENCY", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "us-west-2", cfg.Region)
	assert.Equal(t, 8, cfg.MaxConcurrency)
}

func TestInvalidEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOW_SENSITIVE_DATA", "yes-please")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALLOW_SENSITIVE_DATA")
}

func TestMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.DefaultTimeWindow = 0 }},
		{"oversized window", func(c *Config) { c.DefaultTimeWindow = 604801 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }},
		{"excessive concurrency", func(c *Config) { c.MaxConcurrency = 65 }},
		{"tracing without endpoint", func(c *Config) { c.TracingEnabled = true }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
