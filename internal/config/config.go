package config

// Config holds all configuration for the application
type Config struct {
	// Region is the AWS region to query. Empty means the SDK default
	// chain (env, profile, instance metadata) decides.
	Region string `yaml:"region"`

	// Profile is the AWS shared-config profile to use. Empty means the
	// SDK default chain decides.
	Profile string `yaml:"profile"`

	// Endpoint overrides the AWS endpoint for every service client.
	// Used for local stacks in integration tests; empty in production.
	Endpoint string `yaml:"endpoint"`

	// AllowWrite permits tools that declare the write capability.
	// The diagnostic engine itself is read-only.
	AllowWrite bool `yaml:"allow_write"`

	// AllowSensitiveData permits tools that can expose log lines,
	// service events and task failure reasons.
	AllowSensitiveData bool `yaml:"allow_sensitive_data"`

	// DefaultTimeWindow is the evidence lookback in seconds applied
	// when a caller gives neither start nor end time.
	DefaultTimeWindow int `yaml:"default_time_window"`

	// MaxConcurrency bounds the fan-out width for per-cluster and
	// per-source remote calls.
	MaxConcurrency int `yaml:"max_concurrency"`

	// TracingEnabled indicates whether OpenTelemetry tracing is enabled
	TracingEnabled bool `yaml:"tracing_enabled"`

	// TracingEndpoint is the OTLP gRPC endpoint for trace export
	TracingEndpoint string `yaml:"tracing_endpoint"`

	// TracingTLSCAPath is the path to the CA certificate for TLS verification
	TracingTLSCAPath string `yaml:"tracing_tls_ca_path"`

	// TracingTLSInsecure skips TLS certificate verification
	TracingTLSInsecure bool `yaml:"tracing_tls_insecure"`
}

// DefaultConfig returns the configuration used when no file and no
// environment overrides are present.
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeWindow: 3600,
		MaxConcurrency:    4,
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.DefaultTimeWindow < 1 {
		return NewConfigError("DefaultTimeWindow must be at least 1 second")
	}

	if c.DefaultTimeWindow > 604800 {
		return NewConfigError("DefaultTimeWindow must be at most 7 days (604800 seconds)")
	}

	if c.MaxConcurrency < 1 {
		return NewConfigError("MaxConcurrency must be at least 1")
	}

	if c.MaxConcurrency > 64 {
		return NewConfigError("MaxConcurrency must be at most 64")
	}

	if c.TracingEnabled && c.TracingEndpoint == "" {
		return NewConfigError("TracingEndpoint must be set when tracing is enabled")
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
