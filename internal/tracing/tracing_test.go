package tracing

import (
	"context"
	"testing"
)

func TestNewTracingProvider(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectError bool
		description string
	}{
		{
			name:        "disabled",
			cfg:         Config{Enabled: false},
			expectError: false,
			description: "Disabled provider should construct without touching the endpoint",
		},
		{
			name:        "enabled without endpoint",
			cfg:         Config{Enabled: true},
			expectError: true,
			description: "Endpoint is required once tracing is on",
		},
		{
			name: "TLS with insecure skip verify",
			cfg: Config{
				Enabled:     true,
				Endpoint:    "localhost:4317",
				TLSInsecure: true,
			},
			expectError: false,
			description: "Should create provider with InsecureSkipVerify=true",
		},
		{
			name: "TLS with missing CA certificate",
			cfg: Config{
				Enabled:   true,
				Endpoint:  "localhost:4317",
				TLSCAPath: "/path/to/ca.crt",
			},
			expectError: true,
			description: "CA path that cannot be read must fail construction",
		},
		{
			name: "No TLS (insecure connection)",
			cfg: Config{
				Enabled:  true,
				Endpoint: "localhost:4317",
			},
			expectError: false,
			description: "Should create provider without TLS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewTracingProvider(tt.cfg)
			if tt.expectError && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if provider != nil && provider.IsEnabled() != tt.cfg.Enabled {
				t.Errorf("Provider enabled=%v, want %v", provider.IsEnabled(), tt.cfg.Enabled)
			}
		})
	}
}

func TestDisabledProviderStopIsNoop(t *testing.T) {
	provider, err := NewTracingProvider(Config{Enabled: false})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := provider.Stop(context.Background()); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
	if tracer := provider.GetTracer("test"); tracer == nil {
		t.Error("Expected a tracer even in disabled mode")
	}
}
