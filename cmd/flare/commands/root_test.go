package commands

import (
	"strings"
	"testing"
)

func TestParseLogLevelFlagsDefaultOnly(t *testing.T) {
	level, pkgs, err := parseLogLevelFlags([]string{"debug"})
	if err != nil {
		t.Fatalf("parseLogLevelFlags failed: %v", err)
	}
	if level != "debug" {
		t.Errorf("Expected default level debug, got %s", level)
	}
	// The special "default" key is extracted, not left as an override.
	if _, ok := pkgs["default"]; ok {
		t.Errorf("Expected default key to be extracted, got %v", pkgs)
	}
}

func TestParseLogLevelFlagsPerPackage(t *testing.T) {
	level, pkgs, err := parseLogLevelFlags([]string{"default=warn", "correlation=debug", "evidence=error"})
	if err != nil {
		t.Fatalf("parseLogLevelFlags failed: %v", err)
	}
	if level != "warn" {
		t.Errorf("Expected default level warn, got %s", level)
	}
	if pkgs["correlation"] != "debug" || pkgs["evidence"] != "error" {
		t.Errorf("Expected package overrides, got %v", pkgs)
	}
}

func TestParseLogLevelFlagsEnvVars(t *testing.T) {
	t.Setenv("LOG_LEVEL_MCP_TOOLS", "debug")

	_, pkgs, err := parseLogLevelFlags([]string{"info"})
	if err != nil {
		t.Fatalf("parseLogLevelFlags failed: %v", err)
	}
	if pkgs["mcp.tools"] != "debug" {
		t.Errorf("Expected mcp.tools=debug from env, got %v", pkgs)
	}
}

func TestParseLogLevelFlagsCLIOverridesEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL_CORRELATION", "error")

	_, pkgs, err := parseLogLevelFlags([]string{"info", "correlation=debug"})
	if err != nil {
		t.Fatalf("parseLogLevelFlags failed: %v", err)
	}
	if pkgs["correlation"] != "debug" {
		t.Errorf("Expected CLI flag to win over env var, got %v", pkgs)
	}
}

func TestParseLogLevelFlagsRejectsInvalidLevel(t *testing.T) {
	_, _, err := parseLogLevelFlags([]string{"verbose"})
	if err == nil {
		t.Fatal("Expected error for invalid default level")
	}

	_, _, err = parseLogLevelFlags([]string{"info", "correlation=loud"})
	if err == nil {
		t.Fatal("Expected error for invalid package level")
	}
	if !strings.Contains(err.Error(), "correlation") {
		t.Errorf("Expected error naming the package, got %v", err)
	}
}

func TestConvertEnvKeyToPackageName(t *testing.T) {
	cases := map[string]string{
		"LOG_LEVEL_CORRELATION": "correlation",
		"LOG_LEVEL_MCP_TOOLS":   "mcp.tools",
		"LOG_LEVEL_AWSAPI":      "awsapi",
	}
	for envKey, want := range cases {
		if got := convertEnvKeyToPackageName(envKey); got != want {
			t.Errorf("convertEnvKeyToPackageName(%q) = %q, want %q", envKey, got, want)
		}
	}
}
