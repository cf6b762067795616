// Package tools contains the MCP tool implementations. Each tool
// unmarshals its raw JSON arguments into a typed input struct,
// validates them at the boundary and delegates to a diagnostic
// component.
package tools

import (
	"fmt"
	"regexp"

	"github.com/moolen/flare/internal/timewindow"
)

// appNamePattern matches names that are valid as both CloudFormation
// stack names and ECS resource names.
var appNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// validateAppName rejects malformed application names before any API
// call is made with them.
func validateAppName(name string) error {
	if name == "" {
		return fmt.Errorf("app_name is required")
	}
	if !appNamePattern.MatchString(name) {
		return fmt.Errorf("app_name %q contains invalid characters", name)
	}
	return nil
}

// resolveWindow turns the raw time arguments of a tool into a concrete
// window. Explicit timestamps take precedence over time_window;
// defaultSeconds applies when time_window is absent.
func resolveWindow(timeWindow int, startTime, endTime string, defaultSeconds int) (timewindow.Window, error) {
	start, err := timewindow.ParseOptionalTime(startTime, "start_time")
	if err != nil {
		return timewindow.Window{}, err
	}
	end, err := timewindow.ParseOptionalTime(endTime, "end_time")
	if err != nil {
		return timewindow.Window{}, err
	}

	seconds := timeWindow
	if seconds == 0 {
		seconds = defaultSeconds
	}
	if seconds < 0 {
		return timewindow.Window{}, fmt.Errorf("time_window must be positive, got %d", timeWindow)
	}
	return timewindow.Resolve(seconds, start, end), nil
}
