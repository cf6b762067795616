package logging

import (
	"fmt"
	"strings"
	"sync"
)

// LogLevel orders message severities from DEBUG up to FATAL.
type LogLevel int

const (
	// DEBUG is verbose diagnostic output.
	DEBUG LogLevel = iota
	// INFO reports normal operation.
	INFO
	// WARN reports something suspicious but survivable.
	WARN
	// ERROR reports a failure that does not stop the process.
	ERROR
	// FATAL reports a failure that terminates the process.
	FATAL
)

// String returns the upper-case level name used in log lines.
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// parseLevel converts a level name to its LogLevel, case-insensitively.
func parseLevel(levelStr string) (LogLevel, error) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return -1, fmt.Errorf("invalid level: %s (must be DEBUG, INFO, WARN, ERROR, or FATAL)", levelStr)
	}
}

// Per-package overrides. Keys are exact names ("evidence") or wildcard
// patterns ("mcp.*").
var (
	packageLogLevels = make(map[string]LogLevel)
	packageLogMutex  sync.RWMutex
)

// SetPackageLogLevels replaces the per-package level table.
// Returns an error when any level name is invalid.
func SetPackageLogLevels(levels map[string]string) error {
	if levels == nil {
		return nil
	}

	packageLogMutex.Lock()
	defer packageLogMutex.Unlock()

	packageLogLevels = make(map[string]LogLevel)
	for pkg, levelStr := range levels {
		level, err := parseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid log level for package %q: %w", pkg, err)
		}
		packageLogLevels[pkg] = level
	}
	return nil
}

// GetPackageLogLevel resolves the override for a package name.
// Exact matches win over wildcard patterns; among patterns the longest
// (most specific) wins. Returns -1 when no override applies.
func GetPackageLogLevel(packageName string) LogLevel {
	packageLogMutex.RLock()
	defer packageLogMutex.RUnlock()

	if level, exists := packageLogLevels[packageName]; exists {
		return level
	}

	best := ""
	for pattern := range packageLogLevels {
		if matchesPattern(packageName, pattern) && len(pattern) > len(best) {
			best = pattern
		}
	}
	if best != "" {
		return packageLogLevels[best]
	}
	return LogLevel(-1)
}

// matchesPattern reports whether packageName falls under pattern.
// "mcp.*" matches "mcp.tools" and "mcp.tools.guidance" but not "mcp".
func matchesPattern(packageName, pattern string) bool {
	if packageName == pattern {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return strings.HasPrefix(packageName, prefix+".")
	}
	return false
}
