package logging

import (
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"
)

// stderrOnly forces every level onto stderr. Required by the stdio MCP
// transport, where stdout carries protocol frames.
var stderrOnly atomic.Bool

// UseStderrOnly routes all subsequent log output to stderr.
func UseStderrOnly() {
	stderrOnly.Store(true)
}

// writeLog renders one line and routes it: ERROR and FATAL to stderr,
// lower levels to stdout unless UseStderrOnly was called.
func (l *Logger) writeLog(level LogLevel, msg string, fields map[string]interface{}) {
	line := fmt.Sprintf("[%s] [%s] %s: %s", GetTimestamp(), level, l.name, msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		line += " |"
		for _, k := range keys {
			line += fmt.Sprintf(" %s=%v", k, fields[k])
		}
	}

	out := os.Stdout
	if level >= ERROR || stderrOnly.Load() {
		out = os.Stderr
	}
	fmt.Fprintln(out, line)
}

// logf formats a printf-style message and writes it with the logger's
// persistent and context fields.
func (l *Logger) logf(level LogLevel, msg string, args ...interface{}) {
	l.writeLog(level, fmt.Sprintf(msg, args...), l.mergeFields(nil))
}

// GetTimestamp returns the RFC3339 timestamp used in log lines. The
// LOG_TIMESTAMP env var overrides it for deterministic test output.
func GetTimestamp() string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return time.Now().Format(time.RFC3339)
}
