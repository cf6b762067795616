// Package logging provides leveled, structured logging for flare.
//
// Loggers are named after the component that owns them and honor
// per-package level overrides, so one noisy area can be turned up or
// down without touching the rest of the process:
//
//	logging.Initialize("info", map[string]string{"correlation": "debug"})
//	logger := logging.GetLogger("correlation")
//	logger.Info("matched %d clusters", n)
//
// Structured fields travel with the logger and with individual calls:
//
//	logger.WithField("app", appID).InfoWithFields("evidence collected",
//	    logging.Field("sources", 4),
//	)
//
// Level overrides support exact names ("evidence") and wildcard patterns
// ("mcp.*" matches "mcp.tools"), and can also be supplied through
// LOG_LEVEL_<NAME> environment variables parsed by the command layer.
//
// ERROR and FATAL route to stderr, everything else to stdout. The stdio
// MCP transport owns stdout for protocol frames, so it calls
// UseStderrOnly() to move all levels to stderr before serving.
//
// Logger values are immutable; WithField, WithFields, WithName and
// WithContext return copies, which makes sharing a logger across
// goroutines safe without coordination. Fatal terminates the process via
// an overridable exit func so tests can intercept it.
package logging

import (
	"context"
	"os"
	"sync"
)

// LogField is a single structured key/value pair attached to a message.
type LogField struct {
	Key   string
	Value interface{}
}

// Field creates a structured logging field.
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// Logger writes leveled messages for one named component.
type Logger struct {
	level  LogLevel
	name   string
	fields map[string]interface{}
	ctx    context.Context
}

var (
	globalLogger *Logger
	initOnce     sync.Once
	// exitFunc is called by Fatal. Overridable for tests.
	exitFunc = os.Exit
)

// Initialize sets the global default level and optional per-package
// overrides, e.g. {"guidance": "debug", "mcp.*": "warn"}.
func Initialize(levelStr string, packageLevels ...map[string]string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		level = INFO
	}

	globalLogger = &Logger{
		level: level,
		name:  "flare",
	}

	if len(packageLevels) > 0 && packageLevels[0] != nil {
		if err := SetPackageLogLevels(packageLevels[0]); err != nil {
			return err
		}
	}
	return nil
}

// GetLogger returns a logger for the named component. The global logger
// is lazily initialized at INFO if Initialize was never called.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {
		if globalLogger == nil {
			_ = Initialize("info")
		}
	})
	return &Logger{
		level:  globalLogger.level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// shouldLog applies the per-package override when one exists, otherwise
// the logger's own level.
func (l *Logger) shouldLog(level LogLevel) bool {
	if pkgLevel := GetPackageLogLevel(l.name); pkgLevel >= 0 {
		return level >= pkgLevel
	}
	return level >= l.level
}

// Debug logs a printf-style debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.logf(DEBUG, msg, args...)
	}
}

// Info logs a printf-style info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.logf(INFO, msg, args...)
	}
}

// Warn logs a printf-style warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.logf(WARN, msg, args...)
	}
}

// Error logs a printf-style error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.logf(ERROR, msg, args...)
	}
}

// Fatal logs the message and terminates the process with exit code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.logf(FATAL, msg, args...)
		exitFunc(1)
	}
}

// ErrorWithErr logs an error message with the error appended.
func (l *Logger) ErrorWithErr(msg string, err error, args ...interface{}) {
	if l.shouldLog(ERROR) {
		args = append(args, err)
		l.logf(ERROR, msg+" - %v", args...)
	}
}

// DebugWithFields logs a debug message with structured fields.
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.logWithFields(DEBUG, msg, fields...)
	}
}

// InfoWithFields logs an info message with structured fields.
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.logWithFields(INFO, msg, fields...)
	}
}

// WarnWithFields logs a warning message with structured fields.
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.logWithFields(WARN, msg, fields...)
	}
}

// ErrorWithFields logs an error message with structured fields.
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.logWithFields(ERROR, msg, fields...)
	}
}

// FatalWithFields logs a fatal message with structured fields and exits.
func (l *Logger) FatalWithFields(msg string, fields ...LogField) {
	if l.shouldLog(FATAL) {
		l.logWithFields(FATAL, msg, fields...)
		exitFunc(1)
	}
}

// WithName returns a copy of the logger under a different component name.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		level:  l.level,
		name:   name,
		fields: make(map[string]interface{}),
		ctx:    l.ctx,
	}
}

// WithField returns a copy of the logger with one persistent field added.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	next := &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    l.ctx,
	}
	next.fields[key] = value
	return next
}

// WithFields returns a copy of the logger with persistent fields added.
func (l *Logger) WithFields(fields ...LogField) *Logger {
	next := &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    l.ctx,
	}
	for _, f := range fields {
		next.fields[f.Key] = f.Value
	}
	return next
}

// WithContext returns a copy of the logger that extracts trace_id and
// span_id from ctx on every message.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    ctx,
	}
}

// mergeFields combines context fields, the logger's persistent fields and
// call-site fields. Later sources win on key collisions.
func (l *Logger) mergeFields(fields []LogField) map[string]interface{} {
	contextFields := extractContextFields(l.ctx)
	if contextFields == nil && len(l.fields) == 0 && len(fields) == 0 {
		return nil
	}

	merged := make(map[string]interface{})
	for k, v := range contextFields {
		merged[k] = v
	}
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	return merged
}

func (l *Logger) logWithFields(level LogLevel, msg string, fields ...LogField) {
	l.writeLog(level, msg, l.mergeFields(fields))
}

func cloneFields(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
