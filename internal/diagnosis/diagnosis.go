// Package diagnosis defines the result envelope shared by every
// diagnostic component. Each tool payload embeds an Envelope so that
// callers can branch on the outcome without knowing the payload shape.
//
// The status taxonomy:
//
//   - success: every queried source answered
//   - warning: the primary answer stands but an auxiliary source failed
//     or a degraded finding was recorded
//   - not_found: the primary subject of the question does not exist
//   - error: the primary lookup itself failed
package diagnosis

import (
	"fmt"
	"strings"
	"time"
)

// Status classifies the outcome of a diagnostic operation.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusWarning  Status = "warning"
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
)

// Envelope is the common head of every diagnostic payload.
type Envelope struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success returns a success envelope.
func Success() Envelope {
	return Envelope{Status: StatusSuccess}
}

// Warning returns a warning envelope with an explanatory message.
func Warning(msg string) Envelope {
	return Envelope{Status: StatusWarning, Message: msg}
}

// NotFound returns a not_found envelope with an explanatory message.
func NotFound(msg string) Envelope {
	return Envelope{Status: StatusNotFound, Message: msg}
}

// Errorf returns an error envelope with a formatted error text.
func Errorf(format string, args ...interface{}) Envelope {
	return Envelope{Status: StatusError, Error: fmt.Sprintf(format, args...)}
}

// ShortARN returns the segment after the final slash of an ARN, which
// is the task ID for task ARNs and family:revision for task definition
// ARNs. Strings without a slash pass through unchanged.
func ShortARN(arn string) string {
	if idx := strings.LastIndex(arn, "/"); idx >= 0 {
		return arn[idx+1:]
	}
	return arn
}

// FormatTime renders a timestamp in UTC RFC3339 for payloads.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
