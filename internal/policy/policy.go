// Package policy gates tool invocations on capability flags so the
// permission decision happens once at the request boundary instead of
// inside the diagnostic logic.
package policy

import "fmt"

// Capability names a class of operation a tool may require.
type Capability int

const (
	// CapabilityNone marks tools with no special requirements.
	CapabilityNone Capability = iota
	// CapabilitySensitiveData marks tools that can expose log lines,
	// failure reasons or service events.
	CapabilitySensitiveData
	// CapabilityWrite marks tools that would mutate infrastructure.
	// No such tool ships today; the gate still enforces it.
	CapabilityWrite
)

// String returns the capability name used in error messages.
func (c Capability) String() string {
	switch c {
	case CapabilityNone:
		return "none"
	case CapabilitySensitiveData:
		return "sensitive-data"
	case CapabilityWrite:
		return "write"
	default:
		return "unknown"
	}
}

// PermissionError reports a denied invocation and names the flag that
// would permit it.
type PermissionError struct {
	Tool    string
	Missing Capability
	message string
}

// Error returns the denial message.
func (e *PermissionError) Error() string {
	return e.message
}

// Policy holds the capability flags granted to this process.
type Policy struct {
	allowWrite         bool
	allowSensitiveData bool
}

// New creates a policy from the granted capability flags.
func New(allowWrite, allowSensitiveData bool) *Policy {
	return &Policy{
		allowWrite:         allowWrite,
		allowSensitiveData: allowSensitiveData,
	}
}

// Authorize checks every capability the tool requires against the
// granted flags. Returns a PermissionError naming the first missing one.
func (p *Policy) Authorize(tool string, caps ...Capability) error {
	for _, c := range caps {
		switch c {
		case CapabilityWrite:
			if !p.allowWrite {
				return &PermissionError{
					Tool:    tool,
					Missing: CapabilityWrite,
					message: "Write operations are disabled for security. " +
						"Set ALLOW_WRITE=true in your environment to enable, " +
						"but be aware of the security implications.",
				}
			}
		case CapabilitySensitiveData:
			if !p.allowSensitiveData {
				return &PermissionError{
					Tool:    tool,
					Missing: CapabilitySensitiveData,
					message: fmt.Sprintf("Tool %s is not allowed without ALLOW_SENSITIVE_DATA=true "+
						"in your environment due to potential exposure of sensitive information.", tool),
				}
			}
		}
	}
	return nil
}
