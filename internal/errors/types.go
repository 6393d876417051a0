// File: internal/errors/types.go
package errors

import (
	"fmt"
	"log/slog"
)

// ErrorCode is a small integer category used for triage.
type ErrorCode int

const (
	// CodeNullReference marks a violated "value must be present" invariant.
	CodeNullReference ErrorCode = 1
	// CodeGeneric is the default for every constructed fault.
	CodeGeneric ErrorCode = 2

	CodeConfig      ErrorCode = 3
	CodeFileSystem  ErrorCode = 4
	CodeCrashReport ErrorCode = 5
	CodeUsage       ErrorCode = 6
	CodeInternal    ErrorCode = 7
)

// HiddenSource is recorded when a fault is constructed without a source.
const HiddenSource = "{hidden}"

// String returns a short name for the code.
func (c ErrorCode) String() string {
	switch c {
	case CodeNullReference:
		return "NULL_REFERENCE"
	case CodeGeneric:
		return "GENERIC"
	case CodeConfig:
		return "CONFIG"
	case CodeFileSystem:
		return "FILESYSTEM"
	case CodeCrashReport:
		return "CRASH_REPORT"
	case CodeUsage:
		return "USAGE"
	case CodeInternal:
		return "INTERNAL"
	default:
		return fmt.Sprintf("CODE_%d", int(c))
	}
}

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "INFO"
	SeverityWarning  ErrorSeverity = "WARNING"
	SeverityError    ErrorSeverity = "ERROR"
	SeverityCritical ErrorSeverity = "CRITICAL"
)

// Fault is one raised runtime fault. The stack trace is captured when the
// fault is constructed, not when it is inspected.
type Fault struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	Source      string                 `json:"source"`
	Recoverable bool                   `json:"recoverable"`
	StackTrace  string                 `json:"stack_trace,omitempty"`
	Details     string                 `json:"details,omitempty"`
	Severity    ErrorSeverity          `json:"severity"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Cause       error                  `json:"-"`
}

// Error implements the error interface
func (e *Fault) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Details)
	}
	return e.Message
}

// Unwrap returns the underlying error for error wrapping
func (e *Fault) Unwrap() error {
	return e.Cause
}

// Is matches another *Fault with the same code.
func (e *Fault) Is(target error) bool {
	if targetErr, ok := target.(*Fault); ok {
		return e.Code == targetErr.Code
	}
	return false
}

// IsRecoverable reports whether the caller may continue past this fault.
func (e *Fault) IsRecoverable() bool {
	return e.Recoverable
}

// WithContext adds context information to the error
func (e *Fault) WithContext(key string, value interface{}) *Fault {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the severity level
func (e *Fault) WithSeverity(severity ErrorSeverity) *Fault {
	e.Severity = severity
	return e
}

// WithDetails adds detailed information
func (e *Fault) WithDetails(details string) *Fault {
	e.Details = details
	return e
}

// WithCause records the underlying error.
func (e *Fault) WithCause(cause error) *Fault {
	e.Cause = cause
	return e
}

// ToSlogAttrs converts the fault to slog attributes
func (e *Fault) ToSlogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.Int("error_code", int(e.Code)),
		slog.String("error_message", e.Message),
		slog.String("source", e.Source),
		slog.Bool("recoverable", e.Recoverable),
		slog.String("severity", string(e.Severity)),
	}

	if e.Details != "" {
		attrs = append(attrs, slog.String("details", e.Details))
	}

	if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}

	for key, value := range e.Context {
		attrs = append(attrs, slog.Any(fmt.Sprintf("ctx_%s", key), value))
	}

	return attrs
}

// AsFault checks if err is a *Fault and stores it in target.
func AsFault(err error, target **Fault) bool {
	if f, ok := err.(*Fault); ok {
		*target = f
		return true
	}
	return false
}

// IsCode checks if error has specific code
func IsCode(err error, code ErrorCode) bool {
	var f *Fault
	return AsFault(err, &f) && f.Code == code
}

// GetCode extracts error code from error
func GetCode(err error) ErrorCode {
	var f *Fault
	if AsFault(err, &f) {
		return f.Code
	}
	return CodeInternal
}
