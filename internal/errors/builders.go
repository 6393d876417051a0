// File: internal/errors/builders.go
package errors

import (
	"fmt"
	"os"
)

// Wrap classifies an existing error without the construction side effects:
// no diagnostic line and no stack capture. Use it for ordinary returned
// errors; use Construct for raised faults.
func Wrap(code ErrorCode, message string, cause error) *Fault {
	return &Fault{
		Code:        code,
		Message:     message,
		Source:      HiddenSource,
		Recoverable: true,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Cause:       cause,
	}
}

// Newf classifies a new error without a cause.
func Newf(code ErrorCode, format string, args ...interface{}) *Fault {
	return Wrap(code, fmt.Sprintf(format, args...), nil)
}

// Configuration Error Builders
func NewConfigLoadError(path string, cause error) *Fault {
	return Wrap(CodeConfig, "failed to load configuration", cause).
		WithContext("config_path", path)
}

func NewConfigSaveError(path string, cause error) *Fault {
	return Wrap(CodeConfig, "failed to save configuration", cause).
		WithContext("config_path", path)
}

func NewConfigValidationError(field, value, message string) *Fault {
	return Newf(CodeConfig, "configuration validation failed").
		WithDetails(fmt.Sprintf("field '%s' with value '%s': %s", field, value, message)).
		WithContext("field", field).
		WithContext("value", value)
}

// Crash report builders
func NewDumpWriteError(dir string, cause error) *Fault {
	return Wrap(CodeCrashReport, "failed to write crash dump", cause).
		WithContext("dump_path", dir).
		WithSeverity(SeverityWarning)
}

func NewDumpNotFoundError(id string) *Fault {
	return Newf(CodeCrashReport, "crash dump '%s' not found", id).
		WithContext("dump_id", id)
}

func NewDumpCorruptError(path string, cause error) *Fault {
	return Wrap(CodeCrashReport, "crash dump is unreadable", cause).
		WithContext("dump_path", path)
}

func NewCrashHandlerError(dir string, cause error) *Fault {
	return Wrap(CodeCrashReport, "failed to install crash handler", cause).
		WithContext("dump_path", dir).
		WithSeverity(SeverityWarning)
}

// Usage builders
func NewInvalidInputError(input, reason string) *Fault {
	return Newf(CodeUsage, "invalid input provided").
		WithDetails(reason).
		WithContext("input", input)
}

// System Error Builders
func NewFileSystemError(operation, path string, cause error) *Fault {
	return Wrap(CodeFileSystem, fmt.Sprintf("filesystem operation '%s' failed", operation), cause).
		WithContext("operation", operation).
		WithContext("path", path)
}

func NewPermissionError(path string, cause error) *Fault {
	return Wrap(CodeFileSystem, "permission denied", cause).
		WithContext("path", path)
}

// FromOSError converts an os error on path.
func FromOSError(err error, path string) *Fault {
	if err == nil {
		return nil
	}

	if os.IsNotExist(err) {
		return NewFileSystemError("access", path, err).
			WithDetails("file or directory does not exist")
	}

	if os.IsPermission(err) {
		return NewPermissionError(path, err)
	}

	return NewFileSystemError("unknown", path, err)
}
