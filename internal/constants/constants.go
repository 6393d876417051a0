// File: internal/constants/constants.go
package constants

// Application identity
const (
	AppName   = "patrol"
	EnvPrefix = "PATROL"
)

// Crash dump files
const (
	// DumpExt is a structured report written by the crash handler.
	DumpExt = ".dump"
	// CrashExt holds raw runtime crash output.
	CrashExt = ".crash"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)
