// Package crash installs the process crash handler and manages the dumps it
// leaves behind.
//
// Two kinds of file are written to the dump directory:
//
//   - <id>.crash: raw runtime output for fatal errors and unrecovered panics
//     in any goroutine, registered with runtime/debug.SetCrashOutput. The
//     file is removed at shutdown when nothing crashed.
//   - <id>.dump: a structured Report written when the main goroutine panics
//     through Handler.Recover, or on demand with Handler.WriteDump. Reports
//     are CBOR encoded and zstd compressed.
//
// A Handler is an explicit value owned by the application. Shutdown is safe
// on a nil or disabled handler and may be called more than once.
package crash
