// File: internal/errors/handler.go
package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"patrol.module/internal/colors"
	"patrol.module/internal/stacktrace"
)

const fatalPrefix = "FATAL Exception thrown: "

// Handler constructs, classifies and logs faults. It is safe for concurrent
// use: faults may be raised from any goroutine.
type Handler struct {
	logger    *slog.Logger
	capturer  stacktrace.Capturer
	verbosity atomic.Int64

	diagMu sync.Mutex
	diag   io.Writer
}

// NewHandler returns a handler that logs to logger, writes construction
// diagnostics to diag and captures stacks with capturer. Nil arguments fall
// back to slog.Default, os.Stderr and the platform capturer.
func NewHandler(logger *slog.Logger, diag io.Writer, capturer stacktrace.Capturer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if diag == nil {
		diag = os.Stderr
	}
	if capturer == nil {
		capturer = stacktrace.Default()
	}
	return &Handler{
		logger:   logger,
		diag:     diag,
		capturer: stacktrace.Safe(capturer),
	}
}

var defaultHandler atomic.Pointer[Handler]

func init() {
	defaultHandler.Store(NewHandler(nil, nil, nil))
}

// Default returns the process-wide handler.
func Default() *Handler {
	return defaultHandler.Load()
}

// InitHandler replaces the process-wide handler.
func InitHandler(h *Handler) {
	if h != nil {
		defaultHandler.Store(h)
	}
}

// SetVerbosity publishes the verbosity consulted by RaiseSoft.
func (h *Handler) SetVerbosity(v int) {
	h.verbosity.Store(int64(v))
}

// Verbosity returns the current verbosity.
func (h *Handler) Verbosity() int {
	return int(h.verbosity.Load())
}

// Logger returns the logger faults are reported to.
func (h *Handler) Logger() *slog.Logger {
	return h.logger
}

// Construct builds a fault with code CodeGeneric. A FATAL line is written to
// the diagnostic stream immediately, whether or not the fault is recoverable.
func (h *Handler) Construct(message, source string, recoverable bool) *Fault {
	return h.construct(message, source, recoverable, 1)
}

// NullReference builds the fault raised when a required value named name
// was absent.
func (h *Handler) NullReference(name, source string) *Fault {
	return h.nullReference(name, source, 1)
}

// RaiseSoft returns a fault when SoftPolicy decides Raise for the current
// verbosity. Otherwise it writes one warning to the log and returns nil, and
// the caller carries on.
func (h *Handler) RaiseSoft(message, source string) error {
	return h.raiseSoft(message, source, 1)
}

// construct does the work of every constructor. skip is the number of
// package frames between construct and the frame that raised the fault.
func (h *Handler) construct(message, source string, recoverable bool, skip int) *Fault {
	h.writeFatal(message)
	return &Fault{
		Code:        CodeGeneric,
		Message:     message,
		Source:      source,
		Recoverable: recoverable,
		StackTrace:  h.capturer.Capture(skip + 1),
		Severity:    SeverityError,
	}
}

func (h *Handler) nullReference(name, source string, skip int) *Fault {
	message := fmt.Sprintf("Null pointer exception. The variable you referenced (%s) had null value.", name)
	f := h.construct(message, source, true, skip+1)
	f.Code = CodeNullReference
	return f.WithContext("variable", name)
}

func (h *Handler) raiseSoft(message, source string, skip int) error {
	switch SoftPolicy(h.Verbosity()) {
	case Raise:
		return h.construct(message, source, true, skip+1)
	default:
		h.logger.Warn("Soft exception: " + message + " source: " + source)
		return nil
	}
}

func (h *Handler) writeFatal(message string) {
	h.diagMu.Lock()
	defer h.diagMu.Unlock()
	// Construction never fails, so a broken diagnostic stream is ignored.
	_, _ = io.WriteString(h.diag, fatalPrefix+message+"\n")
}

// Handle processes an error with logging
func (h *Handler) Handle(err error) {
	if err == nil {
		return
	}

	var f *Fault
	if !AsFault(err, &f) {
		f = Wrap(CodeInternal, "unexpected error occurred", err)
	}

	h.logError(f)
}

// logError logs the error with appropriate level based on severity
func (h *Handler) logError(f *Fault) {
	attrs := f.ToSlogAttrs()
	ctx := context.Background()

	switch f.Severity {
	case SeverityInfo:
		h.logger.LogAttrs(ctx, slog.LevelInfo, "Operation info", attrs...)
	case SeverityWarning:
		h.logger.LogAttrs(ctx, slog.LevelWarn, "Operation warning", attrs...)
	case SeverityError:
		h.logger.LogAttrs(ctx, slog.LevelError, "Operation error", attrs...)
	case SeverityCritical:
		h.logger.LogAttrs(ctx, slog.LevelError, "Critical error", attrs...)
	default:
		h.logger.LogAttrs(ctx, slog.LevelError, "Unknown severity error", attrs...)
	}

	if f.StackTrace != "" {
		h.logger.Debug("Fault stack trace", slog.String("stack_trace", f.StackTrace))
	}
}

// FormatForUser formats error for user display on w.
func (h *Handler) FormatForUser(w io.Writer, err error) string {
	if err == nil {
		return ""
	}

	palette := colors.For(w)

	var f *Fault
	if !AsFault(err, &f) {
		return palette.Error(err.Error())
	}

	message := f.Message
	if f.Details != "" {
		message += " (" + f.Details + ")"
	}

	switch f.Severity {
	case SeverityInfo:
		return palette.Info(message)
	case SeverityWarning:
		return palette.Warning(message)
	default:
		return palette.Error(message)
	}
}

// WrapCommand runs fn and turns a panic into a non-recoverable fault.
func (h *Handler) WrapCommand(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			f := h.construct(fmt.Sprint(r), "panic", false, 1).
				WithSeverity(SeverityCritical).
				WithDetails("panic recovered in command execution")
			f.Code = CodeInternal
			h.Handle(f)
			err = f
		}
	}()

	if err := fn(); err != nil {
		h.Handle(err)
		return err
	}

	return nil
}

// Global convenience functions

// New constructs a fault with the hidden source placeholder.
func New(message string, recoverable bool) *Fault {
	return Default().construct(message, HiddenSource, recoverable, 1)
}

// NewWithSource constructs a fault tagged with source.
func NewWithSource(message, source string, recoverable bool) *Fault {
	return Default().construct(message, source, recoverable, 1)
}

// FromSource constructs a recoverable fault tagged with source.
func FromSource(message, source string) *Fault {
	return Default().construct(message, source, true, 1)
}

// NullReference constructs a null-reference fault on the default handler.
func NullReference(name, source string) *Fault {
	return Default().nullReference(name, source, 1)
}

// RaiseSoft applies the soft-fault policy on the default handler.
func RaiseSoft(message, source string) error {
	return Default().raiseSoft(message, source, 1)
}

func Handle(err error) {
	Default().Handle(err)
}

func FormatForUser(w io.Writer, err error) string {
	return Default().FormatForUser(w, err)
}

func WrapCommand(fn func() error) error {
	return Default().WrapCommand(fn)
}
