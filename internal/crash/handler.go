package crash

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"patrol.module/internal/constants"
	"patrol.module/internal/errors"
	"patrol.module/internal/stacktrace"
)

// maxGoroutineDump bounds the all-goroutine stack copied into a report.
const maxGoroutineDump = 8 << 20

// ErrDisabled is returned by WriteDump on a nil or disabled handler.
var ErrDisabled = errors.Newf(errors.CodeCrashReport, "crash reporting is disabled")

// Result is passed to the completion callback after every dump attempt.
type Result struct {
	Succeeded bool
	ID        string
	Path      string
	Err       error
}

// Options configure Install.
type Options struct {
	// Dir receives the dumps. Defaults to os.TempDir().
	Dir      string
	// Logger receives handler events. Defaults to slog.Default().
	Logger   *slog.Logger
	// OnDump is called after each dump attempt. Defaults to logging the
	// outcome.
	OnDump   func(Result)
	// Disabled installs nothing and the returned handler writes nothing.
	// Recover still re-panics.
	Disabled bool
}

// Handler is the installed crash handler.
type Handler struct {
	dir      string
	logger   *slog.Logger
	onDump   func(Result)
	disabled bool

	mu        sync.Mutex
	installed bool
	crashPath string
}

// Install creates the dump directory and routes fatal runtime output to a
// fresh crash file in it. It is meant to be called once, from main, before
// the application starts its goroutines.
func Install(opts Options) (*Handler, error) {
	h := &Handler{
		dir:      opts.Dir,
		logger:   opts.Logger,
		onDump:   opts.OnDump,
		disabled: opts.Disabled,
	}
	if h.dir == "" {
		h.dir = os.TempDir()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.onDump == nil {
		h.onDump = h.logResult
	}
	if opts.Disabled {
		return h, nil
	}

	if err := os.MkdirAll(h.dir, 0700); err != nil {
		return nil, errors.NewCrashHandlerError(h.dir, err)
	}

	path := filepath.Join(h.dir, uuid.NewString()+constants.CrashExt)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, errors.NewCrashHandlerError(h.dir, err)
	}
	// SetCrashOutput keeps its own duplicate of the descriptor.
	setErr := debug.SetCrashOutput(f, debug.CrashOptions{})
	f.Close()
	if setErr != nil {
		os.Remove(path)
		return nil, errors.NewCrashHandlerError(h.dir, setErr)
	}

	h.installed = true
	h.crashPath = path
	h.logger.Debug("Crash handler installed", slog.String("dump_path", h.dir), slog.String("crash_file", path))
	return h, nil
}

// Installed reports whether crash output is currently being captured.
func (h *Handler) Installed() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.installed
}

// Dir returns the dump directory.
func (h *Handler) Dir() string {
	if h == nil {
		return ""
	}
	return h.dir
}

// CrashFile returns the path runtime crash output goes to, if installed.
func (h *Handler) CrashFile() string {
	if h == nil {
		return ""
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.crashPath
}

// Shutdown stops capturing crash output and deletes the crash file when
// nothing was written to it. It never fails on a nil, disabled or already
// shut down handler.
func (h *Handler) Shutdown() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.installed {
		return nil
	}
	h.installed = false

	if err := debug.SetCrashOutput(nil, debug.CrashOptions{}); err != nil {
		return errors.NewCrashHandlerError(h.dir, err)
	}
	if info, err := os.Stat(h.crashPath); err == nil && info.Size() == 0 {
		os.Remove(h.crashPath)
	}
	h.logger.Debug("Crash handler removed", slog.String("dump_path", h.dir))
	return nil
}

// Recover must be deferred directly: defer h.Recover(). On panic it writes
// a report and panics again with the same value, so the process still
// terminates and the runtime output reaches the crash file too.
func (h *Handler) Recover() {
	if h == nil {
		return
	}
	r := recover()
	if r == nil {
		return
	}
	if h.disabled {
		panic(r)
	}

	report := h.newReport(KindPanic, fmt.Sprint(r))
	if err, ok := r.(error); ok {
		fillFromFault(report, err)
	}
	if report.StackTrace == "" {
		report.StackTrace = stacktrace.Current()
	}
	report.Goroutines = allGoroutines()
	h.emit(report)

	panic(r)
}

// WriteDump writes a report now. fault, when non-nil, contributes its
// message, source, code and stack trace. A disabled handler writes nothing,
// skips the callback and returns ErrDisabled.
func (h *Handler) WriteDump(reason string, fault error) Result {
	if h == nil || h.disabled {
		return Result{Err: ErrDisabled}
	}
	kind := KindManual
	if fault != nil {
		kind = KindFault
	}
	report := h.newReport(kind, reason)
	fillFromFault(report, fault)
	if report.StackTrace == "" {
		report.StackTrace = stacktrace.Current()
	}
	report.Goroutines = allGoroutines()
	return h.emit(report)
}

func (h *Handler) newReport(kind Kind, reason string) *Report {
	exe, _ := os.Executable()
	return &Report{
		ID:         uuid.NewString(),
		Kind:       kind,
		Time:       time.Now().UTC(),
		Reason:     reason,
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Kernel:     kernelRelease(),
		Executable: exe,
		PID:        os.Getpid(),
	}
}

func fillFromFault(report *Report, err error) {
	if err == nil {
		return
	}
	var f *errors.Fault
	if !errors.AsFault(err, &f) {
		if report.Reason == "" {
			report.Reason = err.Error()
		}
		return
	}
	if report.Reason == "" {
		report.Reason = f.Message
	}
	report.Source = f.Source
	report.Code = int(f.Code)
	report.Recoverable = f.Recoverable
	report.StackTrace = f.StackTrace
}

func (h *Handler) emit(report *Report) Result {
	path := filepath.Join(h.dir, report.ID+constants.DumpExt)
	res := Result{ID: report.ID, Path: path}

	data, err := Encode(report)
	if err == nil {
		err = os.MkdirAll(h.dir, 0700)
	}
	if err == nil {
		err = writeAtomic(path, data)
	}
	if err != nil {
		res.Err = errors.NewDumpWriteError(h.dir, err)
	} else {
		res.Succeeded = true
	}

	h.onDump(res)
	return res
}

func (h *Handler) logResult(res Result) {
	if res.Succeeded {
		h.logger.Info("Dump generated in "+h.dir, slog.String("dump_id", res.ID), slog.String("path", res.Path))
		return
	}
	h.logger.Error("Failed to generate dump in "+h.dir, slog.String("dump_id", res.ID), slog.Any("error", res.Err))
}

func allGoroutines() string {
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= maxGoroutineDump {
			return string(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}
