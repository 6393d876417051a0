// File: internal/stacktrace/capture.go
package stacktrace

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// MaxFrames bounds the number of frames collected by any Capturer.
const MaxFrames = 80

const (
	// NotAvailable is returned on platforms without stack capture support.
	NotAvailable = "Stack trace not available for this OS"
	// Failed is returned when capture itself went wrong.
	Failed = "Failed to retrieve stack trace"
	// UnknownSymbol replaces frames whose symbol cannot be resolved.
	UnknownSymbol = "unknown symbol"
)

// Capturer produces a textual stack trace of the calling goroutine, one frame
// per line. Implementations must never panic and must always return a string.
type Capturer interface {
	// Capture records the stack of its caller. skip drops that many
	// additional frames above the caller (0 keeps the caller).
	Capture(skip int) string
}

// Backtrace formats frames the way glibc backtrace_symbols does:
// "<index> binary(function+0xoffset) [0xpc]". Frame 0, the capture
// function itself, is left out and numbering starts at 1.
type Backtrace struct {
	// Max overrides MaxFrames when positive.
	Max int
}

// Capture implements Capturer.
func (b Backtrace) Capture(skip int) string {
	frames := collect(skip, limit(b.Max))
	if len(frames) == 0 {
		return ""
	}

	binary := executableName()
	var sb strings.Builder
	for i := 1; i < len(frames); i++ {
		f := frames[i]
		sb.WriteString(strconv.Itoa(i))
		sb.WriteByte(' ')
		if f.Function == "" {
			fmt.Fprintf(&sb, "%s [0x%x]", binary, f.PC)
		} else {
			fmt.Fprintf(&sb, "%s(%s+0x%x) [0x%x]", binary, f.Function, f.PC-f.Entry, f.PC)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Symbolic resolves every frame to a symbol name and prints the symbol
// start address, counting down towards the outermost frame:
// "<reverse-index> <symbol> 0x<address>".
type Symbolic struct {
	// Max overrides MaxFrames when positive.
	Max int
}

// Capture implements Capturer.
func (s Symbolic) Capture(skip int) string {
	frames := collect(skip, limit(s.Max))
	var sb strings.Builder
	n := len(frames)
	for i, f := range frames {
		name := f.Function
		if name == "" {
			name = UnknownSymbol
		}
		fmt.Fprintf(&sb, "%d %s 0x%x\n", n-i-1, name, f.Entry)
	}
	return sb.String()
}

// Unavailable is the Capturer for platforms without stack support.
type Unavailable struct{}

// Capture implements Capturer.
func (Unavailable) Capture(int) string {
	return NotAvailable
}

// Safe wraps c so that a panic during capture degrades to Failed instead of
// raising a second fault while the first one is being reported.
func Safe(c Capturer) Capturer {
	if c == nil {
		return Unavailable{}
	}
	if _, ok := c.(safeCapturer); ok {
		return c
	}
	return safeCapturer{inner: c}
}

type safeCapturer struct {
	inner Capturer
}

func (s safeCapturer) Capture(skip int) (trace string) {
	defer func() {
		if r := recover(); r != nil {
			trace = Failed
		}
	}()
	// One extra frame for this wrapper so the inner frame 0 is still the
	// inner Capture call and the caller frame stays at 1.
	return s.inner.Capture(skip + 1)
}

// Current captures the stack of the caller with the platform default.
func Current() string {
	return Safe(Default()).Capture(1)
}

func limit(max int) int {
	if max <= 0 || max > MaxFrames {
		return MaxFrames
	}
	return max
}

// collect returns at most max frames. frames[0] is the Capture method that
// called collect; skip removes frames directly above it.
func collect(skip, max int) []runtime.Frame {
	pcs := make([]uintptr, max+skip)
	// 0 = runtime.Callers, 1 = collect, 2 = Capture.
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return nil
	}
	pcs = pcs[:n]

	all := make([]runtime.Frame, 0, n)
	iter := runtime.CallersFrames(pcs)
	for {
		f, more := iter.Next()
		all = append(all, f)
		if !more {
			break
		}
	}

	// Keep Capture itself as frame 0, drop skipped frames after it.
	out := make([]runtime.Frame, 0, max)
	out = append(out, all[0])
	for i := 1 + skip; i < len(all) && len(out) < max; i++ {
		out = append(out, all[i])
	}
	return out
}

func executableName() string {
	exe, err := os.Executable()
	if err != nil {
		return "./" + filepath.Base(os.Args[0])
	}
	return exe
}
