package stacktrace

import (
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestBacktraceSkipsCaptureFrame(t *testing.T) {
	trace := Backtrace{}.Capture(0)

	got := lines(trace)
	require.NotEmpty(t, got)
	require.True(t, strings.HasPrefix(got[0], "1 "), "first frame must be numbered 1: %q", got[0])
	require.Contains(t, got[0], "TestBacktraceSkipsCaptureFrame")
	require.NotContains(t, trace, "Backtrace.Capture")
	for i, l := range got {
		require.True(t, strings.HasPrefix(l, strconv.Itoa(i+1)+" "), "line %d: %q", i, l)
		require.Contains(t, l, "[0x")
	}
}

func TestSymbolicCountsDown(t *testing.T) {
	trace := Symbolic{}.Capture(0)

	got := lines(trace)
	require.NotEmpty(t, got)
	require.True(t, strings.HasPrefix(got[len(got)-1], "0 "))
	require.True(t, strings.HasPrefix(got[0], strconv.Itoa(len(got)-1)+" "))
	require.Contains(t, got[0], "Symbolic.Capture")
	require.Contains(t, got[1], "TestSymbolicCountsDown")
	for _, l := range got {
		require.Contains(t, l, " 0x")
	}
}

func TestFramesAreBounded(t *testing.T) {
	var trace string
	var recurse func(n int)
	recurse = func(n int) {
		if n == 0 {
			trace = Symbolic{Max: 10}.Capture(0)
			return
		}
		recurse(n - 1)
	}
	recurse(200)
	require.Len(t, lines(trace), 10)

	recurse = func(n int) {
		if n == 0 {
			trace = Symbolic{}.Capture(0)
			return
		}
		recurse(n - 1)
	}
	recurse(200)
	require.Len(t, lines(trace), MaxFrames)
}

func TestUnavailable(t *testing.T) {
	require.Equal(t, "Stack trace not available for this OS", Unavailable{}.Capture(0))
}

type explodingCapturer struct{}

func (explodingCapturer) Capture(int) string { panic("no frames for you") }

func TestSafeNeverPanics(t *testing.T) {
	require.NotPanics(t, func() {
		require.Equal(t, Failed, Safe(explodingCapturer{}).Capture(0))
	})
	require.Equal(t, NotAvailable, Safe(nil).Capture(0))
}

func TestSafeKeepsCallerAsFirstFrame(t *testing.T) {
	trace := Safe(Backtrace{}).Capture(0)
	require.Contains(t, lines(trace)[0], "TestSafeKeepsCallerAsFirstFrame")
}

func TestDefaultMatchesPlatform(t *testing.T) {
	switch {
	case runtime.GOOS == "linux":
		require.IsType(t, Backtrace{}, Default())
	case runtime.GOOS == "windows":
		require.IsType(t, Symbolic{}, Default())
	default:
		require.IsType(t, Unavailable{}, Default())
	}
	require.NotEmpty(t, Current())
}
