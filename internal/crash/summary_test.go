package crash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDump = `goroutine 1 [running]:
main.main()
	/home/user/src/patrol/main.go:10 +0x25

goroutine 7 [chan receive]:
main.worker()
	/home/user/src/patrol/worker.go:21 +0x40
`

func TestSummarize(t *testing.T) {
	out := Summarize(sampleDump)
	require.Contains(t, out, "goroutine(s) [running]")
	require.Contains(t, out, "main.main")
	require.Contains(t, out, "main.worker")
	require.Contains(t, out, "worker.go:21")
}

func TestSummarizeNothingToParse(t *testing.T) {
	require.Empty(t, Summarize("no goroutines here"))
}

func TestReportTextUsesSummary(t *testing.T) {
	r := &Report{ID: "x", Kind: KindPanic, Reason: "boom", OS: "linux", Arch: "amd64", Goroutines: sampleDump}
	text := r.Text()
	require.True(t, strings.HasPrefix(text, "Crash dump x\n"))
	require.Contains(t, text, "Reason:     boom")
	require.Contains(t, text, "goroutine(s) [chan receive]")
}
