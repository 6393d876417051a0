package syslog

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSinkRecordsAndForwards(t *testing.T) {
	out := &bytes.Buffer{}
	logger, sink := New(Options{Output: out, Format: "json"})

	logger.Warn("Soft exception: x source: y", slog.String("k", "v"))

	entries := sink.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, slog.LevelWarn, entries[0].Level)
	require.Equal(t, "Soft exception: x source: y", entries[0].Message)
	require.Equal(t, "k=v", entries[0].Attrs)
	require.Contains(t, out.String(), `"msg":"Soft exception: x source: y"`)
}

func TestSinkHonoursLevel(t *testing.T) {
	level := new(slog.LevelVar)
	logger, sink := New(Options{Level: level, Output: &bytes.Buffer{}})

	logger.Debug("hidden")
	require.Empty(t, sink.Entries())

	level.Set(LevelFor(1))
	logger.Debug("shown")
	require.Len(t, sink.Entries(), 1)
}

func TestRingKeepsNewest(t *testing.T) {
	sink := NewSink(slog.LevelInfo, nil, 3)
	logger := slog.New(sink)

	for _, m := range []string{"a", "b", "c", "d", "e"} {
		logger.Info(m)
	}

	var got []string
	for _, e := range sink.Entries() {
		got = append(got, e.Message)
	}
	require.Equal(t, []string{"c", "d", "e"}, got)
}

func TestWithAttrsAndGroup(t *testing.T) {
	sink := NewSink(slog.LevelInfo, nil, 10)
	logger := slog.New(sink).With("component", "crash").WithGroup("dump")

	logger.Info("written", "id", "abc")

	e := sink.Entries()[0]
	require.Equal(t, "component=crash dump.id=abc", e.Attrs)
	require.True(t, strings.HasSuffix(e.String(), "written component=crash dump.id=abc"))
}

func TestOpenFileAppends(t *testing.T) {
	path := t.TempDir() + "/patrol.log"
	for i := 0; i < 2; i++ {
		f, err := OpenFile(path)
		require.NoError(t, err)
		logger, _ := New(Options{Output: f, Format: "json"})
		logger.Info("line")
		require.NoError(t, f.Close())
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(data), `"msg":"line"`))
}
