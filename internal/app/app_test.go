package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"patrol.module/internal/config"
	"patrol.module/internal/crash"
	"patrol.module/internal/errors"
	"patrol.module/internal/terminal"
)

type fixture struct {
	home   string
	dumps  string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newFixture(t *testing.T, settings map[string]interface{}) fixture {
	t.Helper()
	f := fixture{
		home:   t.TempDir(),
		dumps:  t.TempDir(),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	all := map[string]interface{}{"dump_path": f.dumps}
	for k, v := range settings {
		all[k] = v
	}
	data, err := json.Marshal(all)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.home, "config.json"), data, 0600))
	return f
}

func (f fixture) start(t *testing.T, ctx context.Context, args ...string) *App {
	t.Helper()
	return f.startWith(t, ctx, nil, args...)
}

func (f fixture) startWith(t *testing.T, ctx context.Context, main func(context.Context) error, args ...string) *App {
	t.Helper()
	p := terminal.NewParser(append([]string{"--home", f.home}, args...), f.stdout)
	require.False(t, p.Parse())

	a, err := New(ctx, p, Options{Stdout: f.stdout, Stderr: f.stderr, Version: "1.2.3", Main: main})
	require.NoError(t, err)
	t.Cleanup(func() { a.Shutdown() })
	return a
}

func TestNewAppliesConfigAndFlags(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"verbosity": 1})
	a := f.start(t, context.Background(), "-vv")

	cfg := a.Config()
	require.Equal(t, 3, cfg.Verbosity)
	require.Equal(t, f.home, cfg.HomePath)
	require.Equal(t, 3, a.Faults().Verbosity())
	require.Same(t, a.Faults(), errors.Default())
	require.True(t, a.Crash().Installed())
	require.Equal(t, f.dumps, a.Crash().Dir())
}

func TestSafeModeIgnoresConfigFile(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"verbosity": 4, "crash_reporting": false})
	a := f.start(t, context.Background(), "--safe")

	cfg := a.Config()
	require.True(t, cfg.SafeMode)
	require.Equal(t, 0, cfg.Verbosity)
	require.True(t, cfg.CrashReporting)
}

func TestSoftFaultGoesToProcessLog(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"crash_reporting": false})
	a := f.start(t, context.Background())

	require.NoError(t, errors.RaiseSoft("Connection lost", "Net::Read"))

	var found bool
	for _, e := range a.Sink().Entries() {
		if e.Message == "Soft exception: Connection lost source: Net::Read" {
			found = true
		}
	}
	require.True(t, found)
	require.False(t, a.Crash().Installed())
}

func TestSyslogFlagWritesJSONFile(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"crash_reporting": false})
	logPath := filepath.Join(t.TempDir(), "patrol.log")
	a := f.start(t, context.Background(), "--syslog", logPath)

	a.Logger().Info("hello file")
	require.NoError(t, a.Shutdown())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello file"`)
}

func TestRunPrintsBannerAndStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(f.dumps, uuid.NewString()+".crash"), []byte("panic: old\n"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	a := f.start(t, ctx, "--bogus")
	cancel()

	require.NoError(t, a.Run())
	out := f.stdout.String()
	require.Contains(t, out, "patrol 1.2.3")
	require.Contains(t, out, "1 crash report(s) from earlier runs")
	require.False(t, a.Crash().Installed())
}

func TestRunReturnsMainError(t *testing.T) {
	f := newFixture(t, nil)
	a := f.startWith(t, context.Background(), func(context.Context) error {
		return errors.New("main failed", false)
	}, "-s")

	err := a.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "main failed")
	require.False(t, a.Crash().Installed())
}

func TestPanicInRunKeepsCrashHandler(t *testing.T) {
	f := newFixture(t, nil)
	a := f.startWith(t, context.Background(), func(context.Context) error {
		panic("main loop failed")
	}, "-s")
	crashFile := a.Crash().CrashFile()

	// Same defer order as the root command.
	require.PanicsWithValue(t, "main loop failed", func() {
		defer a.Crash().Recover()
		_ = a.Run()
	})

	require.True(t, a.Crash().Installed())
	require.FileExists(t, crashFile)

	entries, err := crash.NewStore(f.dumps).List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, crash.KindPanic, entries[0].Kind)
	require.Equal(t, "main loop failed", entries[0].Reason)
}

func TestRunSilent(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"crash_reporting": false})
	ctx, cancel := context.WithCancel(context.Background())
	a := f.start(t, ctx, "-s")
	cancel()

	require.NoError(t, a.Run())
	require.Empty(t, f.stdout.String())
}

func TestReloadPublishesVerbosity(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"crash_reporting": false})
	a := f.start(t, context.Background(), "-v")
	require.Equal(t, 1, a.Faults().Verbosity())

	a.reload(&config.Config{Verbosity: 2, LogFormat: "text", MaxLogEntries: 10})
	require.Equal(t, 3, a.Faults().Verbosity())
	require.Equal(t, 3, a.Config().Verbosity)
}

func TestInvalidConfigRejected(t *testing.T) {
	f := newFixture(t, map[string]interface{}{"log_format": "xml"})
	p := terminal.NewParser([]string{"--home", f.home}, f.stdout)
	p.Parse()

	_, err := New(context.Background(), p, Options{Stdout: f.stdout, Stderr: f.stderr})
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.CodeConfig))
	require.True(t, strings.Contains(err.Error(), "field 'log_format' with value 'xml'"))
}
