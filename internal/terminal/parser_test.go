package terminal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHelp(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"long", []string{"--help"}},
		{"short", []string{"-h"}},
		{"in group", []string{"-vh"}},
		{"after other flags", []string{"--silent", "--unknown", "--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			p := NewParser(tt.args, out)

			require.True(t, p.Parse())
			require.Contains(t, out.String(), "Usage:")
			require.Equal(t, 1, strings.Count(out.String(), "Usage:"))
		})
	}
}

func TestInitOnlyLooksForHelp(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewParser([]string{"--silent", "-v"}, out)

	require.False(t, p.Init())
	require.Empty(t, out.String())
	require.False(t, p.Silent)
	require.Zero(t, p.Verbosity)

	p = NewParser([]string{"--silent", "--help"}, out)
	require.True(t, p.Init())
	require.Contains(t, out.String(), "--silent")
}

func TestParseSilent(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewParser([]string{"--silent"}, out)

	require.False(t, p.Parse())
	require.True(t, p.Silent)
	require.Empty(t, out.String())

	p = NewParser(nil, out)
	require.False(t, p.Parse())
	require.False(t, p.Silent)
}

func TestParseUnrecognisedIsIgnored(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewParser([]string{"--frobnicate", "-q", "file.txt", "--colour=blue"}, out)

	require.False(t, p.Parse())
	require.Empty(t, out.String())
	require.Equal(t, []string{"--frobnicate", "-q", "file.txt", "--colour=blue"}, p.Ignored)
}

func TestParseVerbosityAndValues(t *testing.T) {
	p := NewParser([]string{"-vvv", "--home", "/tmp/patrol", "--syslog=/tmp/p.log", "--safe", "-s"}, &bytes.Buffer{})

	require.False(t, p.Parse())
	require.Equal(t, 3, p.Verbosity)
	require.Equal(t, "/tmp/patrol", p.HomePath)
	require.Equal(t, "/tmp/p.log", p.LogFile)
	require.True(t, p.SafeMode)
	require.True(t, p.Silent)
	require.Empty(t, p.Ignored)
}

func TestParseValueFlagWithoutValue(t *testing.T) {
	p := NewParser([]string{"--home"}, &bytes.Buffer{})

	require.False(t, p.Parse())
	require.Empty(t, p.HomePath)
	require.Equal(t, []string{"--home"}, p.Ignored)
}

func TestParseStopsAtTerminator(t *testing.T) {
	p := NewParser([]string{"--", "--help"}, &bytes.Buffer{})

	require.False(t, p.Init())
	require.False(t, p.Parse())
}

func TestParseVersion(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewParser([]string{"--version"}, out)
	p.Version = "1.2.3"

	require.True(t, p.Parse())
	require.Equal(t, "patrol 1.2.3\n", out.String())
}

func TestParseChar(t *testing.T) {
	p := NewParser(nil, &bytes.Buffer{})

	require.True(t, p.ParseChar('s'))
	require.True(t, p.Silent)
	require.True(t, p.ParseChar('v'))
	require.True(t, p.ParseChar('v'))
	require.Equal(t, 2, p.Verbosity)
	require.False(t, p.ParseChar('z'))
	require.False(t, p.ParseChar('é'))
}

func TestArgsAreCopied(t *testing.T) {
	args := []string{"--silent"}
	p := NewParser(args, &bytes.Buffer{})
	args[0] = "--help"

	require.False(t, p.Parse())
	require.Equal(t, []string{"--silent"}, p.Args())
}

func TestHelpFooter(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewParser(nil, out)
	p.Footer = "Commands:\n  crash  Inspect crash dumps\n"

	p.DisplayHelp()

	require.True(t, strings.HasSuffix(out.String(), "crash  Inspect crash dumps\n"))
}
