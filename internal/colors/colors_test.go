package colors

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaletteForBufferIsPlain(t *testing.T) {
	p := For(&bytes.Buffer{})
	require.False(t, p.Enabled())
	require.Equal(t, "boom", p.Error("boom"))
	require.Equal(t, "ok", p.Success("ok"))
}

func TestNoColorDisablesStyling(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	require.False(t, SupportsColors(&bytes.Buffer{}))
}
