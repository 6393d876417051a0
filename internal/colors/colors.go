package colors

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#0080FF"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// Palette renders text for one output stream. A disabled palette returns
// text unchanged.
type Palette struct {
	enabled bool
}

// For returns the palette for w: colours only when w is a terminal and
// NO_COLOR is unset.
func For(w io.Writer) Palette {
	return Palette{enabled: SupportsColors(w)}
}

// Enabled reports whether the palette emits styling.
func (p Palette) Enabled() bool { return p.enabled }

func (p Palette) render(s lipgloss.Style, text string) string {
	if !p.enabled {
		return text
	}
	return s.Render(text)
}

func (p Palette) Error(text string) string   { return p.render(errorStyle, text) }
func (p Palette) Success(text string) string { return p.render(successStyle, text) }
func (p Palette) Warning(text string) string { return p.render(warningStyle, text) }
func (p Palette) Info(text string) string    { return p.render(infoStyle, text) }
func (p Palette) Dim(text string) string     { return p.render(dimStyle, text) }
func (p Palette) Bold(text string) string    { return p.render(boldStyle, text) }

// SupportsColors checks whether w is a colour-capable terminal.
func SupportsColors(w io.Writer) bool {
	// Check NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
