// File: internal/tui/styles.go
package tui

import "github.com/charmbracelet/lipgloss"

// Styles used by the dump browser.
type Styles struct {
	App, Title, Status, Error, Help, Bordered lipgloss.Style
}

func NewStyles() Styles {
	return Styles{
		App:      lipgloss.NewStyle().Margin(1, 2),
		Title:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5")).Background(lipgloss.Color("#25A065")).Padding(0, 1),
		Status:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5733")).Bold(true),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Bordered: lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(1),
	}
}
