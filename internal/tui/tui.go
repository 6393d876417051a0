// File: internal/tui/tui.go
package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"patrol.module/internal/crash"
)

// --- View State ---
type viewState int

const (
	loadingView viewState = iota
	dumpListView
	dumpDetailsView
	dumpConfirmDeleteView
)

// --- Messages ---
type entriesLoadedMsg struct {
	entries []crash.Entry
	err     error
}

type reportLoadedMsg struct {
	report *crash.Report
	err    error
}

type dumpRemovedMsg struct {
	id  string
	err error
}

// --- Keymaps ---
type KeyMap struct {
	Quit, Back, Enter, Delete, Copy, Refresh, Yes, No key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Back, k.Enter, k.Refresh}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Enter, k.Back, k.Refresh},
		{k.Delete, k.Copy},
		{k.Yes, k.No},
		{k.Quit},
	}
}

var Keys = KeyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:    key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Delete:  key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d/x", "delete")),
	Copy:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy report")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
	No:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
}

// --- List Items ---
type dumpItem struct{ entry crash.Entry }

func (i dumpItem) Title() string {
	return fmt.Sprintf("%s  [%s]", shortID(i.entry.ID), i.entry.Kind)
}

func (i dumpItem) Description() string {
	reason := i.entry.Reason
	if reason == "" {
		reason = "no reason recorded"
	}
	return fmt.Sprintf("%s | %s, %s", reason, humanize.Time(i.entry.Time), humanize.Bytes(uint64(i.entry.Size)))
}

func (i dumpItem) FilterValue() string { return i.entry.ID + " " + i.entry.Reason }

// --- Main Model ---
type model struct {
	state         viewState
	store         *crash.Store
	dumpList      list.Model
	viewport      viewport.Model
	spinner       spinner.Model
	help          help.Model
	keys          KeyMap
	styles        Styles
	current       *crash.Report
	pendingDelete string
	loadingMsg    string
	copyText      func(string) error
	ready         bool
	width, height int
}

// NewModel returns the dump browser over store.
func NewModel(store *crash.Store) model {
	styles := NewStyles()
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Status

	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Crash dumps in " + store.Dir
	l.SetShowHelp(false)
	l.Styles.Title = styles.Title

	m := model{
		state:      loadingView,
		store:      store,
		dumpList:   l,
		viewport:   viewport.New(0, 0),
		spinner:    s,
		help:       help.New(),
		keys:       Keys,
		styles:     styles,
		loadingMsg: "Reading dumps...",
		copyText:   clipboard.WriteAll,
	}
	m.syncKeyMap()
	return m
}

func (m *model) setState(s viewState) {
	m.state = s
	m.syncKeyMap()
}

func (m *model) syncKeyMap() {
	isList := m.state == dumpListView
	isDetails := m.state == dumpDetailsView
	isConfirm := m.state == dumpConfirmDeleteView
	m.keys.Enter.SetEnabled(isList)
	m.keys.Refresh.SetEnabled(isList)
	m.keys.Delete.SetEnabled(isList || isDetails)
	m.keys.Back.SetEnabled(isDetails || isConfirm)
	m.keys.Copy.SetEnabled(isDetails)
	m.keys.Yes.SetEnabled(isConfirm)
	m.keys.No.SetEnabled(isConfirm)
}

func loadEntriesCmd(store *crash.Store) tea.Cmd {
	return func() tea.Msg {
		entries, err := store.List()
		return entriesLoadedMsg{entries: entries, err: err}
	}
}

func loadReportCmd(store *crash.Store, id string) tea.Cmd {
	return func() tea.Msg {
		r, err := store.Load(id)
		return reportLoadedMsg{report: r, err: err}
	}
}

func removeDumpCmd(store *crash.Store, id string) tea.Cmd {
	return func() tea.Msg {
		return dumpRemovedMsg{id: id, err: store.Remove(id)}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadEntriesCmd(m.store))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = msg.Width, msg.Height
		h, v := m.styles.App.GetFrameSize()
		listHeight := m.height - v - 5
		m.dumpList.SetSize(m.width-h, listHeight)
		m.viewport.Width = m.width - h
		m.viewport.Height = listHeight
		m.help.Width = m.width - h
		m.ready = true
		return m, nil
	}
	switch msg := msg.(type) {
	case entriesLoadedMsg:
		m.setState(dumpListView)
		if msg.err != nil {
			return m, m.dumpList.NewStatusMessage(m.styles.Error.Render(fmt.Sprintf("Error: %v", msg.err)))
		}
		items := make([]list.Item, 0, len(msg.entries))
		for _, e := range msg.entries {
			items = append(items, dumpItem{entry: e})
		}
		return m, m.dumpList.SetItems(items)
	case reportLoadedMsg:
		if msg.err != nil {
			m.setState(dumpListView)
			return m, m.dumpList.NewStatusMessage(m.styles.Error.Render(fmt.Sprintf("Error: %v", msg.err)))
		}
		m.current = msg.report
		m.viewport.SetContent(formatReport(msg.report, m.styles))
		m.viewport.GotoTop()
		m.setState(dumpDetailsView)
		return m, nil
	case dumpRemovedMsg:
		m.current = nil
		m.setState(loadingView)
		if msg.err != nil {
			return m, tea.Batch(loadEntriesCmd(m.store), m.dumpList.NewStatusMessage(m.styles.Error.Render(fmt.Sprintf("Error: %v", msg.err))))
		}
		return m, tea.Batch(loadEntriesCmd(m.store), m.dumpList.NewStatusMessage(m.styles.Status.Render(fmt.Sprintf("Dump %s deleted.", shortID(msg.id)))))
	case spinner.TickMsg:
		var cmd tea.Cmd
		if m.state == loadingView {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	switch m.state {
	case dumpListView:
		return m.updateDumpListView(msg)
	case dumpDetailsView:
		return m.updateDumpDetailsView(msg)
	case dumpConfirmDeleteView:
		return m.updateConfirmDeleteView(msg)
	}
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var finalView string
	switch m.state {
	case loadingView:
		finalView = fmt.Sprintf("\n   %s %s\n", m.spinner.View(), m.loadingMsg)
	case dumpListView:
		finalView = m.dumpList.View()
	case dumpDetailsView:
		finalView = m.viewport.View()
	case dumpConfirmDeleteView:
		finalView = m.styles.Bordered.Render(fmt.Sprintf("Delete dump '%s'?\n\n(y/n)", shortID(m.pendingDelete)))
	}
	helpView := m.help.View(m.keys)
	return m.styles.App.Render(finalView + "\n\n" + m.styles.Help.Render(helpView))
}

func (m model) updateDumpListView(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.dumpList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			m.setState(loadingView)
			return m, tea.Batch(m.spinner.Tick, loadEntriesCmd(m.store))
		case key.Matches(msg, m.keys.Enter):
			if selected, ok := m.dumpList.SelectedItem().(dumpItem); ok {
				return m, loadReportCmd(m.store, selected.entry.ID)
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if selected, ok := m.dumpList.SelectedItem().(dumpItem); ok {
				m.pendingDelete = selected.entry.ID
				m.setState(dumpConfirmDeleteView)
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.dumpList, cmd = m.dumpList.Update(msg)
	return m, cmd
}

func (m model) updateDumpDetailsView(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Back):
			m.current = nil
			m.setState(dumpListView)
			return m, nil
		case key.Matches(msg, m.keys.Copy):
			if m.current == nil {
				return m, nil
			}
			if err := m.copyText(m.current.Text()); err != nil {
				return m, m.dumpList.NewStatusMessage(m.styles.Error.Render(fmt.Sprintf("Copy failed: %v", err)))
			}
			m.setState(dumpListView)
			return m, m.dumpList.NewStatusMessage(m.styles.Status.Render("Report copied to clipboard."))
		case key.Matches(msg, m.keys.Delete):
			if m.current != nil {
				m.pendingDelete = m.current.ID
				m.setState(dumpConfirmDeleteView)
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) updateConfirmDeleteView(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Yes):
			id := m.pendingDelete
			m.pendingDelete = ""
			return m, removeDumpCmd(m.store, id)
		case key.Matches(msg, m.keys.No), key.Matches(msg, m.keys.Back):
			m.pendingDelete = ""
			if m.current != nil {
				m.setState(dumpDetailsView)
			} else {
				m.setState(dumpListView)
			}
		}
	}
	return m, nil
}

// --- Helper Functions ---
func formatReport(r *crash.Report, s Styles) string {
	var b strings.Builder
	b.WriteString(s.Title.Render(fmt.Sprintf("Dump %s (%s)", shortID(r.ID), r.Kind)) + "\n\n")
	b.WriteString(r.Text())
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Run starts the dump browser and blocks until the user quits.
func Run(store *crash.Store) error {
	p := tea.NewProgram(NewModel(store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
