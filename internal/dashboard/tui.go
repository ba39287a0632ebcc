package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ouro-run/ouro/internal/event"
)

var (
	headerStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51")).Padding(0, 1)
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	pressureSoftStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	pressureHardStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	discoveryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

// PauseToggler lets the TUI flip the process-wide pause flag that the
// sleep state machine's Manual mode and the per-turn pause check both
// read, per spec §5's shared-atomic-booleans model.
type PauseToggler interface {
	SetPaused(bool)
	Paused() bool
}

// Model is the bubbletea model driving the full-screen dashboard. Its sole
// source of truth is the event.DisplayState accumulator; Model never
// mutates it except by calling Apply with events off the channel, or the
// UI-only scroll/expand/pause fields the accumulator carves out for direct
// dashboard mutation, per spec §4.7.
type Model struct {
	state    *event.DisplayState
	events   <-chan event.Event
	viewport viewport.Model
	renderer *glamour.TermRenderer
	pauser   PauseToggler
	width    int
	height   int
	ready    bool
	quitting bool
}

type eventMsg struct {
	e  event.Event
	ok bool
}

// NewModel builds the TUI model. pauser may be nil in tests that don't
// exercise the pause key.
func NewModel(events <-chan event.Event, pauser PauseToggler) Model {
	r, _ := glamour.NewTermRenderer(glamour.WithAutoStyle())
	return Model{
		state:    event.NewDisplayState(),
		events:   events,
		renderer: r,
		pauser:   pauser,
	}
}

func waitForEvent(ch <-chan event.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		return eventMsg{e: e, ok: ok}
	}
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		headerHeight := 2
		footerHeight := 2
		vpHeight := m.height - headerHeight - footerHeight
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.renderLog())
		return m, nil

	case eventMsg:
		if !msg.ok {
			m.quitting = true
			return m, tea.Quit
		}
		m.state.Apply(msg.e)
		if m.ready {
			atBottom := m.viewport.AtBottom()
			m.viewport.SetContent(m.renderLog())
			if m.state.AutoScroll || atBottom {
				m.viewport.GotoBottom()
			}
		}
		return m, waitForEvent(m.events)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "p":
			if m.pauser != nil {
				m.state.TogglePause()
				m.pauser.SetPaused(!m.pauser.Paused())
			}
		case "g":
			m.state.JumpToBottom()
			m.viewport.GotoBottom()
		case "up", "k":
			m.state.ScrollUp()
			m.viewport.LineUp(1)
		case "down", "j":
			m.viewport.LineDown(1)
		case "e":
			if n := len(m.state.Log); n > 0 {
				m.state.ToggleExpand(n - 1)
			}
			m.viewport.SetContent(m.renderLog())
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "initializing…\n"
	}
	if m.quitting {
		return "session ended.\n"
	}

	header := headerStyle.Render(fmt.Sprintf("ouro — %s", m.state.LastState))
	if m.state.LastState == event.StateSleeping {
		header += statusStyle.Render(" (" + m.state.SleepDisplay + ")")
	}

	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), footer)
}

func (m Model) renderFooter() string {
	pressure := fmt.Sprintf("%.0f%%", m.state.ContextPct)
	style := statusStyle
	switch m.state.ContextLevel {
	case event.PressureSoft:
		style = pressureSoftStyle
	case event.PressureHard:
		style = pressureHardStyle
	}

	pauseNote := ""
	if m.state.Paused {
		pauseNote = " [PAUSED]"
	}

	return statusStyle.Render(fmt.Sprintf("turn=%d tools=%d ctx=", m.state.Turn, m.state.Tools)) +
		style.Render(pressure) +
		statusStyle.Render(fmt.Sprintf("%s  (q quit, p pause, e expand, g bottom)", pauseNote))
}

func (m Model) renderLog() string {
	var b strings.Builder
	for i, entry := range m.state.Log {
		text := entry.Summary
		expanded, set := m.state.Expanded[i]
		if set && expanded || (!set && entry.ExpandedDefault) {
			text = entry.Full
		}
		fmt.Fprintf(&b, "%s  %s\n", entry.At.Format("15:04:05"), text)
	}
	for _, d := range m.state.Discoveries {
		b.WriteString(discoveryStyle.Render(fmt.Sprintf("★ %s", d.Title)) + ": " + d.Description + "\n")
	}
	return b.String()
}
