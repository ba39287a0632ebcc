package dashboard

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ouro-run/ouro/internal/event"
)

type fakePauser struct {
	paused bool
}

func (f *fakePauser) SetPaused(v bool) { f.paused = v }
func (f *fakePauser) Paused() bool     { return f.paused }

func TestModelAppliesEventsAndTracksCounters(t *testing.T) {
	ch := make(chan event.Event, 4)
	m := NewModel(ch, nil)

	updated, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)
	if cmd != nil {
		t.Fatal("expected no cmd after WindowSizeMsg: the event wait started by Init stays the only reader")
	}

	now := time.Now()
	updated, _ = m.Update(eventMsg{e: event.CountersUpdated(now, 2, 3), ok: true})
	m = updated.(Model)

	if m.state.Turn != 2 || m.state.Tools != 3 {
		t.Fatalf("counters not applied: turn=%d tools=%d", m.state.Turn, m.state.Tools)
	}
}

func TestModelQuitsWhenChannelCloses(t *testing.T) {
	ch := make(chan event.Event)
	m := NewModel(ch, nil)

	updated, cmd := m.Update(eventMsg{ok: false})
	m = updated.(Model)
	if !m.quitting {
		t.Fatal("expected quitting=true on closed channel")
	}
	if cmd == nil {
		t.Fatal("expected tea.Quit cmd")
	}
}

func TestModelPauseKeyTogglesPauser(t *testing.T) {
	ch := make(chan event.Event)
	p := &fakePauser{}
	m := NewModel(ch, p)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m = updated.(Model)

	if !p.paused {
		t.Fatal("expected pauser.SetPaused(true) after 'p'")
	}
	if !m.state.Paused {
		t.Fatal("expected display state Paused to flip too")
	}
}

func TestModelViewBeforeReadyShowsInitializing(t *testing.T) {
	ch := make(chan event.Event)
	m := NewModel(ch, nil)
	if got := m.View(); got != "initializing…\n" {
		t.Errorf("View() = %q", got)
	}
}
