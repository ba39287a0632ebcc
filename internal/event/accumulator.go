package event

import "time"

// LogEntry is one ring-buffer row of display interest.
type LogEntry struct {
	Kind            Kind
	Summary         string
	Full            string
	ExpandedDefault bool
	At              time.Time
}

const defaultRingSize = 500

// DisplayState is the UI's display-state snapshot. Events change it only
// through Apply, in arrival order; the user-action methods (ToggleExpand,
// ScrollUp, JumpToBottom, TogglePause) are the only other mutation path.
type DisplayState struct {
	LastState    State
	SleepDisplay string

	Log  []LogEntry
	ring int

	Discoveries []Event

	Turn  int
	Tools int

	ContextLevel PressureLevel
	ContextPct   float64

	Paused bool

	// UI-only fields, mutated by the dashboard directly (never via Apply),
	// per spec §4.7's "user actions update UI-only fields" carve-out.
	AutoScroll bool
	Expanded   map[int]bool
}

// NewDisplayState returns a zero-value accumulator ready to receive events.
func NewDisplayState() *DisplayState {
	return &DisplayState{
		ring:       defaultRingSize,
		AutoScroll: true,
		Expanded:   make(map[int]bool),
	}
}

// Apply folds one event into the accumulator. fold(Apply, empty, E) is a
// pure function of E for any event sequence E (spec §8's determinism
// invariant) — Apply never reads wall-clock time or any state outside d
// and the event itself.
func (d *DisplayState) Apply(e Event) {
	switch e.Kind {
	case KindThoughtText:
		d.pushLog(LogEntry{Kind: e.Kind, Summary: truncate(e.Text, 80), Full: e.Text, ExpandedDefault: true, At: e.Timestamp})
	case KindError:
		d.pushLog(LogEntry{Kind: e.Kind, Summary: truncate(e.Text, 80), Full: e.Text, ExpandedDefault: true, At: e.Timestamp})
	case KindToolCallStarted:
		d.pushLog(LogEntry{Kind: e.Kind, Summary: e.FnName + "(" + e.ArgSummary + ")", Full: e.ArgSummary, ExpandedDefault: false, At: e.Timestamp})
	case KindToolCallDone:
		d.pushLog(LogEntry{Kind: e.Kind, Summary: e.Summary, Full: e.Summary, ExpandedDefault: false, At: e.Timestamp})
	case KindSessionRestarted:
		d.pushLog(LogEntry{Kind: e.Kind, Summary: e.Reason, Full: e.Reason, ExpandedDefault: true, At: e.Timestamp})
	case KindDiscovery:
		d.Discoveries = append([]Event{e}, d.Discoveries...)
	case KindStateChanged:
		d.LastState = e.State
		if e.State == StateSleeping {
			d.SleepDisplay = e.SleepDisplay
		} else {
			d.SleepDisplay = ""
		}
		if e.State == StatePaused {
			d.Paused = true
		} else if d.Paused && e.State != StatePaused {
			d.Paused = false
		}
	case KindContextPressure:
		d.ContextLevel = e.Level
		d.ContextPct = e.Pct
	case KindCountersUpdated:
		d.Turn = e.Turn
		d.Tools = e.Tools
	case KindSessionStarted:
		// No field to overwrite beyond the implicit log trail; session-start
		// is primarily a signal to the session logger.
	}
}

func (d *DisplayState) pushLog(entry LogEntry) {
	d.Log = append(d.Log, entry)
	if d.ring > 0 && len(d.Log) > d.ring {
		d.Log = d.Log[len(d.Log)-d.ring:]
	}
}

// ToggleExpand flips the expanded/collapsed state of log row i. UI-only
// mutation, never driven by Apply.
func (d *DisplayState) ToggleExpand(i int) {
	if i < 0 || i >= len(d.Log) {
		return
	}
	cur, ok := d.Expanded[i]
	if !ok {
		cur = d.Log[i].ExpandedDefault
	}
	d.Expanded[i] = !cur
}

// ScrollUp disables auto-scroll, per spec §4.7.
func (d *DisplayState) ScrollUp() {
	d.AutoScroll = false
}

// JumpToBottom re-enables auto-scroll, the only action that does.
func (d *DisplayState) JumpToBottom() {
	d.AutoScroll = true
}

// TogglePause flips the UI-facing pause flag. The turn loop owns the
// authoritative atomic pause flag (internal/loop.Signals); the dashboard's
// copy here is purely a rendering convenience kept in sync via
// StateChanged(Paused)/StateChanged(Idle) events, not a second source of
// truth for the loop.
func (d *DisplayState) TogglePause() {
	d.Paused = !d.Paused
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Fold applies a whole event sequence to a fresh accumulator. It exists to
// make the determinism invariant (spec §8) directly testable:
// Fold(E) == Fold(E) for any E, and an accumulator built via one call to
// Apply per event equals one built via Fold.
func Fold(events []Event) *DisplayState {
	d := NewDisplayState()
	for _, e := range events {
		d.Apply(e)
	}
	return d
}
