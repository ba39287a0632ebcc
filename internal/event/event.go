// Package event defines the closed AgentEvent variant set (spec §3) and the
// pure display-state accumulator that folds them (spec §4.7). The loop is
// the single producer and the UI the consumer; the session logger does not
// read this channel (the loop writes session-log records itself). The
// consumer never calls back into the loop.
package event

import "time"

// Kind identifies which AgentEvent variant is populated.
type Kind string

const (
	KindSessionStarted   Kind = "session_started"
	KindStateChanged     Kind = "state_changed"
	KindThoughtText      Kind = "thought_text"
	KindToolCallStarted  Kind = "tool_call_started"
	KindToolCallDone     Kind = "tool_call_completed"
	KindContextPressure  Kind = "context_pressure"
	KindCountersUpdated  Kind = "counters_updated"
	KindSessionRestarted Kind = "session_restarted"
	KindDiscovery        Kind = "discovery"
	KindError            Kind = "error"
)

// State is the set of values a StateChanged event may carry.
type State string

const (
	StateThinking  State = "thinking"
	StateExecuting State = "executing"
	StateIdle      State = "idle"
	StatePaused    State = "paused"
	StateSleeping  State = "sleeping"
)

// PressureLevel names a context-pressure crossing.
type PressureLevel string

const (
	PressureSoft PressureLevel = "soft"
	PressureHard PressureLevel = "hard"
)

// Event is a single tagged union value on the event channel. Only the
// fields relevant to Kind are populated; the rest are zero.
type Event struct {
	Kind      Kind
	Timestamp time.Time

	// StateChanged
	State        State
	SleepDisplay string // only meaningful when State == StateSleeping

	// ThoughtText, Error
	Text string

	// ToolCallStarted / ToolCallCompleted
	CallID     string
	FnName     string
	ArgSummary string
	OK         bool
	Summary    string

	// ContextPressure
	Level PressureLevel
	Pct   float64

	// CountersUpdated
	Turn  int
	Tools int

	// SessionRestarted
	Reason string
	N      int

	// Discovery
	Title       string
	Description string
}

// SessionStarted builds the session-start event.
func SessionStarted(now time.Time) Event {
	return Event{Kind: KindSessionStarted, Timestamp: now}
}

// StateChanged builds a state-transition event.
func StateChanged(now time.Time, s State, sleepDisplay string) Event {
	return Event{Kind: KindStateChanged, Timestamp: now, State: s, SleepDisplay: sleepDisplay}
}

// ThoughtText builds a streamed-text event.
func ThoughtText(now time.Time, text string) Event {
	return Event{Kind: KindThoughtText, Timestamp: now, Text: text}
}

// ToolCallStarted builds the pre-dispatch event.
func ToolCallStarted(now time.Time, callID, fn, argSummary string) Event {
	return Event{Kind: KindToolCallStarted, Timestamp: now, CallID: callID, FnName: fn, ArgSummary: argSummary}
}

// ToolCallCompleted builds the post-dispatch event.
func ToolCallCompleted(now time.Time, callID string, ok bool, summary string) Event {
	return Event{Kind: KindToolCallDone, Timestamp: now, CallID: callID, OK: ok, Summary: summary}
}

// ContextPressure builds a pressure-crossing event.
func ContextPressure(now time.Time, level PressureLevel, pct float64) Event {
	return Event{Kind: KindContextPressure, Timestamp: now, Level: level, Pct: pct}
}

// CountersUpdated builds a counters-snapshot event.
func CountersUpdated(now time.Time, turn, tools int) Event {
	return Event{Kind: KindCountersUpdated, Timestamp: now, Turn: turn, Tools: tools}
}

// SessionRestarted builds a restart event.
func SessionRestarted(now time.Time, reason string, n int) Event {
	return Event{Kind: KindSessionRestarted, Timestamp: now, Reason: reason, N: n}
}

// DiscoveryEvent builds a discovery-flagged event.
func DiscoveryEvent(now time.Time, title, description string) Event {
	return Event{Kind: KindDiscovery, Timestamp: now, Title: title, Description: description}
}

// ErrorEvent builds a non-fatal error-surface event.
func ErrorEvent(now time.Time, message string) Event {
	return Event{Kind: KindError, Timestamp: now, Text: message}
}
