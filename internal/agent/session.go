package agent

import (
	"fmt"
	"time"
)

// MaskedObservation describes one tool-response the context manager has
// replaced in place, oldest-first at time of masking.
type MaskedObservation struct {
	CallID    string
	MaskedAt  time.Time
	Summary   string
}

// Session tracks the lifecycle counters of one turn-loop run. It is owned
// exclusively by the turn loop; created at process start (or at restart)
// and destroyed at shutdown or superseded by the next restart.
type Session struct {
	ID            string
	StartedAt     time.Time
	TurnCount     int
	ToolCallCount int
	CharEstimate  int
	Masked        []MaskedObservation
	RestartNumber int
}

// NewSession creates the first session of a process. now must come from the
// caller (time.Now is not called inside this package so tests stay
// deterministic).
func NewSession(now time.Time) *Session {
	return &Session{
		ID:            SessionID(now),
		StartedAt:     now,
		RestartNumber: 1,
	}
}

// Restart produces the next session in a continuity chain, bumping the
// restart counter and resetting the per-session counters. The previous
// session's final turn count is returned so callers can include it in the
// restart marker message.
func (s *Session) Restart(now time.Time) (next *Session, previousTurns int) {
	next = &Session{
		ID:            SessionID(now),
		StartedAt:     now,
		RestartNumber: s.RestartNumber + 1,
	}
	return next, s.TurnCount
}

// SessionID produces a timestamp-derived, filesystem-safe session
// identifier.
func SessionID(t time.Time) string {
	return t.UTC().Format("2006-01-02T15-04-05")
}

// IncrementTurn advances the turn counter. Per spec §3 this happens once
// per model response that produced observable output — never during sleep
// or pause.
func (s *Session) IncrementTurn() {
	s.TurnCount++
}

// MaskObservation records a masking event against the session's descriptor
// list, oldest-to-newest.
func (s *Session) MaskObservation(callID, summary string, at time.Time) {
	s.Masked = append(s.Masked, MaskedObservation{CallID: callID, MaskedAt: at, Summary: summary})
}

// IsMasked reports whether callID has already been masked, enforcing the
// masking-idempotence invariant.
func (s *Session) IsMasked(callID string) bool {
	for _, m := range s.Masked {
		if m.CallID == callID {
			return true
		}
	}
	return false
}

// RestartMarker renders the harness-injected system message described in
// spec §4.5: "[Session restarted. Session #N. Previous session ran T
// turns. Reason: ...]".
func RestartMarker(n, previousTurns int, reason string) string {
	return fmt.Sprintf("[Session restarted. Session #%d. Previous session ran %d turns. Reason: %s]", n, previousTurns, reason)
}

// SleepEndedMarker renders the harness-injected wake message of spec §4.4
// step 6.
func SleepEndedMarker(reason string, slept time.Duration) string {
	return fmt.Sprintf("[Sleep ended. Reason: %s. Slept for %.1fs]", reason, slept.Seconds())
}

// CompactionMarker renders the one-time masking notification of spec §4.5.
func CompactionMarker(count int, pct float64) string {
	return fmt.Sprintf("[Context compressed: %d observations masked, ~%.0f%% reclaimed]", count, pct)
}

// WindDownMarker renders the hard-threshold instruction of spec §4.5.
const WindDownMarker = "[Context nearly exhausted. Persist any state you need to disk now; this session will restart after this turn.]"
