// Package sleeper implements the between-turn dormancy state machine of
// spec §4.6: three wake modes (Timer, Event, Manual), each polled at a
// fixed interval against a small set of wake conditions.
package sleeper

import (
	"context"
	"fmt"
	"time"
)

// Mode is the sleep variant requested by the sleep tool.
type Mode string

const (
	ModeTimer  Mode = "timer"
	ModeEvent  Mode = "event"
	ModeManual Mode = "manual"
)

// SubagentStatusFunc reports the current status of the agent-id an Event
// sleep is waiting on. Statuses matching "completed", "failed", or
// "killed" end the sleep.
type SubagentStatusFunc func(agentID string) string

// Signals are the two process-wide atomic booleans shared with the turn
// loop (spec §5's "only two atomic booleans" note).
type Signals interface {
	Shutdown() bool
	Paused() bool
	ClearPause()
}

// Config describes one sleep request.
type Config struct {
	Mode         Mode
	Duration     time.Duration // Timer only
	AgentID      string        // Event only
	MaxDuration  time.Duration // safety cap, all modes
}

// DisplayText renders the state-changed display string for the given
// config and remaining duration, per spec §4.6's three example strings.
func (c Config) DisplayText(remaining time.Duration) string {
	switch c.Mode {
	case ModeTimer:
		return fmt.Sprintf("Timer: %s remaining", formatDuration(remaining))
	case ModeEvent:
		return fmt.Sprintf("Waiting: agent %s", c.AgentID)
	default:
		return "Manual pause (r to resume)"
	}
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}

const pollInterval = 500 * time.Millisecond

// Run blocks until a wake condition fires, returning the wake reason
// string named in spec §4.6's table. onTick, if non-nil, is invoked once
// per poll in Timer mode with the remaining duration — the caller uses it
// to refresh the dashboard's sleep-display text. Event and Manual modes do
// not call it.
func Run(ctx context.Context, cfg Config, signals Signals, subagentStatus SubagentStatusFunc, onTick func(remaining time.Duration)) (reason string) {
	start := time.Now()
	if cfg.Mode == ModeManual {
		// Manual mode reuses the UI pause flag directly.
		_ = cfg // no-op, pause flag already set by the caller before Run
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if signals.Shutdown() {
			return "shutdown"
		}

		elapsed := time.Since(start)
		if cfg.MaxDuration > 0 && elapsed >= cfg.MaxDuration {
			return "max_duration_exceeded"
		}

		switch cfg.Mode {
		case ModeTimer:
			if elapsed >= cfg.Duration {
				return "timer_expired"
			}
			if onTick != nil {
				onTick(cfg.Duration - elapsed)
			}

		case ModeEvent:
			if subagentStatus != nil {
				switch subagentStatus(cfg.AgentID) {
				case "completed":
					return "completed"
				case "failed":
					return "failed"
				case "killed":
					return "killed"
				}
			}

		case ModeManual:
			if !signals.Paused() {
				return "user_resumed"
			}
		}

		select {
		case <-ctx.Done():
			return "shutdown"
		case <-ticker.C:
		}
	}
}
