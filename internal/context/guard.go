// Package context implements the context manager of spec §4.5: token
// estimation via the character/4 heuristic, graduated pressure response
// (masking → wind-down → restart), and the restart carryover seed.
package context

import (
	"fmt"
	"time"

	"github.com/ouro-run/ouro/internal/agent"
)

// Config holds the configurable thresholds and carryover size of spec §6.
type Config struct {
	ContextWindowTokens int
	SoftThreshold       float64 // default 0.70
	HardThreshold       float64 // default 0.90
	CarryoverTurns      int
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig(contextWindowTokens int) Config {
	return Config{
		ContextWindowTokens: contextWindowTokens,
		SoftThreshold:       0.70,
		HardThreshold:       0.90,
		CarryoverTurns:      4,
	}
}

// State tracks per-session guard bookkeeping that is not part of the core
// Session entity (spec §3 doesn't name these fields — they are the context
// manager's own implementation detail of the wind-down → restart
// transition).
type State struct {
	WindDownInjected bool
	RestartRequired  bool
}

// Level names a pressure crossing, or "" for no crossing.
type Level string

const (
	LevelNone Level = ""
	LevelSoft Level = "soft"
	LevelHard Level = "hard"
)

// Outcome is what the turn loop should do after one Check call.
type Outcome struct {
	Level Level
	Pct   float64

	// Masked is set when a tool-response was masked this call. The caller
	// is responsible for mutating the conversation message in place.
	Masked       bool
	MaskedIndex  int
	MaskedCallID string
	MaskSummary  string

	// CompactionNotice, if non-empty, should be appended as a system
	// message (the one-time "[Context compressed: ...]" notice).
	CompactionNotice string

	// WindDownNotice, if non-empty, should be appended as a system message.
	WindDownNotice string

	// RestartRequired signals the turn loop must end this session and seed
	// the next one via BuildCarryover.
	RestartRequired bool
}

// Guard is the stateless estimator + policy; State carries the memory
// (wind-down-already-injected, restart-required) across calls.
type Guard struct {
	cfg Config
}

func NewGuard(cfg Config) *Guard {
	return &Guard{cfg: cfg}
}

// EstimateTokens applies the character/4 heuristic. If the model runtime
// supplied a real token count this turn, callers should pass it via
// realTokens instead of -1; real counts are preferred when available, per
// spec §4.5 and DESIGN's open question on streamed token counts.
func (g *Guard) EstimateTokens(conv *agent.Conversation, realTokens int) int {
	if realTokens >= 0 {
		return realTokens
	}
	return conv.CharCount() / 4
}

// Check runs one pressure-response cycle. It mutates neither the
// conversation nor the session directly — it reports what happened (via
// Outcome) and the caller applies it, keeping ownership boundaries clean:
// Guard never holds a reference to the conversation between calls.
func (g *Guard) Check(conv *agent.Conversation, sess *agent.Session, state *State, realTokens int, now time.Time) Outcome {
	if state.RestartRequired {
		return Outcome{RestartRequired: true}
	}

	tokens := g.EstimateTokens(conv, realTokens)
	pct := float64(tokens) / float64(g.cfg.ContextWindowTokens) * 100

	switch {
	case pct < g.cfg.SoftThreshold*100:
		return Outcome{Level: LevelNone, Pct: pct}

	case pct < g.cfg.HardThreshold*100:
		out := Outcome{Level: LevelSoft, Pct: pct}
		idx, call, summary, ok := nextMaskable(conv, sess)
		if ok {
			out.Masked = true
			out.MaskedIndex = idx
			out.MaskedCallID = call
			out.MaskSummary = summary
			out.CompactionNotice = agent.CompactionMarker(len(sess.Masked)+1, reclaimedPct(conv, summary, call))
		}
		return out

	default:
		out := Outcome{Level: LevelHard, Pct: pct}
		if !state.WindDownInjected {
			state.WindDownInjected = true
			out.WindDownNotice = agent.WindDownMarker
		} else {
			state.RestartRequired = true
			out.RestartRequired = true
		}
		return out
	}
}

// nextMaskable finds the oldest unmasked tool-response message, enforcing
// masking monotonicity (oldest-first, never twice).
func nextMaskable(conv *agent.Conversation, sess *agent.Session) (index int, callID, summary string, ok bool) {
	for i, m := range conv.Messages {
		if !m.IsToolResponse() {
			continue
		}
		if sess.IsMasked(m.ToolResponse.CallID) {
			continue
		}
		return i, m.ToolResponse.CallID, summarize(m.ToolResponse.Result), true
	}
	return 0, "", "", false
}

// summarize builds the "[fn: ... -- N chars, summary]"-style descriptor
// that replaces a masked observation's body, per spec §4.5. The dispatcher
// attaches enough context (this package only sees the raw result text) so
// the descriptor is necessarily generic here.
func summarize(result string) string {
	n := len(result)
	if n > 60 {
		result = result[:60] + "..."
	}
	return fmt.Sprintf("[masked observation -- %d chars originally, %s]", n, result)
}

func reclaimedPct(conv *agent.Conversation, summary, callID string) float64 {
	before := conv.CharCount()
	if before == 0 {
		return 0
	}
	// The message hasn't been mutated yet when this is computed (Check
	// reports the outcome; the caller applies the mutation), so estimate
	// the reclaim as the delta between the original result length (looked
	// up via callID) and the summary length.
	for _, m := range conv.Messages {
		if m.IsToolResponse() && m.ToolResponse.CallID == callID {
			delta := len(m.ToolResponse.Result) - len(summary)
			if delta <= 0 {
				return 0
			}
			return float64(delta) / float64(before) * 100
		}
	}
	return 0
}

// ApplyMask mutates conv in place, replacing the masked message's result
// text and marking it Masked, then records the masking on sess. Masking
// replaces content only — it never removes a message or a tool-response,
// preserving the §3 ordering invariant.
func ApplyMask(conv *agent.Conversation, sess *agent.Session, out Outcome, now time.Time) {
	if !out.Masked {
		return
	}
	m := &conv.Messages[out.MaskedIndex]
	m.ToolResponse.Result = out.MaskSummary
	m.ToolResponse.Masked = true
	sess.MaskObservation(out.MaskedCallID, out.MaskSummary, now)
}

// BuildCarryover selects the last K assistant/tool-response turns from the
// previous session's conversation, preserving ordering, for the restart
// seed of spec §4.5.
func BuildCarryover(prev *agent.Conversation, carryoverTurns int) []agent.Message {
	if carryoverTurns <= 0 || len(prev.Messages) == 0 {
		return nil
	}

	// Walk backward counting assistant messages as turn boundaries; take
	// whole (assistant, [tool-response]*) groups, never splitting one.
	turnsSeen := 0
	start := len(prev.Messages)
	for i := len(prev.Messages) - 1; i >= 0; i-- {
		if prev.Messages[i].Role == agent.RoleAssistant {
			turnsSeen++
			start = i
			if turnsSeen == carryoverTurns {
				break
			}
		}
	}
	carried := make([]agent.Message, len(prev.Messages[start:]))
	copy(carried, prev.Messages[start:])
	return carried
}
