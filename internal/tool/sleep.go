package tool

import (
	"context"
	"encoding/json"
)

// SleepTool implements sleep. It never blocks: it returns an envelope the
// turn loop inspects after dispatch to decide whether to enter the sleep
// state machine (spec §4.4 step 6, §4.6).
type SleepTool struct {
	maxSleepDurationSecs int
}

// NewSleepTool configures the safety cap used to clamp requested durations.
func NewSleepTool(maxSleepDurationSecs int) *SleepTool {
	if maxSleepDurationSecs <= 0 {
		maxSleepDurationSecs = 3600
	}
	return &SleepTool{maxSleepDurationSecs: maxSleepDurationSecs}
}

func (t *SleepTool) Name() string { return "sleep" }
func (t *SleepTool) Kind() Kind   { return KindControl }

type sleepEnvelope struct {
	SleepRequested bool   `json:"sleep_requested"`
	Mode           string `json:"mode"`
	Seconds        int    `json:"seconds,omitempty"`
	AgentID        string `json:"agent_id,omitempty"`
	MaxDurationSecs int   `json:"max_duration_secs"`
}

func (t *SleepTool) Execute(ctx context.Context, args map[string]interface{}) string {
	mode, _ := args["mode"].(string)
	switch mode {
	case "timer":
		// seconds required, clamp to max
	case "event":
		agentID, _ := args["agent_id"].(string)
		if agentID == "" {
			return errorEnvelope("mode=event requires a non-empty agent_id")
		}
	case "manual":
		if _, has := args["agent_id"]; has {
			return errorEnvelope("mode=manual requires no agent_id")
		}
	default:
		return errorEnvelope("mode must be one of timer, event, manual")
	}

	env := sleepEnvelope{
		SleepRequested:  true,
		Mode:            mode,
		MaxDurationSecs: t.maxSleepDurationSecs,
	}

	if mode == "timer" {
		secs := 0
		switch v := args["seconds"].(type) {
		case float64:
			secs = int(v)
		case int:
			secs = v
		}
		if secs <= 0 {
			return errorEnvelope("mode=timer requires a positive seconds value")
		}
		if secs > t.maxSleepDurationSecs {
			secs = t.maxSleepDurationSecs
		}
		env.Seconds = secs
	}

	if mode == "event" {
		env.AgentID, _ = args["agent_id"].(string)
	}

	b, err := json.Marshal(env)
	if err != nil {
		return errorEnvelope("failed to encode sleep envelope")
	}
	return string(b)
}
