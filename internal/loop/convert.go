package loop

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ouro-run/ouro/internal/agent"
	"github.com/ouro-run/ouro/internal/llm"
	"github.com/ouro-run/ouro/internal/sleeper"
	"github.com/ouro-run/ouro/internal/tool"
)

func secondsToDuration(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}

func toLLMMessages(conv *agent.Conversation) []llm.Message {
	out := make([]llm.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		switch m.Role {
		case agent.RoleSystem:
			out = append(out, llm.Message{Role: "system", Content: m.Content})
		case agent.RoleUser:
			out = append(out, llm.Message{Role: "user", Content: m.Content})
		case agent.RoleAssistant:
			wm := llm.Message{Role: "assistant", Content: m.Content}
			for _, tc := range m.ToolCalls {
				wm.ToolCalls = append(wm.ToolCalls, llm.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
			}
			out = append(out, wm)
		case agent.RoleToolResponse:
			out = append(out, llm.Message{
				Role:       "tool",
				Content:    m.ToolResponse.Result,
				ToolCallID: m.ToolResponse.CallID,
			})
		}
	}
	return out
}

func toLLMToolDefs(defs []tool.Definition) []llm.ToolDef {
	out := make([]llm.ToolDef, 0, len(defs))
	for _, d := range defs {
		out = append(out, llm.ToolDef{Name: d.Name, Description: d.Description, Parameters: d.Parameters})
	}
	return out
}

func summarizeArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	b, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return truncate(string(b), 120)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func looksLikeError(result string) bool {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(result), &probe); err != nil {
		return false
	}
	return probe.Error != ""
}

func parseArgs(raw string) map[string]interface{} {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

// parseSleepEnvelope inspects the last tool-response body for the
// sleep_requested envelope, per spec §4.4 step 6.
func parseSleepEnvelope(result string) (mode string, cfg sleeper.Config, ok bool) {
	var env struct {
		SleepRequested  bool   `json:"sleep_requested"`
		Mode            string `json:"mode"`
		Seconds         int    `json:"seconds"`
		AgentID         string `json:"agent_id"`
		MaxDurationSecs int    `json:"max_duration_secs"`
	}
	if err := json.Unmarshal([]byte(result), &env); err != nil || !env.SleepRequested {
		return "", sleeper.Config{}, false
	}

	cfg = sleeper.Config{
		Mode:        sleeper.Mode(env.Mode),
		AgentID:     env.AgentID,
		MaxDuration: secondsToDuration(env.MaxDurationSecs),
	}
	if env.Mode == "timer" {
		cfg.Duration = secondsToDuration(env.Seconds)
	}
	return env.Mode, cfg, true
}
