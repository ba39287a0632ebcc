package tool

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// SubagentStatus is the lifecycle of one tracked worker handle.
type SubagentStatus string

const (
	SubagentRunning   SubagentStatus = "running"
	SubagentCompleted SubagentStatus = "completed"
	SubagentFailed    SubagentStatus = "failed"
	SubagentKilled    SubagentStatus = "killed"
)

type subagentHandle struct {
	ID     string
	Label  string
	Status SubagentStatus
}

// SubagentRegistry backs the six orchestration tools spec §4.2 treats as
// opaque. It only proves the dispatch contract (names route, results
// round-trip as JSON, errors are in-band) — the actual sub-agent
// orchestration protocol is intentionally out of the core's scope.
type SubagentRegistry struct {
	mu      sync.Mutex
	handles map[string]*subagentHandle
}

func NewSubagentRegistry() *SubagentRegistry {
	return &SubagentRegistry{handles: make(map[string]*subagentHandle)}
}

func (r *SubagentRegistry) spawn(label string) *subagentHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := &subagentHandle{ID: uuid.NewString(), Label: label, Status: SubagentRunning}
	r.handles[h.ID] = h
	return h
}

func (r *SubagentRegistry) get(id string) (*subagentHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	return h, ok
}

func (r *SubagentRegistry) list() []*subagentHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*subagentHandle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}

// Status reports the current lifecycle status of id, for the sleep state
// machine's Event-mode wake condition. Returns "" if id is unknown.
func (r *SubagentRegistry) Status(id string) string {
	h, ok := r.get(id)
	if !ok {
		return ""
	}
	return string(h.Status)
}

func (r *SubagentRegistry) setStatus(id string, status SubagentStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if !ok {
		return false
	}
	h.Status = status
	return true
}

// SubagentSpawnTool implements subagent_spawn.
type SubagentSpawnTool struct{ reg *SubagentRegistry }

func NewSubagentSpawnTool(reg *SubagentRegistry) *SubagentSpawnTool { return &SubagentSpawnTool{reg} }
func (t *SubagentSpawnTool) Name() string                          { return "subagent_spawn" }
func (t *SubagentSpawnTool) Kind() Kind                             { return KindControl }
func (t *SubagentSpawnTool) Execute(ctx context.Context, args map[string]interface{}) string {
	label, _ := args["label"].(string)
	h := t.reg.spawn(label)
	return mustJSON(map[string]string{"agent_id": h.ID, "status": string(h.Status)})
}

// SubagentStatusTool implements subagent_status.
type SubagentStatusTool struct{ reg *SubagentRegistry }

func NewSubagentStatusTool(reg *SubagentRegistry) *SubagentStatusTool {
	return &SubagentStatusTool{reg}
}
func (t *SubagentStatusTool) Name() string { return "subagent_status" }
func (t *SubagentStatusTool) Kind() Kind   { return KindControl }
func (t *SubagentStatusTool) Execute(ctx context.Context, args map[string]interface{}) string {
	id, _ := args["agent_id"].(string)
	h, ok := t.reg.get(id)
	if !ok {
		return errorEnvelope("unknown agent_id: " + id)
	}
	return mustJSON(map[string]string{"agent_id": h.ID, "status": string(h.Status)})
}

// SubagentKillTool implements subagent_kill.
type SubagentKillTool struct{ reg *SubagentRegistry }

func NewSubagentKillTool(reg *SubagentRegistry) *SubagentKillTool { return &SubagentKillTool{reg} }
func (t *SubagentKillTool) Name() string                          { return "subagent_kill" }
func (t *SubagentKillTool) Kind() Kind                             { return KindControl }
func (t *SubagentKillTool) Execute(ctx context.Context, args map[string]interface{}) string {
	id, _ := args["agent_id"].(string)
	if !t.reg.setStatus(id, SubagentKilled) {
		return errorEnvelope("unknown agent_id: " + id)
	}
	return mustJSON(map[string]string{"agent_id": id, "status": string(SubagentKilled)})
}

// SubagentListTool implements subagent_list.
type SubagentListTool struct{ reg *SubagentRegistry }

func NewSubagentListTool(reg *SubagentRegistry) *SubagentListTool { return &SubagentListTool{reg} }
func (t *SubagentListTool) Name() string                          { return "subagent_list" }
func (t *SubagentListTool) Kind() Kind                             { return KindControl }
func (t *SubagentListTool) Execute(ctx context.Context, args map[string]interface{}) string {
	list := t.reg.list()
	out := make([]map[string]string, 0, len(list))
	for _, h := range list {
		out = append(out, map[string]string{"agent_id": h.ID, "label": h.Label, "status": string(h.Status)})
	}
	return mustJSON(out)
}

// SubagentSendTool implements subagent_send. The message protocol itself is
// opaque to the core; this only validates the target exists.
type SubagentSendTool struct{ reg *SubagentRegistry }

func NewSubagentSendTool(reg *SubagentRegistry) *SubagentSendTool { return &SubagentSendTool{reg} }
func (t *SubagentSendTool) Name() string                          { return "subagent_send" }
func (t *SubagentSendTool) Kind() Kind                             { return KindControl }
func (t *SubagentSendTool) Execute(ctx context.Context, args map[string]interface{}) string {
	id, _ := args["agent_id"].(string)
	if _, ok := t.reg.get(id); !ok {
		return errorEnvelope("unknown agent_id: " + id)
	}
	return mustJSON(map[string]string{"agent_id": id, "sent": "true"})
}

// SubagentAwaitTool implements subagent_await, reporting the handle's
// current status without blocking (blocking wait semantics are left to the
// opaque orchestration layer).
type SubagentAwaitTool struct{ reg *SubagentRegistry }

func NewSubagentAwaitTool(reg *SubagentRegistry) *SubagentAwaitTool { return &SubagentAwaitTool{reg} }
func (t *SubagentAwaitTool) Name() string                          { return "subagent_await" }
func (t *SubagentAwaitTool) Kind() Kind                             { return KindControl }
func (t *SubagentAwaitTool) Execute(ctx context.Context, args map[string]interface{}) string {
	id, _ := args["agent_id"].(string)
	h, ok := t.reg.get(id)
	if !ok {
		return errorEnvelope("unknown agent_id: " + id)
	}
	return mustJSON(map[string]string{"agent_id": h.ID, "status": string(h.Status)})
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return errorEnvelope("failed to encode result")
	}
	return string(b)
}
