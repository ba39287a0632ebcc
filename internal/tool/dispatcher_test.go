package tool

import (
	"context"
	"encoding/json"
	"testing"
)

type stubTool struct {
	name string
	kind Kind
	fn   func(ctx context.Context, args map[string]interface{}) string
}

func (s *stubTool) Name() string { return s.name }
func (s *stubTool) Kind() Kind   { return s.kind }
func (s *stubTool) Execute(ctx context.Context, args map[string]interface{}) string {
	return s.fn(ctx, args)
}

func TestDispatcherDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher(NewRegistry())
	out := d.Dispatch(context.Background(), "nope", nil)
	if !looksLikeErrorJSON(out) {
		t.Errorf("expected error envelope for unknown tool, got %s", out)
	}
}

func TestDispatcherDispatchRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "boom", kind: KindControl, fn: func(ctx context.Context, args map[string]interface{}) string {
		panic("kaboom")
	}})
	d := NewDispatcher(r)

	out := d.Dispatch(context.Background(), "boom", nil)
	if !looksLikeErrorJSON(out) {
		t.Errorf("expected error envelope after panic recovery, got %s", out)
	}
}

func TestDispatcherKindOf(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "t", kind: KindNetwork, fn: func(ctx context.Context, args map[string]interface{}) string { return "{}" }})
	d := NewDispatcher(r)

	kind, ok := d.KindOf("t")
	if !ok || kind != KindNetwork {
		t.Fatalf("KindOf = %v/%v, want KindNetwork/true", kind, ok)
	}
	if _, ok := d.KindOf("missing"); ok {
		t.Fatal("expected ok=false for unregistered tool")
	}
}

func TestStandardDefinitionsCoverAllThirteenTools(t *testing.T) {
	defs := StandardDefinitions()
	if len(defs) != 13 {
		t.Fatalf("len(StandardDefinitions()) = %d, want 13", len(defs))
	}

	want := []string{
		"shell_exec", "file_read", "file_write", "web_fetch", "web_search",
		"sleep", "flag_discovery",
		"subagent_spawn", "subagent_status", "subagent_kill", "subagent_list",
		"subagent_send", "subagent_await",
	}
	got := make(map[string]bool, len(defs))
	for _, d := range defs {
		got[d.Name] = true
		if d.Description == "" {
			t.Errorf("tool %q has empty description", d.Name)
		}
		if _, err := json.Marshal(d.Parameters); err != nil {
			t.Errorf("tool %q parameters not JSON-encodable: %v", d.Name, err)
		}
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("missing tool definition %q", name)
		}
	}
}
