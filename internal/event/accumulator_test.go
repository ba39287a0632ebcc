package event

import (
	"testing"
	"time"
)

func TestApplyIsDeterministic(t *testing.T) {
	now := time.Now()
	events := []Event{
		SessionStarted(now),
		StateChanged(now, StateThinking, ""),
		ThoughtText(now, "hello world"),
		ToolCallStarted(now, "c1", "shell_exec", `{"command":"ls"}`),
		ToolCallCompleted(now, "c1", true, "ok"),
		CountersUpdated(now, 1, 1),
		ContextPressure(now, PressureSoft, 71.2),
		DiscoveryEvent(now, "found it", "description"),
	}

	a := Fold(events)
	b := Fold(events)

	if a.Turn != b.Turn || a.Tools != b.Tools {
		t.Fatalf("counters diverged: %+v vs %+v", a, b)
	}
	if len(a.Log) != len(b.Log) {
		t.Fatalf("log length diverged: %d vs %d", len(a.Log), len(b.Log))
	}
	if a.ContextLevel != b.ContextLevel || a.ContextPct != b.ContextPct {
		t.Fatalf("context pressure diverged")
	}
	if len(a.Discoveries) != 1 || a.Discoveries[0].Title != "found it" {
		t.Fatalf("discovery not recorded: %+v", a.Discoveries)
	}
}

func TestDiscoveryPrepended(t *testing.T) {
	now := time.Now()
	d := NewDisplayState()
	d.Apply(DiscoveryEvent(now, "first", ""))
	d.Apply(DiscoveryEvent(now, "second", ""))
	if d.Discoveries[0].Title != "second" {
		t.Fatalf("expected newest discovery first, got %q", d.Discoveries[0].Title)
	}
}

func TestScrollUpDisablesAutoScrollJumpReenables(t *testing.T) {
	d := NewDisplayState()
	if !d.AutoScroll {
		t.Fatal("expected auto-scroll enabled by default")
	}
	d.ScrollUp()
	if d.AutoScroll {
		t.Fatal("expected auto-scroll disabled after ScrollUp")
	}
	d.JumpToBottom()
	if !d.AutoScroll {
		t.Fatal("expected auto-scroll re-enabled after JumpToBottom")
	}
}

func TestLogRingBounded(t *testing.T) {
	d := NewDisplayState()
	d.ring = 3
	now := time.Now()
	for i := 0; i < 10; i++ {
		d.Apply(ThoughtText(now, "x"))
	}
	if len(d.Log) != 3 {
		t.Fatalf("Log len = %d, want 3", len(d.Log))
	}
}
