package context

import (
	"testing"
	"time"

	"github.com/ouro-run/ouro/internal/agent"
)

func buildConversation(n int, fill string) (*agent.Conversation, *agent.Session) {
	conv := &agent.Conversation{}
	sess := agent.NewSession(time.Now())
	for i := 0; i < n; i++ {
		callID := "c" + string(rune('a'+i))
		conv.Append(agent.NewAssistantMessage("", []agent.ToolCall{{ID: callID, Name: "shell_exec"}}))
		conv.Append(agent.NewToolResponseMessage(callID, fill))
	}
	return conv, sess
}

func TestGuardNoActionBelowSoft(t *testing.T) {
	g := NewGuard(Config{ContextWindowTokens: 1000000, SoftThreshold: 0.7, HardThreshold: 0.9})
	conv, sess := buildConversation(2, "short")
	state := &State{}
	out := g.Check(conv, sess, state, -1, time.Now())
	if out.Level != LevelNone {
		t.Fatalf("expected no pressure, got %+v", out)
	}
}

func TestGuardMasksOldestFirstAndIsMonotonic(t *testing.T) {
	// Small window so two observations (10 tokens) already reach soft
	// pressure; all three (15 tokens) start at 75% of the 20-token window.
	g := NewGuard(Config{ContextWindowTokens: 20, SoftThreshold: 0.5, HardThreshold: 0.99})
	conv, sess := buildConversation(3, "01234567890123456789") // 20 chars each -> 5 tokens each
	state := &State{}

	var maskedOrder []string
	for i := 0; i < 3; i++ {
		out := g.Check(conv, sess, state, -1, time.Now())
		if out.Level != LevelSoft {
			break
		}
		if !out.Masked {
			t.Fatalf("expected a masking candidate on iteration %d", i)
		}
		ApplyMask(conv, sess, out, time.Now())
		maskedOrder = append(maskedOrder, out.MaskedCallID)
	}

	if len(maskedOrder) == 0 {
		t.Fatal("expected at least one masking to occur")
	}
	if maskedOrder[0] != "ca" {
		t.Fatalf("expected oldest-first masking, got order %v", maskedOrder)
	}
	seen := map[string]bool{}
	for _, id := range maskedOrder {
		if seen[id] {
			t.Fatalf("call id %s masked twice", id)
		}
		seen[id] = true
	}
}

func TestGuardWindDownThenRestart(t *testing.T) {
	g := NewGuard(Config{ContextWindowTokens: 10, SoftThreshold: 0.5, HardThreshold: 0.6})
	conv, sess := buildConversation(1, "0123456789012345678901234567890123456789") // 40 chars -> 10 tokens -> 100%
	state := &State{}

	out1 := g.Check(conv, sess, state, -1, time.Now())
	if out1.Level != LevelHard || out1.WindDownNotice == "" {
		t.Fatalf("expected first hard crossing to inject wind-down notice, got %+v", out1)
	}
	if out1.RestartRequired {
		t.Fatal("restart should not be required on the first hard crossing")
	}

	out2 := g.Check(conv, sess, state, -1, time.Now())
	if !out2.RestartRequired {
		t.Fatalf("expected restart required on second hard crossing, got %+v", out2)
	}
}

func TestBuildCarryoverPreservesOrderingAndCount(t *testing.T) {
	conv := &agent.Conversation{}
	for i := 0; i < 5; i++ {
		callID := "c" + string(rune('a'+i))
		conv.Append(agent.NewAssistantMessage("turn", []agent.ToolCall{{ID: callID}}))
		conv.Append(agent.NewToolResponseMessage(callID, "result"))
	}

	carried := BuildCarryover(conv, 2)
	// 2 turns = 2 assistant + 2 tool-response = 4 messages
	if len(carried) != 4 {
		t.Fatalf("len(carried) = %d, want 4", len(carried))
	}
	if carried[0].Role != agent.RoleAssistant {
		t.Fatalf("expected carryover to start on an assistant message, got %v", carried[0].Role)
	}
	carriedConv := &agent.Conversation{Messages: carried}
	if err := carriedConv.CheckOrdering(); err != nil {
		t.Fatalf("carryover violates ordering invariant: %v", err)
	}
}
