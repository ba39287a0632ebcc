package dashboard

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/ouro-run/ouro/internal/event"
)

func captureStdoutLike(t *testing.T, fn func(*os.File)) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	fn(w)
	w.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	return buf.String()
}

func TestHeadlessRunRendersAllKinds(t *testing.T) {
	now := time.Now()
	events := []event.Event{
		event.SessionStarted(now),
		event.StateChanged(now, event.StateSleeping, "Timer: 5s remaining"),
		event.ThoughtText(now, "thinking..."),
		event.ToolCallStarted(now, "c1", "shell_exec", `{"command":"ls"}`),
		event.ToolCallCompleted(now, "c1", true, "ok"),
		event.ToolCallCompleted(now, "c2", false, "boom"),
		event.ContextPressure(now, event.PressureHard, 91.0),
		event.CountersUpdated(now, 3, 5),
		event.SessionRestarted(now, "context_exhausted", 1),
		event.DiscoveryEvent(now, "found a bug", "off-by-one in retry loop"),
		event.ErrorEvent(now, "tool dispatch failed"),
	}

	out := captureStdoutLike(t, func(w *os.File) {
		h := NewHeadless(w)
		ch := make(chan event.Event, len(events))
		for _, e := range events {
			ch <- e
		}
		close(ch)
		h.Run(ch)
	})

	for _, want := range []string{
		"session started",
		"sleeping: Timer: 5s remaining",
		"thinking...",
		"tool shell_exec",
		"ok c1",
		"fail c2",
		"context pressure hard",
		"turn=3 tools=5",
		"session restarted #1",
		"discovery: found a bug",
		"error: tool dispatch failed",
	} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("output missing %q, got:\n%s", want, out)
		}
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("hello\nworld"); got != "hello" {
		t.Errorf("truncateLine multiline = %q", got)
	}
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	got := truncateLine(string(long))
	if len(got) != 200 {
		t.Errorf("truncateLine length = %d, want 200", len(got))
	}
}
