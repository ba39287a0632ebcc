package safety

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestSandbox(t *testing.T) (*Sandbox, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Timeout = 2 * time.Second
	s, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, dir
}

func TestIsWriteAllowedWithinWorkspace(t *testing.T) {
	s, dir := newTestSandbox(t)

	if !s.IsWriteAllowed(filepath.Join(dir, "out.txt")) {
		t.Fatal("expected write inside workspace to be allowed")
	}
	if !s.IsWriteAllowed("out.txt") {
		t.Fatal("expected relative write to be allowed")
	}
}

func TestIsWriteAllowedEscapingWorkspace(t *testing.T) {
	s, dir := newTestSandbox(t)
	outside := filepath.Join(filepath.Dir(dir), "evil.txt")
	if s.IsWriteAllowed(outside) {
		t.Fatal("expected write outside workspace to be denied")
	}
	if s.IsWriteAllowed("../evil.txt") {
		t.Fatal("expected relative escape to be denied")
	}
}

func TestIsWriteAllowedNonexistentParentStillContained(t *testing.T) {
	s, _ := newTestSandbox(t)
	if !s.IsWriteAllowed("nested/deep/out.txt") {
		t.Fatal("expected write under a not-yet-created nested dir to be allowed")
	}
}

func TestExecuteDeniedCommandReturnsStructuredResult(t *testing.T) {
	s, _ := newTestSandbox(t)
	res := s.Execute(context.Background(), "rm -rf /")
	if !res.Denied {
		t.Fatalf("expected denial, got %+v", res)
	}
}

func TestExecuteTimeout(t *testing.T) {
	s, _ := newTestSandbox(t)
	s.cfg.Timeout = 200 * time.Millisecond
	res := s.Execute(context.Background(), "sleep 5")
	if !res.TimedOut {
		t.Fatalf("expected timed_out=true, got %+v", res)
	}
	if res.ExitCode == 0 {
		t.Fatalf("expected non-zero exit code on timeout, got %d", res.ExitCode)
	}
}

func TestExecuteDeniesCommandNotInAllowList(t *testing.T) {
	s, _ := newTestSandbox(t)
	res := s.Execute(context.Background(), "perl -e 'print 1'")
	if !res.Denied {
		t.Fatalf("expected denial for non-allow-listed binary, got %+v", res)
	}
	if !strings.Contains(res.DenyNote, "allow-list") {
		t.Fatalf("expected allow-list denial note, got %q", res.DenyNote)
	}
}

func TestExecuteSuccess(t *testing.T) {
	s, dir := newTestSandbox(t)
	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := s.Execute(context.Background(), "cat f.txt")
	if res.Denied || res.TimedOut {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if res.Stdout != "hi" {
		t.Fatalf("Stdout = %q, want %q", res.Stdout, "hi")
	}
}
