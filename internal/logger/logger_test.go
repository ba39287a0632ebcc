package logger

import "testing"

func TestNewDefaultConfig(t *testing.T) {
	l, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Sync()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	l, err := New(Config{Level: "not-a-level", Format: "json", OutputPath: "stdout"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Sync()
}
