package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ouro-run/ouro/internal/safety"
	"go.uber.org/zap"
)

func newTestTools(t *testing.T) (*FileReadTool, *FileWriteTool, string) {
	t.Helper()
	dir := t.TempDir()
	sb, err := safety.New(safety.DefaultConfig(dir), zap.NewNop())
	if err != nil {
		t.Fatalf("safety.New: %v", err)
	}
	return NewFileReadTool(sb), NewFileWriteTool(sb), dir
}

func TestFileReadWriteHappyPath(t *testing.T) {
	read, write, dir := newTestTools(t)

	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := read.Execute(context.Background(), map[string]interface{}{"path": "hello.txt"})
	if got != "hi" {
		t.Fatalf("file_read = %q, want %q", got, "hi")
	}

	out := write.Execute(context.Background(), map[string]interface{}{"path": "out.txt", "content": "ok"})
	var res writeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("unmarshal write result: %v, out=%s", err, out)
	}
	if res.WrittenBytes != 2 || res.Path != "out.txt" {
		t.Fatalf("unexpected write result: %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ok" {
		t.Fatalf("file content = %q, want ok", data)
	}
}

func TestFileWriteEscapeDenied(t *testing.T) {
	_, write, _ := newTestTools(t)
	out := write.Execute(context.Background(), map[string]interface{}{"path": "../evil", "content": "x"})
	var m map[string]string
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("expected JSON error envelope, got %q", out)
	}
	if _, ok := m["error"]; !ok {
		t.Fatalf("expected error field, got %q", out)
	}
}

func TestFileWriteAbsolutePathDenied(t *testing.T) {
	_, write, dir := newTestTools(t)
	out := write.Execute(context.Background(), map[string]interface{}{"path": filepath.Join(dir, "abs.txt"), "content": "x"})
	var m map[string]string
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("expected JSON error envelope, got %q", out)
	}
	if _, ok := m["error"]; !ok {
		t.Fatal("expected error for absolute path")
	}
}

func TestFileReadMissingPathInBandError(t *testing.T) {
	read, _, _ := newTestTools(t)
	out := read.Execute(context.Background(), map[string]interface{}{"path": "does-not-exist.txt"})
	var m map[string]string
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("expected JSON error envelope, got %q", out)
	}
	if _, ok := m["error"]; !ok {
		t.Fatal("expected error field")
	}
}

func TestDispatcherUnknownToolInBand(t *testing.T) {
	d := NewDispatcher(NewRegistry())
	out := d.Dispatch(context.Background(), "does_not_exist", nil)
	var m map[string]string
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("expected JSON error envelope, got %q", out)
	}
	if _, ok := m["error"]; !ok {
		t.Fatal("expected error field for unknown tool")
	}
}
