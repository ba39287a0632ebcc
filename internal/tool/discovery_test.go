package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ouro-run/ouro/internal/event"
)

func TestDiscoveryToolAppendsAndEmits(t *testing.T) {
	dir := t.TempDir()
	var emitted []event.Event
	dt, err := NewDiscoveryTool(dir, func(e event.Event) { emitted = append(emitted, e) })
	if err != nil {
		t.Fatalf("NewDiscoveryTool: %v", err)
	}
	defer dt.Close()

	out := dt.Execute(context.Background(), map[string]interface{}{"title": "found a bug", "description": "off by one"})

	var res flagResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("unmarshal: %v, out=%s", err, out)
	}
	if !res.Flagged {
		t.Fatal("expected flagged=true")
	}

	if len(emitted) != 1 || emitted[0].Title != "found a bug" {
		t.Fatalf("expected one discovery event, got %+v", emitted)
	}

	f, err := os.Open(filepath.Join(dir, ".ouro-discoveries.jsonl"))
	if err != nil {
		t.Fatalf("open discoveries file: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		count++
	}
	if count != 1 {
		t.Fatalf("expected one persisted line, got %d", count)
	}
}

func TestDiscoveryToolMissingTitle(t *testing.T) {
	dir := t.TempDir()
	dt, err := NewDiscoveryTool(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dt.Close()

	out := dt.Execute(context.Background(), map[string]interface{}{"description": "no title"})
	var m map[string]string
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("expected JSON error, got %q", out)
	}
	if _, ok := m["error"]; !ok {
		t.Fatal("expected error for missing title")
	}
}
