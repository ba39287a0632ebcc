package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ouro-run/ouro/internal/agent"
	"github.com/ouro-run/ouro/internal/event"
)

// EventSink is how tools emit AgentEvents back onto the loop's channel.
// The producer never blocks and ignores send errors (spec §4.7) — the
// concrete sink passed in by the turn loop is expected to honor that.
type EventSink func(event.Event)

// DiscoveryTool implements flag_discovery: append-only persistence to
// <workspace>/.ouro-discoveries.jsonl plus a Discovery event emission.
type DiscoveryTool struct {
	mu        sync.Mutex
	file      *os.File
	writer    *bufio.Writer
	workspace string
	emit      EventSink
	now       func() time.Time
}

// NewDiscoveryTool opens the discoveries file under workspace. A missing
// file is created here, at open time, not on the first flagged discovery.
func NewDiscoveryTool(workspace string, emit EventSink) (*DiscoveryTool, error) {
	path := filepath.Join(workspace, ".ouro-discoveries.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open discoveries file: %w", err)
	}
	return &DiscoveryTool{
		file:      f,
		writer:    bufio.NewWriter(f),
		workspace: workspace,
		emit:      emit,
		now:       time.Now,
	}, nil
}

func (t *DiscoveryTool) Name() string { return "flag_discovery" }
func (t *DiscoveryTool) Kind() Kind   { return KindControl }

func (t *DiscoveryTool) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.writer.Flush(); err != nil {
		return err
	}
	return t.file.Close()
}

type flagResult struct {
	Flagged bool   `json:"flagged"`
	Path    string `json:"path"`
}

func (t *DiscoveryTool) Execute(ctx context.Context, args map[string]interface{}) string {
	title, _ := args["title"].(string)
	description, _ := args["description"].(string)
	if title == "" {
		return errorEnvelope("title is required")
	}

	d := agent.Discovery{Timestamp: t.now(), Title: title, Description: description}

	line, err := json.Marshal(d)
	if err != nil {
		return errorEnvelope("failed to encode discovery")
	}

	t.mu.Lock()
	_, werr := t.writer.Write(append(line, '\n'))
	if werr == nil {
		werr = t.writer.Flush()
	}
	t.mu.Unlock()
	if werr != nil {
		return errorEnvelope(werr.Error())
	}

	t.appendDailyNote(d)

	if t.emit != nil {
		t.emit(event.DiscoveryEvent(d.Timestamp, title, description))
	}

	path := filepath.Join(t.workspace, ".ouro-discoveries.jsonl")
	b, err := json.Marshal(flagResult{Flagged: true, Path: path})
	if err != nil {
		return errorEnvelope("failed to encode flag result")
	}
	return string(b)
}

// appendDailyNote writes a one-line human-readable entry to
// <workspace>/.ouro-notes/YYYY-MM-DD.md, supplementing the spec's required
// JSONL persistence per SPEC_FULL.md §9. Purely additive and never read
// back by the harness, so a failure here does not fail the tool call.
func (t *DiscoveryTool) appendDailyNote(d agent.Discovery) {
	dir := filepath.Join(t.workspace, ".ouro-notes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	path := filepath.Join(dir, d.Timestamp.Format("2006-01-02")+".md")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "- %s **%s** — %s\n", d.Timestamp.Format("15:04:05"), d.Title, d.Description)
}
