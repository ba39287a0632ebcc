package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ouro-run/ouro/internal/safety"
)

// FileReadTool implements file_read. Reads are unrestricted per spec §4.1:
// both relative (resolved against the workspace) and absolute paths work.
type FileReadTool struct {
	sandbox *safety.Sandbox
}

func NewFileReadTool(sandbox *safety.Sandbox) *FileReadTool {
	return &FileReadTool{sandbox: sandbox}
}

func (t *FileReadTool) Name() string { return "file_read" }
func (t *FileReadTool) Kind() Kind   { return KindRead }

func (t *FileReadTool) Execute(ctx context.Context, args map[string]interface{}) string {
	path, _ := args["path"].(string)
	if path == "" {
		return errorEnvelope("path is required")
	}
	resolved := t.sandbox.ResolvePath(path)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return errorEnvelope(err.Error())
	}
	return string(data)
}

// FileWriteTool implements file_write. Relative paths only; absolute paths
// or any path whose resolved parent escapes the workspace root return an
// in-band error, per spec §4.2.
type FileWriteTool struct {
	sandbox *safety.Sandbox
}

func NewFileWriteTool(sandbox *safety.Sandbox) *FileWriteTool {
	return &FileWriteTool{sandbox: sandbox}
}

func (t *FileWriteTool) Name() string { return "file_write" }
func (t *FileWriteTool) Kind() Kind   { return KindWrite }

type writeResult struct {
	WrittenBytes int    `json:"written_bytes"`
	Path         string `json:"path"`
}

func (t *FileWriteTool) Execute(ctx context.Context, args map[string]interface{}) string {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	if path == "" {
		return errorEnvelope("path is required")
	}
	if filepath.IsAbs(path) {
		return errorEnvelope("absolute paths are not allowed for file_write")
	}

	resolved := t.sandbox.ResolvePath(path)

	if !t.sandbox.IsWriteAllowed(resolved) {
		return errorEnvelope("path escapes workspace root: " + path)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return errorEnvelope(err.Error())
	}

	// Re-verify against the now-created parent, per spec §4.1's
	// mkdir-then-recheck discipline.
	if !t.sandbox.IsWriteAllowed(resolved) {
		return errorEnvelope("path escapes workspace root after mkdir: " + path)
	}

	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return errorEnvelope(err.Error())
	}

	b, err := json.Marshal(writeResult{WrittenBytes: len(content), Path: path})
	if err != nil {
		return errorEnvelope("failed to encode write result")
	}
	return string(b)
}
