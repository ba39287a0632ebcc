package loop

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ouro-run/ouro/internal/tool"
)

const systemPromptDivider = "\n---\n"

// BuildSystemPrompt concatenates the harness preamble (model name,
// workspace path, enumerated tools, constraints, discovery guidance,
// session-continuity marker) with the workspace-local SYSTEM_PROMPT.md
// content, per spec §4.4's startup step. Missing SYSTEM_PROMPT.md is not an
// error — an empty workspace is a valid starting point.
func BuildSystemPrompt(modelName, workspaceRoot string, defs []tool.Definition, sessionID string, restartNumber int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an autonomous agent running model %q with workspace root %s.\n\n", modelName, workspaceRoot)
	b.WriteString("Available tools:\n")
	for _, d := range defs {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}
	b.WriteString("\nConstraints:\n")
	b.WriteString("- shell_exec and file_write are confined to the sandboxed workspace and an allow/deny command policy.\n")
	b.WriteString("- Use flag_discovery to record anything worth surfacing to a human reviewer later.\n")
	b.WriteString("- You may sleep between turns (timer, event, or manual) when there is nothing productive to do right now.\n")
	b.WriteString("- Nothing persists across a session restart except what you write to disk yourself. Use SYSTEM_PROMPT.md and the workspace to carry state forward.\n\n")
	fmt.Fprintf(&b, "Session %s (restart #%d).\n", sessionID, restartNumber)

	b.WriteString(systemPromptDivider)

	workspacePrompt, err := os.ReadFile(filepath.Join(workspaceRoot, "SYSTEM_PROMPT.md"))
	if err == nil {
		b.Write(workspacePrompt)
	}

	return b.String()
}
