package tool

import (
	"context"
	"encoding/json"

	"github.com/ouro-run/ouro/internal/safety"
)

// ShellTool implements shell_exec, routing every command through the
// safety layer and rendering its Result as JSON, per spec §4.2.
type ShellTool struct {
	sandbox *safety.Sandbox
}

// NewShellTool wraps sandbox.
func NewShellTool(sandbox *safety.Sandbox) *ShellTool {
	return &ShellTool{sandbox: sandbox}
}

func (t *ShellTool) Name() string { return "shell_exec" }
func (t *ShellTool) Kind() Kind   { return KindExecute }

// shellResult mirrors safety.Result plus the supplemented exit-code hint
// (SPEC_FULL.md §9), additive to the spec's {stdout,stderr,exit_code,
// timed_out} contract.
type shellResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out"`
	Hint     string `json:"hint,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (t *ShellTool) Execute(ctx context.Context, args map[string]interface{}) string {
	command, _ := args["command"].(string)
	if command == "" {
		return errorEnvelope("command is required")
	}

	res := t.sandbox.Execute(ctx, command)
	if res.Denied {
		return errorEnvelope("command denied: " + res.DenyNote)
	}

	out := shellResult{
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
		TimedOut: res.TimedOut,
	}
	if res.ExitCode != 0 {
		out.Hint = exitCodeHint(res.ExitCode)
	}

	b, err := json.Marshal(out)
	if err != nil {
		return errorEnvelope("failed to encode shell result")
	}
	return string(b)
}

// exitCodeHint maps common POSIX exit codes to a short human-readable
// explanation, grounded on the teacher's exitCodeHint table.
func exitCodeHint(code int) string {
	switch code {
	case 1:
		return "general error — check command arguments or file paths"
	case 2:
		return "misuse of shell builtin — check command syntax"
	case 124:
		return "timed out — command did not finish within the limit"
	case 126:
		return "command found but not executable (permission denied)"
	case 127:
		return "command not found"
	case 128 + 9:
		return "killed (SIGKILL) — often an out-of-memory kill"
	case 128 + 15:
		return "terminated (SIGTERM)"
	case 255:
		return "exit status out of range, or ssh connection failure"
	default:
		return "non-zero exit"
	}
}
