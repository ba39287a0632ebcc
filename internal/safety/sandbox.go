// Package safety implements the harness's one trust boundary: workspace-root
// confinement for writes and a command allow/deny filter for shell
// execution. It never panics and never returns an error from Execute —
// denials and failures are returned as structured results, per spec §4.1.
package safety

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Config configures one Sandbox instance.
type Config struct {
	WorkspaceRoot string
	Timeout       time.Duration
	AllowedBins   []string
	DenyPatterns  []string
}

// DefaultConfig returns the allow-list the harness ships with, grounded on
// the teacher's AllowedBins catalogue, scoped down to what a self-sustaining
// agent actually needs to read, write, search, and reach the network with.
func DefaultConfig(workspaceRoot string) *Config {
	return &Config{
		WorkspaceRoot: workspaceRoot,
		Timeout:       30 * time.Second,
		AllowedBins: []string{
			"bash", "sh",
			"ls", "cat", "head", "tail", "grep", "awk", "sed",
			"find", "wc", "sort", "uniq", "cut", "tr",
			"cp", "mv", "rm", "mkdir", "touch", "chmod",
			"go", "python", "python3", "node", "npm", "npx",
			"git", "make",
			"pwd", "whoami", "date", "env", "echo", "printf", "sleep",
			"curl", "wget",
			"tar", "gzip", "unzip",
		},
		DenyPatterns: DefaultDenyPatterns,
	}
}

// DefaultDenyPatterns is a regex deny-list layered under the allow-list,
// grounded on the ecosystem's standard catalogue of destructive/dangerous
// shell idioms (filesystem wipes, fork bombs, credential exfiltration,
// reverse shells, privilege escalation).
var DefaultDenyPatterns = []string{
	`rm\s+-rf\s+/(\s|$)`,
	`rm\s+-rf\s+\*`,
	`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`, // fork bomb
	`mkfs\.`,
	`dd\s+if=.*of=/dev/(sd|nvme|hd)`,
	`>\s*/dev/sd[a-z]`,
	`chmod\s+-R\s+777\s+/`,
	`curl[^|]*\|\s*(sh|bash)`,
	`wget[^|]*\|\s*(sh|bash)`,
	`nc\s+-l`,
	`/dev/tcp/`,
	`sudo\s+`,
	`passwd\s`,
}

// Result is the structured, never-throwing outcome of Execute.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out"`
	Denied   bool   `json:"-"`
	DenyNote string `json:"-"`
}

// Sandbox mediates every side-effectful action (spec §4.1).
type Sandbox struct {
	cfg         *Config
	denyRe      []*regexp.Regexp
	logger      *zap.Logger
}

// New constructs a Sandbox, compiling the deny-pattern list once.
func New(cfg *Config, logger *zap.Logger) (*Sandbox, error) {
	root, err := filepath.Abs(cfg.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	cfg.WorkspaceRoot = root

	compiled := make([]*regexp.Regexp, 0, len(cfg.DenyPatterns))
	for _, p := range cfg.DenyPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile deny pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	return &Sandbox{cfg: cfg, denyRe: compiled, logger: logger}, nil
}

// WorkspaceRoot returns the absolute workspace-root path.
func (s *Sandbox) WorkspaceRoot() string {
	return s.cfg.WorkspaceRoot
}

// Execute runs commandLine under bash -c with working directory set to the
// workspace root, subject to the allow/deny policy and the configured
// timeout. It never returns a Go error — denials and failures come back as
// Result values, per spec §4.1.
func (s *Sandbox) Execute(ctx context.Context, commandLine string) *Result {
	if reason, denied := s.checkDeny(commandLine); denied {
		s.logger.Warn("command denied", zap.String("command", commandLine), zap.String("reason", reason))
		return &Result{Denied: true, DenyNote: reason, ExitCode: -1}
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "bash", "-c", commandLine)
	cmd.Dir = s.cfg.WorkspaceRoot
	cmd.Env = s.buildEnvironment()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Info("executing command", zap.String("command", commandLine))
	err := cmd.Run()

	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if execCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = 124
		s.logger.Warn("command timed out", zap.String("command", commandLine), zap.Duration("timeout", s.cfg.Timeout))
		return result
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			result.Stderr += "\n" + err.Error()
		}
	}

	return result
}

// checkDeny applies the allow-bins + deny-regex layering. A binary not in
// the allow-list is itself a denial: the filter is consulted once per call.
func (s *Sandbox) checkDeny(commandLine string) (reason string, denied bool) {
	if reason, denied := s.checkAllow(commandLine); denied {
		return reason, true
	}
	for _, re := range s.denyRe {
		if re.MatchString(commandLine) {
			return "matched deny pattern: " + re.String(), true
		}
	}
	return "", false
}

// checkAllow extracts the leading binary name off commandLine and verifies
// it against the configured allow-list, grounded on the teacher's
// ProcessSandbox.isAllowed (exact match against either the base name or the
// literal token, since AllowedBins entries are plain names like "go" or
// "bash"). An empty allow-list disables this check.
func (s *Sandbox) checkAllow(commandLine string) (reason string, denied bool) {
	if len(s.cfg.AllowedBins) == 0 {
		return "", false
	}
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return "empty command", true
	}
	token := fields[0]
	base := filepath.Base(token)
	for _, allowed := range s.cfg.AllowedBins {
		if allowed == base || allowed == token {
			return "", false
		}
	}
	return "command not in allow-list: " + token, true
}

// IsWriteAllowed reports whether path resolves inside the workspace root.
// Writes to non-existent parents are allowed: the caller should mkdir -p
// the parent and re-check, per spec §4.1.
func (s *Sandbox) IsWriteAllowed(path string) bool {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.cfg.WorkspaceRoot, abs)
	}
	parent := filepath.Dir(abs)

	resolved, err := filepath.EvalSymlinks(parent)
	if err != nil {
		// Parent doesn't exist yet: fall back to lexical containment so the
		// dispatcher can mkdir -p then re-check against the real path.
		resolved, err = filepath.Abs(parent)
		if err != nil {
			return false
		}
	}
	root, err := filepath.EvalSymlinks(s.cfg.WorkspaceRoot)
	if err != nil {
		root = s.cfg.WorkspaceRoot
	}
	return isWithin(root, resolved)
}

// ResolvePath canonicalizes path against the workspace root the way
// file_read/file_write need: relative paths resolve against the root,
// absolute paths pass through unchanged for reads (reads are unrestricted).
func (s *Sandbox) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.cfg.WorkspaceRoot, path)
}

func isWithin(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Sandbox) buildEnvironment() []string {
	sysPath := os.Getenv("PATH")
	if sysPath == "" {
		sysPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
	}
	home, _ := os.UserHomeDir()
	return []string{
		"PATH=" + sysPath,
		"HOME=" + home,
		"TMPDIR=" + os.TempDir(),
		"LANG=en_US.UTF-8",
	}
}
