// Package shelltool implements the shell tool: bounded command execution
// with a destructive-command blocklist.
package shelltool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/bashclaw/bashclaw/internal/tools"
)

// defaultTimeout bounds a shell invocation.
const defaultTimeout = 60 * time.Second

// blockedPatterns reject commands that would destroy the host. The check is a
// guardrail against obvious model mistakes, not a sandbox.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+-[a-zA-Z]*r[a-zA-Z]*f?\s+/`),
	regexp.MustCompile(`\bmkfs\b`),
	regexp.MustCompile(`\bdd\s+if=`),
	regexp.MustCompile(`:\(\)\s*\{\s*:\|:`),
	regexp.MustCompile(`>\s*/dev/(sd[a-z]|nvme\d|disk\d)`),
}

// ShellTool runs one command through the system shell.
type ShellTool struct {
	timeout time.Duration
	workdir string
}

// Option customizes ShellTool construction.
type Option func(*ShellTool)

// WithTimeout overrides the execution bound.
func WithTimeout(d time.Duration) Option {
	return func(t *ShellTool) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithWorkdir sets the default working directory.
func WithWorkdir(dir string) Option {
	return func(t *ShellTool) { t.workdir = dir }
}

// New creates the shell tool.
func New(opts ...Option) *ShellTool {
	t := &ShellTool{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Description() string {
	return "Run a shell command and return its combined output. Destructive commands are rejected."
}

func (t *ShellTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {"type": "string", "description": "Shell command to execute"},
			"timeout_seconds": {"type": "integer", "minimum": 0, "description": "Timeout in seconds (default 60)"}
		},
		"required": ["command"]
	}`)
}

// Blocked reports whether command matches the destructive blocklist.
func Blocked(command string) bool {
	for _, re := range blockedPatterns {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

func (t *ShellTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		Command        string `json:"command"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	command := strings.TrimSpace(args.Command)
	if command == "" {
		return tools.Errorf("command is required"), nil
	}
	if Blocked(command) {
		return tools.Errorf("command blocked: matches destructive pattern"), nil
	}

	timeout := t.timeout
	if args.TimeoutSeconds > 0 {
		timeout = time.Duration(args.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if t.workdir != "" {
		cmd.Dir = t.workdir
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return tools.Errorf("command timed out after %s\n%s", timeout, out.String()), nil
	}
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return tools.Errorf("command failed: %v\n%s", err, out.String()), nil
		}
		exitCode = exitErr.ExitCode()
	}
	payload, merr := json.Marshal(shellResult{Output: out.String(), ExitCode: exitCode})
	if merr != nil {
		return tools.Errorf("encode result: %v", merr), nil
	}
	return &tools.ToolResult{Content: string(payload)}, nil
}

// shellResult is the tool's wire result.
type shellResult struct {
	Output   string `json:"output"`
	ExitCode int    `json:"exitCode"`
}
