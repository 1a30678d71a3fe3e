// Package introspect implements the agents_list, sessions_list,
// session_status, and agent_message tools. The runtime is injected as
// callbacks so the tool layer stays below the agent package.
package introspect

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bashclaw/bashclaw/internal/session"
	"github.com/bashclaw/bashclaw/internal/tools"
)

// AgentsTool lists configured agent ids.
type AgentsTool struct {
	// List returns the configured agent ids.
	List func() []string
}

func (t *AgentsTool) Name() string        { return "agents_list" }
func (t *AgentsTool) Description() string { return "List the configured agent ids." }
func (t *AgentsTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *AgentsTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	if t.List == nil {
		return tools.Errorf("agent list unavailable"), nil
	}
	ids := t.List()
	sort.Strings(ids)
	if len(ids) == 0 {
		return &tools.ToolResult{Content: "no agents configured"}, nil
	}
	return &tools.ToolResult{Content: strings.Join(ids, "\n")}, nil
}

// SessionsTool lists session files under the sessions root.
type SessionsTool struct {
	Root string
}

func (t *SessionsTool) Name() string        { return "sessions_list" }
func (t *SessionsTool) Description() string { return "List existing session logs." }
func (t *SessionsTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *SessionsTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var paths []string
	err := filepath.WalkDir(t.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
			if rel, err := filepath.Rel(t.Root, path); err == nil {
				paths = append(paths, rel)
			}
		}
		return nil
	})
	if err != nil {
		return tools.Errorf("list sessions: %v", err), nil
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return &tools.ToolResult{Content: "no sessions"}, nil
	}
	return &tools.ToolResult{Content: strings.Join(paths, "\n")}, nil
}

// StatusTool reports entry count and last activity for one session.
type StatusTool struct {
	Root    string
	Manager *session.Manager
}

func (t *StatusTool) Name() string { return "session_status" }
func (t *StatusTool) Description() string {
	return "Show entry count and last activity for a session log."
}
func (t *StatusTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"session": {"type": "string", "description": "Session path as shown by sessions_list"}
		},
		"required": ["session"]
	}`)
}

func (t *StatusTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		Session string `json:"session"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	rel := filepath.Clean(args.Session)
	if rel == "" || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return tools.Errorf("invalid session path"), nil
	}
	path := filepath.Join(t.Root, rel)
	if _, err := os.Stat(path); err != nil {
		return tools.Errorf("no session %s", args.Session), nil
	}

	store := t.Manager.Open(path)
	entries, err := store.Load(0)
	if err != nil {
		return tools.Errorf("load session: %v", err), nil
	}
	out := map[string]any{"session": args.Session, "entries": len(entries)}
	if len(entries) > 0 {
		out["last_activity"] = time.UnixMilli(entries[len(entries)-1].TSMillis).UTC().Format(time.RFC3339)
	}
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return tools.Errorf("format status: %v", err), nil
	}
	return &tools.ToolResult{Content: string(payload)}, nil
}

// MessageTool routes one message through another agent and returns its reply.
type MessageTool struct {
	// Run executes a user message as the given agent.
	Run func(ctx context.Context, agentID, text string) (string, error)
}

func (t *MessageTool) Name() string { return "agent_message" }
func (t *MessageTool) Description() string {
	return "Send a message to another configured agent and return its reply."
}
func (t *MessageTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"agent_id": {"type": "string", "description": "Target agent"},
			"text": {"type": "string", "description": "Message text"}
		},
		"required": ["agent_id", "text"]
	}`)
}

// Optional: cross-agent messaging is exposed only when allowed explicitly.
func (t *MessageTool) Optional() bool { return true }

func (t *MessageTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		AgentID string `json:"agent_id"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	if t.Run == nil {
		return tools.Errorf("agent runner unavailable"), nil
	}
	reply, err := t.Run(ctx, args.AgentID, args.Text)
	if err != nil {
		return tools.Errorf("agent %s: %v", args.AgentID, err), nil
	}
	return &tools.ToolResult{Content: reply}, nil
}
