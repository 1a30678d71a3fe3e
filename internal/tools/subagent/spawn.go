// Package subagent implements the spawn and spawn_status tools. A spawned
// task runs the agent runtime in the background with a fresh session scope
// and records its lifecycle under spawn/<task_id>/.
package subagent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bashclaw/bashclaw/internal/tools"
	"github.com/google/uuid"
)

// Task statuses written to the status file.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

// Runner executes one spawned task and returns the assistant reply.
type Runner func(ctx context.Context, taskID, agentID, task string) (string, error)

// taskInput is the persisted input.json shape.
type taskInput struct {
	Task      string    `json:"task"`
	AgentID   string    `json:"agent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SpawnTool launches background tasks.
type SpawnTool struct {
	dir    string
	runner Runner

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewSpawnTool creates the spawn tool rooted at dir.
func NewSpawnTool(dir string, runner Runner) *SpawnTool {
	return &SpawnTool{dir: dir, runner: runner, running: make(map[string]context.CancelFunc)}
}

func (t *SpawnTool) Name() string { return "spawn" }

func (t *SpawnTool) Description() string {
	return "Run a task in a background subagent with its own fresh session. Returns a task id immediately."
}

func (t *SpawnTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"task": {"type": "string", "description": "The task for the subagent to perform"},
			"agent_id": {"type": "string", "description": "Agent to run the task as (default main)"}
		},
		"required": ["task"]
	}`)
}

// Optional: spawn is only exposed when an agent allows it by name.
func (t *SpawnTool) Optional() bool { return true }

func (t *SpawnTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		Task    string `json:"task"`
		AgentID string `json:"agent_id"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	if strings.TrimSpace(args.Task) == "" {
		return tools.Errorf("task is required"), nil
	}
	if t.runner == nil {
		return tools.Errorf("spawn runner not configured"), nil
	}

	taskID := uuid.NewString()
	taskDir := filepath.Join(t.dir, taskID)
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		return tools.Errorf("create task dir: %v", err), nil
	}
	input, err := json.MarshalIndent(taskInput{
		Task:      args.Task,
		AgentID:   args.AgentID,
		CreatedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return tools.Errorf("encode task input: %v", err), nil
	}
	if err := os.WriteFile(filepath.Join(taskDir, "input.json"), input, 0o644); err != nil {
		return tools.Errorf("write task input: %v", err), nil
	}
	if err := writeStatus(taskDir, StatusRunning); err != nil {
		return tools.Errorf("write task status: %v", err), nil
	}

	// The task outlives the originating request.
	bg, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.running[taskID] = cancel
	t.mu.Unlock()

	go t.run(bg, taskID, taskDir, args.AgentID, args.Task)

	payload, err := json.Marshal(map[string]string{"task_id": taskID})
	if err != nil {
		return tools.Errorf("encode result: %v", err), nil
	}
	return &tools.ToolResult{Content: string(payload)}, nil
}

func (t *SpawnTool) run(ctx context.Context, taskID, taskDir, agentID, task string) {
	defer func() {
		t.mu.Lock()
		delete(t.running, taskID)
		t.mu.Unlock()
	}()

	output, err := t.runner(ctx, taskID, agentID, task)
	if err != nil {
		os.WriteFile(filepath.Join(taskDir, "output"), []byte(err.Error()), 0o644)
		writeStatus(taskDir, StatusError)
		return
	}
	os.WriteFile(filepath.Join(taskDir, "output"), []byte(output), 0o644)
	writeStatus(taskDir, StatusDone)
}

// Wait blocks until no spawned task is running. Test helper.
func (t *SpawnTool) Wait() {
	for {
		t.mu.Lock()
		n := len(t.running)
		t.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func writeStatus(taskDir, status string) error {
	return os.WriteFile(filepath.Join(taskDir, "status"), []byte(status), 0o644)
}

// StatusTool reports the state and output of spawned tasks.
type StatusTool struct {
	dir string
}

// NewStatusTool creates the spawn_status tool rooted at dir.
func NewStatusTool(dir string) *StatusTool {
	return &StatusTool{dir: dir}
}

func (t *StatusTool) Name() string { return "spawn_status" }

func (t *StatusTool) Description() string {
	return "Check a spawned task: its status and, when finished, its output."
}

func (t *StatusTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"task_id": {"type": "string", "description": "Task id returned by spawn"}
		},
		"required": ["task_id"]
	}`)
}

// Optional pairs spawn_status with spawn.
func (t *StatusTool) Optional() bool { return true }

func (t *StatusTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	taskDir := filepath.Join(t.dir, filepath.Base(args.TaskID))
	status, err := os.ReadFile(filepath.Join(taskDir, "status"))
	if err != nil {
		return tools.Errorf("no task with id %s", args.TaskID), nil
	}

	out := map[string]any{"task_id": args.TaskID, "status": strings.TrimSpace(string(status))}
	if output, err := os.ReadFile(filepath.Join(taskDir, "output")); err == nil {
		out["output"] = string(output)
	}
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return tools.Errorf("format status: %v", err), nil
	}
	return &tools.ToolResult{Content: string(payload)}, nil
}
