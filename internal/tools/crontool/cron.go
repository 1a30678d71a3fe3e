// Package crontool implements the cron tool: a job list persisted in
// cron/jobs.json, with schedules validated by the cron parser. A runner
// callback executes a job's message through the agent runtime.
package crontool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bashclaw/bashclaw/internal/tools"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Job is one scheduled message.
type Job struct {
	ID        string    `json:"id"`
	Schedule  string    `json:"schedule"`
	Message   string    `json:"message"`
	AgentID   string    `json:"agent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastRunAt time.Time `json:"last_run_at,omitempty"`
}

// Runner executes a job's message and returns the assistant reply.
type Runner func(ctx context.Context, job Job) (string, error)

// CronTool manages the persisted job list.
type CronTool struct {
	path   string
	runner Runner
	mu     sync.Mutex
}

// New creates the cron tool storing jobs under dir. The runner may be nil, in
// which case the run action reports an error result.
func New(dir string, runner Runner) *CronTool {
	return &CronTool{path: filepath.Join(dir, "jobs.json"), runner: runner}
}

func (t *CronTool) Name() string { return "cron" }

func (t *CronTool) Description() string {
	return "Schedule recurring messages. Actions: add, list, remove, run."
}

func (t *CronTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["add", "list", "remove", "run"]},
			"schedule": {"type": "string", "description": "Cron expression, e.g. '0 9 * * *' or '@daily'"},
			"message": {"type": "string", "description": "Message delivered when the job fires"},
			"agent_id": {"type": "string", "description": "Agent the message is delivered to (default main)"},
			"id": {"type": "string", "description": "Job id (remove and run)"}
		},
		"required": ["action"]
	}`)
}

func (t *CronTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		Action   string `json:"action"`
		Schedule string `json:"schedule"`
		Message  string `json:"message"`
		AgentID  string `json:"agent_id"`
		ID       string `json:"id"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}

	switch args.Action {
	case "add":
		if strings.TrimSpace(args.Schedule) == "" || strings.TrimSpace(args.Message) == "" {
			return tools.Errorf("add requires schedule and message"), nil
		}
		if _, err := cronParser.Parse(args.Schedule); err != nil {
			return tools.Errorf("invalid cron expression: %v", err), nil
		}
		job := Job{
			ID:        uuid.NewString()[:8],
			Schedule:  args.Schedule,
			Message:   args.Message,
			AgentID:   args.AgentID,
			CreatedAt: time.Now().UTC(),
		}
		if err := t.mutate(func(jobs []Job) ([]Job, error) {
			return append(jobs, job), nil
		}); err != nil {
			return tools.Errorf("add job: %v", err), nil
		}
		return tools.Textf("scheduled job %s", job.ID), nil

	case "list":
		jobs, err := t.load()
		if err != nil {
			return tools.Errorf("list jobs: %v", err), nil
		}
		if len(jobs) == 0 {
			return &tools.ToolResult{Content: "no jobs scheduled"}, nil
		}
		payload, err := json.MarshalIndent(jobs, "", "  ")
		if err != nil {
			return tools.Errorf("format jobs: %v", err), nil
		}
		return &tools.ToolResult{Content: string(payload)}, nil

	case "remove":
		if args.ID == "" {
			return tools.Errorf("remove requires id"), nil
		}
		found := false
		if err := t.mutate(func(jobs []Job) ([]Job, error) {
			var kept []Job
			for _, j := range jobs {
				if j.ID == args.ID {
					found = true
					continue
				}
				kept = append(kept, j)
			}
			return kept, nil
		}); err != nil {
			return tools.Errorf("remove job: %v", err), nil
		}
		if !found {
			return tools.Errorf("no job with id %s", args.ID), nil
		}
		return tools.Textf("removed job %s", args.ID), nil

	case "run":
		if args.ID == "" {
			return tools.Errorf("run requires id"), nil
		}
		if t.runner == nil {
			return tools.Errorf("cron runner not configured"), nil
		}
		jobs, err := t.load()
		if err != nil {
			return tools.Errorf("load jobs: %v", err), nil
		}
		for _, j := range jobs {
			if j.ID != args.ID {
				continue
			}
			reply, err := t.runner(ctx, j)
			if err != nil {
				return tools.Errorf("run job %s: %v", j.ID, err), nil
			}
			if err := t.touch(j.ID); err != nil {
				return tools.Errorf("record run for %s: %v", j.ID, err), nil
			}
			return &tools.ToolResult{Content: reply}, nil
		}
		return tools.Errorf("no job with id %s", args.ID), nil

	default:
		return tools.Errorf("unknown action %q", args.Action), nil
	}
}

// Jobs returns the persisted job list.
func (t *CronTool) Jobs() ([]Job, error) { return t.load() }

// NextRun computes the next fire time for a job after now.
func NextRun(job Job, now time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(job.Schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule: %w", err)
	}
	return sched.Next(now), nil
}

func (t *CronTool) load() ([]Job, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var jobs []Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("corrupt jobs file: %w", err)
	}
	return jobs, nil
}

// mutate applies fn to the job list under the lock, writing the result via
// temp file then rename.
func (t *CronTool) mutate(fn func([]Job) ([]Job, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	jobs, err := t.load()
	if err != nil {
		return err
	}
	jobs, err = fn(jobs)
	if err != nil {
		return err
	}
	if jobs == nil {
		jobs = []Job{}
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(t.path), ".jobs-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), t.path)
}

func (t *CronTool) touch(id string) error {
	return t.mutate(func(jobs []Job) ([]Job, error) {
		for i := range jobs {
			if jobs[i].ID == id {
				jobs[i].LastRunAt = time.Now().UTC()
			}
		}
		return jobs, nil
	})
}
