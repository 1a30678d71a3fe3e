package crontool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func run(t *testing.T, ct *CronTool, params map[string]string) (string, bool) {
	t.Helper()
	raw, _ := json.Marshal(params)
	res, err := ct.Execute(context.Background(), raw)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return res.Content, res.IsError
}

func TestAddListRemove(t *testing.T) {
	dir := t.TempDir()
	ct := New(dir, nil)

	content, isErr := run(t, ct, map[string]string{"action": "add", "schedule": "0 9 * * *", "message": "morning brief"})
	if isErr {
		t.Fatalf("add: %s", content)
	}
	id := strings.TrimPrefix(content, "scheduled job ")

	content, isErr = run(t, ct, map[string]string{"action": "list"})
	if isErr || !strings.Contains(content, "morning brief") {
		t.Fatalf("list: %s", content)
	}

	// jobs.json is the single source of truth on disk.
	if _, err := os.Stat(filepath.Join(dir, "jobs.json")); err != nil {
		t.Errorf("jobs.json missing: %v", err)
	}

	content, isErr = run(t, ct, map[string]string{"action": "remove", "id": id})
	if isErr {
		t.Fatalf("remove: %s", content)
	}
	content, _ = run(t, ct, map[string]string{"action": "list"})
	if !strings.Contains(content, "no jobs") {
		t.Errorf("list after remove: %s", content)
	}
}

func TestAddRejectsBadSchedule(t *testing.T) {
	ct := New(t.TempDir(), nil)
	content, isErr := run(t, ct, map[string]string{"action": "add", "schedule": "not a cron", "message": "x"})
	if !isErr || !strings.Contains(content, "invalid cron") {
		t.Errorf("result = %q (err=%v)", content, isErr)
	}
}

func TestAddAcceptsDescriptors(t *testing.T) {
	ct := New(t.TempDir(), nil)
	if content, isErr := run(t, ct, map[string]string{"action": "add", "schedule": "@daily", "message": "x"}); isErr {
		t.Errorf("@daily rejected: %s", content)
	}
}

func TestRunInvokesRunner(t *testing.T) {
	var got Job
	runner := func(ctx context.Context, job Job) (string, error) {
		got = job
		return "done: " + job.Message, nil
	}
	ct := New(t.TempDir(), runner)

	content, _ := run(t, ct, map[string]string{"action": "add", "schedule": "@hourly", "message": "check mail"})
	id := strings.TrimPrefix(content, "scheduled job ")

	content, isErr := run(t, ct, map[string]string{"action": "run", "id": id})
	if isErr || content != "done: check mail" {
		t.Fatalf("run: %q (err=%v)", content, isErr)
	}
	if got.ID != id {
		t.Errorf("runner saw job %+v", got)
	}

	jobs, err := ct.Jobs()
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if jobs[0].LastRunAt.IsZero() {
		t.Error("last_run_at not recorded")
	}
}

func TestRunUnknownJob(t *testing.T) {
	ct := New(t.TempDir(), func(ctx context.Context, job Job) (string, error) { return "", nil })
	content, isErr := run(t, ct, map[string]string{"action": "run", "id": "nope"})
	if !isErr || !strings.Contains(content, "no job") {
		t.Errorf("result = %q", content)
	}
}

func TestNextRun(t *testing.T) {
	job := Job{Schedule: "0 9 * * *"}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	next, err := NextRun(job, now)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	want := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}
