package fstools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteThenRead(t *testing.T) {
	root := t.TempDir()
	w := &WriteTool{Root: root}
	r := &ReadTool{Root: root}

	params, _ := json.Marshal(map[string]string{"path": "notes/todo.txt", "content": "buy milk"})
	res, err := w.Execute(context.Background(), params)
	if err != nil || res.IsError {
		t.Fatalf("write: %v %+v", err, res)
	}
	var wrote struct {
		Written bool `json:"written"`
	}
	if err := json.Unmarshal([]byte(res.Content), &wrote); err != nil || !wrote.Written {
		t.Errorf("write result = %q (err %v)", res.Content, err)
	}

	params, _ = json.Marshal(map[string]string{"path": "notes/todo.txt"})
	res, err = r.Execute(context.Background(), params)
	if err != nil || res.IsError {
		t.Fatalf("read: %v %+v", err, res)
	}
	var read struct {
		Content string `json:"content"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal([]byte(res.Content), &read); err != nil {
		t.Fatalf("read result %q: %v", res.Content, err)
	}
	if read.Content != "buy milk" || read.Path != "notes/todo.txt" {
		t.Errorf("read result = %+v", read)
	}
}

func TestTraversalRejected(t *testing.T) {
	root := t.TempDir()
	cases := []string{"../outside.txt", "a/../../outside.txt", "/etc/passwd"}
	r := &ReadTool{Root: root}
	w := &WriteTool{Root: root}
	for _, p := range cases {
		params, _ := json.Marshal(map[string]string{"path": p, "content": "x"})
		res, err := r.Execute(context.Background(), params)
		if err != nil || !res.IsError {
			t.Errorf("read %q: %+v", p, res)
		}
		res, err = w.Execute(context.Background(), params)
		if err != nil || !res.IsError {
			t.Errorf("write %q: %+v", p, res)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "outside.txt")); err == nil {
		t.Error("write escaped the workspace")
	}
}

func TestListMarksDirectories(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "sub"), 0o755)
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644)

	l := &ListTool{Root: root}
	res, err := l.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil || res.IsError {
		t.Fatalf("list: %v %+v", err, res)
	}
	var listed struct {
		Entries []string `json:"entries"`
		Count   int      `json:"count"`
	}
	if err := json.Unmarshal([]byte(res.Content), &listed); err != nil {
		t.Fatalf("list result %q: %v", res.Content, err)
	}
	if listed.Count != 2 || listed.Entries[0] != "a.txt" || listed.Entries[1] != "sub/" {
		t.Errorf("list result = %+v", listed)
	}
}

func TestListEmptyDirectory(t *testing.T) {
	l := &ListTool{Root: t.TempDir()}
	res, err := l.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil || res.IsError {
		t.Fatalf("list: %v %+v", err, res)
	}
	var listed struct {
		Entries []string `json:"entries"`
		Count   int      `json:"count"`
	}
	if err := json.Unmarshal([]byte(res.Content), &listed); err != nil {
		t.Fatalf("list result %q: %v", res.Content, err)
	}
	if listed.Entries == nil || listed.Count != 0 {
		t.Errorf("list result = %q", res.Content)
	}
}

func TestSearchFindsLines(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "code.go"), []byte("package main\nfunc main() {}\n"), 0o644)
	os.WriteFile(filepath.Join(root, "other.txt"), []byte("nothing here\n"), 0o644)

	s := &SearchTool{Root: root}
	params, _ := json.Marshal(map[string]string{"query": "func main"})
	res, err := s.Execute(context.Background(), params)
	if err != nil || res.IsError {
		t.Fatalf("search: %v %+v", err, res)
	}
	var found struct {
		Results []string `json:"results"`
		Count   int      `json:"count"`
	}
	if err := json.Unmarshal([]byte(res.Content), &found); err != nil {
		t.Fatalf("search result %q: %v", res.Content, err)
	}
	if found.Count != 1 || !strings.Contains(found.Results[0], "code.go:2") {
		t.Errorf("search result = %+v", found)
	}

	params, _ = json.Marshal(map[string]string{"query": "absent-needle"})
	res, _ = s.Execute(context.Background(), params)
	if res.IsError {
		t.Fatalf("search: %+v", res)
	}
	if err := json.Unmarshal([]byte(res.Content), &found); err != nil {
		t.Fatalf("search result %q: %v", res.Content, err)
	}
	if found.Results == nil || found.Count != 0 {
		t.Errorf("search result = %q", res.Content)
	}
}
