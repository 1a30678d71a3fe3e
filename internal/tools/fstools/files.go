// Package fstools implements the read_file, write_file, list_files, and
// file_search tools, rooted at a workspace directory. Paths that escape the
// root are rejected.
package fstools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bashclaw/bashclaw/internal/tools"
)

// maxReadBytes bounds read_file output before registry truncation.
const maxReadBytes = 256 * 1024

// maxSearchMatches bounds file_search output lines.
const maxSearchMatches = 200

// resolve joins rel onto root and rejects traversal outside it.
func resolve(root, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		rel = "."
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute paths are not allowed")
	}
	joined := filepath.Join(root, rel)
	back, err := filepath.Rel(root, joined)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", rel)
	}
	return joined, nil
}

// ReadTool implements read_file.
type ReadTool struct{ Root string }

func (t *ReadTool) Name() string        { return "read_file" }
func (t *ReadTool) Description() string { return "Read a file from the workspace." }

func (t *ReadTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Path relative to the workspace root"}
		},
		"required": ["path"]
	}`)
}

func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	path, err := resolve(t.Root, args.Path)
	if err != nil {
		return tools.Errorf("%v", err), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return tools.Errorf("read %s: %v", args.Path, err), nil
	}
	if info.IsDir() {
		return tools.Errorf("%s is a directory", args.Path), nil
	}
	if info.Size() > maxReadBytes {
		return tools.Errorf("%s is too large (%d bytes)", args.Path, info.Size()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tools.Errorf("read %s: %v", args.Path, err), nil
	}
	return jsonResult(struct {
		Content string `json:"content"`
		Path    string `json:"path"`
	}{string(data), args.Path})
}

// jsonResult marshals v as the tool's wire result.
func jsonResult(v any) (*tools.ToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return tools.Errorf("encode result: %v", err), nil
	}
	return &tools.ToolResult{Content: string(payload)}, nil
}

// WriteTool implements write_file.
type WriteTool struct{ Root string }

func (t *WriteTool) Name() string        { return "write_file" }
func (t *WriteTool) Description() string { return "Write a file in the workspace, creating parent directories." }

func (t *WriteTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Path relative to the workspace root"},
			"content": {"type": "string", "description": "File content"}
		},
		"required": ["path", "content"]
	}`)
}

func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	path, err := resolve(t.Root, args.Path)
	if err != nil {
		return tools.Errorf("%v", err), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tools.Errorf("write %s: %v", args.Path, err), nil
	}
	if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
		return tools.Errorf("write %s: %v", args.Path, err), nil
	}
	return jsonResult(struct {
		Written bool `json:"written"`
	}{true})
}

// ListTool implements list_files.
type ListTool struct{ Root string }

func (t *ListTool) Name() string        { return "list_files" }
func (t *ListTool) Description() string { return "List directory contents in the workspace." }

func (t *ListTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Directory relative to the workspace root (default .)"}
		}
	}`)
}

func (t *ListTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	path, err := resolve(t.Root, args.Path)
	if err != nil {
		return tools.Errorf("%v", err), nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return tools.Errorf("list %s: %v", args.Path, err), nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return jsonResult(struct {
		Entries []string `json:"entries"`
		Count   int      `json:"count"`
	}{names, len(names)})
}

// SearchTool implements file_search: substring search across workspace files.
type SearchTool struct{ Root string }

func (t *SearchTool) Name() string        { return "file_search" }
func (t *SearchTool) Description() string { return "Search workspace files for a substring." }

func (t *SearchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Substring to find"},
			"path": {"type": "string", "description": "Subdirectory to search (default .)"}
		},
		"required": ["query"]
	}`)
}

func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Path  string `json:"path"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}
	if args.Query == "" {
		return tools.Errorf("query is required"), nil
	}
	root, err := resolve(t.Root, args.Path)
	if err != nil {
		return tools.Errorf("%v", err), nil
	}

	var matches []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if len(matches) >= maxSearchMatches {
			return fs.SkipAll
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || len(data) > maxReadBytes {
			return nil
		}
		rel, _ := filepath.Rel(t.Root, path)
		for i, line := range strings.Split(string(data), "\n") {
			if strings.Contains(line, args.Query) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimSpace(line)))
				if len(matches) >= maxSearchMatches {
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return tools.Errorf("search: %v", err), nil
	}
	if matches == nil {
		matches = []string{}
	}
	return jsonResult(struct {
		Results []string `json:"results"`
		Count   int      `json:"count"`
	}{matches, len(matches)})
}
