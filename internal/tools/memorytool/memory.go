// Package memorytool implements the memory tool: a durable key/value store
// under memory/ in the state directory, one JSON file per key.
package memorytool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bashclaw/bashclaw/internal/tools"
)

// record is the on-disk shape of one key.
type record struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemoryTool persists facts across sessions.
type MemoryTool struct {
	dir string
	mu  sync.Mutex
}

// New creates the memory tool rooted at dir.
func New(dir string) *MemoryTool {
	return &MemoryTool{dir: dir}
}

func (t *MemoryTool) Name() string { return "memory" }

func (t *MemoryTool) Description() string {
	return "Store and recall facts across conversations. Actions: set, get, delete, list, search."
}

func (t *MemoryTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["set", "get", "delete", "list", "search"]},
			"key": {"type": "string", "description": "Memory key"},
			"value": {"type": "string", "description": "Value to store (set only)"},
			"query": {"type": "string", "description": "Substring to search for (search only)"}
		},
		"required": ["action"]
	}`)
}

func (t *MemoryTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	var args struct {
		Action string `json:"action"`
		Key    string `json:"key"`
		Value  string `json:"value"`
		Query  string `json:"query"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return tools.Errorf("invalid parameters: %v", err), nil
	}

	switch args.Action {
	case "set":
		if args.Key == "" {
			return tools.Errorf("set requires key"), nil
		}
		if err := t.set(args.Key, args.Value); err != nil {
			return tools.Errorf("set %s: %v", args.Key, err), nil
		}
		return tools.Textf("stored %s", args.Key), nil

	case "get":
		if args.Key == "" {
			return tools.Errorf("get requires key"), nil
		}
		rec, err := t.get(args.Key)
		if err != nil {
			return tools.Errorf("get %s: %v", args.Key, err), nil
		}
		if rec == nil {
			return tools.Errorf("no memory for key %s", args.Key), nil
		}
		return &tools.ToolResult{Content: rec.Value}, nil

	case "delete":
		if args.Key == "" {
			return tools.Errorf("delete requires key"), nil
		}
		if err := t.delete(args.Key); err != nil {
			return tools.Errorf("delete %s: %v", args.Key, err), nil
		}
		return tools.Textf("deleted %s", args.Key), nil

	case "list":
		keys, err := t.list()
		if err != nil {
			return tools.Errorf("list: %v", err), nil
		}
		if len(keys) == 0 {
			return &tools.ToolResult{Content: "no memories stored"}, nil
		}
		return &tools.ToolResult{Content: strings.Join(keys, "\n")}, nil

	case "search":
		if args.Query == "" {
			return tools.Errorf("search requires query"), nil
		}
		matches, err := t.search(args.Query)
		if err != nil {
			return tools.Errorf("search: %v", err), nil
		}
		if len(matches) == 0 {
			return tools.Textf("no memories match %q", args.Query), nil
		}
		payload, err := json.MarshalIndent(matches, "", "  ")
		if err != nil {
			return tools.Errorf("format results: %v", err), nil
		}
		return &tools.ToolResult{Content: string(payload)}, nil

	default:
		return tools.Errorf("unknown action %q", args.Action), nil
	}
}

func (t *MemoryTool) keyPath(key string) (string, error) {
	clean := sanitizeKey(key)
	if clean == "" {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(t.dir, clean+".json"), nil
}

// set writes the record via temp file then rename.
func (t *MemoryTool) set(key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, err := t.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(record{Value: value, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(t.dir, ".memory-*")
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
	return os.Rename(tmp.Name(), path)
}

func (t *MemoryTool) get(key string) (*record, error) {
	path, err := t.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("corrupt memory file: %w", err)
	}
	return &rec, nil
}

func (t *MemoryTool) delete(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, err := t.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (t *MemoryTool) list() ([]string, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

// search matches query against keys and values, case-insensitive.
func (t *MemoryTool) search(query string) (map[string]string, error) {
	keys, err := t.list()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	matches := map[string]string{}
	for _, key := range keys {
		rec, err := t.get(key)
		if err != nil || rec == nil {
			continue
		}
		if strings.Contains(strings.ToLower(key), needle) ||
			strings.Contains(strings.ToLower(rec.Value), needle) {
			matches[key] = rec.Value
		}
	}
	return matches, nil
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), ".")
}
