package session

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPathScopes(t *testing.T) {
	root := "/state/sessions"
	cases := []struct {
		name   string
		scope  Scope
		sender string
		want   string
	}{
		{"per-sender", ScopePerSender, "alice", filepath.Join(root, "main", "telegram", "alice.jsonl")},
		{"per-sender empty sender", ScopePerSender, "", filepath.Join(root, "main", "telegram.jsonl")},
		{"per-channel", ScopePerChannel, "alice", filepath.Join(root, "main", "telegram.jsonl")},
		{"global", ScopeGlobal, "alice", filepath.Join(root, "main.jsonl")},
	}
	for _, tc := range cases {
		if got := Path(root, "main", "telegram", tc.sender, tc.scope); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPathSanitizesSegments(t *testing.T) {
	got := Path("/state", "../evil", "tele/gram", "user:42", ScopePerSender)
	rel, err := filepath.Rel("/state", got)
	if err != nil || strings.HasPrefix(rel, "..") {
		t.Fatalf("path escapes root: %q", got)
	}
	if strings.Contains(got, ":") {
		t.Errorf("path %q keeps hostile characters", got)
	}
	if strings.Contains(rel, "..") {
		t.Errorf("path %q keeps traversal segments", got)
	}
}

func TestPathDefaultsAgent(t *testing.T) {
	got := Path("/state", "", "cli", "me", ScopeGlobal)
	if got != filepath.Join("/state", "main.jsonl") {
		t.Errorf("empty agent path = %q", got)
	}
}

func TestParseScope(t *testing.T) {
	cases := map[string]Scope{
		"per-sender":  ScopePerSender,
		"per-channel": ScopePerChannel,
		"global":      ScopeGlobal,
		"GLOBAL":      ScopeGlobal,
		"":            ScopePerSender,
		"bogus":       ScopePerSender,
	}
	for in, want := range cases {
		if got := ParseScope(in); got != want {
			t.Errorf("ParseScope(%q) = %q, want %q", in, got, want)
		}
	}
}
