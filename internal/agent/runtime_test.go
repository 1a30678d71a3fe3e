package agent

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bashclaw/bashclaw/internal/config"
	"github.com/bashclaw/bashclaw/internal/providers"
	"github.com/bashclaw/bashclaw/internal/session"
	"github.com/bashclaw/bashclaw/internal/tools"
	"github.com/bashclaw/bashclaw/internal/tools/memorytool"
	"github.com/bashclaw/bashclaw/pkg/protocol"
)

// scriptedClient replays canned responses and records every request. When the
// script runs out, the last response repeats.
type scriptedClient struct {
	mu        sync.Mutex
	responses []*protocol.Response
	err       error
	requests  []*providers.Request
}

func (c *scriptedClient) Complete(ctx context.Context, req *providers.Request) (*protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	i := len(c.requests) - 1
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return c.responses[i], nil
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func textResponse(text string) *protocol.Response {
	return &protocol.Response{
		StopReason: protocol.StopEndTurn,
		Content:    []protocol.Block{protocol.TextBlock(text)},
	}
}

func toolUseResponse(id, name string, input string) *protocol.Response {
	return &protocol.Response{
		StopReason: protocol.StopToolUse,
		Content:    []protocol.Block{protocol.ToolUseBlock(id, name, json.RawMessage(input))},
	}
}

type testEnv struct {
	runtime *Runtime
	root    string
	memory  string
}

func newTestEnv(t *testing.T, cfg *config.Config, client ModelClient) *testEnv {
	t.Helper()
	root := t.TempDir()
	memory := t.TempDir()
	reg := tools.NewRegistry(nil)
	reg.MustRegister(memorytool.New(memory))
	rt := New(cfg, reg, session.NewManager(), root, WithClient(client))
	return &testEnv{runtime: rt, root: root, memory: memory}
}

func loadEntries(t *testing.T, env *testEnv, agentID string) []session.Entry {
	t.Helper()
	path := session.Path(env.root, agentID, "cli", "", session.ScopePerSender)
	entries, err := env.runtime.sessions.Open(path).Load(0)
	if err != nil {
		t.Fatalf("load entries: %v", err)
	}
	return entries
}

func TestRunSimpleTurn(t *testing.T) {
	client := &scriptedClient{responses: []*protocol.Response{textResponse("pineapple")}}
	env := newTestEnv(t, &config.Config{}, client)

	reply, err := env.runtime.Run(context.Background(), RunRequest{AgentID: "main", Text: "what fruit?"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reply != "pineapple" {
		t.Errorf("reply = %q", reply)
	}

	entries := loadEntries(t, env, "main")
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Type != session.EntryUser || entries[0].Content != "what fruit?" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Type != session.EntryAssistant || entries[1].Content != "pineapple" {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestRunSingleToolCall(t *testing.T) {
	client := &scriptedClient{responses: []*protocol.Response{
		toolUseResponse("t1", "memory", `{"action":"set","key":"x","value":"42"}`),
		textResponse("stored"),
	}}
	env := newTestEnv(t, &config.Config{}, client)

	reply, err := env.runtime.Run(context.Background(), RunRequest{AgentID: "main", Text: "remember x=42"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reply != "stored" {
		t.Errorf("reply = %q", reply)
	}

	entries := loadEntries(t, env, "main")
	wantTypes := []session.EntryType{
		session.EntryUser,
		session.EntryAssistant,
		session.EntryToolCall,
		session.EntryToolResult,
		session.EntryAssistant,
	}
	if len(entries) != len(wantTypes) {
		t.Fatalf("entries = %d, want %d", len(entries), len(wantTypes))
	}
	for i, want := range wantTypes {
		if entries[i].Type != want {
			t.Errorf("entry %d type = %s, want %s", i, entries[i].Type, want)
		}
	}
	if entries[2].ToolID != "t1" || entries[3].ToolID != "t1" {
		t.Errorf("tool ids = %q %q", entries[2].ToolID, entries[3].ToolID)
	}
	if entries[3].IsError {
		t.Errorf("tool result errored: %q", entries[3].Content)
	}

	data, err := os.ReadFile(filepath.Join(env.memory, "x.json"))
	if err != nil {
		t.Fatalf("memory file: %v", err)
	}
	if !strings.Contains(string(data), "42") {
		t.Errorf("memory content = %s", data)
	}
}

func TestRunBudgetExhaustion(t *testing.T) {
	t.Setenv(EnvMaxToolIterations, "2")
	client := &scriptedClient{responses: []*protocol.Response{
		toolUseResponse("t1", "memory", `{"action":"list"}`),
	}}
	env := newTestEnv(t, &config.Config{}, client)

	reply, err := env.runtime.Run(context.Background(), RunRequest{AgentID: "main", Text: "loop forever"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(reply, "budget") {
		t.Errorf("reply = %q, want budget notice", reply)
	}
	if client.calls() != 2 {
		t.Errorf("model calls = %d, want 2", client.calls())
	}

	var toolCalls int
	entries := loadEntries(t, env, "main")
	for _, e := range entries {
		if e.Type == session.EntryToolCall {
			toolCalls++
		}
	}
	if toolCalls != 2 {
		t.Errorf("tool_call entries = %d, want 2", toolCalls)
	}
	last := entries[len(entries)-1]
	if last.Type != session.EntryAssistant || !strings.Contains(last.Content, "budget") {
		t.Errorf("last entry = %+v", last)
	}
}

func TestRunZeroItersMeansOneCall(t *testing.T) {
	t.Setenv(EnvMaxToolIterations, "0")
	client := &scriptedClient{responses: []*protocol.Response{
		toolUseResponse("t1", "memory", `{"action":"list"}`),
	}}
	env := newTestEnv(t, &config.Config{}, client)

	reply, err := env.runtime.Run(context.Background(), RunRequest{Text: "hi"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(reply, "budget") {
		t.Errorf("reply = %q", reply)
	}
	if client.calls() != 1 {
		t.Errorf("model calls = %d, want 1", client.calls())
	}
}

func TestRunProviderErrorReturnsSentence(t *testing.T) {
	client := &scriptedClient{err: errors.New("api unreachable")}
	env := newTestEnv(t, &config.Config{}, client)

	reply, err := env.runtime.Run(context.Background(), RunRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(reply, "model call failed") || !strings.Contains(reply, "api unreachable") {
		t.Errorf("reply = %q", reply)
	}

	entries := loadEntries(t, env, "main")
	if len(entries) != 2 || entries[1].Type != session.EntryAssistant {
		t.Fatalf("entries = %+v", entries)
	}
	if !strings.Contains(entries[1].Content, "model call failed") {
		t.Errorf("persisted error = %q", entries[1].Content)
	}
}

func TestRunRejectsToolOutsideEffectiveSet(t *testing.T) {
	cfg := &config.Config{Agents: map[string]config.AgentConfig{
		"main": {Profile: "minimal", DenyTools: []string{"memory"}},
	}}
	client := &scriptedClient{responses: []*protocol.Response{
		toolUseResponse("t1", "memory", `{"action":"list"}`),
		textResponse("ok"),
	}}
	env := newTestEnv(t, cfg, client)

	if _, err := env.runtime.Run(context.Background(), RunRequest{Text: "go"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	entries := loadEntries(t, env, "main")
	var result *session.Entry
	for i := range entries {
		if entries[i].Type == session.EntryToolResult {
			result = &entries[i]
		}
	}
	if result == nil || !result.IsError || !strings.Contains(result.Content, "not available") {
		t.Errorf("tool result = %+v", result)
	}
}

func TestRunStripsImagesForNonVisionModel(t *testing.T) {
	cfg := &config.Config{Agents: map[string]config.AgentConfig{
		"main": {Model: "deepseek-chat"},
	}}
	client := &scriptedClient{responses: []*protocol.Response{textResponse("a chart")}}
	env := newTestEnv(t, cfg, client)

	_, err := env.runtime.Run(context.Background(), RunRequest{
		Text:   "what is this?",
		Images: []protocol.Block{protocol.ImageBlock("image/png", "aWNvbg==")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	req := client.requests[0]
	last := req.Messages[len(req.Messages)-1]
	for _, b := range last.Content {
		if b.Type == protocol.BlockImage {
			t.Error("image block reached a non-vision model")
		}
	}
	if !strings.Contains(last.Content[0].Text, "[image omitted: model lacks vision]") {
		t.Errorf("user text = %q", last.Content[0].Text)
	}
}

func TestRunKeepsImagesForVisionModel(t *testing.T) {
	client := &scriptedClient{responses: []*protocol.Response{textResponse("a chart")}}
	env := newTestEnv(t, &config.Config{}, client)

	_, err := env.runtime.Run(context.Background(), RunRequest{
		Text:   "what is this?",
		Images: []protocol.Block{protocol.ImageBlock("image/png", "aWNvbg==")},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	req := client.requests[0]
	last := req.Messages[len(req.Messages)-1]
	var sawImage bool
	for _, b := range last.Content {
		if b.Type == protocol.BlockImage {
			sawImage = true
		}
	}
	if !sawImage {
		t.Error("image block dropped for a vision model")
	}
}

func TestRunSecondTurnSeesHistory(t *testing.T) {
	client := &scriptedClient{responses: []*protocol.Response{
		textResponse("noted"),
		textResponse("you said pineapple"),
	}}
	env := newTestEnv(t, &config.Config{}, client)

	ctx := context.Background()
	if _, err := env.runtime.Run(ctx, RunRequest{Text: "pineapple"}); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if _, err := env.runtime.Run(ctx, RunRequest{Text: "what did I say?"}); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	second := client.requests[1]
	if len(second.Messages) != 3 {
		t.Fatalf("second request carries %d messages, want 3", len(second.Messages))
	}
	if second.Messages[0].Content[0].Text != "pineapple" {
		t.Errorf("history head = %+v", second.Messages[0])
	}
}

func TestRunPrunesBeyondMaxHistory(t *testing.T) {
	cfg := &config.Config{Session: config.SessionConfig{MaxHistory: 4}}
	client := &scriptedClient{responses: []*protocol.Response{textResponse("ok")}}
	env := newTestEnv(t, cfg, client)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := env.runtime.Run(ctx, RunRequest{Text: "ping"}); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}

	entries := loadEntries(t, env, "main")
	if len(entries) > 4 {
		t.Errorf("entries = %d, want <= 4", len(entries))
	}
}
