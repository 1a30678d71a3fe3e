package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bashclaw/bashclaw/internal/tools"
	"github.com/bashclaw/bashclaw/internal/tools/memorytool"
)

func serve(t *testing.T, reg *tools.Registry, input string) []string {
	t.Helper()
	var out bytes.Buffer
	srv := NewServer(reg, "bashclaw", "1.0.0", WithStreams(strings.NewReader(input), &out))
	if err := srv.Serve(context.Background()); err != nil {
		t.Fatalf("serve: %v", err)
	}
	raw := strings.TrimSpace(out.String())
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

func newBridgeRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry(nil)
	reg.MustRegister(memorytool.New(t.TempDir()))
	return reg
}

// hiddenTool is registered but not visible through the bridge.
type hiddenTool struct{}

func (hiddenTool) Name() string            { return "relay" }
func (hiddenTool) Description() string     { return "internal relay" }
func (hiddenTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (hiddenTool) BridgeExposed() bool     { return false }

func (hiddenTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	return &tools.ToolResult{Content: "relayed"}, nil
}

func decodeResponse(t *testing.T, line string) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v\n%s", err, line)
	}
	return resp
}

func TestInitialize(t *testing.T) {
	lines := serve(t, newBridgeRegistry(t), `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	if len(lines) != 1 {
		t.Fatalf("lines = %d", len(lines))
	}
	resp := decodeResponse(t, lines[0])
	result := resp["result"].(map[string]any)
	if result["protocolVersion"] != ProtocolVersion {
		t.Errorf("protocolVersion = %v", result["protocolVersion"])
	}
	caps := result["capabilities"].(map[string]any)
	if _, ok := caps["tools"]; !ok {
		t.Errorf("capabilities = %v", caps)
	}
	info := result["serverInfo"].(map[string]any)
	if info["name"] != "bashclaw" || info["version"] != "1.0.0" {
		t.Errorf("serverInfo = %v", info)
	}
}

func TestToolsList(t *testing.T) {
	lines := serve(t, newBridgeRegistry(t), `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp := decodeResponse(t, lines[0])
	toolList := resp["result"].(map[string]any)["tools"].([]any)
	if len(toolList) != 1 {
		t.Fatalf("tools = %v", toolList)
	}
	entry := toolList[0].(map[string]any)
	if entry["name"] != "memory" {
		t.Errorf("tool = %v", entry)
	}
	if _, ok := entry["inputSchema"]; !ok {
		t.Error("missing inputSchema")
	}
}

func TestToolsCall(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"memory","arguments":{"action":"set","key":"k","value":"v"}}}`
	lines := serve(t, newBridgeRegistry(t), input)
	resp := decodeResponse(t, lines[0])
	result := resp["result"].(map[string]any)
	if result["isError"] == true {
		t.Fatalf("result = %v", result)
	}
	content := result["content"].([]any)[0].(map[string]any)
	if content["type"] != "text" || content["text"] == "" {
		t.Errorf("content = %v", content)
	}
}

func TestToolsCallInvalidName(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"../evil"}}`
	lines := serve(t, newBridgeRegistry(t), input)
	resp := decodeResponse(t, lines[0])
	errObj := resp["error"].(map[string]any)
	if int(errObj["code"].(float64)) != ErrCodeInvalidParams {
		t.Errorf("error = %v", errObj)
	}
}

func TestToolsCallHiddenTool(t *testing.T) {
	reg := newBridgeRegistry(t)
	reg.MustRegister(hiddenTool{})

	listLines := serve(t, reg, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	listResp := decodeResponse(t, listLines[0])
	for _, entry := range listResp["result"].(map[string]any)["tools"].([]any) {
		if entry.(map[string]any)["name"] == "relay" {
			t.Fatal("hidden tool listed")
		}
	}

	input := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"relay","arguments":{}}}`
	lines := serve(t, reg, input)
	resp := decodeResponse(t, lines[0])
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("hidden tool was dispatched: %v", resp)
	}
	if int(errObj["code"].(float64)) != ErrCodeInvalidParams {
		t.Errorf("error = %v", errObj)
	}
}

func TestUnknownMethod(t *testing.T) {
	lines := serve(t, newBridgeRegistry(t), `{"jsonrpc":"2.0","id":3,"method":"sampling/createMessage"}`)
	resp := decodeResponse(t, lines[0])
	errObj := resp["error"].(map[string]any)
	if int(errObj["code"].(float64)) != ErrCodeMethodNotFound {
		t.Errorf("error = %v", errObj)
	}
}

func TestNotificationGetsNoResponse(t *testing.T) {
	input := "{\"jsonrpc\":\"2.0\",\"method\":\"notifications/initialized\"}\n" +
		"{\"jsonrpc\":\"2.0\",\"id\":4,\"method\":\"resources/list\"}"
	lines := serve(t, newBridgeRegistry(t), input)
	if len(lines) != 1 {
		t.Fatalf("lines = %d, notification must be silent", len(lines))
	}
	resp := decodeResponse(t, lines[0])
	if _, ok := resp["result"].(map[string]any)["resources"]; !ok {
		t.Errorf("response = %v", resp)
	}
}

func TestParseError(t *testing.T) {
	lines := serve(t, newBridgeRegistry(t), `{not json`)
	resp := decodeResponse(t, lines[0])
	errObj := resp["error"].(map[string]any)
	if int(errObj["code"].(float64)) != ErrCodeParseError {
		t.Errorf("error = %v", errObj)
	}
}

func TestEmptyLists(t *testing.T) {
	input := "{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"prompts/list\"}"
	lines := serve(t, newBridgeRegistry(t), input)
	resp := decodeResponse(t, lines[0])
	prompts := resp["result"].(map[string]any)["prompts"].([]any)
	if len(prompts) != 0 {
		t.Errorf("prompts = %v", prompts)
	}
}

func TestResponsesStayOnOneLine(t *testing.T) {
	reg := newBridgeRegistry(t)
	setInput := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"memory","arguments":{"action":"set","key":"a","value":"line1\nline2"}}}`
	lines := serve(t, reg, setInput)
	if len(lines) != 1 {
		t.Fatalf("multi-line response: %q", lines)
	}
}
