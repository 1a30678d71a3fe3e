package protocol

import (
	"encoding/json"
	"testing"
)

func TestResponseText(t *testing.T) {
	r := &Response{Content: []Block{
		TextBlock("one"),
		ToolUseBlock("t1", "memory", nil),
		TextBlock("two"),
	}}
	if got := r.Text(); got != "one\ntwo" {
		t.Errorf("Text() = %q", got)
	}

	empty := &Response{}
	if got := empty.Text(); got != "" {
		t.Errorf("Text() on empty = %q", got)
	}
}

func TestResponseToolUses(t *testing.T) {
	r := &Response{Content: []Block{
		TextBlock("thinking"),
		ToolUseBlock("a", "shell", json.RawMessage(`{"command":"ls"}`)),
		ToolUseBlock("b", "memory", nil),
	}}
	uses := r.ToolUses()
	if len(uses) != 2 || uses[0].ID != "a" || uses[1].ID != "b" {
		t.Errorf("ToolUses() = %+v", uses)
	}
	if string(uses[1].Input) != `{}` {
		t.Errorf("empty input = %s", uses[1].Input)
	}
}

func TestBlockRoundTrip(t *testing.T) {
	msg := Message{Role: RoleAssistant, Content: []Block{
		TextBlock("hi"),
		ToolResultBlock("t1", "done", false),
		ImageBlock("image/png", "aWNvbg=="),
	}}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Message
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Role != RoleAssistant || len(back.Content) != 3 {
		t.Fatalf("round trip = %+v", back)
	}
	if back.Content[2].MediaType != "image/png" {
		t.Errorf("image block = %+v", back.Content[2])
	}
}
