// Package session implements the append-only JSONL session store. Each
// session is one file of newline-delimited JSON entries; the store owns the
// files and their locks, and projects entries back into normalized messages
// for the agent runtime.
package session

import (
	"encoding/json"
	"time"
)

// EntryType discriminates session log lines.
type EntryType string

const (
	EntryUser       EntryType = "user"
	EntryAssistant  EntryType = "assistant"
	EntryToolCall   EntryType = "tool_call"
	EntryToolResult EntryType = "tool_result"
	EntryMeta       EntryType = "meta"
)

// Entry is one line in a session JSONL file.
type Entry struct {
	Type     EntryType         `json:"type"`
	Content  string            `json:"content,omitempty"`
	ToolName string            `json:"tool_name,omitempty"`
	ToolInput json.RawMessage  `json:"tool_input,omitempty"`
	ToolID   string            `json:"tool_id,omitempty"`
	IsError  bool              `json:"is_error,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
	TSMillis int64             `json:"ts_ms"`
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// UserEntry builds a user turn entry.
func UserEntry(content string) Entry {
	return Entry{Type: EntryUser, Content: content, TSMillis: nowMillis()}
}

// AssistantEntry builds an assistant text entry.
func AssistantEntry(content string) Entry {
	return Entry{Type: EntryAssistant, Content: content, TSMillis: nowMillis()}
}

// ToolCallEntry records the model requesting a tool invocation.
func ToolCallEntry(id, name string, input json.RawMessage) Entry {
	return Entry{Type: EntryToolCall, ToolID: id, ToolName: name, ToolInput: input, TSMillis: nowMillis()}
}

// ToolResultEntry records the outcome of a tool invocation.
func ToolResultEntry(id, content string, isError bool) Entry {
	return Entry{Type: EntryToolResult, ToolID: id, Content: content, IsError: isError, TSMillis: nowMillis()}
}

// MetaEntry records opaque key/value state. Meta entries are never sent to
// the model.
func MetaEntry(kv map[string]string) Entry {
	return Entry{Type: EntryMeta, Meta: kv, TSMillis: nowMillis()}
}

func (t EntryType) valid() bool {
	switch t {
	case EntryUser, EntryAssistant, EntryToolCall, EntryToolResult, EntryMeta:
		return true
	}
	return false
}
