package session

import (
	"encoding/json"

	"github.com/bashclaw/bashclaw/pkg/protocol"
)

// LoadMessages projects the last n entries into normalized messages ready to
// send to a provider. Consecutive tool_call entries merge into the preceding
// assistant message as tool_use blocks; their tool_result entries merge into
// one following user message. A tool_call with no later result is surfaced
// as an error result so the wire formats stay balanced. Meta entries are
// dropped.
func (s *Store) LoadMessages(n int) ([]protocol.Message, error) {
	entries, err := s.Load(n)
	if err != nil {
		return nil, err
	}
	return ProjectMessages(entries), nil
}

// ProjectMessages converts session entries into the normalized message form.
func ProjectMessages(entries []Entry) []protocol.Message {
	results := make(map[string]*Entry)
	for i := range entries {
		if entries[i].Type == EntryToolResult {
			e := entries[i]
			if _, seen := results[e.ToolID]; !seen {
				results[e.ToolID] = &e
			}
		}
	}

	var msgs []protocol.Message
	appendMsg := func(role protocol.Role, blocks ...protocol.Block) {
		if len(blocks) == 0 {
			return
		}
		msgs = append(msgs, protocol.Message{Role: role, Content: blocks})
	}

	for i := 0; i < len(entries); i++ {
		e := entries[i]
		switch e.Type {
		case EntryUser:
			appendMsg(protocol.RoleUser, protocol.TextBlock(e.Content))

		case EntryAssistant:
			blocks := []protocol.Block{}
			if e.Content != "" {
				blocks = append(blocks, protocol.TextBlock(e.Content))
			}

			// Fold the turn's tool calls into this assistant message and
			// their results into one user message.
			var resultBlocks []protocol.Block
			for i+1 < len(entries) && entries[i+1].Type == EntryToolCall {
				i++
				call := entries[i]
				blocks = append(blocks, protocol.ToolUseBlock(call.ToolID, call.ToolName, call.ToolInput))
				if r, ok := results[call.ToolID]; ok {
					resultBlocks = append(resultBlocks, protocol.ToolResultBlock(r.ToolID, r.Content, r.IsError))
				} else {
					resultBlocks = append(resultBlocks, protocol.ToolResultBlock(call.ToolID, "tool did not return a result", true))
				}
			}
			// Skip the raw tool_result entries already folded in.
			for i+1 < len(entries) && entries[i+1].Type == EntryToolResult {
				i++
			}

			appendMsg(protocol.RoleAssistant, blocks...)
			appendMsg(protocol.RoleUser, resultBlocks...)

		case EntryToolCall:
			// A tool_call without a leading assistant entry. Synthesize the
			// assistant intent so ordering invariants hold on the wire.
			call := e
			blocks := []protocol.Block{protocol.ToolUseBlock(call.ToolID, call.ToolName, call.ToolInput)}
			var resultBlocks []protocol.Block
			if r, ok := results[call.ToolID]; ok {
				resultBlocks = append(resultBlocks, protocol.ToolResultBlock(r.ToolID, r.Content, r.IsError))
			} else {
				resultBlocks = append(resultBlocks, protocol.ToolResultBlock(call.ToolID, "tool did not return a result", true))
			}
			for i+1 < len(entries) && entries[i+1].Type == EntryToolResult {
				i++
			}
			appendMsg(protocol.RoleAssistant, blocks...)
			appendMsg(protocol.RoleUser, resultBlocks...)

		case EntryToolResult, EntryMeta:
			// Results are folded in above; meta never reaches the model.
		}
	}
	return msgs
}

// marshalInput is a helper for tests and callers that build tool inputs from
// maps.
func marshalInput(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
