// Package tools defines the tool contract, the registry the agent runtime
// dispatches through, and the profile algebra that decides which tools an
// agent may call.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is one callable capability exposed to the model.
type Tool interface {
	// Name returns the tool's wire name.
	Name() string

	// Description is shown to the model in the tool spec.
	Description() string

	// Schema returns the JSON-schema object describing the input.
	Schema() json.RawMessage

	// Execute runs the tool. Faults are reported in the result, not raised;
	// a non-nil error means the dispatcher itself failed.
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult is the outcome of one tool invocation.
type ToolResult struct {
	Content string
	IsError bool
}

// Errorf builds an error result.
func Errorf(format string, args ...any) *ToolResult {
	return &ToolResult{Content: fmt.Sprintf(format, args...), IsError: true}
}

// Textf builds a success result.
func Textf(format string, args ...any) *ToolResult {
	return &ToolResult{Content: fmt.Sprintf(format, args...)}
}

// Optional marks a tool that is excluded from every profile unless an agent
// allows it by name.
type Optional interface {
	Optional() bool
}

// Availability lets a tool report that its runtime requirements (env vars,
// external binaries) are missing so the registry can drop it from specs.
type Availability interface {
	Available() bool
}

// BridgeExposed controls visibility through the MCP bridge. Tools that do not
// implement it are exposed.
type BridgeExposed interface {
	BridgeExposed() bool
}
