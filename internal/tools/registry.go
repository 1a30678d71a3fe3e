package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bashclaw/bashclaw/internal/observability"
	"github.com/bashclaw/bashclaw/pkg/protocol"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// maxResultBytes caps a tool result before it enters the session log and the
// next model request.
const maxResultBytes = 16 * 1024

// truncationMarker is appended to results cut at maxResultBytes.
const truncationMarker = "\n[output truncated]"

// Registry holds the tools available to the process, with compiled schemas
// for input validation at dispatch time.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
		logger:  logger,
	}
}

// Register adds a tool, replacing any previous tool with the same name. The
// schema is compiled eagerly so malformed schemas fail at startup rather than
// at dispatch.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}

	var compiled *jsonschema.Schema
	if raw := tool.Schema(); len(raw) > 0 {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
			return fmt.Errorf("tool %s: add schema: %w", name, err)
		}
		s, err := c.Compile("schema.json")
		if err != nil {
			return fmt.Errorf("tool %s: compile schema: %w", name, err)
		}
		compiled = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = tool
	if compiled != nil {
		r.schemas[name] = compiled
	}
	return nil
}

// MustRegister registers or panics. For process startup wiring only.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Specs builds the provider-facing tool specs for the given names. Names not
// in the registry are skipped.
func (r *Registry) Specs(names []string) []protocol.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]protocol.ToolSpec, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		schema := t.Schema()
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		specs = append(specs, protocol.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: schema,
		})
	}
	return specs
}

// Dispatch validates input against the tool's schema and runs it. All faults,
// including panics in the handler, surface as error results so the tool loop
// keeps its call/result pairing.
func (r *Registry) Dispatch(ctx context.Context, name string, params json.RawMessage) *ToolResult {
	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	ctx, span := otel.Tracer("bashclaw/tools").Start(ctx, "tool.dispatch")
	span.SetAttributes(attribute.String("tool.name", name))
	defer span.End()

	observability.ToolInvocations.WithLabelValues(name).Inc()
	if !ok {
		observability.ToolErrors.WithLabelValues(name).Inc()
		return Errorf("unknown tool: %s", name)
	}

	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	if schema != nil {
		var doc any
		if err := json.Unmarshal(params, &doc); err != nil {
			observability.ToolErrors.WithLabelValues(name).Inc()
			return Errorf("tool %s: input is not valid JSON: %v", name, err)
		}
		if err := schema.Validate(doc); err != nil {
			observability.ToolErrors.WithLabelValues(name).Inc()
			return Errorf("tool %s: invalid input: %v", name, err)
		}
	}

	result := r.execute(ctx, tool, params)
	if result == nil {
		result = Errorf("tool %s returned no result", name)
	}
	if len(result.Content) > maxResultBytes {
		result.Content = result.Content[:maxResultBytes] + truncationMarker
	}
	if result.IsError {
		observability.ToolErrors.WithLabelValues(name).Inc()
	}
	return result
}

// execute isolates the handler call so a panic becomes an error result.
func (r *Registry) execute(ctx context.Context, tool Tool, params json.RawMessage) (result *ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", tool.Name(), "panic", rec)
			result = Errorf("tool %s panicked: %v", tool.Name(), rec)
		}
	}()

	res, err := tool.Execute(ctx, params)
	if err != nil {
		return Errorf("tool %s failed: %v", tool.Name(), err)
	}
	return res
}
