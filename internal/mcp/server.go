package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bashclaw/bashclaw/internal/tools"
)

// maxLineBytes bounds one inbound NDJSON message.
const maxLineBytes = 4 * 1024 * 1024

// toolNameRe is the only shape of tool name accepted over the bridge.
var toolNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Server is the stdio bridge. It reads one JSON-RPC message per line from in
// and writes one response per request line to out. All logging goes through
// the logger, never to out, which carries protocol traffic only.
type Server struct {
	registry *tools.Registry
	logger   *slog.Logger
	name     string
	version  string

	in  io.Reader
	out io.Writer

	// toolList and exposed are built on first use and reused; the registry
	// is static once the process is wired.
	toolList *ListToolsResult
	exposed  map[string]bool
}

// ServerOption customizes Server construction.
type ServerOption func(*Server)

// WithStreams overrides stdin/stdout (used by tests).
func WithStreams(in io.Reader, out io.Writer) ServerOption {
	return func(s *Server) {
		s.in = in
		s.out = out
	}
}

// WithServerLogger sets the logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a bridge over the given registry.
func NewServer(registry *tools.Registry, name, version string, opts ...ServerOption) *Server {
	s := &Server{
		registry: registry,
		logger:   slog.Default(),
		name:     name,
		version:  version,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve processes messages until in is exhausted or ctx is canceled.
// Processing is strictly sequential: one line in, at most one line out.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		resp := s.handle(ctx, []byte(line))
		if resp == nil {
			continue
		}
		if err := s.write(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// handle processes one message. Notifications return nil.
func (s *Server) handle(ctx context.Context, line []byte) *Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Warn("unparseable message", "error", err)
		return errorResponse(json.RawMessage("null"), ErrCodeParseError, "Parse error")
	}
	if len(req.ID) == 0 || string(req.ID) == "null" {
		s.logger.Debug("notification", "method", req.Method)
		return nil
	}

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    Capabilities{},
			ServerInfo:      ServerInfo{Name: s.name, Version: s.version},
		})
	case "tools/list":
		return resultResponse(req.ID, s.listTools())
	case "tools/call":
		return s.callTool(ctx, req)
	case "resources/list":
		return resultResponse(req.ID, map[string]any{"resources": []any{}})
	case "prompts/list":
		return resultResponse(req.ID, map[string]any{"prompts": []any{}})
	default:
		return errorResponse(req.ID, ErrCodeMethodNotFound, "Method not found")
	}
}

// listTools builds the curated tool list once and caches it.
func (s *Server) listTools() *ListToolsResult {
	if s.toolList != nil {
		return s.toolList
	}
	specs := s.registry.Specs(s.registry.BridgeTools())
	list := &ListToolsResult{Tools: make([]ToolDescriptor, 0, len(specs))}
	for _, spec := range specs {
		list.Tools = append(list.Tools, ToolDescriptor{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.InputSchema,
		})
	}
	s.toolList = list
	return list
}

// exposedSet caches the names the bridge exposes.
func (s *Server) exposedSet() map[string]bool {
	if s.exposed == nil {
		s.exposed = make(map[string]bool)
		for _, name := range s.registry.BridgeTools() {
			s.exposed[name] = true
		}
	}
	return s.exposed
}

func (s *Server) callTool(ctx context.Context, req Request) *Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, ErrCodeInvalidParams, "invalid params: "+err.Error())
	}
	if !toolNameRe.MatchString(params.Name) {
		return errorResponse(req.ID, ErrCodeInvalidParams, "invalid tool name")
	}
	// Only tools the bridge lists are callable.
	if !s.exposedSet()[params.Name] {
		return errorResponse(req.ID, ErrCodeInvalidParams, "unknown tool: "+params.Name)
	}

	s.logger.Info("bridge tool call", "tool", params.Name)
	result := s.registry.Dispatch(ctx, params.Name, params.Arguments)

	return resultResponse(req.ID, CallToolResult{
		Content: []ToolContent{{Type: "text", Text: flatten(result.Content)}},
		IsError: result.IsError,
	})
}

// write emits one response as a single NDJSON line.
func (s *Server) write(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = s.out.Write(append(data, '\n'))
	return err
}

// flatten keeps a response on one wire line.
func flatten(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return text
}

func resultResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message}}
}
