package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bashclaw/bashclaw/internal/catalog"
	"github.com/bashclaw/bashclaw/internal/config"
	"github.com/bashclaw/bashclaw/internal/providers"
	"github.com/bashclaw/bashclaw/internal/session"
	"github.com/bashclaw/bashclaw/internal/tools"
	"github.com/bashclaw/bashclaw/pkg/protocol"
)

// visionNote is appended to the user text when image blocks are dropped for a
// model without vision capability.
const visionNote = "[image omitted: model lacks vision]"

// budgetNote is the synthetic assistant reply when the tool loop hits its
// iteration bound with the model still requesting tools.
const budgetNote = "tool-loop budget exhausted"

// ModelClient is the completion surface the runtime drives. *providers.Client
// satisfies it; tests substitute fixtures.
type ModelClient interface {
	Complete(ctx context.Context, req *providers.Request) (*protocol.Response, error)
}

// Runtime executes agent turns against the session store and tool registry.
type Runtime struct {
	cfg      *config.Config
	registry *tools.Registry
	sessions *session.Manager
	root     string
	client   ModelClient
	logger   *slog.Logger
	lookPath func(string) (string, error)
}

// Option customizes Runtime construction.
type Option func(*Runtime)

// WithClient overrides the model client.
func WithClient(c ModelClient) Option {
	return func(r *Runtime) { r.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a runtime storing sessions under root.
func New(cfg *config.Config, registry *tools.Registry, sessions *session.Manager, root string, opts ...Option) *Runtime {
	r := &Runtime{
		cfg:      cfg,
		registry: registry,
		sessions: sessions,
		root:     root,
		client:   providers.NewClient(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunRequest is one inbound user turn.
type RunRequest struct {
	AgentID string
	Text    string
	Channel string
	Sender  string

	// Images are inline image blocks accompanying the text. They are sent
	// to the model for this turn only and never persisted.
	Images []protocol.Block
}

// RunText executes a turn with default channel routing. It is the callback
// shape the cross-agent message tool expects.
func (r *Runtime) RunText(ctx context.Context, agentID, text string) (string, error) {
	return r.Run(ctx, RunRequest{AgentID: agentID, Text: text})
}

// Run executes one user turn and returns the assistant reply. The reply is
// always non-empty for built-in turns: the model's final text, a budget
// notice, or an error sentence.
func (r *Runtime) Run(ctx context.Context, req RunRequest) (string, error) {
	res := Resolve(r.cfg, req.AgentID)

	channel := req.Channel
	if channel == "" {
		channel = "cli"
	}
	scope := session.ParseScope(r.cfg.Session.Scope)
	store := r.sessions.Open(session.Path(r.root, res.AgentID, channel, req.Sender, scope))
	store.Lock()
	defer store.Unlock()

	if engine := resolveAuto(res.Engine, r.lookPath); engine != EngineBuiltin {
		return r.runExternal(ctx, store, engine, res, req.Text)
	}

	if fired, err := store.CheckIdleReset(r.cfg.Session.IdleResetMinutes); err != nil {
		return "", fmt.Errorf("idle reset: %w", err)
	} else if fired {
		r.logger.Info("session reset after idle period", "session", store.Path())
	}

	text := req.Text
	images := req.Images
	if len(images) > 0 && !catalog.LookupModel(res.Model).Vision {
		images = nil
		text += "\n" + visionNote
	}
	if err := store.Append(session.UserEntry(text)); err != nil {
		return "", fmt.Errorf("append user entry: %w", err)
	}

	effective := r.registry.Effective(res.Profile, res.AllowTools, res.DenyTools)
	allowed := make(map[string]bool, len(effective))
	for _, name := range effective {
		allowed[name] = true
	}
	specs := r.registry.Specs(effective)
	maxHistory := r.cfg.MaxHistory()

	calls := 0
	for {
		msgs, err := store.LoadMessages(maxHistory)
		if err != nil {
			return "", fmt.Errorf("load session: %w", err)
		}
		if calls == 0 && len(images) > 0 && len(msgs) > 0 {
			last := &msgs[len(msgs)-1]
			last.Content = append(last.Content, images...)
		}

		resp, err := r.client.Complete(ctx, &providers.Request{
			Model:       res.Model,
			System:      res.SystemPrompt,
			Messages:    msgs,
			MaxTokens:   res.MaxTokens,
			Temperature: res.Temperature,
			Tools:       specs,
		})
		if err != nil {
			errText := "model call failed: " + err.Error()
			if aerr := store.Append(session.AssistantEntry(errText)); aerr != nil {
				r.logger.Error("persist error entry failed", "error", aerr)
			}
			return errText, nil
		}
		calls++

		reply := resp.Text()
		uses := resp.ToolUses()
		if reply != "" || len(uses) > 0 {
			if err := store.Append(session.AssistantEntry(reply)); err != nil {
				return "", fmt.Errorf("append assistant entry: %w", err)
			}
		}
		for _, use := range uses {
			if err := store.Append(session.ToolCallEntry(use.ID, use.Name, use.Input)); err != nil {
				return "", fmt.Errorf("append tool call: %w", err)
			}
		}

		if resp.StopReason != protocol.StopToolUse || len(uses) == 0 {
			r.finalize(store, maxHistory)
			return reply, nil
		}
		if calls >= res.MaxIters {
			if err := store.Append(session.AssistantEntry(budgetNote)); err != nil {
				return "", fmt.Errorf("append budget entry: %w", err)
			}
			r.finalize(store, maxHistory)
			return budgetNote, nil
		}

		for _, use := range uses {
			result := r.dispatch(ctx, allowed, use)
			if err := store.Append(session.ToolResultEntry(use.ID, result.Content, result.IsError)); err != nil {
				return "", fmt.Errorf("append tool result: %w", err)
			}
		}

		// Cancellation is honored between iterations only; an in-flight
		// request above runs to its own timeout.
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
}

// dispatch runs one requested tool, enforcing the agent's effective set.
func (r *Runtime) dispatch(ctx context.Context, allowed map[string]bool, use protocol.Block) *tools.ToolResult {
	if !allowed[use.Name] {
		return tools.Errorf("tool %s is not available to this agent", use.Name)
	}
	r.logger.Debug("dispatching tool", "tool", use.Name)
	return r.registry.Dispatch(ctx, use.Name, use.Input)
}

// finalize prunes the session back under the history bound.
func (r *Runtime) finalize(store *session.Store, maxHistory int) {
	entries, err := store.Load(0)
	if err != nil || len(entries) <= maxHistory {
		return
	}
	if err := store.Prune(maxHistory); err != nil {
		r.logger.Warn("session prune failed", "session", store.Path(), "error", err)
	}
}
