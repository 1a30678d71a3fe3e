// handlers.go wires the state directory, config, tool registry, and agent
// runtime, and implements the command handlers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bashclaw/bashclaw/internal/agent"
	"github.com/bashclaw/bashclaw/internal/config"
	"github.com/bashclaw/bashclaw/internal/mcp"
	"github.com/bashclaw/bashclaw/internal/observability"
	"github.com/bashclaw/bashclaw/internal/outbound"
	"github.com/bashclaw/bashclaw/internal/session"
	"github.com/bashclaw/bashclaw/internal/tools"
	"github.com/bashclaw/bashclaw/internal/tools/crontool"
	"github.com/bashclaw/bashclaw/internal/tools/fstools"
	"github.com/bashclaw/bashclaw/internal/tools/introspect"
	"github.com/bashclaw/bashclaw/internal/tools/memorytool"
	"github.com/bashclaw/bashclaw/internal/tools/messagetool"
	"github.com/bashclaw/bashclaw/internal/tools/shelltool"
	"github.com/bashclaw/bashclaw/internal/tools/subagent"
	"github.com/bashclaw/bashclaw/internal/tools/websearch"
	"github.com/spf13/cobra"
)

// app holds the wired process: config, logger, registry, and runtime.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	stateDir string
	registry *tools.Registry
	sessions *session.Manager
	runtime  *agent.Runtime
	cron     *crontool.CronTool
}

// newApp loads the environment and config, then wires every component.
func newApp(configPath string, debug bool) (*app, error) {
	stateDir := config.StateDir()
	if err := config.EnsureStateDir(stateDir); err != nil {
		return nil, fmt.Errorf("state dir: %w", err)
	}
	if err := config.LoadEnvFile(stateDir); err != nil {
		return nil, err
	}

	if configPath == "" {
		configPath = config.DefaultPath(stateDir)
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		stateDir: stateDir,
		registry: tools.NewRegistry(logger),
		sessions: session.NewManager(),
	}
	a.runtime = agent.New(cfg, a.registry, a.sessions, config.SessionsDir(stateDir),
		agent.WithLogger(logger))
	a.registerTools()
	return a, nil
}

// registerTools populates the registry. Tools that need the runtime receive it
// as a callback so the tool layer stays below the agent package.
func (a *app) registerTools() {
	reg := a.registry
	workdir, err := os.Getwd()
	if err != nil {
		workdir = "."
	}

	reg.MustRegister(memorytool.New(config.MemoryDir(a.stateDir)))
	reg.MustRegister(shelltool.New(shelltool.WithWorkdir(workdir)))
	reg.MustRegister(websearch.NewFetchTool())
	reg.MustRegister(websearch.NewSearchTool())
	reg.MustRegister(&fstools.ReadTool{Root: workdir})
	reg.MustRegister(&fstools.WriteTool{Root: workdir})
	reg.MustRegister(&fstools.ListTool{Root: workdir})
	reg.MustRegister(&fstools.SearchTool{Root: workdir})

	a.cron = crontool.New(config.CronDir(a.stateDir), func(ctx context.Context, job crontool.Job) (string, error) {
		return a.runtime.Run(ctx, agent.RunRequest{
			AgentID: job.AgentID,
			Text:    job.Message,
			Channel: "cron",
			Sender:  job.ID,
		})
	})
	reg.MustRegister(a.cron)

	spawn := subagent.NewSpawnTool(config.SpawnDir(a.stateDir), func(ctx context.Context, taskID, agentID, task string) (string, error) {
		// Each spawned task converses in its own fresh session.
		return a.runtime.Run(ctx, agent.RunRequest{
			AgentID: agentID,
			Text:    task,
			Channel: "spawn",
			Sender:  taskID,
		})
	})
	reg.MustRegister(spawn)
	reg.MustRegister(subagent.NewStatusTool(config.SpawnDir(a.stateDir)))

	reg.MustRegister(messagetool.New(a.outboundRegistry()))

	sessionsRoot := config.SessionsDir(a.stateDir)
	reg.MustRegister(&introspect.AgentsTool{List: a.agentIDs})
	reg.MustRegister(&introspect.SessionsTool{Root: sessionsRoot})
	reg.MustRegister(&introspect.StatusTool{Root: sessionsRoot, Manager: a.sessions})
	reg.MustRegister(&introspect.MessageTool{Run: a.runtime.RunText})
}

// outboundRegistry registers a sender for every channel with a token present.
func (a *app) outboundRegistry() *outbound.Registry {
	out := outbound.NewRegistry()
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		if s, err := outbound.NewTelegramSender(token); err == nil {
			out.Register(s)
		} else {
			a.logger.Warn("telegram sender unavailable", "error", err)
		}
	}
	if token := os.Getenv("DISCORD_BOT_TOKEN"); token != "" {
		if s, err := outbound.NewDiscordSender(token); err == nil {
			out.Register(s)
		} else {
			a.logger.Warn("discord sender unavailable", "error", err)
		}
	}
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
		out.Register(outbound.NewSlackSender(token))
	}
	return out
}

func (a *app) agentIDs() []string {
	var ids []string
	for id := range a.cfg.Agents {
		if id != "defaults" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		ids = []string{"main"}
	}
	sort.Strings(ids)
	return ids
}

func runAgent(cmd *cobra.Command, configPath string, debug bool, agentID, message, channel, sender string) error {
	a, err := newApp(configPath, debug)
	if err != nil {
		return err
	}
	reply, err := a.runtime.Run(cmd.Context(), agent.RunRequest{
		AgentID: agentID,
		Text:    message,
		Channel: channel,
		Sender:  sender,
	})
	if err != nil {
		return err
	}
	cmd.Println(reply)
	return nil
}

func runMCP(cmd *cobra.Command, configPath string, debug bool) error {
	a, err := newApp(configPath, debug)
	if err != nil {
		return err
	}
	srv := mcp.NewServer(a.registry, "bashclaw", version,
		mcp.WithStreams(cmd.InOrStdin(), cmd.OutOrStdout()),
		mcp.WithServerLogger(a.logger))
	return srv.Serve(cmd.Context())
}

func runSessionsList(cmd *cobra.Command, configPath string) error {
	a, err := newApp(configPath, false)
	if err != nil {
		return err
	}
	root := config.SessionsDir(a.stateDir)
	var found bool
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
			if rel, rerr := filepath.Rel(root, path); rerr == nil {
				cmd.Println(rel)
				found = true
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		cmd.Println("no sessions")
	}
	return nil
}

// resolveSessionPath maps a relative session name from "sessions list" back to
// a file under the sessions root, rejecting traversal.
func resolveSessionPath(root, name string) (string, error) {
	rel := filepath.Clean(name)
	if rel == "" || rel == "." || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid session name %q", name)
	}
	return filepath.Join(root, rel), nil
}

func runSessionsClear(cmd *cobra.Command, configPath, name string) error {
	a, err := newApp(configPath, false)
	if err != nil {
		return err
	}
	path, err := resolveSessionPath(config.SessionsDir(a.stateDir), name)
	if err != nil {
		return err
	}
	if err := a.sessions.Open(path).Clear(); err != nil {
		return err
	}
	cmd.Printf("cleared %s\n", name)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, configPath, name string) error {
	a, err := newApp(configPath, false)
	if err != nil {
		return err
	}
	path, err := resolveSessionPath(config.SessionsDir(a.stateDir), name)
	if err != nil {
		return err
	}
	if err := a.sessions.Open(path).Delete(); err != nil {
		return err
	}
	cmd.Printf("deleted %s\n", name)
	return nil
}

// cronCall drives the cron tool through its own dispatch surface so the CLI
// and the model share one code path.
func cronCall(cmd *cobra.Command, configPath string, params map[string]any) error {
	a, err := newApp(configPath, false)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	result := a.registry.Dispatch(cmd.Context(), "cron", raw)
	if result.IsError {
		return fmt.Errorf("%s", result.Content)
	}
	cmd.Println(result.Content)
	return nil
}

func runCronAdd(cmd *cobra.Command, configPath, message, schedule, agentID string) error {
	return cronCall(cmd, configPath, map[string]any{
		"action":   "add",
		"message":  message,
		"schedule": schedule,
		"agent_id": agentID,
	})
}

func runCronList(cmd *cobra.Command, configPath string) error {
	return cronCall(cmd, configPath, map[string]any{"action": "list"})
}

func runCronRemove(cmd *cobra.Command, configPath, id string) error {
	return cronCall(cmd, configPath, map[string]any{"action": "remove", "id": id})
}

func runCronRun(cmd *cobra.Command, configPath, id string) error {
	return cronCall(cmd, configPath, map[string]any{"action": "run", "id": id})
}

func runEnvSet(cmd *cobra.Command, key, value string) error {
	stateDir := config.StateDir()
	if err := config.EnsureStateDir(stateDir); err != nil {
		return err
	}
	if err := config.SetEnvVar(stateDir, key, value); err != nil {
		return err
	}
	cmd.Printf("set %s\n", key)
	return nil
}
