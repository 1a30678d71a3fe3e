// Package agent implements the runtime tool loop: it resolves an agent's
// effective configuration, drives model calls through the provider client,
// dispatches requested tools, and persists every turn to the session store.
package agent

import (
	"os"
	"strconv"

	"github.com/bashclaw/bashclaw/internal/catalog"
	"github.com/bashclaw/bashclaw/internal/config"
	"github.com/bashclaw/bashclaw/internal/tools"
)

// Environment overrides honored at resolution time.
const (
	// EnvModelID overrides the resolved model for every provider, winning
	// over both the per-agent entry and the defaults entry.
	EnvModelID = "MODEL_ID"

	// EnvMaxToolIterations overrides the tool-loop bound.
	EnvMaxToolIterations = "AGENT_MAX_TOOL_ITERATIONS"
)

// DefaultMaxIters bounds the tool loop when nothing overrides it. Zero means
// a single model call with no tool dispatch round.
const DefaultMaxIters = 10

// defaultMaxTokens is the output cap when the agent config is silent.
const defaultMaxTokens = 8192

const defaultSystemPrompt = "You are a helpful assistant with access to tools. Use them when they help, and answer concisely."

// Resolved is an agent's effective configuration after merging defaults, the
// per-agent entry, and environment overrides.
type Resolved struct {
	AgentID      string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Profile      tools.Profile
	AllowTools   []string
	DenyTools    []string
	Engine       Engine
	MaxIters     int
}

// Resolve merges defaults and the named agent entry, fills remaining gaps
// from the catalog, and applies environment overrides.
func Resolve(cfg *config.Config, agentID string) Resolved {
	if agentID == "" {
		agentID = "main"
	}
	ac := cfg.Agent(agentID)

	model := ac.Model
	if model == "" {
		model = catalog.DefaultModelID
	}
	if env := os.Getenv(EnvModelID); env != "" {
		model = env
	}

	maxTokens := ac.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if cap := catalog.LookupModel(model).MaxOutput; cap > 0 && maxTokens > cap {
		maxTokens = cap
	}

	system := ac.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}

	maxIters := DefaultMaxIters
	if env := os.Getenv(EnvMaxToolIterations); env != "" {
		if v, err := strconv.Atoi(env); err == nil && v >= 0 {
			maxIters = v
		}
	}

	return Resolved{
		AgentID:      agentID,
		Model:        model,
		SystemPrompt: system,
		MaxTokens:    maxTokens,
		Temperature:  ac.Temperature,
		Profile:      tools.ParseProfile(ac.Profile),
		AllowTools:   ac.Tools,
		DenyTools:    ac.DenyTools,
		Engine:       ParseEngine(ac.Engine),
		MaxIters:     maxIters,
	}
}
