// Package config loads the runtime configuration file and resolves the state
// directory. Config files may be JSON, JSON5, or YAML; string values may
// reference environment variables with $VAR, expanded at read time.
package config

import (
	"strings"
)

// Config is the top-level configuration. Unknown keys are ignored so configs
// shared with outer layers load cleanly.
type Config struct {
	Agents  map[string]AgentConfig `json:"agents" yaml:"agents"`
	Session SessionConfig          `json:"session" yaml:"session"`
	Logging LoggingConfig          `json:"logging" yaml:"logging"`
}

// AgentConfig configures one agent. The reserved id "defaults" supplies
// values inherited by every other agent.
type AgentConfig struct {
	Model        string   `json:"model" yaml:"model"`
	SystemPrompt string   `json:"systemPrompt" yaml:"systemPrompt"`
	MaxTokens    int      `json:"maxTokens" yaml:"maxTokens"`
	Temperature  float64  `json:"temperature" yaml:"temperature"`
	Tools        []string `json:"tools" yaml:"tools"`
	DenyTools    []string `json:"denyTools" yaml:"denyTools"`
	Profile      string   `json:"profile" yaml:"profile"`
	Engine       string   `json:"engine" yaml:"engine"`
}

// SessionConfig controls session scoping and retention.
type SessionConfig struct {
	Scope            string `json:"scope" yaml:"scope"`
	MaxHistory       int    `json:"maxHistory" yaml:"maxHistory"`
	IdleResetMinutes int    `json:"idleResetMinutes" yaml:"idleResetMinutes"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DefaultMaxHistory bounds session projection when the config is silent.
const DefaultMaxHistory = 100

// Defaults returns the agent defaults entry, if present.
func (c *Config) Defaults() AgentConfig {
	if c == nil {
		return AgentConfig{}
	}
	return c.Agents["defaults"]
}

// Agent resolves an agent id to its merged config: the named entry layered
// over defaults. Unknown ids fall back to "main", then to defaults alone.
func (c *Config) Agent(id string) AgentConfig {
	base := c.Defaults()
	if c == nil {
		return base
	}
	id = strings.TrimSpace(id)
	entry, ok := c.Agents[id]
	if !ok && id != "main" {
		entry, ok = c.Agents["main"]
	}
	if !ok {
		return base
	}
	return mergeAgent(base, entry)
}

// MaxHistory returns the configured history bound or the default.
func (c *Config) MaxHistory() int {
	if c == nil || c.Session.MaxHistory <= 0 {
		return DefaultMaxHistory
	}
	return c.Session.MaxHistory
}

func mergeAgent(base, over AgentConfig) AgentConfig {
	out := base
	if over.Model != "" {
		out.Model = over.Model
	}
	if over.SystemPrompt != "" {
		out.SystemPrompt = over.SystemPrompt
	}
	if over.MaxTokens > 0 {
		out.MaxTokens = over.MaxTokens
	}
	if over.Temperature > 0 {
		out.Temperature = over.Temperature
	}
	if len(over.Tools) > 0 {
		out.Tools = over.Tools
	}
	if len(over.DenyTools) > 0 {
		out.DenyTools = over.DenyTools
	}
	if over.Profile != "" {
		out.Profile = over.Profile
	}
	if over.Engine != "" {
		out.Engine = over.Engine
	}
	return out
}
