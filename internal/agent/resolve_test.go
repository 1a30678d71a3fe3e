package agent

import (
	"testing"

	"github.com/bashclaw/bashclaw/internal/catalog"
	"github.com/bashclaw/bashclaw/internal/config"
	"github.com/bashclaw/bashclaw/internal/tools"
)

func TestResolveDefaults(t *testing.T) {
	res := Resolve(&config.Config{}, "")
	if res.AgentID != "main" {
		t.Errorf("agent id = %q", res.AgentID)
	}
	if res.Model != catalog.DefaultModelID {
		t.Errorf("model = %q", res.Model)
	}
	if res.MaxIters != DefaultMaxIters {
		t.Errorf("max iters = %d", res.MaxIters)
	}
	if res.Engine != EngineBuiltin {
		t.Errorf("engine = %s", res.Engine)
	}
	if res.Profile != tools.ProfileFull {
		t.Errorf("profile = %s", res.Profile)
	}
	if res.SystemPrompt == "" || res.MaxTokens <= 0 {
		t.Errorf("resolved = %+v", res)
	}
}

func TestResolveMergesAgentOverDefaults(t *testing.T) {
	cfg := &config.Config{Agents: map[string]config.AgentConfig{
		"defaults": {Model: "gpt-4o-mini", SystemPrompt: "be brief", MaxTokens: 512},
		"coder":    {Model: "claude-opus-4-5", Profile: "coding"},
	}}
	res := Resolve(cfg, "coder")
	if res.Model != "claude-opus-4-5" {
		t.Errorf("model = %q", res.Model)
	}
	if res.SystemPrompt != "be brief" {
		t.Errorf("system prompt = %q", res.SystemPrompt)
	}
	if res.MaxTokens != 512 {
		t.Errorf("max tokens = %d", res.MaxTokens)
	}
	if res.Profile != tools.ProfileCoding {
		t.Errorf("profile = %s", res.Profile)
	}
}

func TestResolveModelEnvWinsForEveryProvider(t *testing.T) {
	cfg := &config.Config{Agents: map[string]config.AgentConfig{
		"main": {Model: "gpt-4o"},
	}}
	t.Setenv(EnvModelID, "deepseek-chat")
	res := Resolve(cfg, "main")
	if res.Model != "deepseek-chat" {
		t.Errorf("model = %q, env override must win", res.Model)
	}
}

func TestResolveMaxItersEnv(t *testing.T) {
	t.Setenv(EnvMaxToolIterations, "3")
	if res := Resolve(&config.Config{}, "main"); res.MaxIters != 3 {
		t.Errorf("max iters = %d", res.MaxIters)
	}

	t.Setenv(EnvMaxToolIterations, "not-a-number")
	if res := Resolve(&config.Config{}, "main"); res.MaxIters != DefaultMaxIters {
		t.Errorf("max iters with bad env = %d", res.MaxIters)
	}

	t.Setenv(EnvMaxToolIterations, "-1")
	if res := Resolve(&config.Config{}, "main"); res.MaxIters != DefaultMaxIters {
		t.Errorf("max iters with negative env = %d", res.MaxIters)
	}
}

func TestResolveClampsMaxTokensToModelCap(t *testing.T) {
	cfg := &config.Config{Agents: map[string]config.AgentConfig{
		"main": {Model: "gpt-4o-mini", MaxTokens: 1 << 20},
	}}
	res := Resolve(cfg, "main")
	if cap := catalog.LookupModel("gpt-4o-mini").MaxOutput; res.MaxTokens != cap {
		t.Errorf("max tokens = %d, want %d", res.MaxTokens, cap)
	}
}
