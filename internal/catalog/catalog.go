// Package catalog is the static description of LLM providers and models: which
// wire format each provider speaks, where its API lives, which env var carries
// its credential, and what each model can do. All provider knowledge lives in
// this declarative table; the adapters select behavior from it by format.
package catalog

import (
	"os"
	"strings"
)

// APIFormat identifies the wire format a provider speaks.
type APIFormat string

const (
	FormatAnthropic APIFormat = "anthropic"
	FormatOpenAI    APIFormat = "openai"
	FormatGoogle    APIFormat = "google"
)

// Provider describes one upstream API endpoint.
type Provider struct {
	// ID is the provider identifier (e.g. "anthropic", "deepseek").
	ID string

	// Format selects the wire codec.
	Format APIFormat

	// BaseURL is the default API root, overridable per deployment.
	BaseURL string

	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string

	// APIVersion is sent as a version header where the format requires one.
	APIVersion string

	// MaxTokensField overrides the JSON field name used for the output token
	// cap, for providers that renamed it (e.g. "max_completion_tokens").
	MaxTokensField string
}

// Model describes one model's capabilities.
type Model struct {
	ID            string
	ProviderID    string
	ContextWindow int
	MaxOutput     int
	Tools         bool
	Vision        bool
	Reasoning     bool
}

var providers = []Provider{
	{ID: "anthropic", Format: FormatAnthropic, BaseURL: "https://api.anthropic.com", APIKeyEnv: "ANTHROPIC_API_KEY", APIVersion: "2023-06-01"},
	{ID: "openai", Format: FormatOpenAI, BaseURL: "https://api.openai.com/v1", APIKeyEnv: "OPENAI_API_KEY", MaxTokensField: "max_completion_tokens"},
	{ID: "google", Format: FormatGoogle, BaseURL: "https://generativelanguage.googleapis.com/v1beta", APIKeyEnv: "GEMINI_API_KEY"},
	{ID: "deepseek", Format: FormatOpenAI, BaseURL: "https://api.deepseek.com/v1", APIKeyEnv: "DEEPSEEK_API_KEY"},
	{ID: "xiaomi", Format: FormatOpenAI, BaseURL: "https://api.xiaomimimo.com/v1", APIKeyEnv: "XIAOMI_API_KEY"},
	{ID: "groq", Format: FormatOpenAI, BaseURL: "https://api.groq.com/openai/v1", APIKeyEnv: "GROQ_API_KEY"},
	{ID: "openrouter", Format: FormatOpenAI, BaseURL: "https://openrouter.ai/api/v1", APIKeyEnv: "OPENROUTER_API_KEY"},
	{ID: "mistral", Format: FormatOpenAI, BaseURL: "https://api.mistral.ai/v1", APIKeyEnv: "MISTRAL_API_KEY"},
	{ID: "zhipu", Format: FormatOpenAI, BaseURL: "https://open.bigmodel.cn/api/paas/v4", APIKeyEnv: "ZHIPU_API_KEY"},
}

var models = []Model{
	{ID: "claude-opus-4-5", ProviderID: "anthropic", ContextWindow: 200000, MaxOutput: 32000, Tools: true, Vision: true},
	{ID: "claude-sonnet-4-5", ProviderID: "anthropic", ContextWindow: 200000, MaxOutput: 64000, Tools: true, Vision: true},
	{ID: "claude-haiku-4-5", ProviderID: "anthropic", ContextWindow: 200000, MaxOutput: 64000, Tools: true, Vision: true},
	{ID: "gpt-5", ProviderID: "openai", ContextWindow: 400000, MaxOutput: 128000, Tools: true, Vision: true, Reasoning: true},
	{ID: "gpt-5-mini", ProviderID: "openai", ContextWindow: 400000, MaxOutput: 128000, Tools: true, Vision: true, Reasoning: true},
	{ID: "gpt-4o", ProviderID: "openai", ContextWindow: 128000, MaxOutput: 16384, Tools: true, Vision: true},
	{ID: "gpt-4o-mini", ProviderID: "openai", ContextWindow: 128000, MaxOutput: 16384, Tools: true, Vision: true},
	{ID: "gemini-2.5-pro", ProviderID: "google", ContextWindow: 1048576, MaxOutput: 65536, Tools: true, Vision: true, Reasoning: true},
	{ID: "gemini-2.5-flash", ProviderID: "google", ContextWindow: 1048576, MaxOutput: 65536, Tools: true, Vision: true},
	{ID: "deepseek-chat", ProviderID: "deepseek", ContextWindow: 128000, MaxOutput: 8192, Tools: true},
	{ID: "deepseek-reasoner", ProviderID: "deepseek", ContextWindow: 128000, MaxOutput: 65536, Tools: true, Reasoning: true},
	{ID: "mimo-7b", ProviderID: "xiaomi", ContextWindow: 32768, MaxOutput: 8192, Tools: true},
}

// DefaultModelID is used when neither config nor environment resolves a model.
const DefaultModelID = "claude-sonnet-4-5"

// ProviderByID returns the provider with the given id.
func ProviderByID(id string) (Provider, bool) {
	for _, p := range providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// Providers returns the full provider table in declaration order.
func Providers() []Provider {
	out := make([]Provider, len(providers))
	copy(out, providers)
	return out
}

// LookupModel returns the model entry for the given id. Unknown models resolve
// to a safe default capability set (tools enabled, vision disabled) attributed
// to a provider guessed from the id.
func LookupModel(id string) Model {
	for _, m := range models {
		if m.ID == id {
			return m
		}
	}
	return Model{
		ID:            id,
		ProviderID:    guessProvider(id),
		ContextWindow: 128000,
		MaxOutput:     8192,
		Tools:         true,
		Vision:        false,
	}
}

// ProviderForModel resolves the provider serving the given model id.
func ProviderForModel(modelID string) Provider {
	m := LookupModel(modelID)
	if p, ok := ProviderByID(m.ProviderID); ok {
		return p
	}
	p, _ := ProviderByID("anthropic")
	return p
}

func guessProvider(modelID string) string {
	id := strings.ToLower(modelID)
	switch {
	case strings.HasPrefix(id, "claude"):
		return "anthropic"
	case strings.HasPrefix(id, "gpt") || strings.HasPrefix(id, "o1") || strings.HasPrefix(id, "o3") || strings.HasPrefix(id, "o4"):
		return "openai"
	case strings.HasPrefix(id, "gemini"):
		return "google"
	case strings.HasPrefix(id, "deepseek"):
		return "deepseek"
	case strings.HasPrefix(id, "mimo"):
		return "xiaomi"
	case strings.HasPrefix(id, "mistral") || strings.HasPrefix(id, "magistral"):
		return "mistral"
	case strings.HasPrefix(id, "glm"):
		return "zhipu"
	case strings.Contains(id, "/"):
		return "openrouter"
	default:
		return "anthropic"
	}
}

// APIKey reads the provider's credential from the environment. Empty when the
// provider is unconfigured.
func (p Provider) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// ResolveBaseURL returns the effective API root. ANTHROPIC_BASE_URL rewrites
// the base for every anthropic-format provider so a proxy can front them all.
func (p Provider) ResolveBaseURL() string {
	if p.Format == FormatAnthropic {
		if override := os.Getenv("ANTHROPIC_BASE_URL"); override != "" {
			return strings.TrimRight(override, "/")
		}
	}
	return strings.TrimRight(p.BaseURL, "/")
}
