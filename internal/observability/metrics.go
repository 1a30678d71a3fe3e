package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the agent runtime. Registered on the default registry; the
// serving surface that exposes them lives outside the core.
var (
	ModelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bashclaw_model_calls_total",
		Help: "Model completion calls issued, by provider.",
	}, []string{"provider"})

	ProviderRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bashclaw_provider_retries_total",
		Help: "Retried provider attempts, by provider.",
	}, []string{"provider"})

	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bashclaw_tool_invocations_total",
		Help: "Tool dispatches, by tool name.",
	}, []string{"tool"})

	ToolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bashclaw_tool_errors_total",
		Help: "Tool dispatches that produced an error result, by tool name.",
	}, []string{"tool"})
)
