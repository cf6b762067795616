package mcp

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for tool invocations.
type Metrics struct {
	ToolInvocationsTotal *prometheus.CounterVec   // Invocations per tool
	ToolErrorsTotal      *prometheus.CounterVec   // Failed invocations per tool, policy denials included
	ToolDurationSeconds  *prometheus.HistogramVec // Execution duration per tool
}

// NewMetrics creates Prometheus metrics for an MCP server instance.
// The registerer parameter allows flexible registration (e.g., global registry, test registry).
// The instanceName parameter enables multi-instance metric tracking via ConstLabels.
func NewMetrics(reg prometheus.Registerer, instanceName string) *Metrics {
	invocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "flare_tool_invocations_total",
		Help:        "Total number of tool invocations",
		ConstLabels: prometheus.Labels{"instance": instanceName},
	}, []string{"tool"})

	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "flare_tool_errors_total",
		Help:        "Total number of failed tool invocations",
		ConstLabels: prometheus.Labels{"instance": instanceName},
	}, []string{"tool"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "flare_tool_duration_seconds",
		Help:        "Tool execution duration in seconds",
		ConstLabels: prometheus.Labels{"instance": instanceName},
		Buckets:     prometheus.DefBuckets,
	}, []string{"tool"})

	reg.MustRegister(invocations)
	reg.MustRegister(errors)
	reg.MustRegister(duration)

	return &Metrics{
		ToolInvocationsTotal: invocations,
		ToolErrorsTotal:      errors,
		ToolDurationSeconds:  duration,
	}
}
