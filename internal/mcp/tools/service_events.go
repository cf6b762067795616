package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moolen/flare/internal/evidence"
)

// ServiceEventsTool implements the fetch_service_events MCP tool
type ServiceEventsTool struct {
	collector            *evidence.ServiceEventsCollector
	defaultWindowSeconds int
}

// NewServiceEventsTool creates a new service events tool
func NewServiceEventsTool(collector *evidence.ServiceEventsCollector, defaultWindowSeconds int) *ServiceEventsTool {
	return &ServiceEventsTool{
		collector:            collector,
		defaultWindowSeconds: defaultWindowSeconds,
	}
}

// ServiceEventsInput represents the input for fetch_service_events
type ServiceEventsInput struct {
	AppName     string `json:"app_name"`
	ClusterName string `json:"cluster_name"`
	ServiceName string `json:"service_name"`
	TimeWindow  int    `json:"time_window,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
}

// Execute runs the fetch_service_events tool
func (t *ServiceEventsTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params ServiceEventsInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if err := validateAppName(params.AppName); err != nil {
		return nil, err
	}
	if params.ClusterName == "" {
		return nil, fmt.Errorf("cluster_name is required")
	}
	if params.ServiceName == "" {
		return nil, fmt.Errorf("service_name is required")
	}

	window, err := resolveWindow(params.TimeWindow, params.StartTime, params.EndTime, t.defaultWindowSeconds)
	if err != nil {
		return nil, err
	}

	return t.collector.Collect(ctx, params.ClusterName, params.ServiceName, window), nil
}
