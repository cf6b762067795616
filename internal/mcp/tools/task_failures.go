package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moolen/flare/internal/evidence"
)

// TaskFailuresTool implements the fetch_task_failures MCP tool
type TaskFailuresTool struct {
	collector            *evidence.TaskFailuresCollector
	defaultWindowSeconds int
}

// NewTaskFailuresTool creates a new task failures tool
func NewTaskFailuresTool(collector *evidence.TaskFailuresCollector, defaultWindowSeconds int) *TaskFailuresTool {
	return &TaskFailuresTool{
		collector:            collector,
		defaultWindowSeconds: defaultWindowSeconds,
	}
}

// TaskFailuresInput represents the input for fetch_task_failures. An
// empty cluster_name falls back to the "<app>-cluster" naming
// convention inside the collector.
type TaskFailuresInput struct {
	AppName     string `json:"app_name"`
	ClusterName string `json:"cluster_name,omitempty"`
	TimeWindow  int    `json:"time_window,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
}

// Execute runs the fetch_task_failures tool
func (t *TaskFailuresTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params TaskFailuresInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if err := validateAppName(params.AppName); err != nil {
		return nil, err
	}

	window, err := resolveWindow(params.TimeWindow, params.StartTime, params.EndTime, t.defaultWindowSeconds)
	if err != nil {
		return nil, err
	}

	return t.collector.Collect(ctx, params.AppName, params.ClusterName, window), nil
}
