package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moolen/flare/internal/evidence"
)

// TaskLogsTool implements the fetch_task_logs MCP tool
type TaskLogsTool struct {
	collector            *evidence.TaskLogsCollector
	defaultWindowSeconds int
}

// NewTaskLogsTool creates a new task logs tool
func NewTaskLogsTool(collector *evidence.TaskLogsCollector, defaultWindowSeconds int) *TaskLogsTool {
	return &TaskLogsTool{
		collector:            collector,
		defaultWindowSeconds: defaultWindowSeconds,
	}
}

// TaskLogsInput represents the input for fetch_task_logs
type TaskLogsInput struct {
	AppName       string `json:"app_name"`
	ClusterName   string `json:"cluster_name,omitempty"`
	TaskID        string `json:"task_id,omitempty"`
	FilterPattern string `json:"filter_pattern,omitempty"`
	TimeWindow    int    `json:"time_window,omitempty"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
}

// Execute runs the fetch_task_logs tool
func (t *TaskLogsTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params TaskLogsInput
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

	return t.collector.Collect(ctx, evidence.TaskLogsQuery{
		AppName:       params.AppName,
		ClusterName:   params.ClusterName,
		TaskID:        params.TaskID,
		FilterPattern: params.FilterPattern,
		Window:        window,
	}), nil
}
