package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moolen/flare/internal/evidence"
)

// StackStatusTool implements the fetch_cloudformation_status MCP tool
type StackStatusTool struct {
	collector *evidence.StackStatusCollector
}

// NewStackStatusTool creates a new CloudFormation stack status tool
func NewStackStatusTool(collector *evidence.StackStatusCollector) *StackStatusTool {
	return &StackStatusTool{
		collector: collector,
	}
}

// StackStatusInput represents the input for fetch_cloudformation_status
type StackStatusInput struct {
	StackID string `json:"stack_id"`
}

// Execute runs the fetch_cloudformation_status tool
func (t *StackStatusTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params StackStatusInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	// Stack identifiers may be full ARNs, so only presence is checked.
	if params.StackID == "" {
		return nil, fmt.Errorf("stack_id is required")
	}

	return t.collector.Collect(ctx, params.StackID), nil
}
