package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moolen/flare/internal/guidance"
)

// GuidanceTool implements the get_ecs_troubleshooting_guidance MCP tool
type GuidanceTool struct {
	engine *guidance.Engine
}

// NewGuidanceTool creates a new guidance tool
func NewGuidanceTool(engine *guidance.Engine) *GuidanceTool {
	return &GuidanceTool{
		engine: engine,
	}
}

// GuidanceInput represents the input for get_ecs_troubleshooting_guidance
type GuidanceInput struct {
	AppName             string `json:"app_name"`
	SymptomsDescription string `json:"symptoms_description,omitempty"`
}

// Execute runs the get_ecs_troubleshooting_guidance tool
func (t *GuidanceTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params GuidanceInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if err := validateAppName(params.AppName); err != nil {
		return nil, err
	}

	return t.engine.Troubleshoot(ctx, params.AppName, params.SymptomsDescription), nil
}
