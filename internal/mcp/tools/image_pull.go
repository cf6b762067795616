package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moolen/flare/internal/guidance"
)

// ImagePullTool implements the detect_image_pull_failures MCP tool
type ImagePullTool struct {
	engine *guidance.Engine
}

// NewImagePullTool creates a new image pull failure detection tool
func NewImagePullTool(engine *guidance.Engine) *ImagePullTool {
	return &ImagePullTool{
		engine: engine,
	}
}

// ImagePullInput represents the input for detect_image_pull_failures
type ImagePullInput struct {
	AppName string `json:"app_name"`
}

// Execute runs the detect_image_pull_failures tool
func (t *ImagePullTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params ImagePullInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if err := validateAppName(params.AppName); err != nil {
		return nil, err
	}

	return t.engine.DetectImagePullFailures(ctx, params.AppName), nil
}
