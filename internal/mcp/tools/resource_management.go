package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ecs"

	"github.com/moolen/flare/internal/awsapi"
)

// ResourceManagementTool implements the ecs_resource_management MCP
// tool, a read-only passthrough to a fixed set of ECS API operations.
type ResourceManagementTool struct {
	ecs awsapi.ECSAPI
}

// NewResourceManagementTool creates a new resource management tool
func NewResourceManagementTool(ecsAPI awsapi.ECSAPI) *ResourceManagementTool {
	return &ResourceManagementTool{
		ecs: ecsAPI,
	}
}

// ResourceManagementInput represents the input for ecs_resource_management
type ResourceManagementInput struct {
	APIOperation string                 `json:"api_operation"`
	APIParams    map[string]interface{} `json:"api_params,omitempty"`
}

// Execute runs the ecs_resource_management tool. Operations outside the
// allowlist are rejected before any API call is made.
func (t *ResourceManagementTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params ResourceManagementInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.APIOperation == "" {
		return nil, fmt.Errorf("api_operation is required")
	}

	raw, err := json.Marshal(params.APIParams)
	if err != nil {
		return nil, fmt.Errorf("invalid api_params: %w", err)
	}
	decode := func(in interface{}) error {
		if err := json.Unmarshal(raw, in); err != nil {
			return fmt.Errorf("invalid api_params for %s: %w", params.APIOperation, err)
		}
		return nil
	}

	switch params.APIOperation {
	case "ListClusters":
		in := &ecs.ListClustersInput{}
		if err := decode(in); err != nil {
			return nil, err
		}
		return t.ecs.ListClusters(ctx, in)
	case "DescribeClusters":
		in := &ecs.DescribeClustersInput{}
		if err := decode(in); err != nil {
			return nil, err
		}
		return t.ecs.DescribeClusters(ctx, in)
	case "ListServices":
		in := &ecs.ListServicesInput{}
		if err := decode(in); err != nil {
			return nil, err
		}
		return t.ecs.ListServices(ctx, in)
	case "DescribeServices":
		in := &ecs.DescribeServicesInput{}
		if err := decode(in); err != nil {
			return nil, err
		}
		return t.ecs.DescribeServices(ctx, in)
	case "ListTasks":
		in := &ecs.ListTasksInput{}
		if err := decode(in); err != nil {
			return nil, err
		}
		return t.ecs.ListTasks(ctx, in)
	case "DescribeTasks":
		in := &ecs.DescribeTasksInput{}
		if err := decode(in); err != nil {
			return nil, err
		}
		return t.ecs.DescribeTasks(ctx, in)
	case "ListTaskDefinitions":
		in := &ecs.ListTaskDefinitionsInput{}
		if err := decode(in); err != nil {
			return nil, err
		}
		return t.ecs.ListTaskDefinitions(ctx, in)
	case "DescribeTaskDefinition":
		in := &ecs.DescribeTaskDefinitionInput{}
		if err := decode(in); err != nil {
			return nil, err
		}
		return t.ecs.DescribeTaskDefinition(ctx, in)
	case "ListTaskDefinitionFamilies":
		in := &ecs.ListTaskDefinitionFamiliesInput{}
		if err := decode(in); err != nil {
			return nil, err
		}
		return t.ecs.ListTaskDefinitionFamilies(ctx, in)
	default:
		return nil, fmt.Errorf("unsupported api_operation: %s", params.APIOperation)
	}
}
