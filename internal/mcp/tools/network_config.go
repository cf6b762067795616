package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moolen/flare/internal/netdiscovery"
)

// NetworkConfigTool implements the fetch_network_configuration MCP tool
type NetworkConfigTool struct {
	discoverer *netdiscovery.Discoverer
}

// NewNetworkConfigTool creates a new network configuration tool
func NewNetworkConfigTool(discoverer *netdiscovery.Discoverer) *NetworkConfigTool {
	return &NetworkConfigTool{
		discoverer: discoverer,
	}
}

// NetworkConfigInput represents the input for fetch_network_configuration.
// When vpc_id is omitted the VPCs are discovered from the application's
// workloads, load balancers and CloudFormation stacks.
type NetworkConfigInput struct {
	AppName     string `json:"app_name"`
	VpcID       string `json:"vpc_id,omitempty"`
	ClusterName string `json:"cluster_name,omitempty"`
}

// Execute runs the fetch_network_configuration tool
func (t *NetworkConfigTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var params NetworkConfigInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if err := validateAppName(params.AppName); err != nil {
		return nil, err
	}

	return t.discoverer.FetchNetworkConfiguration(ctx, params.AppName, params.VpcID, params.ClusterName), nil
}
