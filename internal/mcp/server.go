package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/config"
	"github.com/moolen/flare/internal/correlation"
	"github.com/moolen/flare/internal/evidence"
	"github.com/moolen/flare/internal/guidance"
	"github.com/moolen/flare/internal/imagecheck"
	"github.com/moolen/flare/internal/logging"
	"github.com/moolen/flare/internal/mcp/tools"
	"github.com/moolen/flare/internal/netdiscovery"
	"github.com/moolen/flare/internal/policy"
	"github.com/moolen/flare/internal/tracing"
)

// Tool defines the interface for our tool implementations
type Tool interface {
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

// Server wraps the mcp-go server and wires the diagnostic tools to the
// AWS clients.
type Server struct {
	mcpServer    *server.MCPServer
	policy       *policy.Policy
	tracing      *tracing.TracingProvider
	metrics      *Metrics
	logger       *logging.Logger
	tools        map[string]Tool
	capabilities map[string][]policy.Capability
	version      string
}

// ServerOptions configures the flare MCP server
type ServerOptions struct {
	Version string
	Config  *config.Config
	Clients *awsapi.Clients
	Policy  *policy.Policy           // Optional, built from Config when nil
	Tracing *tracing.TracingProvider // Optional, disabled provider when nil
	Metrics *Metrics                 // Optional, private registry when nil
}

// NewServer creates a flare MCP server with all diagnostic tools registered
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Clients == nil {
		return nil, fmt.Errorf("AWS clients are required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	pol := opts.Policy
	if pol == nil {
		pol = policy.New(cfg.AllowWrite, cfg.AllowSensitiveData)
	}
	tp := opts.Tracing
	if tp == nil {
		var err error
		tp, err = tracing.NewTracingProvider(tracing.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to set up tracing: %w", err)
		}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry(), "flare")
	}

	// Create mcp-go server with capabilities
	mcpServer := server.NewMCPServer(
		"Flare MCP Server",
		opts.Version,
		server.WithToolCapabilities(false), // No tool subscription for now
		server.WithLogging(),               // Enable logging capability
	)

	s := &Server{
		mcpServer:    mcpServer,
		policy:       pol,
		tracing:      tp,
		metrics:      metrics,
		logger:       logging.GetLogger("mcp"),
		tools:        make(map[string]Tool),
		capabilities: make(map[string][]policy.Capability),
		version:      opts.Version,
	}

	if err := s.registerTools(cfg, opts.Clients); err != nil {
		return nil, err
	}
	s.registerPrompts()

	return s, nil
}

func (s *Server) registerTools(cfg *config.Config, clients *awsapi.Clients) error {
	cache, err := awsapi.NewTaskDefinitionCache(clients.ECS, awsapi.DefaultTaskDefinitionCacheConfig(), logging.GetLogger("awsapi"))
	if err != nil {
		return fmt.Errorf("failed to create task definition cache: %w", err)
	}

	correlator := correlation.New(clients.ECS, clients.ELB, cache, cfg.MaxConcurrency)
	validator := imagecheck.New(clients.ECR, cfg.MaxConcurrency)
	engine := guidance.NewEngine(clients.CloudFormation, clients.ECS, correlator, validator)
	discoverer := netdiscovery.New(clients.ECS, clients.EC2, clients.ELB, clients.CloudFormation, cfg.MaxConcurrency)

	// Register get_ecs_troubleshooting_guidance tool
	s.registerTool(
		"get_ecs_troubleshooting_guidance",
		"Initial entry point that analyzes symptoms and recommends specific diagnostic paths",
		tools.NewGuidanceTool(engine),
		nil,
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"app_name": map[string]interface{}{
					"type":        "string",
					"description": "The name of the application/stack to troubleshoot",
				},
				"symptoms_description": map[string]interface{}{
					"type":        "string",
					"description": "Description of symptoms experienced by the user",
				},
			},
			"required": []string{"app_name"},
		},
	)

	// Register fetch_cloudformation_status tool
	s.registerTool(
		"fetch_cloudformation_status",
		"Infrastructure-level diagnostics for CloudFormation stacks",
		tools.NewStackStatusTool(evidence.NewStackStatus(clients.CloudFormation)),
		nil,
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"stack_id": map[string]interface{}{
					"type":        "string",
					"description": "The CloudFormation stack identifier to analyze",
				},
			},
			"required": []string{"stack_id"},
		},
	)

	// Register fetch_service_events tool
	s.registerTool(
		"fetch_service_events",
		"Service-level diagnostics for ECS services",
		tools.NewServiceEventsTool(evidence.NewServiceEvents(clients.ECS, clients.ELB), cfg.DefaultTimeWindow),
		[]policy.Capability{policy.CapabilitySensitiveData},
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"app_name": map[string]interface{}{
					"type":        "string",
					"description": "The name of the application to analyze",
				},
				"cluster_name": map[string]interface{}{
					"type":        "string",
					"description": "The name of the ECS cluster",
				},
				"service_name": map[string]interface{}{
					"type":        "string",
					"description": "The name of the ECS service to analyze",
				},
				"time_window": map[string]interface{}{
					"type":        "integer",
					"description": "Time window in seconds to look back for events (default: 3600)",
				},
				"start_time": map[string]interface{}{
					"type":        "string",
					"description": "Explicit start time for the analysis window (UTC, takes precedence over time_window if provided)",
				},
				"end_time": map[string]interface{}{
					"type":        "string",
					"description": "Explicit end time for the analysis window (UTC, defaults to current time if not provided)",
				},
			},
			"required": []string{"app_name", "cluster_name", "service_name"},
		},
	)

	// Register fetch_task_failures tool
	s.registerTool(
		"fetch_task_failures",
		"Task-level diagnostics for ECS task failures",
		tools.NewTaskFailuresTool(evidence.NewTaskFailures(clients.ECS), cfg.DefaultTimeWindow),
		[]policy.Capability{policy.CapabilitySensitiveData},
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"app_name": map[string]interface{}{
					"type":        "string",
					"description": "The name of the application to analyze",
				},
				"cluster_name": map[string]interface{}{
					"type":        "string",
					"description": "The name of the ECS cluster",
				},
				"time_window": map[string]interface{}{
					"type":        "integer",
					"description": "Time window in seconds to look back for failures (default: 3600)",
				},
				"start_time": map[string]interface{}{
					"type":        "string",
					"description": "Explicit start time for the analysis window (UTC, takes precedence over time_window if provided)",
				},
				"end_time": map[string]interface{}{
					"type":        "string",
					"description": "Explicit end time for the analysis window (UTC, defaults to current time if not provided)",
				},
			},
			"required": []string{"app_name"},
		},
	)

	// Register fetch_task_logs tool
	s.registerTool(
		"fetch_task_logs",
		"Application-level diagnostics through CloudWatch logs",
		tools.NewTaskLogsTool(evidence.NewTaskLogs(clients.Logs), cfg.DefaultTimeWindow),
		[]policy.Capability{policy.CapabilitySensitiveData},
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"app_name": map[string]interface{}{
					"type":        "string",
					"description": "The name of the application to analyze",
				},
				"cluster_name": map[string]interface{}{
					"type":        "string",
					"description": "The name of the ECS cluster",
				},
				"task_id": map[string]interface{}{
					"type":        "string",
					"description": "Specific task ID to retrieve logs for",
				},
				"filter_pattern": map[string]interface{}{
					"type":        "string",
					"description": "CloudWatch logs filter pattern",
				},
				"time_window": map[string]interface{}{
					"type":        "integer",
					"description": "Time window in seconds to look back for logs (default: 3600)",
				},
				"start_time": map[string]interface{}{
					"type":        "string",
					"description": "Explicit start time for the analysis window (UTC, takes precedence over time_window if provided)",
				},
				"end_time": map[string]interface{}{
					"type":        "string",
					"description": "Explicit end time for the analysis window (UTC, defaults to current time if not provided)",
				},
			},
			"required": []string{"app_name"},
		},
	)

	// Register detect_image_pull_failures tool
	s.registerTool(
		"detect_image_pull_failures",
		"Specialized tool for detecting container image pull failures",
		tools.NewImagePullTool(engine),
		nil,
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"app_name": map[string]interface{}{
					"type":        "string",
					"description": "Application name to check for image pull failures",
				},
			},
			"required": []string{"app_name"},
		},
	)

	// Register fetch_network_configuration tool
	s.registerTool(
		"fetch_network_configuration",
		"Network-level diagnostics for ECS deployments",
		tools.NewNetworkConfigTool(discoverer),
		nil,
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"app_name": map[string]interface{}{
					"type":        "string",
					"description": "The name of the application to analyze",
				},
				"vpc_id": map[string]interface{}{
					"type":        "string",
					"description": "Specific VPC ID to analyze (discovered from the application when omitted)",
				},
				"cluster_name": map[string]interface{}{
					"type":        "string",
					"description": "The name of the ECS cluster",
				},
			},
			"required": []string{"app_name"},
		},
	)

	// Register ecs_resource_management tool
	s.registerTool(
		"ecs_resource_management",
		"Read-only access to ECS resources through a restricted set of API operations",
		tools.NewResourceManagementTool(clients.ECS),
		nil,
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"api_operation": map[string]interface{}{
					"type":        "string",
					"description": "The ECS API operation to execute (e.g. DescribeClusters, ListServices)",
				},
				"api_params": map[string]interface{}{
					"type":        "object",
					"description": "Parameters to pass to the API operation",
				},
			},
			"required": []string{"api_operation"},
		},
	)

	return nil
}

func (s *Server) registerTool(name, description string, tool Tool, caps []policy.Capability, inputSchema map[string]interface{}) {
	// Store tool reference and its required capabilities
	s.tools[name] = tool
	s.capabilities[name] = caps

	// Marshal schema to JSON
	schemaJSON, err := json.Marshal(inputSchema)
	if err != nil {
		// This should never happen with well-formed schemas
		panic(fmt.Sprintf("Failed to marshal schema for tool %s: %v", name, err))
	}

	// Create mcp.Tool definition with raw schema
	mcpTool := mcp.NewToolWithRawSchema(name, description, schemaJSON)

	// Register with mcp-go server using adapter
	s.mcpServer.AddTool(mcpTool, s.createToolHandler(name, tool, caps))
}

func (s *Server) createToolHandler(name string, tool Tool, caps []policy.Capability) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.invoke(ctx, name, tool, caps, request.Params.Arguments), nil
	}
}

// invoke runs one tool call end to end: policy check, tracing span,
// execution, metrics. Failures are reported as tool results, never as
// protocol errors.
func (s *Server) invoke(ctx context.Context, name string, tool Tool, caps []policy.Capability, arguments interface{}) *mcp.CallToolResult {
	invocationID := uuid.New().String()
	logger := s.logger.WithFields(
		logging.Field("tool", name),
		logging.Field("invocation", invocationID),
	)

	if err := s.policy.Authorize(name, caps...); err != nil {
		s.metrics.ToolErrorsTotal.WithLabelValues(name).Inc()
		logger.Warn("Tool invocation denied: %v", err)
		return mcp.NewToolResultError(err.Error())
	}

	tracer := s.tracing.GetTracer("mcp")
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("invocation.id", invocationID),
	))
	defer span.End()

	// Marshal arguments to JSON for our tool interface
	args, err := json.Marshal(arguments)
	if err != nil {
		s.metrics.ToolErrorsTotal.WithLabelValues(name).Inc()
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err))
	}

	s.metrics.ToolInvocationsTotal.WithLabelValues(name).Inc()
	start := time.Now()
	result, err := tool.Execute(ctx, args)
	s.metrics.ToolDurationSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ToolErrorsTotal.WithLabelValues(name).Inc()
		span.RecordError(err)
		logger.ErrorWithErr("Tool execution failed", err)
		return mcp.NewToolResultError(fmt.Sprintf("Tool execution failed: %v", err))
	}

	// Format result as JSON text
	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		s.metrics.ToolErrorsTotal.WithLabelValues(name).Inc()
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err))
	}

	return mcp.NewToolResultText(string(resultJSON))
}

func (s *Server) registerPrompts() {
	// Register deployment troubleshooting prompt
	troubleshootPrompt := mcp.Prompt{
		Name:        "troubleshoot_deployment",
		Description: "Guided troubleshooting workflow for a failed ECS deployment",
		Arguments: []mcp.PromptArgument{
			{Name: "app_name", Description: "Name of the application or CloudFormation stack that failed to deploy", Required: true},
			{Name: "symptoms_description", Description: "Optional description of the observed symptoms", Required: false},
		},
	}

	s.mcpServer.AddPrompt(troubleshootPrompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		// Get arguments (mcp-go provides them as map[string]string)
		appName := request.Params.Arguments["app_name"]
		symptoms := request.Params.Arguments["symptoms_description"]

		// Build prompt message
		text := fmt.Sprintf("Troubleshoot the failed ECS deployment of application '%s'. Start with the get_ecs_troubleshooting_guidance tool and follow its diagnostic_path in rank order. Only use additional tools if the root cause isn't clearly identified in the initial assessment.", appName)
		if symptoms != "" {
			text += fmt.Sprintf(" Reported symptoms: %s", symptoms)
		}

		messages := []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		}

		return &mcp.GetPromptResult{
			Description: "ECS deployment troubleshooting workflow",
			Messages:    messages,
		}, nil
	})

	// Register image pull diagnosis prompt
	imagePullPrompt := mcp.Prompt{
		Name:        "diagnose_image_pull",
		Description: "Check an application's container images for pull failures",
		Arguments: []mcp.PromptArgument{
			{Name: "app_name", Description: "Name of the application whose container images should be verified", Required: true},
		},
	}

	s.mcpServer.AddPrompt(imagePullPrompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		appName := request.Params.Arguments["app_name"]

		text := fmt.Sprintf("Check whether the container images of application '%s' can be pulled. Use the detect_image_pull_failures tool and apply its recommendations. When an image reference is broken, treat it as the definitive root cause of stopped tasks.", appName)

		messages := []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		}

		return &mcp.GetPromptResult{
			Description: "Container image diagnosis workflow",
			Messages:    messages,
		}, nil
	})
}

// GetMCPServer returns the underlying mcp-go server for transport setup
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
