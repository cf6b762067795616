package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/awsapi/awsapitest"
	"github.com/moolen/flare/internal/policy"
)

// MockTool is a simple test tool
type MockTool struct {
	result interface{}
	err    error
}

func (m *MockTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func fakeClients() *awsapi.Clients {
	return &awsapi.Clients{
		ECS:            &awsapitest.ECS{},
		ECR:            &awsapitest.ECR{},
		ELB:            &awsapitest.ELB{},
		CloudFormation: &awsapitest.CloudFormation{},
		Logs:           &awsapitest.Logs{},
		EC2:            &awsapitest.EC2{},
	}
}

func TestNewServer_RequiresClients(t *testing.T) {
	_, err := NewServer(ServerOptions{Version: "0.1.0-test"})
	if err == nil {
		t.Fatal("Expected error when AWS clients are missing")
	}
	if !strings.Contains(err.Error(), "AWS clients") {
		t.Errorf("Expected error naming AWS clients, got %v", err)
	}
}

func TestNewServer_RegistersDiagnosticTools(t *testing.T) {
	s, err := NewServer(ServerOptions{
		Version: "0.1.0-test",
		Clients: fakeClients(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	expected := []string{
		"get_ecs_troubleshooting_guidance",
		"fetch_cloudformation_status",
		"fetch_service_events",
		"fetch_task_failures",
		"fetch_task_logs",
		"detect_image_pull_failures",
		"fetch_network_configuration",
		"ecs_resource_management",
	}
	for _, name := range expected {
		if _, ok := s.tools[name]; !ok {
			t.Errorf("Expected tool %s to be registered", name)
		}
	}
	if len(s.tools) != len(expected) {
		t.Errorf("Expected %d tools, got %d", len(expected), len(s.tools))
	}

	if s.GetMCPServer() == nil {
		t.Error("Expected underlying MCP server to be available")
	}
}

func TestNewServer_SensitiveToolsDeclareCapability(t *testing.T) {
	s, err := NewServer(ServerOptions{
		Version: "0.1.0-test",
		Clients: fakeClients(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	for _, name := range []string{"fetch_task_logs", "fetch_service_events", "fetch_task_failures"} {
		caps := s.capabilities[name]
		found := false
		for _, c := range caps {
			if c == policy.CapabilitySensitiveData {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %s to require the sensitive data capability", name)
		}
	}

	if len(s.capabilities["get_ecs_troubleshooting_guidance"]) != 0 {
		t.Error("Expected guidance tool to require no capabilities")
	}
}

// resultText extracts the text payload of a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestInvoke_DeniesSensitiveToolByDefault(t *testing.T) {
	clients := fakeClients()
	s, err := NewServer(ServerOptions{
		Version: "0.1.0-test",
		Clients: clients,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	name := "fetch_task_logs"
	result := s.invoke(context.Background(), name, s.tools[name], s.capabilities[name], map[string]interface{}{
		"app_name": "demo",
	})

	if !result.IsError {
		t.Fatal("Expected denial result for sensitive tool without the flag")
	}
	text := resultText(t, result)
	if !strings.Contains(text, "ALLOW_SENSITIVE_DATA") {
		t.Errorf("Expected denial naming ALLOW_SENSITIVE_DATA, got %s", text)
	}

	logsFake := clients.Logs.(*awsapitest.Logs)
	if logsFake.Calls("DescribeLogGroups") != 0 {
		t.Error("Expected no API call for a denied invocation")
	}
}

func TestInvoke_GuidanceSucceedsWithPrettyJSON(t *testing.T) {
	s, err := NewServer(ServerOptions{
		Version: "0.1.0-test",
		Clients: fakeClients(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	name := "get_ecs_troubleshooting_guidance"
	result := s.invoke(context.Background(), name, s.tools[name], s.capabilities[name], map[string]interface{}{
		"app_name": "demo",
	})

	if result.IsError {
		t.Fatalf("Expected success, got error result: %+v", result.Content)
	}
	text := resultText(t, result)
	if !strings.Contains(text, `"diagnostic_path"`) {
		t.Errorf("Expected diagnostic_path in result, got %s", text)
	}
	if !strings.Contains(text, "\n  ") {
		t.Error("Expected indented JSON output")
	}
}

func TestInvoke_MetricsAdvancePerInvocation(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry(), "test")
	s, err := NewServer(ServerOptions{
		Version: "0.1.0-test",
		Clients: fakeClients(),
		Metrics: metrics,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	name := "get_ecs_troubleshooting_guidance"
	for i := 0; i < 2; i++ {
		s.invoke(context.Background(), name, s.tools[name], s.capabilities[name], map[string]interface{}{
			"app_name": "demo",
		})
	}

	if got := testutil.ToFloat64(metrics.ToolInvocationsTotal.WithLabelValues(name)); got != 2 {
		t.Errorf("Expected 2 invocations counted, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.ToolErrorsTotal.WithLabelValues(name)); got != 0 {
		t.Errorf("Expected no errors counted, got %v", got)
	}

	// A denied call counts as an error but not as an invocation.
	denied := "fetch_task_logs"
	s.invoke(context.Background(), denied, s.tools[denied], s.capabilities[denied], map[string]interface{}{
		"app_name": "demo",
	})
	if got := testutil.ToFloat64(metrics.ToolErrorsTotal.WithLabelValues(denied)); got != 1 {
		t.Errorf("Expected 1 error counted for denied call, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.ToolInvocationsTotal.WithLabelValues(denied)); got != 0 {
		t.Errorf("Expected no invocation counted for denied call, got %v", got)
	}
}

func TestInvoke_ExecutionErrorBecomesToolResult(t *testing.T) {
	s, err := NewServer(ServerOptions{
		Version: "0.1.0-test",
		Clients: fakeClients(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	mock := &MockTool{err: errors.New("backend unavailable")}
	result := s.invoke(context.Background(), "mock_tool", mock, nil, map[string]interface{}{})

	if !result.IsError {
		t.Fatal("Expected error result from failing tool")
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Tool execution failed") {
		t.Errorf("Expected Tool execution failed, got %s", text)
	}
	if !strings.Contains(text, "backend unavailable") {
		t.Errorf("Expected cause in message, got %s", text)
	}
}
