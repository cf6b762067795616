package evidence

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/diagnosis"
	"github.com/moolen/flare/internal/logging"
	"github.com/moolen/flare/internal/timewindow"
)

// ServiceEventsResult reports the recent event stream of one ECS
// service, its deployment rollout state and any load balancer health
// problems attached to it.
type ServiceEventsResult struct {
	diagnosis.Envelope

	ServiceExists      bool                 `json:"service_exists"`
	ServiceStatus      string               `json:"service_status,omitempty"`
	Events             []ServiceEvent       `json:"events"`
	DeploymentStatus   *DeploymentStatus    `json:"deployment_status,omitempty"`
	LoadBalancerIssues []LoadBalancerIssues `json:"load_balancer_issues"`
	Failures           []ecstypes.Failure   `json:"failures,omitempty"`
	ServiceError       string               `json:"service_error,omitempty"`
	RawData            ServiceEventsRawData `json:"raw_data"`
}

// ServiceEventsRawData carries the unmodified service description.
type ServiceEventsRawData struct {
	Service *ecstypes.Service `json:"service,omitempty"`
}

// ServiceEvent is one entry of the service's event log.
type ServiceEvent struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	ID        string `json:"id"`
}

// DeploymentStatus summarizes the rollout state. More than one entry in
// PreviousDeployments means old task sets are still draining, a typical
// sign of a deployment that cannot stabilize.
type DeploymentStatus struct {
	ActiveDeployment    *ecstypes.Deployment  `json:"active_deployment"`
	PreviousDeployments []ecstypes.Deployment `json:"previous_deployments"`
	Count               int                   `json:"count"`
}

// LoadBalancerIssues groups the problems found on one service load
// balancer binding.
type LoadBalancerIssues struct {
	LoadBalancer ecstypes.LoadBalancer `json:"load_balancer"`
	Issues       []LoadBalancerIssue   `json:"issues"`
}

// LoadBalancerIssue is a single finding. Type is one of
// unhealthy_targets, port_mismatch, target_group_error or
// health_check_error; the remaining fields depend on the type.
type LoadBalancerIssue struct {
	Type            string                             `json:"type"`
	Count           int                                `json:"count,omitempty"`
	Details         []elbtypes.TargetHealthDescription `json:"details,omitempty"`
	ContainerPort   *int32                             `json:"container_port,omitempty"`
	TargetGroupPort *int32                             `json:"target_group_port,omitempty"`
	Error           string                             `json:"error,omitempty"`
}

// ServiceEventsCollector inspects one ECS service.
type ServiceEventsCollector struct {
	ecs    awsapi.ECSAPI
	elb    awsapi.ELBAPI
	logger *logging.Logger
}

// NewServiceEvents returns a collector backed by the given clients.
func NewServiceEvents(ecsAPI awsapi.ECSAPI, elbAPI awsapi.ELBAPI) *ServiceEventsCollector {
	return &ServiceEventsCollector{
		ecs:    ecsAPI,
		elb:    elbAPI,
		logger: logging.GetLogger("evidence"),
	}
}

// Collect describes the service and returns its events inside window,
// the deployment rollout state and load balancer findings. Target group
// lookups fail per load balancer; one broken target group never hides
// the findings of another.
func (c *ServiceEventsCollector) Collect(ctx context.Context, clusterName, serviceName string, window timewindow.Window) *ServiceEventsResult {
	res := &ServiceEventsResult{
		Envelope:           diagnosis.Success(),
		Events:             []ServiceEvent{},
		LoadBalancerIssues: []LoadBalancerIssues{},
	}

	out, err := c.ecs.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(clusterName),
		Services: []string{serviceName},
	})
	if err != nil {
		res.ServiceError = err.Error()
		switch {
		case awsapi.IsClusterNotFound(err):
			res.Envelope = diagnosis.NotFound(fmt.Sprintf("Cluster '%s' does not exist", clusterName))
		case awsapi.IsServiceNotFound(err):
			res.Envelope = diagnosis.NotFound(fmt.Sprintf("Service '%s' does not exist in cluster '%s'", serviceName, clusterName))
		default:
			res.Status = diagnosis.StatusWarning
		}
		return res
	}
	res.Failures = out.Failures

	if len(out.Services) == 0 {
		res.Envelope = diagnosis.NotFound(fmt.Sprintf("Service '%s' does not exist in cluster '%s'", serviceName, clusterName))
		return res
	}
	service := out.Services[0]
	if aws.ToString(service.Status) == "INACTIVE" {
		res.Envelope = diagnosis.NotFound(fmt.Sprintf("Service '%s' is INACTIVE", serviceName))
		return res
	}

	res.ServiceExists = true
	res.ServiceStatus = aws.ToString(service.Status)
	res.RawData.Service = &service
	res.DeploymentStatus = deploymentStatus(service)

	for _, event := range service.Events {
		if event.CreatedAt == nil || !window.Contains(*event.CreatedAt) {
			continue
		}
		entry := ServiceEvent{
			Message:   aws.ToString(event.Message),
			Timestamp: diagnosis.FormatTime(*event.CreatedAt),
			ID:        "unknown",
		}
		if event.Id != nil {
			entry.ID = *event.Id
		}
		res.Events = append(res.Events, entry)
	}

	degraded := false
	for _, lb := range service.LoadBalancers {
		if lb.TargetGroupArn == nil {
			continue
		}
		issues := c.checkLoadBalancer(ctx, lb)
		if len(issues) == 0 {
			continue
		}
		res.LoadBalancerIssues = append(res.LoadBalancerIssues, LoadBalancerIssues{
			LoadBalancer: lb,
			Issues:       issues,
		})
		for _, issue := range issues {
			if issue.Error != "" {
				degraded = true
			}
		}
	}
	if degraded {
		res.Status = diagnosis.StatusWarning
	}
	return res
}

func deploymentStatus(service ecstypes.Service) *DeploymentStatus {
	status := &DeploymentStatus{
		PreviousDeployments: []ecstypes.Deployment{},
		Count:               len(service.Deployments),
	}
	for _, deployment := range service.Deployments {
		switch aws.ToString(deployment.Status) {
		case "PRIMARY":
			if status.ActiveDeployment == nil {
				d := deployment
				status.ActiveDeployment = &d
			}
		case "ACTIVE":
			status.PreviousDeployments = append(status.PreviousDeployments, deployment)
		}
	}
	return status
}

// checkLoadBalancer reports unhealthy targets and a container/target
// group port mismatch for one service load balancer binding. A target
// with no health state at all counts as unhealthy.
func (c *ServiceEventsCollector) checkLoadBalancer(ctx context.Context, lb ecstypes.LoadBalancer) []LoadBalancerIssue {
	var issues []LoadBalancerIssue

	health, err := c.elb.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{
		TargetGroupArn: lb.TargetGroupArn,
	})
	if err != nil {
		c.logger.Warn("failed to describe target health for %s: %v", aws.ToString(lb.TargetGroupArn), err)
		return append(issues, LoadBalancerIssue{Type: "health_check_error", Error: err.Error()})
	}

	var unhealthy []elbtypes.TargetHealthDescription
	for _, target := range health.TargetHealthDescriptions {
		if target.TargetHealth == nil || target.TargetHealth.State != elbtypes.TargetHealthStateEnumHealthy {
			unhealthy = append(unhealthy, target)
		}
	}
	if len(unhealthy) > 0 {
		issues = append(issues, LoadBalancerIssue{
			Type:    "unhealthy_targets",
			Count:   len(unhealthy),
			Details: unhealthy,
		})
	}

	if lb.ContainerPort == nil {
		return issues
	}
	groups, err := c.elb.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{
		TargetGroupArns: []string{aws.ToString(lb.TargetGroupArn)},
	})
	if err != nil {
		return append(issues, LoadBalancerIssue{Type: "target_group_error", Error: err.Error()})
	}
	if len(groups.TargetGroups) > 0 {
		port := groups.TargetGroups[0].Port
		if port != nil && *port != *lb.ContainerPort {
			issues = append(issues, LoadBalancerIssue{
				Type:            "port_mismatch",
				ContainerPort:   lb.ContainerPort,
				TargetGroupPort: port,
			})
		}
	}
	return issues
}
