package evidence

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/diagnosis"
	"github.com/moolen/flare/internal/logging"
)

// StackStatusResult reports the state of one CloudFormation stack, its
// per-resource failures and the raw event history. When the stack does
// not exist the collector scans for previously deleted stacks of the
// same name, since a rolled-back-and-deleted stack is a common end
// state of a failed first deployment.
type StackStatusResult struct {
	diagnosis.Envelope

	StackExists    bool                            `json:"stack_exists"`
	StackStatus    string                          `json:"stack_status,omitempty"`
	Resources      []cfntypes.StackResourceSummary `json:"resources"`
	FailureReasons []StackFailure                  `json:"failure_reasons"`
	RawEvents      []cfntypes.StackEvent           `json:"raw_events"`
	ResourcesError string                          `json:"resources_error,omitempty"`
	EventsError    string                          `json:"events_error,omitempty"`
	DeletedStacks  []cfntypes.StackSummary         `json:"deleted_stacks,omitempty"`
	Note           string                          `json:"note,omitempty"`
	ListError      string                          `json:"list_error,omitempty"`
}

// StackFailure is one resource that ended in a FAILED state.
type StackFailure struct {
	LogicalID    string `json:"logical_id"`
	PhysicalID   string `json:"physical_id"`
	ResourceType string `json:"resource_type"`
	Status       string `json:"status"`
	Reason       string `json:"reason"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// StackStatusCollector inspects CloudFormation stacks.
type StackStatusCollector struct {
	cfn    awsapi.CloudFormationAPI
	logger *logging.Logger
}

// NewStackStatus returns a collector backed by the given client.
func NewStackStatus(cfn awsapi.CloudFormationAPI) *StackStatusCollector {
	return &StackStatusCollector{
		cfn:    cfn,
		logger: logging.GetLogger("evidence"),
	}
}

// Collect describes stackName and gathers its resources and events.
// Resource and event queries fail independently; a failure of either
// degrades the result to warning but never discards the other half.
func (c *StackStatusCollector) Collect(ctx context.Context, stackName string) *StackStatusResult {
	res := &StackStatusResult{
		Envelope:       diagnosis.Success(),
		Resources:      []cfntypes.StackResourceSummary{},
		FailureReasons: []StackFailure{},
		RawEvents:      []cfntypes.StackEvent{},
	}

	out, err := c.cfn.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if awsapi.IsStackNotFound(err) {
			res.Envelope = diagnosis.NotFound(fmt.Sprintf("Stack '%s' does not exist", stackName))
			c.collectDeletedStacks(ctx, stackName, res)
			return res
		}
		res.Envelope = diagnosis.Errorf("Error describing stack '%s': %v", stackName, err)
		return res
	}
	if len(out.Stacks) == 0 {
		res.Envelope = diagnosis.NotFound(fmt.Sprintf("Stack '%s' does not exist", stackName))
		c.collectDeletedStacks(ctx, stackName, res)
		return res
	}

	res.StackExists = true
	res.StackStatus = string(out.Stacks[0].StackStatus)

	c.collectResources(ctx, stackName, res)
	c.collectEvents(ctx, stackName, res)
	if res.ResourcesError != "" || res.EventsError != "" {
		res.Status = diagnosis.StatusWarning
	}
	return res
}

func (c *StackStatusCollector) collectResources(ctx context.Context, stackName string, res *StackStatusResult) {
	paginator := cloudformation.NewListStackResourcesPaginator(c.cfn, &cloudformation.ListStackResourcesInput{
		StackName: aws.String(stackName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.logger.Warn("failed to list resources of stack %s: %v", stackName, err)
			res.ResourcesError = err.Error()
			return
		}
		for _, resource := range page.StackResourceSummaries {
			res.Resources = append(res.Resources, resource)
			status := string(resource.ResourceStatus)
			if !strings.HasSuffix(status, "FAILED") {
				continue
			}
			failure := StackFailure{
				LogicalID:    aws.ToString(resource.LogicalResourceId),
				PhysicalID:   "N/A",
				ResourceType: aws.ToString(resource.ResourceType),
				Status:       status,
				Reason:       "No reason provided",
			}
			if resource.PhysicalResourceId != nil {
				failure.PhysicalID = *resource.PhysicalResourceId
			}
			if resource.ResourceStatusReason != nil {
				failure.Reason = *resource.ResourceStatusReason
			}
			res.FailureReasons = append(res.FailureReasons, failure)
		}
	}
}

// collectEvents folds event-level failures into FailureReasons for
// resources the summary listing did not already report, typically ones
// that failed and were then rolled back out of the stack.
func (c *StackStatusCollector) collectEvents(ctx context.Context, stackName string, res *StackStatusResult) {
	recorded := map[string]bool{}
	for _, failure := range res.FailureReasons {
		recorded[failure.LogicalID] = true
	}

	paginator := cloudformation.NewDescribeStackEventsPaginator(c.cfn, &cloudformation.DescribeStackEventsInput{
		StackName: aws.String(stackName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.logger.Warn("failed to describe events of stack %s: %v", stackName, err)
			res.EventsError = err.Error()
			return
		}
		for _, event := range page.StackEvents {
			res.RawEvents = append(res.RawEvents, event)

			status := string(event.ResourceStatus)
			logicalID := aws.ToString(event.LogicalResourceId)
			if !strings.HasSuffix(status, "FAILED") || event.ResourceStatusReason == nil || recorded[logicalID] {
				continue
			}
			recorded[logicalID] = true
			failure := StackFailure{
				LogicalID:    logicalID,
				PhysicalID:   "N/A",
				ResourceType: aws.ToString(event.ResourceType),
				Status:       status,
				Reason:       *event.ResourceStatusReason,
			}
			if event.PhysicalResourceId != nil && *event.PhysicalResourceId != "" {
				failure.PhysicalID = *event.PhysicalResourceId
			}
			if event.Timestamp != nil {
				failure.Timestamp = diagnosis.FormatTime(*event.Timestamp)
			}
			res.FailureReasons = append(res.FailureReasons, failure)
		}
	}
}

// collectDeletedStacks looks for DELETE_COMPLETE stacks with the exact
// same name. List failures are recorded but never escalate the result
// beyond the not_found already set.
func (c *StackStatusCollector) collectDeletedStacks(ctx context.Context, stackName string, res *StackStatusResult) {
	paginator := cloudformation.NewListStacksPaginator(c.cfn, &cloudformation.ListStacksInput{
		StackStatusFilter: []cfntypes.StackStatus{cfntypes.StackStatusDeleteComplete},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.logger.Warn("failed to list deleted stacks: %v", err)
			res.ListError = err.Error()
			return
		}
		for _, summary := range page.StackSummaries {
			if aws.ToString(summary.StackName) == stackName {
				res.DeletedStacks = append(res.DeletedStacks, summary)
			}
		}
	}
	if len(res.DeletedStacks) > 0 {
		res.Note = fmt.Sprintf("Found %d deleted stacks with name '%s'", len(res.DeletedStacks), stackName)
	}
}
