package guidance_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/awsapi/awsapitest"
	"github.com/moolen/flare/internal/correlation"
	"github.com/moolen/flare/internal/diagnosis"
	"github.com/moolen/flare/internal/guidance"
	"github.com/moolen/flare/internal/imagecheck"
	"github.com/moolen/flare/internal/logging"
)

const brokenImage = "123456789012.dkr.ecr.us-east-1.amazonaws.com/web-app:latest"

func newEngine(t *testing.T, cfnFake *awsapitest.CloudFormation, ecsFake *awsapitest.ECS, ecrFake *awsapitest.ECR) *guidance.Engine {
	t.Helper()
	if cfnFake == nil {
		cfnFake = &awsapitest.CloudFormation{}
	}
	if ecsFake == nil {
		ecsFake = &awsapitest.ECS{}
	}
	if ecrFake == nil {
		ecrFake = &awsapitest.ECR{}
	}
	cache, err := awsapi.NewTaskDefinitionCache(ecsFake, awsapi.DefaultTaskDefinitionCacheConfig(), logging.GetLogger("test"))
	require.NoError(t, err)
	correlator := correlation.New(ecsFake, &awsapitest.ELB{}, cache, 4)
	validator := imagecheck.New(ecrFake, 4)
	return guidance.NewEngine(cfnFake, ecsFake, correlator, validator)
}

func stackNotFound() *awsapitest.CloudFormation {
	return &awsapitest.CloudFormation{
		DescribeStacksFunc: func(_ context.Context, params *cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error) {
			return nil, &smithy.GenericAPIError{
				Code:    "ValidationError",
				Message: "Stack with id " + aws.ToString(params.StackName) + " does not exist",
			}
		},
	}
}

func stackWithStatus(status cfntypes.StackStatus) *awsapitest.CloudFormation {
	return &awsapitest.CloudFormation{
		DescribeStacksFunc: func(_ context.Context, params *cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error) {
			return &cloudformation.DescribeStacksOutput{Stacks: []cfntypes.Stack{{
				StackName:   params.StackName,
				StackStatus: status,
			}}}, nil
		},
	}
}

// ecsWithBrokenTaskDefinition serves one task definition family whose
// only container references brokenImage.
func ecsWithBrokenTaskDefinition() *awsapitest.ECS {
	return &awsapitest.ECS{
		ListTaskDefinitionFamiliesFunc: func(_ context.Context, _ *ecs.ListTaskDefinitionFamiliesInput) (*ecs.ListTaskDefinitionFamiliesOutput, error) {
			return &ecs.ListTaskDefinitionFamiliesOutput{Families: []string{"web-app"}}, nil
		},
		ListTaskDefinitionsFunc: func(_ context.Context, params *ecs.ListTaskDefinitionsInput) (*ecs.ListTaskDefinitionsOutput, error) {
			if aws.ToString(params.FamilyPrefix) == "web-app" {
				return &ecs.ListTaskDefinitionsOutput{TaskDefinitionArns: []string{
					"arn:aws:ecs:us-east-1:123456789012:task-definition/web-app:3",
				}}, nil
			}
			return &ecs.ListTaskDefinitionsOutput{}, nil
		},
		DescribeTaskDefinitionFunc: func(_ context.Context, params *ecs.DescribeTaskDefinitionInput) (*ecs.DescribeTaskDefinitionOutput, error) {
			return &ecs.DescribeTaskDefinitionOutput{TaskDefinition: &ecstypes.TaskDefinition{
				TaskDefinitionArn: params.TaskDefinition,
				Family:            aws.String("web-app"),
				ContainerDefinitions: []ecstypes.ContainerDefinition{
					{Name: aws.String("web"), Image: aws.String(brokenImage)},
				},
			}}, nil
		},
	}
}

func ecrRepositoryMissing() *awsapitest.ECR {
	return &awsapitest.ECR{
		DescribeRepositoriesFunc: func(_ context.Context, _ *ecr.DescribeRepositoriesInput) (*ecr.DescribeRepositoriesOutput, error) {
			return nil, &ecrtypes.RepositoryNotFoundException{Message: aws.String("repository not found")}
		},
	}
}

func ecsWithActiveCluster() *awsapitest.ECS {
	return &awsapitest.ECS{
		ListClustersFunc: func(_ context.Context, _ *ecs.ListClustersInput) (*ecs.ListClustersOutput, error) {
			return &ecs.ListClustersOutput{ClusterArns: []string{
				"arn:aws:ecs:us-east-1:123456789012:cluster/web-app-cluster",
			}}, nil
		},
		DescribeClustersFunc: func(_ context.Context, _ *ecs.DescribeClustersInput) (*ecs.DescribeClustersOutput, error) {
			return &ecs.DescribeClustersOutput{Clusters: []ecstypes.Cluster{{
				ClusterName:                       aws.String("web-app-cluster"),
				Status:                            aws.String("ACTIVE"),
				RunningTasksCount:                 2,
				PendingTasksCount:                 1,
				ActiveServicesCount:               3,
				RegisteredContainerInstancesCount: 0,
			}}}, nil
		},
	}
}

func TestTroubleshootStackAbsentEmptyWorld(t *testing.T) {
	engine := newEngine(t, stackNotFound(), nil, nil)

	res := engine.Troubleshoot(context.Background(), "web-app", "")

	assert.Equal(t, diagnosis.StatusSuccess, res.Status)
	assert.Equal(t, "CloudFormation stack 'web-app' does not exist. Infrastructure deployment may have failed or not been attempted.", res.Assessment)
	require.Len(t, res.DiagnosticPath, 1)
	step := res.DiagnosticPath[0]
	assert.Equal(t, "fetch_cloudformation_status", step.Tool)
	assert.Equal(t, "web-app", step.Args["stack_id"])
	assert.Equal(t, "Check if any stack with this name exists in other states", step.Reason)
	assert.Equal(t, 0, step.Rank)
	assert.Empty(t, res.RawData.CloudFormationStatus)
	assert.Empty(t, res.DetectedSymptoms.Infrastructure)
}

func TestTroubleshootStackAbsentWithTaskDefinitionsAndImageIssues(t *testing.T) {
	ecsFake := ecsWithBrokenTaskDefinition()
	ecsFake.ListClustersFunc = func(_ context.Context, _ *ecs.ListClustersInput) (*ecs.ListClustersOutput, error) {
		return &ecs.ListClustersOutput{ClusterArns: []string{
			"arn:aws:ecs:us-east-1:123456789012:cluster/web-app-cluster",
		}}, nil
	}
	engine := newEngine(t, stackNotFound(), ecsFake, ecrRepositoryMissing())

	res := engine.Troubleshoot(context.Background(), "web-app", "")

	assert.Equal(t, diagnosis.StatusSuccess, res.Status)
	assert.Equal(t, "CloudFormation stack 'web-app' does not exist. Infrastructure deployment may have failed or not been attempted."+
		" Found 1 related task definitions. Potential container image issues detected.", res.Assessment)

	require.Len(t, res.DiagnosticPath, 3)
	assert.Equal(t, "detect_image_pull_failures", res.DiagnosticPath[0].Tool)
	assert.Contains(t, res.DiagnosticPath[0].Reason, brokenImage)
	assert.Equal(t, "fetch_cloudformation_status", res.DiagnosticPath[1].Tool)
	assert.Equal(t, "ecs_resource_management", res.DiagnosticPath[2].Tool)
	assert.Equal(t, "DescribeClusters", res.DiagnosticPath[2].Args["api_operation"])
	assert.Equal(t, "Check related cluster: web-app-cluster", res.DiagnosticPath[2].Reason)
	for i, step := range res.DiagnosticPath {
		assert.Equal(t, i, step.Rank)
	}

	// The matched cluster could not be described, so it surfaces as an
	// infrastructure symptom rather than an anchor for the path.
	require.Len(t, res.DetectedSymptoms.Infrastructure, 1)
	assert.Equal(t, "Found similar clusters that may be related: web-app-cluster", res.DetectedSymptoms.Infrastructure[0])
	require.Len(t, res.DetectedSymptoms.Task, 2)
	assert.Equal(t, "Potential container image pull failure detected", res.DetectedSymptoms.Task[0])
	assert.Equal(t, "Invalid container image references: "+brokenImage, res.DetectedSymptoms.Task[1])
}

func TestTroubleshootRollbackWithImageIssuePutsStackFirst(t *testing.T) {
	engine := newEngine(t, stackWithStatus(cfntypes.StackStatusRollbackComplete), ecsWithBrokenTaskDefinition(), ecrRepositoryMissing())

	res := engine.Troubleshoot(context.Background(), "web-app", "")

	assert.Equal(t, "CloudFormation stack 'web-app' exists but is in a failed state: ROLLBACK_COMPLETE.", res.Assessment)
	assert.Equal(t, "ROLLBACK_COMPLETE", res.RawData.CloudFormationStatus)

	require.Len(t, res.DiagnosticPath, 2)
	assert.Equal(t, "fetch_cloudformation_status", res.DiagnosticPath[0].Tool)
	assert.Equal(t, "Analyze stack failure events to determine root cause", res.DiagnosticPath[0].Reason)
	assert.Equal(t, "detect_image_pull_failures", res.DiagnosticPath[1].Tool)
	assert.Contains(t, res.DiagnosticPath[1].Reason, brokenImage)
	assert.Equal(t, 1, res.DiagnosticPath[1].Rank)
}

func TestTroubleshootHealthyStackAndClusterPlansEvidenceSweep(t *testing.T) {
	engine := newEngine(t, stackWithStatus(cfntypes.StackStatusCreateComplete), ecsWithActiveCluster(), nil)

	res := engine.Troubleshoot(context.Background(), "web-app", "")

	assert.Equal(t, "CloudFormation stack 'web-app' and ECS cluster 'web-app-cluster' both exist.", res.Assessment)

	require.Len(t, res.DiagnosticPath, 3)
	assert.Equal(t, "fetch_task_failures", res.DiagnosticPath[0].Tool)
	assert.Equal(t, "fetch_service_events", res.DiagnosticPath[1].Tool)
	assert.Equal(t, "fetch_task_logs", res.DiagnosticPath[2].Tool)
	for i, step := range res.DiagnosticPath {
		assert.Equal(t, i, step.Rank)
		assert.Equal(t, "web-app", step.Args["app_name"])
		assert.Equal(t, "web-app-cluster", step.Args["cluster_name"])
		assert.Equal(t, 3600, step.Args["time_window"])
	}
	assert.Equal(t, "web-app", res.DiagnosticPath[1].Args["service_name"])

	require.Len(t, res.RawData.Clusters, 1)
	info := res.RawData.Clusters[0]
	assert.Equal(t, "web-app-cluster", info.Name)
	assert.Equal(t, "ACTIVE", info.Status)
	assert.True(t, info.Exists)
	assert.Equal(t, int32(2), info.RunningTasksCount)
	assert.Equal(t, int32(3), info.ActiveServicesCount)
}

func TestTroubleshootCreateCompleteWithoutCluster(t *testing.T) {
	engine := newEngine(t, stackWithStatus(cfntypes.StackStatusCreateComplete), nil, nil)

	res := engine.Troubleshoot(context.Background(), "web-app", "")

	assert.Equal(t, "CloudFormation stack 'web-app' exists and is complete, but ECS cluster 'web-app-cluster' was not found.", res.Assessment)
	require.Len(t, res.DiagnosticPath, 1)
	assert.Equal(t, "fetch_cloudformation_status", res.DiagnosticPath[0].Tool)
	assert.Equal(t, "Verify stack resources were properly created", res.DiagnosticPath[0].Reason)
}

func TestTroubleshootInProgressWithClusterAddsTaskFailures(t *testing.T) {
	engine := newEngine(t, stackWithStatus(cfntypes.StackStatusUpdateInProgress), ecsWithActiveCluster(), nil)

	res := engine.Troubleshoot(context.Background(), "web-app", "")

	assert.Equal(t, "CloudFormation stack 'web-app' is currently being created/updated: UPDATE_IN_PROGRESS.", res.Assessment)
	require.Len(t, res.DiagnosticPath, 2)
	assert.Equal(t, "fetch_cloudformation_status", res.DiagnosticPath[0].Tool)
	assert.Equal(t, "Monitor stack creation/update progress", res.DiagnosticPath[0].Reason)
	assert.Equal(t, "fetch_task_failures", res.DiagnosticPath[1].Tool)
	assert.Equal(t, "Check for task failures during deployment", res.DiagnosticPath[1].Reason)
}

func TestTroubleshootUnmatchedStatusGetsDefaultAssessment(t *testing.T) {
	engine := newEngine(t, stackWithStatus(cfntypes.StackStatusUpdateComplete), nil, nil)

	res := engine.Troubleshoot(context.Background(), "web-app", "")

	assert.Equal(t, "CloudFormation stack 'web-app' exists with status UPDATE_COMPLETE.", res.Assessment)
	assert.Empty(t, res.DiagnosticPath)
	assert.Equal(t, diagnosis.StatusSuccess, res.Status)
}

func TestTroubleshootStackProbeErrorIsFatal(t *testing.T) {
	cfnFake := &awsapitest.CloudFormation{
		DescribeStacksFunc: func(_ context.Context, _ *cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized"}
		},
	}
	engine := newEngine(t, cfnFake, nil, nil)

	res := engine.Troubleshoot(context.Background(), "web-app", "")

	assert.Equal(t, diagnosis.StatusError, res.Status)
	assert.Contains(t, res.Error, "not authorized")
	assert.Contains(t, res.Assessment, "Error analyzing deployment:")
	assert.Empty(t, res.DiagnosticPath)
}

func TestTroubleshootClassifiesSymptomsDescription(t *testing.T) {
	engine := newEngine(t, stackNotFound(), nil, nil)

	res := engine.Troubleshoot(context.Background(), "web-app", "Deployment failing with container timeout")

	assert.Equal(t, "Deployment failing with container timeout", res.RawData.SymptomsDescription)
	assert.Equal(t, []string{"Mentioned 'deploy'"}, res.DetectedSymptoms.Infrastructure)
	assert.Equal(t, []string{"Mentioned 'deployment'"}, res.DetectedSymptoms.Service)
	assert.Equal(t, []string{"Mentioned 'container'", "Mentioned 'failing'"}, res.DetectedSymptoms.Task)
	assert.Equal(t, []string{"Mentioned 'timeout'"}, res.DetectedSymptoms.Network)
	assert.Empty(t, res.DetectedSymptoms.Application)
}
