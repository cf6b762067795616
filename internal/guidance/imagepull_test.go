package guidance_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/flare/internal/awsapi/awsapitest"
	"github.com/moolen/flare/internal/diagnosis"
)

func TestDetectImagePullFailuresRecommendsFix(t *testing.T) {
	engine := newEngine(t, nil, ecsWithBrokenTaskDefinition(), ecrRepositoryMissing())

	report := engine.DetectImagePullFailures(context.Background(), "web-app")

	// Broken references are findings, not a failure of the check itself.
	assert.Equal(t, diagnosis.StatusSuccess, report.Status)
	require.Len(t, report.ImageIssues, 1)
	assert.Equal(t, brokenImage, report.ImageIssues[0].Image)
	assert.Contains(t, report.Assessment, "container image")

	require.Len(t, report.Recommendations, 1)
	assert.Contains(t, report.Recommendations[0], "Update the image reference")
	assert.Contains(t, report.Recommendations[0], brokenImage)
	assert.Contains(t, report.Recommendations[0], "Repository web-app not found")
}

func TestDetectImagePullFailuresAllImagesValid(t *testing.T) {
	ecsFake := ecsWithBrokenTaskDefinition()
	ecsFake.DescribeTaskDefinitionFunc = func(_ context.Context, params *ecs.DescribeTaskDefinitionInput) (*ecs.DescribeTaskDefinitionOutput, error) {
		return &ecs.DescribeTaskDefinitionOutput{TaskDefinition: &ecstypes.TaskDefinition{
			TaskDefinitionArn: params.TaskDefinition,
			Family:            aws.String("web-app"),
			ContainerDefinitions: []ecstypes.ContainerDefinition{
				{Name: aws.String("web"), Image: aws.String(brokenImage)},
				{Name: aws.String("sidecar"), Image: aws.String("docker.io/library/envoy:v1.28")},
			},
		}}, nil
	}
	ecrFake := &awsapitest.ECR{
		DescribeRepositoriesFunc: func(_ context.Context, _ *ecr.DescribeRepositoriesInput) (*ecr.DescribeRepositoriesOutput, error) {
			return &ecr.DescribeRepositoriesOutput{}, nil
		},
		DescribeImagesFunc: func(_ context.Context, _ *ecr.DescribeImagesInput) (*ecr.DescribeImagesOutput, error) {
			return &ecr.DescribeImagesOutput{}, nil
		},
	}
	engine := newEngine(t, nil, ecsFake, ecrFake)

	report := engine.DetectImagePullFailures(context.Background(), "web-app")

	// The external sidecar image is unverifiable, not broken.
	assert.Equal(t, diagnosis.StatusSuccess, report.Status)
	assert.Empty(t, report.ImageIssues)
	assert.Equal(t, "All container images verified for application 'web-app'. No image pull issues detected.", report.Assessment)
	assert.Empty(t, report.Recommendations)
}

func TestDetectImagePullFailuresNoTaskDefinitions(t *testing.T) {
	engine := newEngine(t, nil, nil, nil)

	report := engine.DetectImagePullFailures(context.Background(), "web-app")

	assert.Equal(t, diagnosis.StatusNotFound, report.Status)
	assert.Equal(t, "No task definitions found for application 'web-app'", report.Message)
	assert.Contains(t, report.Assessment, "Cannot check container images")
	require.Len(t, report.Recommendations, 1)
}
