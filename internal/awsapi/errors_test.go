package awsapi_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	"github.com/moolen/flare/internal/awsapi"
)

func TestErrorCode(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Rate exceeded"}
	assert.Equal(t, "ThrottlingException", awsapi.ErrorCode(apiErr))
	assert.Equal(t, "ThrottlingException", awsapi.ErrorCode(fmt.Errorf("operation error ECS: ListClusters, %w", apiErr)))
	assert.Equal(t, "", awsapi.ErrorCode(errors.New("dial tcp: connection refused")))
	assert.Equal(t, "", awsapi.ErrorCode(nil))
}

func TestErrorMessage(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "AccessDenied", Message: "User is not authorized"}
	assert.Equal(t, "User is not authorized", awsapi.ErrorMessage(apiErr))
	assert.Equal(t, "dial tcp: connection refused", awsapi.ErrorMessage(errors.New("dial tcp: connection refused")))
	assert.Equal(t, "", awsapi.ErrorMessage(nil))
}

func TestIsThrottling(t *testing.T) {
	for _, code := range []string{"Throttling", "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded"} {
		assert.True(t, awsapi.IsThrottling(&smithy.GenericAPIError{Code: code}), code)
	}
	assert.False(t, awsapi.IsThrottling(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, awsapi.IsThrottling(errors.New("plain error")))
}

func TestIsAccessDenied(t *testing.T) {
	for _, code := range []string{"AccessDenied", "AccessDeniedException", "UnauthorizedOperation"} {
		assert.True(t, awsapi.IsAccessDenied(&smithy.GenericAPIError{Code: code}), code)
	}
	assert.False(t, awsapi.IsAccessDenied(&smithy.GenericAPIError{Code: "ValidationError"}))
}

func TestModeledNotFoundErrors(t *testing.T) {
	wrap := func(err error) error {
		return fmt.Errorf("operation error: %w", err)
	}

	assert.True(t, awsapi.IsClusterNotFound(wrap(&ecstypes.ClusterNotFoundException{Message: aws.String("cluster not found")})))
	assert.False(t, awsapi.IsClusterNotFound(wrap(&ecstypes.ServiceNotFoundException{})))

	assert.True(t, awsapi.IsServiceNotFound(wrap(&ecstypes.ServiceNotFoundException{})))
	assert.True(t, awsapi.IsRepositoryNotFound(wrap(&ecrtypes.RepositoryNotFoundException{})))
	assert.True(t, awsapi.IsImageNotFound(wrap(&ecrtypes.ImageNotFoundException{})))
	assert.True(t, awsapi.IsLogResourceNotFound(wrap(&cwltypes.ResourceNotFoundException{})))
	assert.False(t, awsapi.IsImageNotFound(wrap(&ecrtypes.RepositoryNotFoundException{})))
}

func TestIsStackNotFound(t *testing.T) {
	missing := &smithy.GenericAPIError{
		Code:    "ValidationError",
		Message: "Stack with id web-app does not exist",
	}
	assert.True(t, awsapi.IsStackNotFound(missing))
	assert.True(t, awsapi.IsStackNotFound(fmt.Errorf("operation error CloudFormation: DescribeStacks, %w", missing)))

	otherValidation := &smithy.GenericAPIError{
		Code:    "ValidationError",
		Message: "1 validation error detected",
	}
	assert.False(t, awsapi.IsStackNotFound(otherValidation))
	assert.False(t, awsapi.IsStackNotFound(&smithy.GenericAPIError{Code: "AccessDenied", Message: "does not exist"}))
	assert.False(t, awsapi.IsStackNotFound(errors.New("does not exist")))
}
