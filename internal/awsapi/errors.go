package awsapi

import (
	"errors"
	"strings"

	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/smithy-go"
)

// ErrorCode extracts the service error code from an API error, or
// returns an empty string for transport and context errors.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// ErrorMessage extracts the service error message when present and
// falls back to the plain error text otherwise.
func ErrorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorMessage()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsThrottling reports whether the call was rejected by rate limiting.
func IsThrottling(err error) bool {
	switch ErrorCode(err) {
	case "Throttling", "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded":
		return true
	}
	return false
}

// IsAccessDenied reports whether the call failed authorization.
func IsAccessDenied(err error) bool {
	switch ErrorCode(err) {
	case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
		return true
	}
	return false
}

// IsClusterNotFound reports whether a container orchestrator call
// referenced a cluster that does not exist.
func IsClusterNotFound(err error) bool {
	var notFound *ecstypes.ClusterNotFoundException
	return errors.As(err, &notFound)
}

// IsServiceNotFound reports whether a service lookup referenced a
// service that does not exist.
func IsServiceNotFound(err error) bool {
	var notFound *ecstypes.ServiceNotFoundException
	return errors.As(err, &notFound)
}

// IsRepositoryNotFound reports whether an image registry call
// referenced a missing repository.
func IsRepositoryNotFound(err error) bool {
	var notFound *ecrtypes.RepositoryNotFoundException
	return errors.As(err, &notFound)
}

// IsImageNotFound reports whether an image lookup referenced a tag
// that does not exist in its repository.
func IsImageNotFound(err error) bool {
	var notFound *ecrtypes.ImageNotFoundException
	return errors.As(err, &notFound)
}

// IsLogResourceNotFound reports whether a log call referenced a
// missing log group or stream.
func IsLogResourceNotFound(err error) bool {
	var notFound *cwltypes.ResourceNotFoundException
	return errors.As(err, &notFound)
}

// IsStackNotFound reports whether a stack describe call referenced a
// stack that does not exist. The stack manager signals this through a
// generic validation error rather than a modeled exception type.
func IsStackNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.ErrorCode() != "ValidationError" {
		return false
	}
	return strings.Contains(apiErr.ErrorMessage(), "does not exist")
}
