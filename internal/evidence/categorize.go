// Package evidence implements the independently fallible collectors
// that query one external source each and return best-effort structured
// findings. Collectors never fail hard: missing subjects come back as
// not_found, partial source failures as warning with per-source error
// fields, and only a failure of the primary lookup itself yields an
// error result.
package evidence

import (
	"strings"
)

// FailureCategory labels the probable cause of one container failure.
type FailureCategory string

const (
	CategoryImagePullFailure          FailureCategory = "image_pull_failure"
	CategoryResourceConstraint        FailureCategory = "resource_constraint"
	CategoryOutOfMemory               FailureCategory = "out_of_memory"
	CategorySegmentationFault         FailureCategory = "segmentation_fault"
	CategoryApplicationError          FailureCategory = "application_error"
	CategoryDependentContainerStopped FailureCategory = "dependent_container_stopped"
	CategoryOther                     FailureCategory = "other"
)

// categorizationRules is evaluated top to bottom; the first matching
// predicate decides the category. Rule order is load-bearing: an OOM
// kill whose reason text mentions an image pull error is still an image
// pull failure.
var categorizationRules = []struct {
	category FailureCategory
	match    func(exitCode *int32, reason string) bool
}{
	{CategoryImagePullFailure, func(_ *int32, reason string) bool {
		return strings.Contains(reason, "CannotPullContainerError") || strings.Contains(reason, "ImagePull")
	}},
	{CategoryResourceConstraint, func(_ *int32, reason string) bool {
		lower := strings.ToLower(reason)
		return strings.Contains(lower, "resource") &&
			(strings.Contains(lower, "constraint") || strings.Contains(lower, "exceed"))
	}},
	{CategoryOutOfMemory, func(exitCode *int32, _ string) bool {
		return exitCode != nil && *exitCode == 137
	}},
	{CategorySegmentationFault, func(exitCode *int32, _ string) bool {
		return exitCode != nil && *exitCode == 139
	}},
	{CategoryApplicationError, func(exitCode *int32, _ string) bool {
		return exitCode != nil && *exitCode != 0
	}},
	{CategoryDependentContainerStopped, func(_ *int32, reason string) bool {
		return strings.Contains(reason, "Essential container")
	}},
}

// Categorize assigns exactly one failure category to a container's
// (exit code, reason text) signal.
func Categorize(exitCode *int32, reason string) FailureCategory {
	for _, rule := range categorizationRules {
		if rule.match(exitCode, reason) {
			return rule.category
		}
	}
	return CategoryOther
}
