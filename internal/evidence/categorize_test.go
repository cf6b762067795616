package evidence_test

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"

	"github.com/moolen/flare/internal/evidence"
)

func TestCategorizeOOMKillWithoutReason(t *testing.T) {
	got := evidence.Categorize(aws.Int32(137), "")
	assert.Equal(t, evidence.CategoryOutOfMemory, got)
}

func TestCategorizeImagePullWinsOverLaterRules(t *testing.T) {
	// The reason mentions both a pull error and an OOM kill; the first
	// matching rule decides.
	reason := "CannotPullContainerError: pull failed, container killed due to OutOfMemory"
	got := evidence.Categorize(aws.Int32(137), reason)
	assert.Equal(t, evidence.CategoryImagePullFailure, got)
}

func TestCategorizeTable(t *testing.T) {
	tests := []struct {
		name     string
		exitCode *int32
		reason   string
		want     evidence.FailureCategory
	}{
		{"image pull keyword", nil, "ImagePullBackOff", evidence.CategoryImagePullFailure},
		{"resource constraint", nil, "RESOURCE:MEMORY constraint not satisfied", evidence.CategoryResourceConstraint},
		{"resource limit exceeded", nil, "task resource limit exceeded", evidence.CategoryResourceConstraint},
		{"oom kill", aws.Int32(137), "OutOfMemoryError: Container killed", evidence.CategoryOutOfMemory},
		{"segfault", aws.Int32(139), "", evidence.CategorySegmentationFault},
		{"nonzero exit", aws.Int32(1), "", evidence.CategoryApplicationError},
		{"essential container stopped", aws.Int32(0), "Essential container in task exited", evidence.CategoryDependentContainerStopped},
		{"clean exit", aws.Int32(0), "", evidence.CategoryOther},
		{"no signal at all", nil, "", evidence.CategoryOther},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, evidence.Categorize(tc.exitCode, tc.reason))
		})
	}
}
