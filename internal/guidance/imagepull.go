package guidance

import (
	"context"
	"fmt"

	"github.com/moolen/flare/internal/diagnosis"
	"github.com/moolen/flare/internal/imagecheck"
)

// ImagePullReport is the outcome of a focused image pull check.
type ImagePullReport struct {
	diagnosis.Envelope
	ImageIssues     []imagecheck.Result `json:"image_issues"`
	Assessment      string              `json:"assessment"`
	Recommendations []string            `json:"recommendations"`
}

// DetectImagePullFailures validates every container image referenced
// by the task definitions related to appID and recommends fixes for
// the ones that fail. Findings are results, not failures: the status
// stays success even when broken references are found.
func (e *Engine) DetectImagePullFailures(ctx context.Context, appID string) *ImagePullReport {
	report := &ImagePullReport{
		Envelope:        diagnosis.Success(),
		ImageIssues:     []imagecheck.Result{},
		Recommendations: []string{},
	}

	taskDefs := e.correlator.RelatedTaskDefinitions(ctx, appID)
	if len(taskDefs) == 0 {
		report.Envelope = diagnosis.NotFound(fmt.Sprintf("No task definitions found for application '%s'", appID))
		report.Assessment = fmt.Sprintf("No task definitions found for application '%s'. Cannot check container images.", appID)
		report.Recommendations = append(report.Recommendations,
			"Verify the application name is correct and task definitions are registered.")
		return report
	}

	results := e.validator.CheckImages(ctx, taskDefs)
	for _, result := range results {
		if result.Exists == imagecheck.ExistenceFalse {
			report.ImageIssues = append(report.ImageIssues, result)
		}
	}

	if len(report.ImageIssues) == 0 {
		report.Assessment = fmt.Sprintf("All container images verified for application '%s'. No image pull issues detected.", appID)
		return report
	}

	report.Assessment = fmt.Sprintf("Found %d container image issue(s) for application '%s'. Broken image references prevent tasks from starting.",
		len(report.ImageIssues), appID)
	for _, issue := range report.ImageIssues {
		recommendation := fmt.Sprintf("Update the image reference '%s' for container '%s' to an image that exists and is accessible", issue.Image, issue.ContainerName)
		if issue.Error != "" {
			recommendation += fmt.Sprintf(" (%s)", issue.Error)
		}
		report.Recommendations = append(report.Recommendations, recommendation+".")
	}
	return report
}
