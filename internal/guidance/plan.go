package guidance

import (
	"fmt"
	"strings"

	"github.com/moolen/flare/internal/timewindow"
)

// Step is one ranked recommendation in a diagnostic path. Args holds
// the arguments to pass to the named tool verbatim.
type Step struct {
	Tool   string                 `json:"tool"`
	Args   map[string]interface{} `json:"args"`
	Reason string                 `json:"reason"`
	Rank   int                    `json:"rank"`
}

// planInput is the evidence the planner branches on.
type planInput struct {
	appID               string
	stackExists         bool
	stackStatus         string
	clusterExists       bool
	clusterName         string
	relatedClusters     []string
	taskDefinitionCount int
	failingImages       []string
}

// missingClusterName names the cluster an assessment refers to when
// none could be described: the first candidate if correlation found
// any, otherwise the conventional default.
func (in planInput) missingClusterName() string {
	if len(in.relatedClusters) > 0 {
		return in.relatedClusters[0]
	}
	return in.appID + "-cluster"
}

// plan derives the assessment and the ordered diagnostic path from the
// collected evidence. Branches are evaluated top to bottom and exactly
// one applies; step rank equals position in the returned path.
func plan(in planInput) (string, []Step) {
	steps := []Step{}
	var assessment string

	switch {
	case !in.stackExists:
		assessment = fmt.Sprintf("CloudFormation stack '%s' does not exist. Infrastructure deployment may have failed or not been attempted.", in.appID)
		if in.taskDefinitionCount > 0 {
			assessment += fmt.Sprintf(" Found %d related task definitions.", in.taskDefinitionCount)
			if len(in.failingImages) > 0 {
				assessment += " Potential container image issues detected."
				steps = append(steps, imagePullStep(in.appID, "Check for container image pull failures", in.failingImages))
			}
		}
		steps = append(steps, stackStatusStep(in.appID, "Check if any stack with this name exists in other states"))
		if len(in.relatedClusters) > 0 {
			steps = append(steps, Step{
				Tool: "ecs_resource_management",
				Args: map[string]interface{}{
					"api_operation": "DescribeClusters",
					"api_params": map[string]interface{}{
						"clusters": []string{in.relatedClusters[0]},
					},
				},
				Reason: fmt.Sprintf("Check related cluster: %s", in.relatedClusters[0]),
			})
		}

	case strings.Contains(in.stackStatus, "ROLLBACK") || strings.Contains(in.stackStatus, "FAILED"):
		assessment = fmt.Sprintf("CloudFormation stack '%s' exists but is in a failed state: %s.", in.appID, in.stackStatus)
		steps = append(steps, stackStatusStep(in.appID, "Analyze stack failure events to determine root cause"))
		if len(in.failingImages) > 0 {
			steps = append(steps, imagePullStep(in.appID, "Check for container image pull failures that may have caused stack creation failure", in.failingImages))
		}

	case strings.Contains(in.stackStatus, "IN_PROGRESS"):
		assessment = fmt.Sprintf("CloudFormation stack '%s' is currently being created/updated: %s.", in.appID, in.stackStatus)
		steps = append(steps, stackStatusStep(in.appID, "Monitor stack creation/update progress"))
		if in.clusterExists {
			steps = append(steps, taskFailuresStep(in.appID, in.clusterName, "Check for task failures during deployment"))
		}

	case in.stackStatus == "CREATE_COMPLETE" && !in.clusterExists:
		assessment = fmt.Sprintf("CloudFormation stack '%s' exists and is complete, but ECS cluster '%s' was not found.", in.appID, in.missingClusterName())
		steps = append(steps, stackStatusStep(in.appID, "Verify stack resources were properly created"))

	case in.stackStatus == "CREATE_COMPLETE" && in.clusterExists:
		assessment = fmt.Sprintf("CloudFormation stack '%s' and ECS cluster '%s' both exist.", in.appID, in.clusterName)
		if len(in.failingImages) > 0 {
			steps = append(steps, imagePullStep(in.appID, "Check for container image pull failures", in.failingImages))
		}
		steps = append(steps, taskFailuresStep(in.appID, in.clusterName, "Check for recent task failures"))
		steps = append(steps, Step{
			Tool: "fetch_service_events",
			Args: map[string]interface{}{
				"app_name":     in.appID,
				"cluster_name": in.clusterName,
				"service_name": in.appID,
				"time_window":  timewindow.DefaultDurationSeconds,
			},
			Reason: "Analyze service events for issues",
		})
		steps = append(steps, Step{
			Tool: "fetch_task_logs",
			Args: map[string]interface{}{
				"app_name":     in.appID,
				"cluster_name": in.clusterName,
				"time_window":  timewindow.DefaultDurationSeconds,
			},
			Reason: "Analyze application logs for errors",
		})

	default:
		// UPDATE_COMPLETE and other settled statuses need no next step.
		assessment = fmt.Sprintf("CloudFormation stack '%s' exists with status %s.", in.appID, in.stackStatus)
	}

	for i := range steps {
		steps[i].Rank = i
	}
	return assessment, steps
}

func stackStatusStep(appID, reason string) Step {
	return Step{
		Tool:   "fetch_cloudformation_status",
		Args:   map[string]interface{}{"stack_id": appID},
		Reason: reason,
	}
}

func taskFailuresStep(appID, clusterName, reason string) Step {
	return Step{
		Tool: "fetch_task_failures",
		Args: map[string]interface{}{
			"app_name":     appID,
			"cluster_name": clusterName,
			"time_window":  timewindow.DefaultDurationSeconds,
		},
		Reason: reason,
	}
}

// imagePullStep recommends the image pull check and names the failing
// references that triggered it.
func imagePullStep(appID, reason string, failingImages []string) Step {
	if len(failingImages) > 0 {
		reason = fmt.Sprintf("%s (failing images: %s)", reason, strings.Join(failingImages, ", "))
	}
	return Step{
		Tool:   "detect_image_pull_failures",
		Args:   map[string]interface{}{"app_name": appID},
		Reason: reason,
	}
}
