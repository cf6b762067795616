// Package guidance is the diagnostic entry point: it correlates the
// resources belonging to an application, probes stack and cluster
// state, and turns the combined evidence into a ranked path of
// follow-up checks. The planner recommends which evidence collector to
// run next instead of running them all up front.
package guidance

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/correlation"
	"github.com/moolen/flare/internal/diagnosis"
	"github.com/moolen/flare/internal/imagecheck"
	"github.com/moolen/flare/internal/logging"
	"github.com/moolen/flare/internal/symptoms"
)

// Result is the full troubleshooting assessment for one application.
type Result struct {
	diagnosis.Envelope
	DiagnosticPath   []Step           `json:"diagnostic_path"`
	Assessment       string           `json:"assessment"`
	DetectedSymptoms DetectedSymptoms `json:"detected_symptoms"`
	RawData          RawData          `json:"raw_data"`
}

// DetectedSymptoms groups symptom evidence by diagnostic category. All
// categories are always present, matching how clients consume the
// response.
type DetectedSymptoms struct {
	Infrastructure []string `json:"infrastructure"`
	Service        []string `json:"service"`
	Task           []string `json:"task"`
	Application    []string `json:"application"`
	Network        []string `json:"network"`
}

func newDetectedSymptoms() DetectedSymptoms {
	return DetectedSymptoms{
		Infrastructure: []string{},
		Service:        []string{},
		Task:           []string{},
		Application:    []string{},
		Network:        []string{},
	}
}

// add routes classifier evidence into the matching category bucket.
func (d *DetectedSymptoms) add(category symptoms.Category, evidence ...string) {
	switch category {
	case symptoms.CategoryInfrastructure:
		d.Infrastructure = append(d.Infrastructure, evidence...)
	case symptoms.CategoryService:
		d.Service = append(d.Service, evidence...)
	case symptoms.CategoryTask:
		d.Task = append(d.Task, evidence...)
	case symptoms.CategoryApplication:
		d.Application = append(d.Application, evidence...)
	case symptoms.CategoryNetwork:
		d.Network = append(d.Network, evidence...)
	}
}

// RawData carries the evidence the assessment was derived from, so a
// client can inspect it without re-querying.
type RawData struct {
	RelatedResources     *correlation.Resources     `json:"related_resources"`
	TaskDefinitions      []*ecstypes.TaskDefinition `json:"task_definitions"`
	ImageCheckResults    []imagecheck.Result        `json:"image_check_results"`
	CloudFormationStatus string                     `json:"cloudformation_status,omitempty"`
	Clusters             []ClusterInfo              `json:"clusters"`
	SymptomsDescription  string                     `json:"symptoms_description,omitempty"`
}

// ClusterInfo summarizes one described cluster candidate.
type ClusterInfo struct {
	Name                              string `json:"name"`
	Status                            string `json:"status"`
	Exists                            bool   `json:"exists"`
	RunningTasksCount                 int32  `json:"runningTasksCount"`
	PendingTasksCount                 int32  `json:"pendingTasksCount"`
	ActiveServicesCount               int32  `json:"activeServicesCount"`
	RegisteredContainerInstancesCount int32  `json:"registeredContainerInstancesCount"`
}

// Engine runs the correlation and validation phases and plans the
// diagnostic path.
type Engine struct {
	cfn        awsapi.CloudFormationAPI
	ecs        awsapi.ECSAPI
	correlator *correlation.Correlator
	validator  *imagecheck.Validator
	logger     *logging.Logger
}

// NewEngine creates an Engine on top of an existing correlator and
// image validator.
func NewEngine(cfnAPI awsapi.CloudFormationAPI, ecsAPI awsapi.ECSAPI, correlator *correlation.Correlator, validator *imagecheck.Validator) *Engine {
	return &Engine{
		cfn:        cfnAPI,
		ecs:        ecsAPI,
		correlator: correlator,
		validator:  validator,
		logger:     logging.GetLogger("guidance"),
	}
}

// Troubleshoot assesses the deployment state of appID and recommends
// which checks to run next. Evidence gathering is best effort
// throughout; the only hard failure is a stack probe that errors for a
// reason other than the stack being absent, since without that answer
// no branch of the assessment applies.
func (e *Engine) Troubleshoot(ctx context.Context, appID, symptomsDescription string) *Result {
	res := &Result{
		Envelope:         diagnosis.Success(),
		DiagnosticPath:   []Step{},
		DetectedSymptoms: newDetectedSymptoms(),
	}

	related := e.correlator.FindResources(ctx, appID)
	res.RawData.RelatedResources = related

	taskDefs := e.correlator.RelatedTaskDefinitions(ctx, appID)
	res.RawData.TaskDefinitions = taskDefs

	imageResults := e.validator.CheckImages(ctx, taskDefs)
	res.RawData.ImageCheckResults = imageResults

	stackExists := false
	stackStatus := "NOT_FOUND"
	stacks, err := e.cfn.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(appID),
	})
	switch {
	case err != nil && awsapi.IsStackNotFound(err):
	case err != nil:
		return e.errorResult(err)
	case len(stacks.Stacks) > 0:
		stackExists = true
		stackStatus = string(stacks.Stacks[0].StackStatus)
		res.RawData.CloudFormationStatus = stackStatus
	}

	clusterExists := false
	clusterName := ""
	res.RawData.Clusters = []ClusterInfo{}
	if len(related.Clusters) > 0 {
		described, err := e.ecs.DescribeClusters(ctx, &ecs.DescribeClustersInput{
			Clusters: related.Clusters,
		})
		if err != nil {
			e.logger.Debug("describing cluster candidates failed: %v", err)
		} else {
			for _, cluster := range described.Clusters {
				res.RawData.Clusters = append(res.RawData.Clusters, ClusterInfo{
					Name:                              aws.ToString(cluster.ClusterName),
					Status:                            aws.ToString(cluster.Status),
					Exists:                            true,
					RunningTasksCount:                 cluster.RunningTasksCount,
					PendingTasksCount:                 cluster.PendingTasksCount,
					ActiveServicesCount:               cluster.ActiveServicesCount,
					RegisteredContainerInstancesCount: cluster.RegisteredContainerInstancesCount,
				})
			}
			// The first described cluster anchors the diagnostic path.
			if len(described.Clusters) > 0 {
				clusterExists = true
				clusterName = aws.ToString(described.Clusters[0].ClusterName)
			}
		}
	}

	if !clusterExists && len(related.Clusters) > 0 {
		res.DetectedSymptoms.Infrastructure = append(res.DetectedSymptoms.Infrastructure,
			fmt.Sprintf("Found similar clusters that may be related: %s", strings.Join(related.Clusters, ", ")))
	}

	if symptomsDescription != "" {
		res.RawData.SymptomsDescription = symptomsDescription
		for category, evidence := range symptoms.Classify(symptomsDescription) {
			res.DetectedSymptoms.add(category, evidence...)
		}
	}

	failingImages := imagecheck.FailingManagedImages(imageResults)
	if len(failingImages) > 0 {
		res.DetectedSymptoms.Task = append(res.DetectedSymptoms.Task,
			"Potential container image pull failure detected",
			fmt.Sprintf("Invalid container image references: %s", strings.Join(failingImages, ", ")))
	}

	res.Assessment, res.DiagnosticPath = plan(planInput{
		appID:               appID,
		stackExists:         stackExists,
		stackStatus:         stackStatus,
		clusterExists:       clusterExists,
		clusterName:         clusterName,
		relatedClusters:     related.Clusters,
		taskDefinitionCount: len(taskDefs),
		failingImages:       failingImages,
	})
	return res
}

// errorResult is the one hard-failure shape: the stack probe itself
// failed, so no assessment branch can be chosen.
func (e *Engine) errorResult(err error) *Result {
	e.logger.ErrorWithErr("deployment analysis failed", err)
	return &Result{
		Envelope:         diagnosis.Errorf("%v", err),
		DiagnosticPath:   []Step{},
		Assessment:       fmt.Sprintf("Error analyzing deployment: %v", err),
		DetectedSymptoms: newDetectedSymptoms(),
	}
}
