package evidence

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/diagnosis"
	"github.com/moolen/flare/internal/logging"
	"github.com/moolen/flare/internal/timewindow"
)

// TaskFailuresResult reports the stopped tasks of one cluster within a
// time window, grouped by probable failure cause.
type TaskFailuresResult struct {
	diagnosis.Envelope

	ClusterExists     bool                              `json:"cluster_exists"`
	FailedTasks       []TaskFailure                     `json:"failed_tasks"`
	FailureCategories map[FailureCategory][]TaskFailure `json:"failure_categories"`
	RawData           TaskFailuresRawData               `json:"raw_data"`
	ECSError          string                            `json:"ecs_error,omitempty"`
}

// TaskFailuresRawData carries the unmodified cluster description and
// the live task count alongside the distilled failure records.
type TaskFailuresRawData struct {
	Cluster           *ecstypes.Cluster `json:"cluster,omitempty"`
	RunningTasksCount int               `json:"running_tasks_count"`
}

// TaskFailure is one stopped task. A task appears once in FailedTasks
// and once per distinct category its containers matched.
type TaskFailure struct {
	TaskID         string             `json:"task_id"`
	TaskDefinition string             `json:"task_definition"`
	StoppedAt      string             `json:"stopped_at"`
	StartedAt      string             `json:"started_at"`
	Containers     []ContainerFailure `json:"containers"`
}

// ContainerFailure is one container's exit signal. ExitCode is nil when
// the agent never reported one, e.g. when the image could not be pulled.
type ContainerFailure struct {
	Name     string `json:"name"`
	ExitCode *int32 `json:"exit_code"`
	Reason   string `json:"reason"`
}

// TaskFailuresCollector inspects stopped tasks of a cluster.
type TaskFailuresCollector struct {
	ecs    awsapi.ECSAPI
	logger *logging.Logger
}

// NewTaskFailures returns a collector backed by the given ECS client.
func NewTaskFailures(ecsAPI awsapi.ECSAPI) *TaskFailuresCollector {
	return &TaskFailuresCollector{
		ecs:    ecsAPI,
		logger: logging.GetLogger("evidence"),
	}
}

// Collect lists the tasks of clusterName that stopped inside window and
// categorizes each container failure. An empty clusterName falls back
// to the "<app>-cluster" naming convention.
func (c *TaskFailuresCollector) Collect(ctx context.Context, appName, clusterName string, window timewindow.Window) *TaskFailuresResult {
	if clusterName == "" {
		clusterName = appName + "-cluster"
	}

	res := &TaskFailuresResult{
		Envelope:          diagnosis.Success(),
		FailedTasks:       []TaskFailure{},
		FailureCategories: map[FailureCategory][]TaskFailure{},
	}

	clusters, err := c.ecs.DescribeClusters(ctx, &ecs.DescribeClustersInput{
		Clusters: []string{clusterName},
	})
	if err != nil {
		res.Envelope = diagnosis.Errorf("Error describing cluster '%s': %v", clusterName, err)
		res.ECSError = err.Error()
		return res
	}
	if len(clusters.Clusters) == 0 {
		res.Envelope = diagnosis.NotFound(fmt.Sprintf("Cluster '%s' does not exist", clusterName))
		return res
	}
	res.ClusterExists = true
	res.RawData.Cluster = &clusters.Clusters[0]

	if err := c.collectStoppedTasks(ctx, clusterName, window, res); err != nil {
		res.ECSError = err.Error()
		res.Status = diagnosis.StatusWarning
		return res
	}
	if err := c.countRunningTasks(ctx, clusterName, res); err != nil {
		res.ECSError = err.Error()
		res.Status = diagnosis.StatusWarning
	}
	return res
}

func (c *TaskFailuresCollector) collectStoppedTasks(ctx context.Context, clusterName string, window timewindow.Window, res *TaskFailuresResult) error {
	paginator := ecs.NewListTasksPaginator(c.ecs, &ecs.ListTasksInput{
		Cluster:       aws.String(clusterName),
		DesiredStatus: ecstypes.DesiredStatusStopped,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		if len(page.TaskArns) == 0 {
			continue
		}
		described, err := c.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{
			Cluster: aws.String(clusterName),
			Tasks:   page.TaskArns,
		})
		if err != nil {
			return err
		}
		for _, task := range described.Tasks {
			if task.StoppedAt == nil || !window.Contains(*task.StoppedAt) {
				continue
			}
			c.recordFailure(task, res)
		}
	}
	return nil
}

// recordFailure appends the task to the flat failure list and, per
// container, to the first matching category. Containers of one task may
// match different categories, so the task record can appear under
// several keys.
func (c *TaskFailuresCollector) recordFailure(task ecstypes.Task, res *TaskFailuresResult) {
	failure := TaskFailure{
		TaskID:         diagnosis.ShortARN(aws.ToString(task.TaskArn)),
		TaskDefinition: diagnosis.ShortARN(aws.ToString(task.TaskDefinitionArn)),
		StoppedAt:      diagnosis.FormatTime(*task.StoppedAt),
		StartedAt:      "N/A",
	}
	if task.StartedAt != nil {
		failure.StartedAt = diagnosis.FormatTime(*task.StartedAt)
	}

	var categories []FailureCategory
	seen := map[FailureCategory]bool{}
	for _, container := range task.Containers {
		reason := aws.ToString(container.Reason)
		record := ContainerFailure{
			Name:     aws.ToString(container.Name),
			ExitCode: container.ExitCode,
			Reason:   reason,
		}
		if record.Reason == "" {
			record.Reason = "No reason provided"
		}
		failure.Containers = append(failure.Containers, record)

		// Categorization sees the raw reason, not the display default.
		if category := Categorize(container.ExitCode, reason); !seen[category] {
			seen[category] = true
			categories = append(categories, category)
		}
	}

	res.FailedTasks = append(res.FailedTasks, failure)
	for _, category := range categories {
		res.FailureCategories[category] = append(res.FailureCategories[category], failure)
	}
}

func (c *TaskFailuresCollector) countRunningTasks(ctx context.Context, clusterName string, res *TaskFailuresResult) error {
	paginator := ecs.NewListTasksPaginator(c.ecs, &ecs.ListTasksInput{
		Cluster:       aws.String(clusterName),
		DesiredStatus: ecstypes.DesiredStatusRunning,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		res.RawData.RunningTasksCount += len(page.TaskArns)
	}
	return nil
}
