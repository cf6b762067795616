// Package imagecheck verifies that the container images referenced by
// task definitions actually exist in the managed registry. Images
// hosted elsewhere cannot be verified and are reported as unknown
// rather than failing.
package imagecheck

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"golang.org/x/sync/errgroup"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/diagnosis"
	"github.com/moolen/flare/internal/logging"
)

// Existence is the tri-state outcome of an image check. Unknown is not
// an error; it marks images whose registry cannot be queried.
type Existence string

const (
	ExistenceTrue    Existence = "true"
	ExistenceFalse   Existence = "false"
	ExistenceUnknown Existence = "unknown"
)

// RepositoryType classifies where an image is hosted.
type RepositoryType string

const (
	RepositoryManaged  RepositoryType = "ecr"
	RepositoryExternal RepositoryType = "external"
	RepositoryUnknown  RepositoryType = "unknown"
)

// Result reports the check outcome for one container image reference.
type Result struct {
	Image          string         `json:"image"`
	TaskDefinition string         `json:"task_definition"`
	ContainerName  string         `json:"container_name"`
	Exists         Existence      `json:"exists"`
	Error          string         `json:"error,omitempty"`
	RepositoryType RepositoryType `json:"repository_type"`
}

// Validator checks image references against the managed registry.
type Validator struct {
	ecr            awsapi.ECRAPI
	maxConcurrency int
	logger         *logging.Logger
}

// New creates a Validator. maxConcurrency bounds the per-task-definition
// fan-out.
func New(ecrAPI awsapi.ECRAPI, maxConcurrency int) *Validator {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Validator{
		ecr:            ecrAPI,
		maxConcurrency: maxConcurrency,
		logger:         logging.GetLogger("imagecheck"),
	}
}

// CheckImages validates every container image in the given task
// definitions. Result order follows task definition and container
// order. Managed images are checked for repository and tag existence;
// anything else is reported as unknown without a remote call.
func (v *Validator) CheckImages(ctx context.Context, taskDefinitions []*ecstypes.TaskDefinition) []Result {
	perDef := make([][]Result, len(taskDefinitions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.maxConcurrency)
	for i, def := range taskDefinitions {
		g.Go(func() error {
			perDef[i] = v.checkTaskDefinition(gctx, def)
			return nil
		})
	}
	_ = g.Wait()

	results := []Result{}
	for _, list := range perDef {
		results = append(results, list...)
	}
	return results
}

func (v *Validator) checkTaskDefinition(ctx context.Context, def *ecstypes.TaskDefinition) []Result {
	if def == nil {
		return nil
	}

	results := make([]Result, 0, len(def.ContainerDefinitions))
	for _, container := range def.ContainerDefinitions {
		result := Result{
			Image:          aws.ToString(container.Image),
			TaskDefinition: aws.ToString(def.TaskDefinitionArn),
			ContainerName:  aws.ToString(container.Name),
			Exists:         ExistenceUnknown,
			RepositoryType: RepositoryUnknown,
		}

		if isManagedImage(result.Image) {
			result.RepositoryType = RepositoryManaged
			v.checkManagedImage(ctx, &result)
		} else {
			// External registries (Docker Hub etc.) cannot be queried.
			result.RepositoryType = RepositoryExternal
			result.Exists = ExistenceUnknown
		}

		results = append(results, result)
	}
	return results
}

// checkManagedImage queries repository existence, then tag existence.
// Not-found answers become existence=false with a readable error; any
// other API error is copied through verbatim, also as existence=false.
func (v *Validator) checkManagedImage(ctx context.Context, result *Result) {
	repoURI := result.Image
	tag := "latest"
	if idx := strings.Index(result.Image, ":"); idx >= 0 {
		repoURI, tag = result.Image[:idx], result.Image[idx+1:]
	}

	repoName := diagnosis.ShortARN(repoURI)
	if repoName == "" {
		result.Exists = ExistenceFalse
		result.Error = fmt.Sprintf("Failed to parse ECR image: %s", result.Image)
		return
	}

	if _, err := v.ecr.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{repoName},
	}); err != nil {
		result.Exists = ExistenceFalse
		if awsapi.IsRepositoryNotFound(err) {
			result.Error = fmt.Sprintf("Repository %s not found", repoName)
		} else {
			result.Error = err.Error()
		}
		return
	}

	if _, err := v.ecr.DescribeImages(ctx, &ecr.DescribeImagesInput{
		RepositoryName: aws.String(repoName),
		ImageIds: []ecrtypes.ImageIdentifier{
			{ImageTag: aws.String(tag)},
		},
	}); err != nil {
		result.Exists = ExistenceFalse
		if awsapi.IsImageNotFound(err) {
			result.Error = fmt.Sprintf("Image with tag %s not found in repository %s", tag, repoName)
		} else {
			result.Error = err.Error()
		}
		return
	}

	result.Exists = ExistenceTrue
}

// FailingManagedImages extracts the image references of managed images
// whose existence check came back negative.
func FailingManagedImages(results []Result) []string {
	failing := []string{}
	for _, r := range results {
		if r.RepositoryType == RepositoryManaged && r.Exists == ExistenceFalse {
			failing = append(failing, r.Image)
		}
	}
	return failing
}

// isManagedImage reports whether the reference points at the managed
// registry.
func isManagedImage(image string) bool {
	return strings.Contains(image, "amazonaws.com") && strings.Contains(image, "ecr")
}
