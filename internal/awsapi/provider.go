package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"

	"github.com/moolen/flare/internal/logging"
)

// Options selects the account context for a client bundle. All fields
// are optional; an empty Options falls back to the default credential
// chain and region resolution of the SDK.
type Options struct {
	// Region overrides the region from the environment or profile.
	Region string
	// Profile selects a named profile from the shared config files.
	Profile string
	// Endpoint points every client at a single base URL. Used for
	// local stacks, which accept any static credential pair.
	Endpoint string
}

// NewClients resolves the AWS configuration once and derives one
// service client per API from it.
func NewClients(ctx context.Context, opts Options) (*Clients, error) {
	logger := logging.GetLogger("awsapi")

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.DebugWithFields("resolved AWS configuration",
		logging.Field("region", cfg.Region),
		logging.Field("profile", opts.Profile),
		logging.Field("endpoint", opts.Endpoint),
	)

	endpoint := opts.Endpoint
	return &Clients{
		ECS: ecs.NewFromConfig(cfg, func(o *ecs.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		ECR: ecr.NewFromConfig(cfg, func(o *ecr.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		ELB: elbv2.NewFromConfig(cfg, func(o *elbv2.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		CloudFormation: cloudformation.NewFromConfig(cfg, func(o *cloudformation.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		Logs: cloudwatchlogs.NewFromConfig(cfg, func(o *cloudwatchlogs.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		EC2: ec2.NewFromConfig(cfg, func(o *ec2.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
	}, nil
}
