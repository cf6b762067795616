// Package awsapitest provides function-field fakes for the awsapi
// interfaces. A nil function field answers with an empty output, so a
// test wires only the calls it cares about. Every fake counts calls
// per method for asserting that a code path stayed off the wire.
package awsapitest

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"

	"github.com/moolen/flare/internal/awsapi"
)

var (
	_ awsapi.ECSAPI            = (*ECS)(nil)
	_ awsapi.ECRAPI            = (*ECR)(nil)
	_ awsapi.ELBAPI            = (*ELB)(nil)
	_ awsapi.CloudFormationAPI = (*CloudFormation)(nil)
	_ awsapi.LogsAPI           = (*Logs)(nil)
	_ awsapi.EC2API            = (*EC2)(nil)
)

type recorder struct {
	mu    sync.Mutex
	calls map[string]int
}

func (r *recorder) record(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[method]++
}

// Calls returns how often the named method was invoked.
func (r *recorder) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

// ECS fakes awsapi.ECSAPI.
type ECS struct {
	recorder
	ListClustersFunc               func(ctx context.Context, params *ecs.ListClustersInput) (*ecs.ListClustersOutput, error)
	DescribeClustersFunc           func(ctx context.Context, params *ecs.DescribeClustersInput) (*ecs.DescribeClustersOutput, error)
	ListServicesFunc               func(ctx context.Context, params *ecs.ListServicesInput) (*ecs.ListServicesOutput, error)
	DescribeServicesFunc           func(ctx context.Context, params *ecs.DescribeServicesInput) (*ecs.DescribeServicesOutput, error)
	ListTasksFunc                  func(ctx context.Context, params *ecs.ListTasksInput) (*ecs.ListTasksOutput, error)
	DescribeTasksFunc              func(ctx context.Context, params *ecs.DescribeTasksInput) (*ecs.DescribeTasksOutput, error)
	ListTaskDefinitionFamiliesFunc func(ctx context.Context, params *ecs.ListTaskDefinitionFamiliesInput) (*ecs.ListTaskDefinitionFamiliesOutput, error)
	ListTaskDefinitionsFunc        func(ctx context.Context, params *ecs.ListTaskDefinitionsInput) (*ecs.ListTaskDefinitionsOutput, error)
	DescribeTaskDefinitionFunc     func(ctx context.Context, params *ecs.DescribeTaskDefinitionInput) (*ecs.DescribeTaskDefinitionOutput, error)
}

func (f *ECS) ListClusters(ctx context.Context, params *ecs.ListClustersInput, _ ...func(*ecs.Options)) (*ecs.ListClustersOutput, error) {
	f.record("ListClusters")
	if f.ListClustersFunc == nil {
		return &ecs.ListClustersOutput{}, nil
	}
	return f.ListClustersFunc(ctx, params)
}

func (f *ECS) DescribeClusters(ctx context.Context, params *ecs.DescribeClustersInput, _ ...func(*ecs.Options)) (*ecs.DescribeClustersOutput, error) {
	f.record("DescribeClusters")
	if f.DescribeClustersFunc == nil {
		return &ecs.DescribeClustersOutput{}, nil
	}
	return f.DescribeClustersFunc(ctx, params)
}

func (f *ECS) ListServices(ctx context.Context, params *ecs.ListServicesInput, _ ...func(*ecs.Options)) (*ecs.ListServicesOutput, error) {
	f.record("ListServices")
	if f.ListServicesFunc == nil {
		return &ecs.ListServicesOutput{}, nil
	}
	return f.ListServicesFunc(ctx, params)
}

func (f *ECS) DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, _ ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	f.record("DescribeServices")
	if f.DescribeServicesFunc == nil {
		return &ecs.DescribeServicesOutput{}, nil
	}
	return f.DescribeServicesFunc(ctx, params)
}

func (f *ECS) ListTasks(ctx context.Context, params *ecs.ListTasksInput, _ ...func(*ecs.Options)) (*ecs.ListTasksOutput, error) {
	f.record("ListTasks")
	if f.ListTasksFunc == nil {
		return &ecs.ListTasksOutput{}, nil
	}
	return f.ListTasksFunc(ctx, params)
}

func (f *ECS) DescribeTasks(ctx context.Context, params *ecs.DescribeTasksInput, _ ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error) {
	f.record("DescribeTasks")
	if f.DescribeTasksFunc == nil {
		return &ecs.DescribeTasksOutput{}, nil
	}
	return f.DescribeTasksFunc(ctx, params)
}

func (f *ECS) ListTaskDefinitionFamilies(ctx context.Context, params *ecs.ListTaskDefinitionFamiliesInput, _ ...func(*ecs.Options)) (*ecs.ListTaskDefinitionFamiliesOutput, error) {
	f.record("ListTaskDefinitionFamilies")
	if f.ListTaskDefinitionFamiliesFunc == nil {
		return &ecs.ListTaskDefinitionFamiliesOutput{}, nil
	}
	return f.ListTaskDefinitionFamiliesFunc(ctx, params)
}

func (f *ECS) ListTaskDefinitions(ctx context.Context, params *ecs.ListTaskDefinitionsInput, _ ...func(*ecs.Options)) (*ecs.ListTaskDefinitionsOutput, error) {
	f.record("ListTaskDefinitions")
	if f.ListTaskDefinitionsFunc == nil {
		return &ecs.ListTaskDefinitionsOutput{}, nil
	}
	return f.ListTaskDefinitionsFunc(ctx, params)
}

func (f *ECS) DescribeTaskDefinition(ctx context.Context, params *ecs.DescribeTaskDefinitionInput, _ ...func(*ecs.Options)) (*ecs.DescribeTaskDefinitionOutput, error) {
	f.record("DescribeTaskDefinition")
	if f.DescribeTaskDefinitionFunc == nil {
		return &ecs.DescribeTaskDefinitionOutput{}, nil
	}
	return f.DescribeTaskDefinitionFunc(ctx, params)
}

// ECR fakes awsapi.ECRAPI.
type ECR struct {
	recorder
	DescribeRepositoriesFunc func(ctx context.Context, params *ecr.DescribeRepositoriesInput) (*ecr.DescribeRepositoriesOutput, error)
	DescribeImagesFunc       func(ctx context.Context, params *ecr.DescribeImagesInput) (*ecr.DescribeImagesOutput, error)
}

func (f *ECR) DescribeRepositories(ctx context.Context, params *ecr.DescribeRepositoriesInput, _ ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error) {
	f.record("DescribeRepositories")
	if f.DescribeRepositoriesFunc == nil {
		return &ecr.DescribeRepositoriesOutput{}, nil
	}
	return f.DescribeRepositoriesFunc(ctx, params)
}

func (f *ECR) DescribeImages(ctx context.Context, params *ecr.DescribeImagesInput, _ ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error) {
	f.record("DescribeImages")
	if f.DescribeImagesFunc == nil {
		return &ecr.DescribeImagesOutput{}, nil
	}
	return f.DescribeImagesFunc(ctx, params)
}

// ELB fakes awsapi.ELBAPI.
type ELB struct {
	recorder
	DescribeLoadBalancersFunc func(ctx context.Context, params *elbv2.DescribeLoadBalancersInput) (*elbv2.DescribeLoadBalancersOutput, error)
	DescribeTargetGroupsFunc  func(ctx context.Context, params *elbv2.DescribeTargetGroupsInput) (*elbv2.DescribeTargetGroupsOutput, error)
	DescribeTargetHealthFunc  func(ctx context.Context, params *elbv2.DescribeTargetHealthInput) (*elbv2.DescribeTargetHealthOutput, error)
	DescribeTagsFunc          func(ctx context.Context, params *elbv2.DescribeTagsInput) (*elbv2.DescribeTagsOutput, error)
}

func (f *ELB) DescribeLoadBalancers(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error) {
	f.record("DescribeLoadBalancers")
	if f.DescribeLoadBalancersFunc == nil {
		return &elbv2.DescribeLoadBalancersOutput{}, nil
	}
	return f.DescribeLoadBalancersFunc(ctx, params)
}

func (f *ELB) DescribeTargetGroups(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error) {
	f.record("DescribeTargetGroups")
	if f.DescribeTargetGroupsFunc == nil {
		return &elbv2.DescribeTargetGroupsOutput{}, nil
	}
	return f.DescribeTargetGroupsFunc(ctx, params)
}

func (f *ELB) DescribeTargetHealth(ctx context.Context, params *elbv2.DescribeTargetHealthInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeTargetHealthOutput, error) {
	f.record("DescribeTargetHealth")
	if f.DescribeTargetHealthFunc == nil {
		return &elbv2.DescribeTargetHealthOutput{}, nil
	}
	return f.DescribeTargetHealthFunc(ctx, params)
}

func (f *ELB) DescribeTags(ctx context.Context, params *elbv2.DescribeTagsInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error) {
	f.record("DescribeTags")
	if f.DescribeTagsFunc == nil {
		return &elbv2.DescribeTagsOutput{}, nil
	}
	return f.DescribeTagsFunc(ctx, params)
}

// CloudFormation fakes awsapi.CloudFormationAPI.
type CloudFormation struct {
	recorder
	DescribeStacksFunc      func(ctx context.Context, params *cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error)
	ListStacksFunc          func(ctx context.Context, params *cloudformation.ListStacksInput) (*cloudformation.ListStacksOutput, error)
	ListStackResourcesFunc  func(ctx context.Context, params *cloudformation.ListStackResourcesInput) (*cloudformation.ListStackResourcesOutput, error)
	DescribeStackEventsFunc func(ctx context.Context, params *cloudformation.DescribeStackEventsInput) (*cloudformation.DescribeStackEventsOutput, error)
}

func (f *CloudFormation) DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	f.record("DescribeStacks")
	if f.DescribeStacksFunc == nil {
		return &cloudformation.DescribeStacksOutput{}, nil
	}
	return f.DescribeStacksFunc(ctx, params)
}

func (f *CloudFormation) ListStacks(ctx context.Context, params *cloudformation.ListStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error) {
	f.record("ListStacks")
	if f.ListStacksFunc == nil {
		return &cloudformation.ListStacksOutput{}, nil
	}
	return f.ListStacksFunc(ctx, params)
}

func (f *CloudFormation) ListStackResources(ctx context.Context, params *cloudformation.ListStackResourcesInput, _ ...func(*cloudformation.Options)) (*cloudformation.ListStackResourcesOutput, error) {
	f.record("ListStackResources")
	if f.ListStackResourcesFunc == nil {
		return &cloudformation.ListStackResourcesOutput{}, nil
	}
	return f.ListStackResourcesFunc(ctx, params)
}

func (f *CloudFormation) DescribeStackEvents(ctx context.Context, params *cloudformation.DescribeStackEventsInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error) {
	f.record("DescribeStackEvents")
	if f.DescribeStackEventsFunc == nil {
		return &cloudformation.DescribeStackEventsOutput{}, nil
	}
	return f.DescribeStackEventsFunc(ctx, params)
}

// Logs fakes awsapi.LogsAPI.
type Logs struct {
	recorder
	DescribeLogGroupsFunc  func(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	DescribeLogStreamsFunc func(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
	GetLogEventsFunc       func(ctx context.Context, params *cloudwatchlogs.GetLogEventsInput) (*cloudwatchlogs.GetLogEventsOutput, error)
	FilterLogEventsFunc    func(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

func (f *Logs) DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	f.record("DescribeLogGroups")
	if f.DescribeLogGroupsFunc == nil {
		return &cloudwatchlogs.DescribeLogGroupsOutput{}, nil
	}
	return f.DescribeLogGroupsFunc(ctx, params)
}

func (f *Logs) DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
	f.record("DescribeLogStreams")
	if f.DescribeLogStreamsFunc == nil {
		return &cloudwatchlogs.DescribeLogStreamsOutput{}, nil
	}
	return f.DescribeLogStreamsFunc(ctx, params)
}

func (f *Logs) GetLogEvents(ctx context.Context, params *cloudwatchlogs.GetLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error) {
	f.record("GetLogEvents")
	if f.GetLogEventsFunc == nil {
		return &cloudwatchlogs.GetLogEventsOutput{}, nil
	}
	return f.GetLogEventsFunc(ctx, params)
}

func (f *Logs) FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	f.record("FilterLogEvents")
	if f.FilterLogEventsFunc == nil {
		return &cloudwatchlogs.FilterLogEventsOutput{}, nil
	}
	return f.FilterLogEventsFunc(ctx, params)
}

// EC2 fakes awsapi.EC2API.
type EC2 struct {
	recorder
	DescribeNetworkInterfacesFunc func(ctx context.Context, params *ec2.DescribeNetworkInterfacesInput) (*ec2.DescribeNetworkInterfacesOutput, error)
	DescribeVpcsFunc              func(ctx context.Context, params *ec2.DescribeVpcsInput) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnetsFunc           func(ctx context.Context, params *ec2.DescribeSubnetsInput) (*ec2.DescribeSubnetsOutput, error)
	DescribeRouteTablesFunc       func(ctx context.Context, params *ec2.DescribeRouteTablesInput) (*ec2.DescribeRouteTablesOutput, error)
	DescribeSecurityGroupsFunc    func(ctx context.Context, params *ec2.DescribeSecurityGroupsInput) (*ec2.DescribeSecurityGroupsOutput, error)
}

func (f *EC2) DescribeNetworkInterfaces(ctx context.Context, params *ec2.DescribeNetworkInterfacesInput, _ ...func(*ec2.Options)) (*ec2.DescribeNetworkInterfacesOutput, error) {
	f.record("DescribeNetworkInterfaces")
	if f.DescribeNetworkInterfacesFunc == nil {
		return &ec2.DescribeNetworkInterfacesOutput{}, nil
	}
	return f.DescribeNetworkInterfacesFunc(ctx, params)
}

func (f *EC2) DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	f.record("DescribeVpcs")
	if f.DescribeVpcsFunc == nil {
		return &ec2.DescribeVpcsOutput{}, nil
	}
	return f.DescribeVpcsFunc(ctx, params)
}

func (f *EC2) DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	f.record("DescribeSubnets")
	if f.DescribeSubnetsFunc == nil {
		return &ec2.DescribeSubnetsOutput{}, nil
	}
	return f.DescribeSubnetsFunc(ctx, params)
}

func (f *EC2) DescribeRouteTables(ctx context.Context, params *ec2.DescribeRouteTablesInput, _ ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	f.record("DescribeRouteTables")
	if f.DescribeRouteTablesFunc == nil {
		return &ec2.DescribeRouteTablesOutput{}, nil
	}
	return f.DescribeRouteTablesFunc(ctx, params)
}

func (f *EC2) DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	f.record("DescribeSecurityGroups")
	if f.DescribeSecurityGroupsFunc == nil {
		return &ec2.DescribeSecurityGroupsOutput{}, nil
	}
	return f.DescribeSecurityGroupsFunc(ctx, params)
}
