// Package netdiscovery locates the VPCs an application runs in and
// snapshots the network resources around them. VPC discovery walks
// three independent chains (running workloads, load balancers,
// CloudFormation stacks); each chain can fail or come up empty without
// affecting the others, so the merged answer is always best effort.
package netdiscovery

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"golang.org/x/sync/errgroup"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/logging"
)

const describeTagsBatchSize = 20

// Discoverer finds VPCs and network resources related to an application.
type Discoverer struct {
	ecs            awsapi.ECSAPI
	ec2            awsapi.EC2API
	elb            awsapi.ELBAPI
	cfn            awsapi.CloudFormationAPI
	maxConcurrency int
	logger         *logging.Logger
}

// New returns a Discoverer. maxConcurrency bounds the discovery fan-out;
// values below one fall back to a small default.
func New(ecsAPI awsapi.ECSAPI, ec2API awsapi.EC2API, elbAPI awsapi.ELBAPI, cfnAPI awsapi.CloudFormationAPI, maxConcurrency int) *Discoverer {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Discoverer{
		ecs:            ecsAPI,
		ec2:            ec2API,
		elb:            elbAPI,
		cfn:            cfnAPI,
		maxConcurrency: maxConcurrency,
		logger:         logging.GetLogger("netdiscovery"),
	}
}

// DiscoverVPCs merges the VPC candidates of all three chains into a
// deduplicated list. Chain failures surface as log lines, never as
// errors; an unreachable source simply contributes nothing.
func (d *Discoverer) DiscoverVPCs(ctx context.Context, appID string, clusters []string) []string {
	chains := make([][]string, 3)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxConcurrency)
	g.Go(func() error {
		chains[0] = d.vpcsFromWorkloads(gctx, clusters)
		return nil
	})
	g.Go(func() error {
		chains[1] = d.vpcsFromLoadBalancers(gctx, appID)
		return nil
	})
	g.Go(func() error {
		chains[2] = d.vpcsFromStacks(gctx, appID)
		return nil
	})
	_ = g.Wait()

	var merged []string
	seen := map[string]bool{}
	for _, chain := range chains {
		for _, vpcID := range chain {
			if !seen[vpcID] {
				seen[vpcID] = true
				merged = append(merged, vpcID)
			}
		}
	}
	d.logger.Debug("discovered %d VPCs for app %s", len(merged), appID)
	return merged
}

// vpcsFromWorkloads resolves VPCs through the network interfaces of
// running tasks. Clusters without tasks are skipped before any describe
// call is made.
func (d *Discoverer) vpcsFromWorkloads(ctx context.Context, clusters []string) []string {
	var vpcIDs []string
	for _, cluster := range clusters {
		var eniIDs []string
		paginator := ecs.NewListTasksPaginator(d.ecs, &ecs.ListTasksInput{
			Cluster: aws.String(cluster),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				d.logger.Warn("failed to list tasks in cluster %s: %v", cluster, err)
				break
			}
			if len(page.TaskArns) == 0 {
				continue
			}
			described, err := d.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{
				Cluster: aws.String(cluster),
				Tasks:   page.TaskArns,
			})
			if err != nil {
				d.logger.Warn("failed to describe tasks in cluster %s: %v", cluster, err)
				break
			}
			for _, task := range described.Tasks {
				for _, attachment := range task.Attachments {
					if aws.ToString(attachment.Type) != "ElasticNetworkInterface" {
						continue
					}
					for _, detail := range attachment.Details {
						if aws.ToString(detail.Name) == "networkInterfaceId" && detail.Value != nil {
							eniIDs = append(eniIDs, *detail.Value)
						}
					}
				}
			}
		}
		if len(eniIDs) == 0 {
			continue
		}
		enis, err := d.ec2.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
			NetworkInterfaceIds: eniIDs,
		})
		if err != nil {
			d.logger.Warn("failed to describe network interfaces: %v", err)
			continue
		}
		for _, eni := range enis.NetworkInterfaces {
			if eni.VpcId != nil {
				vpcIDs = append(vpcIDs, *eni.VpcId)
			}
		}
	}
	return vpcIDs
}

// vpcsFromLoadBalancers resolves VPCs through load balancers whose name
// or Name tag mentions the application.
func (d *Discoverer) vpcsFromLoadBalancers(ctx context.Context, appID string) []string {
	needle := strings.ToLower(appID)

	var vpcIDs []string
	var unmatched []string
	vpcByARN := map[string]string{}
	paginator := elbv2.NewDescribeLoadBalancersPaginator(d.elb, &elbv2.DescribeLoadBalancersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			d.logger.Warn("failed to list load balancers: %v", err)
			return vpcIDs
		}
		for _, lb := range page.LoadBalancers {
			if lb.VpcId == nil {
				continue
			}
			if strings.Contains(strings.ToLower(aws.ToString(lb.LoadBalancerName)), needle) {
				vpcIDs = append(vpcIDs, *lb.VpcId)
				continue
			}
			if lb.LoadBalancerArn != nil {
				unmatched = append(unmatched, *lb.LoadBalancerArn)
				vpcByARN[*lb.LoadBalancerArn] = *lb.VpcId
			}
		}
	}
	if len(vpcIDs) > 0 || len(unmatched) == 0 {
		return vpcIDs
	}

	// Name-matching found nothing; fall back to the Name tag.
	for start := 0; start < len(unmatched); start += describeTagsBatchSize {
		chunk := unmatched[start:min(start+describeTagsBatchSize, len(unmatched))]
		tags, err := d.elb.DescribeTags(ctx, &elbv2.DescribeTagsInput{ResourceArns: chunk})
		if err != nil {
			d.logger.Warn("failed to describe load balancer tags: %v", err)
			return vpcIDs
		}
		for _, desc := range tags.TagDescriptions {
			for _, tag := range desc.Tags {
				if aws.ToString(tag.Key) != "Name" {
					continue
				}
				if strings.Contains(strings.ToLower(aws.ToString(tag.Value)), needle) {
					vpcIDs = append(vpcIDs, vpcByARN[aws.ToString(desc.ResourceArn)])
				}
			}
		}
	}
	return vpcIDs
}

// vpcsFromStacks resolves VPCs owned by CloudFormation stacks whose
// name mentions the application. Deleted stacks no longer own anything
// and are skipped.
func (d *Discoverer) vpcsFromStacks(ctx context.Context, appID string) []string {
	needle := strings.ToLower(appID)

	var stackNames []string
	paginator := cloudformation.NewListStacksPaginator(d.cfn, &cloudformation.ListStacksInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			d.logger.Warn("failed to list stacks: %v", err)
			return nil
		}
		for _, summary := range page.StackSummaries {
			if summary.StackStatus == cfntypes.StackStatusDeleteComplete {
				continue
			}
			name := aws.ToString(summary.StackName)
			if strings.Contains(strings.ToLower(name), needle) {
				stackNames = append(stackNames, name)
			}
		}
	}

	var vpcIDs []string
	for _, stackName := range stackNames {
		resources := cloudformation.NewListStackResourcesPaginator(d.cfn, &cloudformation.ListStackResourcesInput{
			StackName: aws.String(stackName),
		})
		for resources.HasMorePages() {
			page, err := resources.NextPage(ctx)
			if err != nil {
				d.logger.Warn("failed to list resources of stack %s: %v", stackName, err)
				break
			}
			for _, resource := range page.StackResourceSummaries {
				if aws.ToString(resource.ResourceType) == "AWS::EC2::VPC" && resource.PhysicalResourceId != nil {
					vpcIDs = append(vpcIDs, *resource.PhysicalResourceId)
				}
			}
		}
	}
	return vpcIDs
}
