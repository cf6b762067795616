package netdiscovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/moolen/flare/internal/diagnosis"
)

// NetworkConfig is the result of FetchNetworkConfiguration.
type NetworkConfig struct {
	diagnosis.Envelope
	Data *NetworkData `json:"data,omitempty"`
}

// NetworkData is the raw network snapshot plus the static guide that
// tells a reader what to look for in it.
type NetworkData struct {
	Timestamp     string        `json:"timestamp"`
	AppName       string        `json:"app_name"`
	VPCIDs        []string      `json:"vpc_ids"`
	RawResources  RawResources  `json:"raw_resources"`
	AnalysisGuide AnalysisGuide `json:"analysis_guide"`
}

// RawResources holds one snapshot per source. Each snapshot carries
// either the described resources or the error that prevented the
// lookup, never both.
type RawResources struct {
	VPCs              VPCSnapshot           `json:"vpcs"`
	Subnets           SubnetSnapshot        `json:"subnets"`
	RouteTables       RouteTableSnapshot    `json:"route_tables"`
	SecurityGroups    SecurityGroupSnapshot `json:"security_groups"`
	NetworkInterfaces ENISnapshot           `json:"network_interfaces"`
	LoadBalancers     LoadBalancerSnapshot  `json:"load_balancers"`
	TargetGroups      TargetGroupSnapshot   `json:"target_groups"`
	Clusters          ClusterSnapshot       `json:"clusters"`
}

type VPCSnapshot struct {
	Error string         `json:"error,omitempty"`
	VPCs  []ec2types.Vpc `json:"vpcs,omitempty"`
}

type SubnetSnapshot struct {
	Error   string            `json:"error,omitempty"`
	Subnets []ec2types.Subnet `json:"subnets,omitempty"`
}

type RouteTableSnapshot struct {
	Error       string                `json:"error,omitempty"`
	RouteTables []ec2types.RouteTable `json:"route_tables,omitempty"`
}

type SecurityGroupSnapshot struct {
	Error          string                   `json:"error,omitempty"`
	SecurityGroups []ec2types.SecurityGroup `json:"security_groups,omitempty"`
}

type ENISnapshot struct {
	Error             string                      `json:"error,omitempty"`
	NetworkInterfaces []ec2types.NetworkInterface `json:"network_interfaces,omitempty"`
}

type LoadBalancerSnapshot struct {
	Error         string                  `json:"error,omitempty"`
	LoadBalancers []elbtypes.LoadBalancer `json:"load_balancers,omitempty"`
}

// TargetGroupSnapshot lists the target groups named after the
// application inside the VPC set, with the current health of each.
type TargetGroupSnapshot struct {
	Error        string                                        `json:"error,omitempty"`
	TargetGroups []elbtypes.TargetGroup                        `json:"target_groups,omitempty"`
	TargetHealth map[string][]elbtypes.TargetHealthDescription `json:"target_health,omitempty"`
}

type ClusterSnapshot struct {
	Error    string             `json:"error,omitempty"`
	Clusters []ecstypes.Cluster `json:"clusters,omitempty"`
}

// FetchNetworkConfiguration resolves the application's VPCs (an
// explicit vpcID wins over discovery) and snapshots the network
// resources inside them. Every source is queried independently; a
// failing source records its error and the rest of the snapshot is
// still returned.
func (d *Discoverer) FetchNetworkConfiguration(ctx context.Context, appID, vpcID, clusterName string) *NetworkConfig {
	res := &NetworkConfig{Envelope: diagnosis.Success()}

	clusters := d.resolveClusters(ctx, appID, clusterName)

	var vpcIDs []string
	if vpcID != "" {
		vpcIDs = []string{vpcID}
	} else {
		vpcIDs = d.DiscoverVPCs(ctx, appID, clusters)
	}
	if len(vpcIDs) == 0 {
		res.Envelope = diagnosis.Warning(fmt.Sprintf("No VPC found for application '%s'", appID))
		return res
	}

	data := &NetworkData{
		Timestamp:     diagnosis.FormatTime(time.Now().UTC()),
		AppName:       appID,
		VPCIDs:        vpcIDs,
		AnalysisGuide: NewAnalysisGuide(),
	}
	d.snapshotEC2(ctx, vpcIDs, &data.RawResources)
	d.snapshotELB(ctx, appID, vpcIDs, &data.RawResources)
	d.snapshotClusters(ctx, clusters, &data.RawResources)

	if snapshotDegraded(&data.RawResources) {
		res.Status = diagnosis.StatusWarning
	}
	res.Data = data
	return res
}

// resolveClusters turns an explicit cluster name into a one-element
// list, otherwise matches cluster names against the application id.
func (d *Discoverer) resolveClusters(ctx context.Context, appID, clusterName string) []string {
	if clusterName != "" {
		return []string{clusterName}
	}
	needle := strings.ToLower(appID)

	var matched []string
	paginator := ecs.NewListClustersPaginator(d.ecs, &ecs.ListClustersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			d.logger.Warn("failed to list clusters: %v", err)
			return matched
		}
		for _, arn := range page.ClusterArns {
			name := diagnosis.ShortARN(arn)
			if strings.Contains(strings.ToLower(name), needle) {
				matched = append(matched, name)
			}
		}
	}
	return matched
}

func (d *Discoverer) snapshotEC2(ctx context.Context, vpcIDs []string, raw *RawResources) {
	vpcFilter := []ec2types.Filter{{
		Name:   aws.String("vpc-id"),
		Values: vpcIDs,
	}}

	if out, err := d.ec2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{VpcIds: vpcIDs}); err != nil {
		raw.VPCs.Error = err.Error()
	} else {
		raw.VPCs.VPCs = out.Vpcs
	}
	if out, err := d.ec2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{Filters: vpcFilter}); err != nil {
		raw.Subnets.Error = err.Error()
	} else {
		raw.Subnets.Subnets = out.Subnets
	}
	if out, err := d.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{Filters: vpcFilter}); err != nil {
		raw.RouteTables.Error = err.Error()
	} else {
		raw.RouteTables.RouteTables = out.RouteTables
	}
	if out, err := d.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{Filters: vpcFilter}); err != nil {
		raw.SecurityGroups.Error = err.Error()
	} else {
		raw.SecurityGroups.SecurityGroups = out.SecurityGroups
	}
	if out, err := d.ec2.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{Filters: vpcFilter}); err != nil {
		raw.NetworkInterfaces.Error = err.Error()
	} else {
		raw.NetworkInterfaces.NetworkInterfaces = out.NetworkInterfaces
	}
}

func (d *Discoverer) snapshotELB(ctx context.Context, appID string, vpcIDs []string, raw *RawResources) {
	inVPC := map[string]bool{}
	for _, id := range vpcIDs {
		inVPC[id] = true
	}

	lbs := elbv2.NewDescribeLoadBalancersPaginator(d.elb, &elbv2.DescribeLoadBalancersInput{})
	for lbs.HasMorePages() {
		page, err := lbs.NextPage(ctx)
		if err != nil {
			raw.LoadBalancers.Error = err.Error()
			break
		}
		for _, lb := range page.LoadBalancers {
			if lb.VpcId != nil && inVPC[*lb.VpcId] {
				raw.LoadBalancers.LoadBalancers = append(raw.LoadBalancers.LoadBalancers, lb)
			}
		}
	}

	needle := strings.ToLower(appID)
	groups := elbv2.NewDescribeTargetGroupsPaginator(d.elb, &elbv2.DescribeTargetGroupsInput{})
	for groups.HasMorePages() {
		page, err := groups.NextPage(ctx)
		if err != nil {
			raw.TargetGroups.Error = err.Error()
			return
		}
		for _, group := range page.TargetGroups {
			if group.VpcId == nil || !inVPC[*group.VpcId] {
				continue
			}
			if !strings.Contains(strings.ToLower(aws.ToString(group.TargetGroupName)), needle) {
				continue
			}
			raw.TargetGroups.TargetGroups = append(raw.TargetGroups.TargetGroups, group)

			health, err := d.elb.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{
				TargetGroupArn: group.TargetGroupArn,
			})
			if err != nil {
				d.logger.Warn("failed to describe target health for %s: %v", aws.ToString(group.TargetGroupArn), err)
				continue
			}
			if raw.TargetGroups.TargetHealth == nil {
				raw.TargetGroups.TargetHealth = map[string][]elbtypes.TargetHealthDescription{}
			}
			raw.TargetGroups.TargetHealth[aws.ToString(group.TargetGroupArn)] = health.TargetHealthDescriptions
		}
	}
}

func (d *Discoverer) snapshotClusters(ctx context.Context, clusters []string, raw *RawResources) {
	if len(clusters) == 0 {
		return
	}
	out, err := d.ecs.DescribeClusters(ctx, &ecs.DescribeClustersInput{Clusters: clusters})
	if err != nil {
		raw.Clusters.Error = err.Error()
		return
	}
	raw.Clusters.Clusters = out.Clusters
}

func snapshotDegraded(raw *RawResources) bool {
	return raw.VPCs.Error != "" ||
		raw.Subnets.Error != "" ||
		raw.RouteTables.Error != "" ||
		raw.SecurityGroups.Error != "" ||
		raw.NetworkInterfaces.Error != "" ||
		raw.LoadBalancers.Error != "" ||
		raw.TargetGroups.Error != "" ||
		raw.Clusters.Error != ""
}
