package netdiscovery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/flare/internal/awsapi/awsapitest"
	"github.com/moolen/flare/internal/diagnosis"
)

func TestFetchNetworkConfigurationExplicitVPCSkipsDiscovery(t *testing.T) {
	ecsFake := &awsapitest.ECS{}
	cfnFake := &awsapitest.CloudFormation{}
	var requested []string
	ec2Fake := &awsapitest.EC2{
		DescribeVpcsFunc: func(ctx context.Context, params *ec2.DescribeVpcsInput) (*ec2.DescribeVpcsOutput, error) {
			requested = params.VpcIds
			return &ec2.DescribeVpcsOutput{Vpcs: []ec2types.Vpc{{VpcId: aws.String("vpc-42")}}}, nil
		},
	}

	res := newDiscoverer(ecsFake, ec2Fake, nil, cfnFake).FetchNetworkConfiguration(context.Background(), "web-app", "vpc-42", "")

	require.Equal(t, diagnosis.StatusSuccess, res.Status)
	require.NotNil(t, res.Data)
	assert.Equal(t, []string{"vpc-42"}, res.Data.VPCIDs)
	assert.Equal(t, []string{"vpc-42"}, requested)
	assert.NotEmpty(t, res.Data.Timestamp)
	assert.Equal(t, "web-app", res.Data.AppName)

	// Discovery chains never ran.
	assert.Equal(t, 0, ecsFake.Calls("ListTasks"))
	assert.Equal(t, 0, cfnFake.Calls("ListStacks"))

	guide := res.Data.AnalysisGuide
	assert.NotEmpty(t, guide.CommonIssues)
	assert.NotEmpty(t, guide.ResourceRelationships)
	assert.NotEmpty(t, guide.CommonIssues[0].Issue)
	assert.NotEmpty(t, guide.CommonIssues[0].Checks)
}

func TestFetchNetworkConfigurationNoVPCIsWarning(t *testing.T) {
	res := newDiscoverer(nil, nil, nil, nil).FetchNetworkConfiguration(context.Background(), "web-app", "", "")

	assert.Equal(t, diagnosis.StatusWarning, res.Status)
	assert.Contains(t, res.Message, "No VPC found")
	assert.Nil(t, res.Data)
}

func TestFetchNetworkConfigurationSourceErrorIsIsolated(t *testing.T) {
	ec2Fake := &awsapitest.EC2{
		DescribeVpcsFunc: func(ctx context.Context, params *ec2.DescribeVpcsInput) (*ec2.DescribeVpcsOutput, error) {
			return &ec2.DescribeVpcsOutput{Vpcs: []ec2types.Vpc{{VpcId: aws.String("vpc-42")}}}, nil
		},
		DescribeSubnetsFunc: func(ctx context.Context, params *ec2.DescribeSubnetsInput) (*ec2.DescribeSubnetsOutput, error) {
			return nil, errors.New("UnauthorizedOperation: not allowed")
		},
	}

	res := newDiscoverer(nil, ec2Fake, nil, nil).FetchNetworkConfiguration(context.Background(), "web-app", "vpc-42", "")

	assert.Equal(t, diagnosis.StatusWarning, res.Status)
	require.NotNil(t, res.Data)
	assert.Contains(t, res.Data.RawResources.Subnets.Error, "UnauthorizedOperation")
	assert.Len(t, res.Data.RawResources.VPCs.VPCs, 1)
}

func TestFetchNetworkConfigurationTargetGroupsFilteredByNameAndVPC(t *testing.T) {
	elbFake := &awsapitest.ELB{
		DescribeTargetGroupsFunc: func(ctx context.Context, params *elbv2.DescribeTargetGroupsInput) (*elbv2.DescribeTargetGroupsOutput, error) {
			return &elbv2.DescribeTargetGroupsOutput{TargetGroups: []elbtypes.TargetGroup{
				{TargetGroupArn: aws.String("tg-1"), TargetGroupName: aws.String("web-app-tg"), VpcId: aws.String("vpc-42")},
				{TargetGroupArn: aws.String("tg-2"), TargetGroupName: aws.String("other-tg"), VpcId: aws.String("vpc-42")},
				{TargetGroupArn: aws.String("tg-3"), TargetGroupName: aws.String("web-app-tg"), VpcId: aws.String("vpc-other")},
			}}, nil
		},
		DescribeTargetHealthFunc: func(ctx context.Context, params *elbv2.DescribeTargetHealthInput) (*elbv2.DescribeTargetHealthOutput, error) {
			return &elbv2.DescribeTargetHealthOutput{TargetHealthDescriptions: []elbtypes.TargetHealthDescription{
				{TargetHealth: &elbtypes.TargetHealth{State: elbtypes.TargetHealthStateEnumHealthy}},
			}}, nil
		},
	}

	res := newDiscoverer(nil, nil, elbFake, nil).FetchNetworkConfiguration(context.Background(), "web-app", "vpc-42", "")

	require.NotNil(t, res.Data)
	groups := res.Data.RawResources.TargetGroups
	require.Len(t, groups.TargetGroups, 1)
	assert.Equal(t, "web-app-tg", aws.ToString(groups.TargetGroups[0].TargetGroupName))
	require.Contains(t, groups.TargetHealth, "tg-1")
	assert.Len(t, groups.TargetHealth["tg-1"], 1)
}

func TestFetchNetworkConfigurationExplicitClusterIsSnapshotted(t *testing.T) {
	ecsFake := &awsapitest.ECS{}
	ec2Fake := &awsapitest.EC2{
		DescribeVpcsFunc: func(ctx context.Context, params *ec2.DescribeVpcsInput) (*ec2.DescribeVpcsOutput, error) {
			return &ec2.DescribeVpcsOutput{Vpcs: []ec2types.Vpc{{VpcId: aws.String("vpc-42")}}}, nil
		},
	}

	res := newDiscoverer(ecsFake, ec2Fake, nil, nil).FetchNetworkConfiguration(context.Background(), "web-app", "vpc-42", "web-app-cluster")

	require.NotNil(t, res.Data)
	// The explicit cluster skips cluster matching entirely.
	assert.Equal(t, 0, ecsFake.Calls("ListClusters"))
	assert.Equal(t, 1, ecsFake.Calls("DescribeClusters"))
}
