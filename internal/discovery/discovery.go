// Package discovery enumerates pre-existing AWS resources tagged for a
// stack, letting the orchestrator reuse rather than recreate them and
// letting cleanup find what a deployment actually owns.
package discovery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/efs"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

const tagKey = "geusemaker:deployment"

// Finder enumerates existing resources by stack tag.
type Finder struct {
	clients *awsclient.Factory
}

// New returns a Finder.
func New(clients *awsclient.Factory) *Finder {
	return &Finder{clients: clients}
}

// VPC describes a discovered VPC.
type VPC struct {
	ID        string
	CidrBlock string
}

// VPCsForStack returns VPCs tagged for stack.
func (f *Finder) VPCsForStack(ctx context.Context, region, stack string) ([]VPC, error) {
	client, err := f.clients.EC2(ctx, region)
	if err != nil {
		return nil, err
	}
	out, err := client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{{Name: aws.String("tag:" + tagKey), Values: []string{stack}}},
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: describe vpcs for %s: %w", stack, err)
	}
	vpcs := make([]VPC, 0, len(out.Vpcs))
	for _, v := range out.Vpcs {
		vpcs = append(vpcs, VPC{ID: aws.ToString(v.VpcId), CidrBlock: aws.ToString(v.CidrBlock)})
	}
	return vpcs, nil
}

// Subnet describes a discovered subnet.
type Subnet struct {
	ID               string
	VPCID            string
	AvailabilityZone string
}

// SubnetsForStack returns subnets tagged for stack.
func (f *Finder) SubnetsForStack(ctx context.Context, region, stack string) ([]Subnet, error) {
	client, err := f.clients.EC2(ctx, region)
	if err != nil {
		return nil, err
	}
	out, err := client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{{Name: aws.String("tag:" + tagKey), Values: []string{stack}}},
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: describe subnets for %s: %w", stack, err)
	}
	subnets := make([]Subnet, 0, len(out.Subnets))
	for _, s := range out.Subnets {
		subnets = append(subnets, Subnet{
			ID:               aws.ToString(s.SubnetId),
			VPCID:            aws.ToString(s.VpcId),
			AvailabilityZone: aws.ToString(s.AvailabilityZone),
		})
	}
	return subnets, nil
}

// SecurityGroupsForStack returns security group IDs tagged for stack.
func (f *Finder) SecurityGroupsForStack(ctx context.Context, region, stack string) ([]string, error) {
	client, err := f.clients.EC2(ctx, region)
	if err != nil {
		return nil, err
	}
	out, err := client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{{Name: aws.String("tag:" + tagKey), Values: []string{stack}}},
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: describe security groups for %s: %w", stack, err)
	}
	ids := make([]string, 0, len(out.SecurityGroups))
	for _, sg := range out.SecurityGroups {
		ids = append(ids, aws.ToString(sg.GroupId))
	}
	return ids, nil
}

// InstancesForStack returns non-terminated instance IDs tagged for stack.
func (f *Finder) InstancesForStack(ctx context.Context, region, stack string) ([]string, error) {
	client, err := f.clients.EC2(ctx, region)
	if err != nil {
		return nil, err
	}
	out, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("tag:" + tagKey), Values: []string{stack}},
			{Name: aws.String("instance-state-name"), Values: []string{"pending", "running", "stopping", "stopped"}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: describe instances for %s: %w", stack, err)
	}
	var ids []string
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			ids = append(ids, aws.ToString(inst.InstanceId))
		}
	}
	return ids, nil
}

// FileSystemsForStack returns EFS file system IDs whose tags mark them as
// owned by stack. EFS filters tags client-side since DescribeFileSystems has
// no server-side tag filter.
func (f *Finder) FileSystemsForStack(ctx context.Context, region, stack string) ([]string, error) {
	client, err := f.clients.EFS(ctx, region)
	if err != nil {
		return nil, err
	}
	out, err := client.DescribeFileSystems(ctx, &efs.DescribeFileSystemsInput{})
	if err != nil {
		return nil, fmt.Errorf("discovery: describe filesystems: %w", err)
	}
	var ids []string
	for _, fs := range out.FileSystems {
		for _, tag := range fs.Tags {
			if aws.ToString(tag.Key) == tagKey && aws.ToString(tag.Value) == stack {
				ids = append(ids, aws.ToString(fs.FileSystemId))
				break
			}
		}
	}
	return ids, nil
}

// LoadBalancersForStack returns load balancer ARNs whose name matches the
// stack's ALB naming convention. ELBv2 also lacks server-side tag
// filtering on the describe call, so this matches by the
// "<stack>-alb" name geuse always creates.
func (f *Finder) LoadBalancersForStack(ctx context.Context, region, stack string) ([]string, error) {
	client, err := f.clients.ELB(ctx, region)
	if err != nil {
		return nil, err
	}
	out, err := client.DescribeLoadBalancers(ctx, &elasticloadbalancingv2.DescribeLoadBalancersInput{
		Names: []string{stack + "-alb"},
	})
	if err != nil {
		// Not found is expected when no ALB was provisioned for this stack.
		return nil, nil
	}
	arns := make([]string, 0, len(out.LoadBalancers))
	for _, lb := range out.LoadBalancers {
		arns = append(arns, aws.ToString(lb.LoadBalancerArn))
	}
	return arns, nil
}

// CloudFrontStatus exposes a thin existence check for a known distribution
// ID, used by cleanup when state already names one. CloudFront has no
// stack-scoped describe call in the operations set geuse uses, so callers
// must already hold the distribution ID from state.
func (f *Finder) CloudFrontStatus(ctx context.Context, region, distributionID string) (bool, error) {
	client, err := f.clients.CloudFront(ctx, region)
	if err != nil {
		return false, err
	}
	_, err = client.GetDistribution(ctx, &cloudfront.GetDistributionInput{Id: aws.String(distributionID)})
	if err != nil {
		return false, nil
	}
	return true, nil
}
