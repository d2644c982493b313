package resources

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

// VPCCIDR is the CIDR block every geuse-created VPC uses.
const VPCCIDR = "10.0.0.0/16"

// Network creates and tears down the VPC/subnet/security-group/internet-
// gateway set a deployment needs.
type Network struct {
	clients *awsclient.Factory
}

// NewNetwork returns a Network operations helper.
func NewNetwork(clients *awsclient.Factory) *Network {
	return &Network{clients: clients}
}

// CreateVPC creates the VPCCIDR VPC tagged for stack.
func (n *Network) CreateVPC(ctx context.Context, region, stack string) (string, error) {
	client, err := n.clients.EC2(ctx, region)
	if err != nil {
		return "", err
	}
	out, err := client.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock:         aws.String(VPCCIDR),
		TagSpecifications: []ec2types.TagSpecification{TagSpecification(stack, ec2types.ResourceTypeVpc)},
	})
	if err != nil {
		return "", fmt.Errorf("resources: create vpc: %w", err)
	}
	return aws.ToString(out.Vpc.VpcId), nil
}

// DeleteVPC deletes a VPC by ID.
func (n *Network) DeleteVPC(ctx context.Context, region, vpcID string) error {
	client, err := n.clients.EC2(ctx, region)
	if err != nil {
		return err
	}
	if _, err := client.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: aws.String(vpcID)}); err != nil {
		return fmt.Errorf("resources: delete vpc %s: %w", vpcID, err)
	}
	return nil
}

// CreateSubnet creates a subnet inside vpcID with the given CIDR and
// availability zone. When public is true, the subnet is configured to
// auto-assign a public IP to every instance launched into it.
func (n *Network) CreateSubnet(ctx context.Context, region, vpcID, cidr, az, stack string, public bool) (string, error) {
	client, err := n.clients.EC2(ctx, region)
	if err != nil {
		return "", err
	}
	out, err := client.CreateSubnet(ctx, &ec2.CreateSubnetInput{
		VpcId:             aws.String(vpcID),
		CidrBlock:         aws.String(cidr),
		AvailabilityZone:  aws.String(az),
		TagSpecifications: []ec2types.TagSpecification{TagSpecification(stack, ec2types.ResourceTypeSubnet)},
	})
	if err != nil {
		return "", fmt.Errorf("resources: create subnet: %w", err)
	}
	subnetID := aws.ToString(out.Subnet.SubnetId)
	if public {
		if _, err := client.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            aws.String(subnetID),
			MapPublicIpOnLaunch: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)},
		}); err != nil {
			return subnetID, fmt.Errorf("resources: enable public ip on subnet %s: %w", subnetID, err)
		}
	}
	return subnetID, nil
}

// CreateRouteTable creates a route table in vpcID with a default route to
// igwID, for a newly created VPC's public subnets.
func (n *Network) CreateRouteTable(ctx context.Context, region, vpcID, igwID, stack string) (string, error) {
	client, err := n.clients.EC2(ctx, region)
	if err != nil {
		return "", err
	}
	out, err := client.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
		VpcId:             aws.String(vpcID),
		TagSpecifications: []ec2types.TagSpecification{TagSpecification(stack, ec2types.ResourceTypeRouteTable)},
	})
	if err != nil {
		return "", fmt.Errorf("resources: create route table: %w", err)
	}
	rtID := aws.ToString(out.RouteTable.RouteTableId)
	if _, err := client.CreateRoute(ctx, &ec2.CreateRouteInput{
		RouteTableId:         aws.String(rtID),
		DestinationCidrBlock: aws.String("0.0.0.0/0"),
		GatewayId:            aws.String(igwID),
	}); err != nil {
		return rtID, fmt.Errorf("resources: create default route via %s: %w", igwID, err)
	}
	return rtID, nil
}

// AssociateRouteTable associates rtID with subnetID, routing the subnet's
// traffic through rtID's default route.
func (n *Network) AssociateRouteTable(ctx context.Context, region, rtID, subnetID string) error {
	client, err := n.clients.EC2(ctx, region)
	if err != nil {
		return err
	}
	if _, err := client.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
		RouteTableId: aws.String(rtID),
		SubnetId:     aws.String(subnetID),
	}); err != nil {
		return fmt.Errorf("resources: associate route table %s with subnet %s: %w", rtID, subnetID, err)
	}
	return nil
}

// DeleteRouteTable deletes a route table by ID.
func (n *Network) DeleteRouteTable(ctx context.Context, region, rtID string) error {
	client, err := n.clients.EC2(ctx, region)
	if err != nil {
		return err
	}
	if _, err := client.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{RouteTableId: aws.String(rtID)}); err != nil {
		return fmt.Errorf("resources: delete route table %s: %w", rtID, err)
	}
	return nil
}

// DeleteSubnet deletes a subnet by ID.
func (n *Network) DeleteSubnet(ctx context.Context, region, subnetID string) error {
	client, err := n.clients.EC2(ctx, region)
	if err != nil {
		return err
	}
	if _, err := client.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: aws.String(subnetID)}); err != nil {
		return fmt.Errorf("resources: delete subnet %s: %w", subnetID, err)
	}
	return nil
}

// SecurityRule is one inbound TCP allowance: port, scoped to CIDR.
type SecurityRule struct {
	Port int32
	CIDR string
}

// CreateSecurityGroup creates a security group in vpcID permitting the
// given inbound rules.
func (n *Network) CreateSecurityGroup(ctx context.Context, region, vpcID, stack string, rules []SecurityRule) (string, error) {
	client, err := n.clients.EC2(ctx, region)
	if err != nil {
		return "", err
	}
	out, err := client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:         aws.String(stack + "-sg"),
		Description:       aws.String("geuse deployment " + stack),
		VpcId:             aws.String(vpcID),
		TagSpecifications: []ec2types.TagSpecification{TagSpecification(stack, ec2types.ResourceTypeSecurityGroup)},
	})
	if err != nil {
		return "", fmt.Errorf("resources: create security group: %w", err)
	}
	sgID := aws.ToString(out.GroupId)

	perms := make([]ec2types.IpPermission, 0, len(rules))
	for _, rule := range rules {
		perms = append(perms, ec2types.IpPermission{
			IpProtocol: aws.String("tcp"),
			FromPort:   aws.Int32(rule.Port),
			ToPort:     aws.Int32(rule.Port),
			IpRanges:   []ec2types.IpRange{{CidrIp: aws.String(rule.CIDR)}},
		})
	}
	if len(perms) > 0 {
		if _, err := client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(sgID),
			IpPermissions: perms,
		}); err != nil {
			return sgID, fmt.Errorf("resources: authorize security group ingress: %w", err)
		}
	}
	return sgID, nil
}

// DeleteSecurityGroup deletes a security group by ID.
func (n *Network) DeleteSecurityGroup(ctx context.Context, region, sgID string) error {
	client, err := n.clients.EC2(ctx, region)
	if err != nil {
		return err
	}
	if _, err := client.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: aws.String(sgID)}); err != nil {
		return fmt.Errorf("resources: delete security group %s: %w", sgID, err)
	}
	return nil
}

// AttachInternetGateway creates and attaches an internet gateway to vpcID.
func (n *Network) AttachInternetGateway(ctx context.Context, region, vpcID, stack string) (string, error) {
	client, err := n.clients.EC2(ctx, region)
	if err != nil {
		return "", err
	}
	igw, err := client.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{
		TagSpecifications: []ec2types.TagSpecification{TagSpecification(stack, ec2types.ResourceTypeInternetGateway)},
	})
	if err != nil {
		return "", fmt.Errorf("resources: create internet gateway: %w", err)
	}
	igwID := aws.ToString(igw.InternetGateway.InternetGatewayId)
	if _, err := client.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
		InternetGatewayId: aws.String(igwID),
		VpcId:             aws.String(vpcID),
	}); err != nil {
		return igwID, fmt.Errorf("resources: attach internet gateway: %w", err)
	}
	return igwID, nil
}

// DetachAndDeleteInternetGateway detaches igwID from vpcID and deletes it.
func (n *Network) DetachAndDeleteInternetGateway(ctx context.Context, region, vpcID, igwID string) error {
	client, err := n.clients.EC2(ctx, region)
	if err != nil {
		return err
	}
	if _, err := client.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
		InternetGatewayId: aws.String(igwID),
		VpcId:             aws.String(vpcID),
	}); err != nil {
		return fmt.Errorf("resources: detach internet gateway %s: %w", igwID, err)
	}
	if _, err := client.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{
		InternetGatewayId: aws.String(igwID),
	}); err != nil {
		return fmt.Errorf("resources: delete internet gateway %s: %w", igwID, err)
	}
	return nil
}
