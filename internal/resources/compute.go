package resources

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

// Compute launches and terminates EC2 instances.
type Compute struct {
	clients *awsclient.Factory
}

// NewCompute returns a Compute operations helper.
func NewCompute(clients *awsclient.Factory) *Compute {
	return &Compute{clients: clients}
}

// LaunchInput parameterizes a RunInstances call.
type LaunchInput struct {
	Region             string
	Stack              string
	ImageID            string
	InstanceType       string
	SubnetID           string
	SecurityGroupID    string
	AvailabilityZone   string
	IAMInstanceProfile string
	UserData           []byte
	Spot               bool
}

// Launch runs one instance and returns its ID.
func (c *Compute) Launch(ctx context.Context, in LaunchInput) (string, error) {
	client, err := c.clients.EC2(ctx, in.Region)
	if err != nil {
		return "", err
	}

	input := &ec2.RunInstancesInput{
		ImageId:           aws.String(in.ImageID),
		InstanceType:      ec2types.InstanceType(in.InstanceType),
		MinCount:          aws.Int32(1),
		MaxCount:          aws.Int32(1),
		SubnetId:          aws.String(in.SubnetID),
		SecurityGroupIds:  []string{in.SecurityGroupID},
		UserData:          aws.String(encodeUserData(in.UserData)),
		TagSpecifications: []ec2types.TagSpecification{TagSpecification(in.Stack, ec2types.ResourceTypeInstance)},
	}
	if in.IAMInstanceProfile != "" {
		input.IamInstanceProfile = &ec2types.IamInstanceProfileSpecification{Name: aws.String(in.IAMInstanceProfile)}
	}
	if in.Spot {
		input.InstanceMarketOptions = &ec2types.InstanceMarketOptionsRequest{
			MarketType: ec2types.MarketTypeSpot,
			SpotOptions: &ec2types.SpotMarketOptions{
				SpotInstanceType: ec2types.SpotInstanceTypeOneTime,
			},
		}
	}

	out, err := client.RunInstances(ctx, input)
	if err != nil {
		return "", fmt.Errorf("resources: run instances: %w", err)
	}
	if len(out.Instances) == 0 {
		return "", fmt.Errorf("resources: run instances returned no instances")
	}
	return aws.ToString(out.Instances[0].InstanceId), nil
}

// Terminate terminates one instance.
func (c *Compute) Terminate(ctx context.Context, region, instanceID string) error {
	client, err := c.clients.EC2(ctx, region)
	if err != nil {
		return err
	}
	if _, err := client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{instanceID}}); err != nil {
		return fmt.Errorf("resources: terminate instance %s: %w", instanceID, err)
	}
	return nil
}

// Stop stops one instance and waits is left to the caller.
func (c *Compute) Stop(ctx context.Context, region, instanceID string) error {
	client, err := c.clients.EC2(ctx, region)
	if err != nil {
		return err
	}
	if _, err := client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{instanceID}}); err != nil {
		return fmt.Errorf("resources: stop instance %s: %w", instanceID, err)
	}
	return nil
}

// Start starts one instance.
func (c *Compute) Start(ctx context.Context, region, instanceID string) error {
	client, err := c.clients.EC2(ctx, region)
	if err != nil {
		return err
	}
	if _, err := client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{instanceID}}); err != nil {
		return fmt.Errorf("resources: start instance %s: %w", instanceID, err)
	}
	return nil
}

// ModifyInstanceType changes the instance type of a stopped instance.
func (c *Compute) ModifyInstanceType(ctx context.Context, region, instanceID, instanceType string) error {
	client, err := c.clients.EC2(ctx, region)
	if err != nil {
		return err
	}
	_, err = client.ModifyInstanceAttribute(ctx, &ec2.ModifyInstanceAttributeInput{
		InstanceId:   aws.String(instanceID),
		InstanceType: &ec2types.AttributeValue{Value: aws.String(instanceType)},
	})
	if err != nil {
		return fmt.Errorf("resources: modify instance type for %s: %w", instanceID, err)
	}
	return nil
}

// Describe returns the public/private host info for instanceID.
func (c *Compute) Describe(ctx context.Context, region, instanceID string) (publicHost string, state string, err error) {
	client, err := c.clients.EC2(ctx, region)
	if err != nil {
		return "", "", err
	}
	out, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		return "", "", fmt.Errorf("resources: describe instance %s: %w", instanceID, err)
	}
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			host := aws.ToString(inst.PublicDnsName)
			if host == "" {
				host = aws.ToString(inst.PublicIpAddress)
			}
			return host, string(inst.State.Name), nil
		}
	}
	return "", "", fmt.Errorf("resources: instance %s not found", instanceID)
}

func encodeUserData(data []byte) string {
	return base64Encode(data)
}
