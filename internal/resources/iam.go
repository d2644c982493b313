package resources

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

// ec2TrustPolicy lets the EC2 service assume the role.
const ec2TrustPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"Service": "ec2.amazonaws.com"},
    "Action": "sts:AssumeRole"
  }]
}`

// Identity creates and tears down the instance role/profile a deployed
// instance uses to reach SSM and its EFS mount.
type Identity struct {
	clients *awsclient.Factory
}

// NewIdentity returns an Identity operations helper.
func NewIdentity(clients *awsclient.Factory) *Identity {
	return &Identity{clients: clients}
}

// rolePolicies are the managed policies attached to every deployment role.
var rolePolicies = []string{
	"arn:aws:iam::aws:policy/AmazonSSMManagedInstanceCore",
	"arn:aws:iam::aws:policy/AmazonElasticFileSystemClientReadWriteAccess",
}

// CreateRole creates an EC2 instance role named for stack with the standard
// managed policies attached, and an instance profile wrapping it.
func (i *Identity) CreateRole(ctx context.Context, region, stack string) (roleName, profileName string, err error) {
	client, err := i.clients.IAM(ctx, region)
	if err != nil {
		return "", "", err
	}

	roleName = stack + "-role"
	if _, err = client.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(roleName),
		AssumeRolePolicyDocument: aws.String(ec2TrustPolicy),
	}); err != nil {
		return "", "", fmt.Errorf("resources: create role %s: %w", roleName, err)
	}

	for _, policyARN := range rolePolicies {
		if _, err = client.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
			RoleName:  aws.String(roleName),
			PolicyArn: aws.String(policyARN),
		}); err != nil {
			return roleName, "", fmt.Errorf("resources: attach policy %s to %s: %w", policyARN, roleName, err)
		}
	}

	profileName = stack + "-profile"
	if _, err = client.CreateInstanceProfile(ctx, &iam.CreateInstanceProfileInput{
		InstanceProfileName: aws.String(profileName),
	}); err != nil {
		return roleName, "", fmt.Errorf("resources: create instance profile %s: %w", profileName, err)
	}
	if _, err = client.AddRoleToInstanceProfile(ctx, &iam.AddRoleToInstanceProfileInput{
		InstanceProfileName: aws.String(profileName),
		RoleName:            aws.String(roleName),
	}); err != nil {
		return roleName, profileName, fmt.Errorf("resources: add role %s to profile %s: %w", roleName, profileName, err)
	}
	return roleName, profileName, nil
}

// DeleteRole tears down an instance profile and its role, detaching managed
// policies first since IAM refuses to delete a role with policies attached.
func (i *Identity) DeleteRole(ctx context.Context, region, roleName, profileName string) error {
	client, err := i.clients.IAM(ctx, region)
	if err != nil {
		return err
	}

	if profileName != "" {
		if _, err := client.RemoveRoleFromInstanceProfile(ctx, &iam.RemoveRoleFromInstanceProfileInput{
			InstanceProfileName: aws.String(profileName),
			RoleName:            aws.String(roleName),
		}); err != nil {
			return fmt.Errorf("resources: remove role %s from profile %s: %w", roleName, profileName, err)
		}
		if _, err := client.DeleteInstanceProfile(ctx, &iam.DeleteInstanceProfileInput{
			InstanceProfileName: aws.String(profileName),
		}); err != nil {
			return fmt.Errorf("resources: delete instance profile %s: %w", profileName, err)
		}
	}

	for _, policyARN := range rolePolicies {
		if _, err := client.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
			RoleName:  aws.String(roleName),
			PolicyArn: aws.String(policyARN),
		}); err != nil {
			return fmt.Errorf("resources: detach policy %s from %s: %w", policyARN, roleName, err)
		}
	}

	if _, err := client.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(roleName)}); err != nil {
		return fmt.Errorf("resources: delete role %s: %w", roleName, err)
	}
	return nil
}

// RoleExists reports whether roleName is already present.
func (i *Identity) RoleExists(ctx context.Context, region, roleName string) (bool, error) {
	client, err := i.clients.IAM(ctx, region)
	if err != nil {
		return false, err
	}
	_, err = client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(roleName)})
	if err != nil {
		return false, nil
	}
	return true, nil
}
