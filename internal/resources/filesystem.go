package resources

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/efs"
	efstypes "github.com/aws/aws-sdk-go-v2/service/efs/types"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

// Filesystem creates and tears down EFS file systems and mount targets.
type Filesystem struct {
	clients *awsclient.Factory
}

// NewFilesystem returns a Filesystem operations helper.
func NewFilesystem(clients *awsclient.Factory) *Filesystem {
	return &Filesystem{clients: clients}
}

// Create creates an EFS file system tagged for stack, with the given
// performance mode.
func (f *Filesystem) Create(ctx context.Context, region, stack string) (string, error) {
	client, err := f.clients.EFS(ctx, region)
	if err != nil {
		return "", err
	}
	out, err := client.CreateFileSystem(ctx, &efs.CreateFileSystemInput{
		PerformanceMode: efstypes.PerformanceModeGeneralPurpose,
		ThroughputMode:  efstypes.ThroughputModeBursting,
		Tags: []efstypes.Tag{
			{Key: aws.String("geusemaker:deployment"), Value: aws.String(stack)},
			{Key: aws.String("Stack"), Value: aws.String(stack)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("resources: create filesystem: %w", err)
	}
	return aws.ToString(out.FileSystemId), nil
}

// CreateMountTarget creates a mount target for filesystemID in subnetID,
// constrained to securityGroupID. It returns the mount target ID and the
// IP address AWS assigned it, which user-data and post-deploy validation
// both need to reach the NFS export.
func (f *Filesystem) CreateMountTarget(ctx context.Context, region, filesystemID, subnetID, securityGroupID string) (string, string, error) {
	client, err := f.clients.EFS(ctx, region)
	if err != nil {
		return "", "", err
	}
	out, err := client.CreateMountTarget(ctx, &efs.CreateMountTargetInput{
		FileSystemId:   aws.String(filesystemID),
		SubnetId:       aws.String(subnetID),
		SecurityGroups: []string{securityGroupID},
	})
	if err != nil {
		return "", "", fmt.Errorf("resources: create mount target: %w", err)
	}
	return aws.ToString(out.MountTargetId), aws.ToString(out.IpAddress), nil
}

// MountTargetIDs lists the mount target IDs for filesystemID.
func (f *Filesystem) MountTargetIDs(ctx context.Context, region, filesystemID string) ([]string, error) {
	client, err := f.clients.EFS(ctx, region)
	if err != nil {
		return nil, err
	}
	out, err := client.DescribeMountTargets(ctx, &efs.DescribeMountTargetsInput{FileSystemId: aws.String(filesystemID)})
	if err != nil {
		return nil, fmt.Errorf("resources: describe mount targets for %s: %w", filesystemID, err)
	}
	ids := make([]string, 0, len(out.MountTargets))
	for _, mt := range out.MountTargets {
		ids = append(ids, aws.ToString(mt.MountTargetId))
	}
	return ids, nil
}

// DeleteMountTarget deletes a mount target by ID.
func (f *Filesystem) DeleteMountTarget(ctx context.Context, region, mountTargetID string) error {
	client, err := f.clients.EFS(ctx, region)
	if err != nil {
		return err
	}
	if _, err := client.DeleteMountTarget(ctx, &efs.DeleteMountTargetInput{MountTargetId: aws.String(mountTargetID)}); err != nil {
		return fmt.Errorf("resources: delete mount target %s: %w", mountTargetID, err)
	}
	return nil
}

// Delete deletes a file system by ID. All mount targets must already be
// deleted.
func (f *Filesystem) Delete(ctx context.Context, region, filesystemID string) error {
	client, err := f.clients.EFS(ctx, region)
	if err != nil {
		return err
	}
	if _, err := client.DeleteFileSystem(ctx, &efs.DeleteFileSystemInput{FileSystemId: aws.String(filesystemID)}); err != nil {
		return fmt.Errorf("resources: delete filesystem %s: %w", filesystemID, err)
	}
	return nil
}
