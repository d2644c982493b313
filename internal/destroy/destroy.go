// Package destroy tears down every resource a deployment owns, in reverse
// of the order the orchestrator creates them, skipping anything with
// "reused" provenance.
package destroy

import (
	"context"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/model"
	"github.com/GoCodeAlone/geuse/internal/resources"
)

// ResourceRef identifies one resource considered during destruction.
type ResourceRef struct {
	Kind model.ResourceKind
	ID   string
}

// Result summarizes the outcome of a destruction run.
type Result struct {
	Deleted   []ResourceRef
	Preserved []ResourceRef
	Errors    []string
	Duration  time.Duration
}

// Service tears down a deployment's resources.
type Service struct {
	network  *resources.Network
	compute  *resources.Compute
	fs       *resources.Filesystem
	identity *resources.Identity
	lb       *resources.LoadBalancer
	cdn      *resources.CDN
	dryRun   bool
}

// New returns a destroy Service. When dryRun is true, every mutating call
// is skipped and resources are reported as if they would be deleted.
func New(network *resources.Network, compute *resources.Compute, fs *resources.Filesystem, identity *resources.Identity, lb *resources.LoadBalancer, cdn *resources.CDN, dryRun bool) *Service {
	return &Service{network: network, compute: compute, fs: fs, identity: identity, lb: lb, cdn: cdn, dryRun: dryRun}
}

// Destroy tears down state's resources in reverse-dependency order: CDN,
// load balancer, instance, filesystem mount targets + filesystem, IAM
// role, security group, subnet, VPC. Each step's error is collected rather
// than aborting, so a failure on one resource doesn't leave the rest
// undeleted. Resources with "reused" provenance are preserved, not
// deleted.
func (s *Service) Destroy(ctx context.Context, region string, state *model.DeploymentState) Result {
	start := time.Now()
	var result Result

	owns := func(kind model.ResourceKind) bool {
		return state.Provenance[kind] != model.ProvenanceReused
	}

	if state.DistributionID != "" {
		if !owns(model.ResourceCDN) {
			result.Preserved = append(result.Preserved, ResourceRef{Kind: model.ResourceCDN, ID: state.DistributionID})
		} else if err := s.deleteCDN(ctx, region, state.DistributionID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Deleted = append(result.Deleted, ResourceRef{Kind: model.ResourceCDN, ID: state.DistributionID})
		}
	}

	if state.LoadBalancerARN != "" {
		if !owns(model.ResourceLoadBalancer) {
			result.Preserved = append(result.Preserved, ResourceRef{Kind: model.ResourceLoadBalancer, ID: state.LoadBalancerARN})
		} else if err := s.deleteLoadBalancer(ctx, region, state.LoadBalancerARN, state.TargetGroupARN); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Deleted = append(result.Deleted, ResourceRef{Kind: model.ResourceLoadBalancer, ID: state.LoadBalancerARN})
		}
	}

	if state.InstanceID != "" {
		if !owns(model.ResourceInstance) {
			result.Preserved = append(result.Preserved, ResourceRef{Kind: model.ResourceInstance, ID: state.InstanceID})
		} else if err := s.deleteInstance(ctx, region, state.InstanceID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Deleted = append(result.Deleted, ResourceRef{Kind: model.ResourceInstance, ID: state.InstanceID})
		}
	}

	if state.FilesystemID != "" {
		if !owns(model.ResourceFilesystem) {
			result.Preserved = append(result.Preserved, ResourceRef{Kind: model.ResourceFilesystem, ID: state.FilesystemID})
		} else if err := s.deleteFilesystem(ctx, region, state.FilesystemID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Deleted = append(result.Deleted, ResourceRef{Kind: model.ResourceFilesystem, ID: state.FilesystemID})
		}
	}

	if state.IAMRoleName != "" {
		if !owns(model.ResourceIAMRole) {
			result.Preserved = append(result.Preserved, ResourceRef{Kind: model.ResourceIAMRole, ID: state.IAMRoleName})
		} else if err := s.deleteIdentity(ctx, region, state.IAMRoleName, state.IAMProfileName); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Deleted = append(result.Deleted, ResourceRef{Kind: model.ResourceIAMRole, ID: state.IAMRoleName})
		}
	}

	if state.SecurityGroupID != "" {
		if !owns(model.ResourceSecurityGroup) {
			result.Preserved = append(result.Preserved, ResourceRef{Kind: model.ResourceSecurityGroup, ID: state.SecurityGroupID})
		} else if err := s.deleteSecurityGroup(ctx, region, state.SecurityGroupID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Deleted = append(result.Deleted, ResourceRef{Kind: model.ResourceSecurityGroup, ID: state.SecurityGroupID})
		}
	}

	for _, subnetID := range state.SubnetIDs {
		if !owns(model.ResourceSubnet) {
			result.Preserved = append(result.Preserved, ResourceRef{Kind: model.ResourceSubnet, ID: subnetID})
		} else if err := s.deleteSubnet(ctx, region, subnetID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Deleted = append(result.Deleted, ResourceRef{Kind: model.ResourceSubnet, ID: subnetID})
		}
	}

	if state.RouteTableID != "" {
		if !owns(model.ResourceRouteTable) {
			result.Preserved = append(result.Preserved, ResourceRef{Kind: model.ResourceRouteTable, ID: state.RouteTableID})
		} else if err := s.deleteRouteTable(ctx, region, state.RouteTableID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Deleted = append(result.Deleted, ResourceRef{Kind: model.ResourceRouteTable, ID: state.RouteTableID})
		}
	}

	if state.InternetGatewayID != "" {
		if !owns(model.ResourceInternetGateway) {
			result.Preserved = append(result.Preserved, ResourceRef{Kind: model.ResourceInternetGateway, ID: state.InternetGatewayID})
		} else if err := s.deleteInternetGateway(ctx, region, state.VPCID, state.InternetGatewayID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Deleted = append(result.Deleted, ResourceRef{Kind: model.ResourceInternetGateway, ID: state.InternetGatewayID})
		}
	}

	if state.VPCID != "" {
		if !owns(model.ResourceVPC) {
			result.Preserved = append(result.Preserved, ResourceRef{Kind: model.ResourceVPC, ID: state.VPCID})
		} else if err := s.deleteVPC(ctx, region, state.VPCID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Deleted = append(result.Deleted, ResourceRef{Kind: model.ResourceVPC, ID: state.VPCID})
		}
	}

	result.Duration = time.Since(start)
	return result
}

func (s *Service) deleteCDN(ctx context.Context, region, distributionID string) error {
	if s.dryRun {
		return nil
	}
	if err := s.cdn.Delete(ctx, region, distributionID); err != nil {
		return fmt.Errorf("destroy: delete cdn %s: %w", distributionID, err)
	}
	return nil
}

func (s *Service) deleteLoadBalancer(ctx context.Context, region, lbARN, tgARN string) error {
	if s.dryRun {
		return nil
	}
	if err := s.lb.Teardown(ctx, region, lbARN, tgARN); err != nil {
		return fmt.Errorf("destroy: teardown load balancer %s: %w", lbARN, err)
	}
	return nil
}

func (s *Service) deleteInstance(ctx context.Context, region, instanceID string) error {
	if s.dryRun {
		return nil
	}
	if err := s.compute.Terminate(ctx, region, instanceID); err != nil {
		return fmt.Errorf("destroy: terminate instance %s: %w", instanceID, err)
	}
	return nil
}

func (s *Service) deleteFilesystem(ctx context.Context, region, filesystemID string) error {
	if s.dryRun {
		return nil
	}
	mountTargetIDs, err := s.fs.MountTargetIDs(ctx, region, filesystemID)
	if err != nil {
		return fmt.Errorf("destroy: list mount targets for %s: %w", filesystemID, err)
	}
	for _, mtID := range mountTargetIDs {
		if err := s.fs.DeleteMountTarget(ctx, region, mtID); err != nil {
			return fmt.Errorf("destroy: delete mount target %s: %w", mtID, err)
		}
	}
	if err := s.fs.Delete(ctx, region, filesystemID); err != nil {
		return fmt.Errorf("destroy: delete filesystem %s: %w", filesystemID, err)
	}
	return nil
}

func (s *Service) deleteIdentity(ctx context.Context, region, roleName, profileName string) error {
	if s.dryRun {
		return nil
	}
	if err := s.identity.DeleteRole(ctx, region, roleName, profileName); err != nil {
		return fmt.Errorf("destroy: delete role %s: %w", roleName, err)
	}
	return nil
}

func (s *Service) deleteSecurityGroup(ctx context.Context, region, sgID string) error {
	if s.dryRun {
		return nil
	}
	if err := s.network.DeleteSecurityGroup(ctx, region, sgID); err != nil {
		return fmt.Errorf("destroy: delete security group %s: %w", sgID, err)
	}
	return nil
}

func (s *Service) deleteSubnet(ctx context.Context, region, subnetID string) error {
	if s.dryRun {
		return nil
	}
	if err := s.network.DeleteSubnet(ctx, region, subnetID); err != nil {
		return fmt.Errorf("destroy: delete subnet %s: %w", subnetID, err)
	}
	return nil
}

func (s *Service) deleteRouteTable(ctx context.Context, region, rtID string) error {
	if s.dryRun {
		return nil
	}
	if err := s.network.DeleteRouteTable(ctx, region, rtID); err != nil {
		return fmt.Errorf("destroy: delete route table %s: %w", rtID, err)
	}
	return nil
}

func (s *Service) deleteInternetGateway(ctx context.Context, region, vpcID, igwID string) error {
	if s.dryRun {
		return nil
	}
	if err := s.network.DetachAndDeleteInternetGateway(ctx, region, vpcID, igwID); err != nil {
		return fmt.Errorf("destroy: delete internet gateway %s: %w", igwID, err)
	}
	return nil
}

func (s *Service) deleteVPC(ctx context.Context, region, vpcID string) error {
	if s.dryRun {
		return nil
	}
	if err := s.network.DeleteVPC(ctx, region, vpcID); err != nil {
		return fmt.Errorf("destroy: delete vpc %s: %w", vpcID, err)
	}
	return nil
}
