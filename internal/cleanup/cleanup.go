// Package cleanup finds and removes orphaned resources: anything tagged
// geusemaker:deployment for a stack that no longer has an active state
// record.
package cleanup

import (
	"context"
	"fmt"

	"github.com/GoCodeAlone/geuse/internal/destroy"
	"github.com/GoCodeAlone/geuse/internal/discovery"
	"github.com/GoCodeAlone/geuse/internal/model"
	"github.com/GoCodeAlone/geuse/internal/statestore"
)

// estimatedMonthlyCostByKind gives a rough monthly dollar figure per
// orphaned resource kind, used only to size the "money currently being
// wasted" figure in the report; it is not a substitute for actual pricing.
var estimatedMonthlyCostByKind = map[model.ResourceKind]float64{
	model.ResourceInstance:      30.0,
	model.ResourceFilesystem:    5.0,
	model.ResourceLoadBalancer:  18.0,
	model.ResourceCDN:           2.0,
	model.ResourceVPC:           0.0,
	model.ResourceSubnet:        0.0,
	model.ResourceSecurityGroup: 0.0,
	model.ResourceIAMRole:       0.0,
}

// Orphan is a resource found tagged for a stack with no corresponding
// active state record.
type Orphan struct {
	Stack               string
	Kind                model.ResourceKind
	ID                  string
	EstimatedMonthlyUSD float64
}

// Report is the outcome of a cleanup scan or run.
type Report struct {
	Orphans []Orphan
	Deleted []Orphan
	Errors  []string
}

// Service scans for and removes orphaned resources.
type Service struct {
	finder *discovery.Finder
	store  *statestore.Store
}

// New returns a cleanup Service.
func New(finder *discovery.Finder, store *statestore.Store) *Service {
	return &Service{finder: finder, store: store}
}

// Scan discovers every resource tagged for each of candidateStacks (e.g.
// every stack name ever seen in backups or the archive, since AWS has no
// API to list "every tag value ever used for geusemaker:deployment"
// directly), skips the ones present in activeStacks, and returns the rest
// as orphans.
func (s *Service) Scan(ctx context.Context, region string, candidateStacks, activeStacks []string) (Report, error) {
	var report Report
	active := make(map[string]bool, len(activeStacks))
	for _, stack := range activeStacks {
		active[stack] = true
	}

	for _, stack := range candidateStacks {
		if active[stack] {
			continue
		}
		report.Orphans = append(report.Orphans, s.orphansForStack(ctx, region, stack)...)
	}
	return report, nil
}

func (s *Service) orphansForStack(ctx context.Context, region, stack string) []Orphan {
	var orphans []Orphan

	if vpcs, err := s.finder.VPCsForStack(ctx, region, stack); err == nil {
		for _, v := range vpcs {
			orphans = append(orphans, newOrphan(stack, model.ResourceVPC, v.ID))
		}
	}
	if subnets, err := s.finder.SubnetsForStack(ctx, region, stack); err == nil {
		for _, sn := range subnets {
			orphans = append(orphans, newOrphan(stack, model.ResourceSubnet, sn.ID))
		}
	}
	if sgs, err := s.finder.SecurityGroupsForStack(ctx, region, stack); err == nil {
		for _, id := range sgs {
			orphans = append(orphans, newOrphan(stack, model.ResourceSecurityGroup, id))
		}
	}
	if instances, err := s.finder.InstancesForStack(ctx, region, stack); err == nil {
		for _, id := range instances {
			orphans = append(orphans, newOrphan(stack, model.ResourceInstance, id))
		}
	}
	if filesystems, err := s.finder.FileSystemsForStack(ctx, region, stack); err == nil {
		for _, id := range filesystems {
			orphans = append(orphans, newOrphan(stack, model.ResourceFilesystem, id))
		}
	}
	if lbs, err := s.finder.LoadBalancersForStack(ctx, region, stack); err == nil {
		for _, arn := range lbs {
			orphans = append(orphans, newOrphan(stack, model.ResourceLoadBalancer, arn))
		}
	}

	return orphans
}

func newOrphan(stack string, kind model.ResourceKind, id string) Orphan {
	return Orphan{Stack: stack, Kind: kind, ID: id, EstimatedMonthlyUSD: estimatedMonthlyCostByKind[kind]}
}

// Delete removes every orphan found by Scan, collecting per-resource
// errors rather than aborting. Each orphan is deleted independently since
// orphans rarely share the dependency ordering a live deployment does (a
// leaked filesystem with no matching VPC record is common after partial
// failures).
func (s *Service) Delete(ctx context.Context, region string, orphans []Orphan, destroyer *destroy.Service) Report {
	var report Report
	for _, o := range orphans {
		if err := s.deleteOne(ctx, region, o, destroyer); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s %s: %v", o.Kind, o.ID, err))
			continue
		}
		report.Deleted = append(report.Deleted, o)
	}
	return report
}

func (s *Service) deleteOne(ctx context.Context, region string, o Orphan, destroyer *destroy.Service) error {
	synthetic := &model.DeploymentState{Provenance: model.ResourceProvenance{}}
	switch o.Kind {
	case model.ResourceVPC:
		synthetic.VPCID = o.ID
	case model.ResourceSubnet:
		synthetic.SubnetIDs = []string{o.ID}
	case model.ResourceSecurityGroup:
		synthetic.SecurityGroupID = o.ID
	case model.ResourceInstance:
		synthetic.InstanceID = o.ID
	case model.ResourceFilesystem:
		synthetic.FilesystemID = o.ID
	case model.ResourceLoadBalancer:
		synthetic.LoadBalancerARN = o.ID
	default:
		return fmt.Errorf("cleanup: unsupported orphan kind %s", o.Kind)
	}
	result := destroyer.Destroy(ctx, region, synthetic)
	if len(result.Errors) > 0 {
		return fmt.Errorf("%v", result.Errors)
	}
	return nil
}
