// Package orchestrator drives a deployment through its provisioning
// stages: compute selection, networking, filesystem, identity, user-data,
// instance launch, and the optional load-balancer/CDN stages for higher
// tiers.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoCodeAlone/geuse/internal/ami"
	"github.com/GoCodeAlone/geuse/internal/errs"
	"github.com/GoCodeAlone/geuse/internal/model"
	"github.com/GoCodeAlone/geuse/internal/resources"
	"github.com/GoCodeAlone/geuse/internal/selection"
	"github.com/GoCodeAlone/geuse/internal/statestore"
	"github.com/GoCodeAlone/geuse/internal/userdata"
)

// Stage is one step of the provisioning pipeline. A returned error aborts
// the pipeline; Run.State reflects whatever was completed so far.
type Stage func(ctx context.Context, run *Run) error

// Run carries the mutable state of one orchestrator invocation through its
// stages.
type Run struct {
	Config model.DeploymentConfig
	State  *model.DeploymentState

	Selector *selection.Selector
	AMI      *ami.Resolver
	Network  *resources.Network
	Compute  *resources.Compute
	FS       *resources.Filesystem
	Identity *resources.Identity
	LB       *resources.LoadBalancer
	CDN      *resources.CDN
	Store    *statestore.Store

	Logger   *slog.Logger
	deadline time.Time

	azChoice        string
	useSpot         bool
	instanceProfile string
	userData        []byte
}

// NewRun constructs a Run ready to execute, deriving the deadline from the
// config's rollback timeout when rollback is enabled.
func NewRun(cfg model.DeploymentConfig) *Run {
	run := &Run{
		Config: cfg,
		State: &model.DeploymentState{
			Config:     cfg,
			Status:     model.StatusPending,
			Provenance: model.ResourceProvenance{},
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		},
		Logger: slog.Default(),
	}
	if cfg.Rollback.Enabled {
		run.deadline = time.Now().Add(time.Duration(cfg.Rollback.TimeoutMinutes) * time.Minute)
	}
	return run
}

// CheckDeadline returns an OrchestrationError if the run's rollback
// deadline has passed. Called at every stage boundary.
func (r *Run) CheckDeadline() error {
	if r.deadline.IsZero() {
		return nil
	}
	if time.Now().After(r.deadline) {
		return &errs.OrchestrationError{Stage: "deadline", Err: fmt.Errorf("exceeded rollback timeout")}
	}
	return nil
}

func (r *Run) checkpoint(ctx context.Context) error {
	if r.Store == nil {
		return nil
	}
	if err := r.Store.Save(ctx, r.State); err != nil {
		return fmt.Errorf("orchestrator: checkpoint save: %w", err)
	}
	return nil
}

// Pipeline runs an ordered sequence of stages against a Run.
type Pipeline struct {
	stages []Stage
}

// NewPipeline returns a Pipeline running stages in order.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Execute runs every stage in order, stopping at the first error.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	for _, stage := range p.stages {
		if err := run.CheckDeadline(); err != nil {
			return err
		}
		if err := stage(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

// Tier1Stages is the base pipeline every deployment runs: compute
// selection through instance launch and final state save.
func Tier1Stages() []Stage {
	return []Stage{
		selectComputeStage,
		networkStage,
		securityGroupStage,
		filesystemStage,
		checkpointStage,
		identityStage,
		userDataStage,
		launchStage,
		finalizeStage,
	}
}

// Tier2Stages appends the load-balancer stage to Tier1Stages, for
// deployments with EnableALB set.
func Tier2Stages() []Stage {
	return append(Tier1Stages(), loadBalancerStage)
}

// Tier3Stages appends the CDN stage to Tier2Stages, for deployments with
// EnableCDN set.
func Tier3Stages() []Stage {
	return append(Tier2Stages(), cdnStage)
}

// StagesFor selects the stage set matching cfg's enabled features.
func StagesFor(cfg model.DeploymentConfig) []Stage {
	switch {
	case cfg.EnableCDN:
		return Tier3Stages()
	case cfg.EnableALB:
		return Tier2Stages()
	default:
		return Tier1Stages()
	}
}

func selectComputeStage(ctx context.Context, run *Run) error {
	choice, err := run.Selector.Select(ctx, run.Config.InstanceType, run.Config.Region, run.Config.PreferSpot)
	if err != nil {
		return &errs.OrchestrationError{Stage: "select_compute", Err: err}
	}
	run.State.Cost.EstimatedMonthlyUSD = choice.OnDemandPrice * 24 * 30
	if choice.UseSpot {
		run.State.Cost.EstimatedMonthlyUSD = choice.SpotPrice * 24 * 30
	}
	run.State.Cost.LastPricedAt = time.Now().UTC()
	run.State.Cost.IsSpot = choice.UseSpot
	run.State.Cost.OnDemandPricePerHour = choice.OnDemandPrice
	run.azChoice = choice.AvailabilityZone
	run.useSpot = choice.UseSpot
	return nil
}

// secondaryAZ picks a second availability zone in the same region as az,
// alternating the trailing letter so the two public/private subnet pairs
// land in distinct AZs.
func secondaryAZ(az string) string {
	if az == "" {
		return ""
	}
	last := az[len(az)-1]
	base := az[:len(az)-1]
	if last == 'a' {
		return base + "b"
	}
	return base + "a"
}

// publicSubnetCIDRs and privateSubnetCIDRs carve resources.VPCCIDR
// (10.0.0.0/16) into two public and two private /24s, one pair per AZ.
var publicSubnetCIDRs = [2]string{"10.0.0.0/24", "10.0.1.0/24"}
var privateSubnetCIDRs = [2]string{"10.0.10.0/24", "10.0.11.0/24"}

func networkStage(ctx context.Context, run *Run) error {
	reusedVPC := run.Config.ExistingVPCID != ""
	if reusedVPC {
		run.State.VPCID = run.Config.ExistingVPCID
		run.State.Provenance[model.ResourceVPC] = model.ProvenanceReused
		if run.Config.AttachInternetGateway {
			igwID, err := run.Network.AttachInternetGateway(ctx, run.Config.Region, run.State.VPCID, run.Config.StackName)
			if err != nil {
				return &errs.OrchestrationError{Stage: "network", Err: err}
			}
			run.State.InternetGatewayID = igwID
			run.State.Provenance[model.ResourceInternetGateway] = model.ProvenanceCreated
		}
	} else {
		vpcID, err := run.Network.CreateVPC(ctx, run.Config.Region, run.Config.StackName)
		if err != nil {
			return &errs.OrchestrationError{Stage: "network", Err: err}
		}
		run.State.VPCID = vpcID
		run.State.Provenance[model.ResourceVPC] = model.ProvenanceCreated

		// A freshly created VPC always needs its own route to the
		// internet; AttachInternetGateway only governs reused VPCs,
		// which may already have one.
		igwID, err := run.Network.AttachInternetGateway(ctx, run.Config.Region, vpcID, run.Config.StackName)
		if err != nil {
			return &errs.OrchestrationError{Stage: "network", Err: err}
		}
		run.State.InternetGatewayID = igwID
		run.State.Provenance[model.ResourceInternetGateway] = model.ProvenanceCreated

		rtID, err := run.Network.CreateRouteTable(ctx, run.Config.Region, vpcID, igwID, run.Config.StackName)
		if err != nil {
			return &errs.OrchestrationError{Stage: "network", Err: err}
		}
		run.State.RouteTableID = rtID
		run.State.Provenance[model.ResourceRouteTable] = model.ProvenanceCreated
	}

	if run.Config.ExistingSubnetID != "" {
		run.State.SubnetIDs = []string{run.Config.ExistingSubnetID}
		run.State.PublicSubnetIDs = []string{run.Config.ExistingSubnetID}
		run.State.Provenance[model.ResourceSubnet] = model.ProvenanceReused
		return nil
	}

	az1 := run.azChoice
	if az1 == "" {
		az1 = run.Config.Region + "a"
	}
	az2 := secondaryAZ(az1)

	azs := [2]string{az1, az2}
	for i, cidr := range publicSubnetCIDRs {
		subnetID, err := run.Network.CreateSubnet(ctx, run.Config.Region, run.State.VPCID, cidr, azs[i], run.Config.StackName, true)
		if err != nil {
			return &errs.OrchestrationError{Stage: "network", Err: err}
		}
		if !reusedVPC {
			if err := run.Network.AssociateRouteTable(ctx, run.Config.Region, run.State.RouteTableID, subnetID); err != nil {
				return &errs.OrchestrationError{Stage: "network", Err: err}
			}
		}
		run.State.PublicSubnetIDs = append(run.State.PublicSubnetIDs, subnetID)
		run.State.SubnetIDs = append(run.State.SubnetIDs, subnetID)
	}
	for i, cidr := range privateSubnetCIDRs {
		subnetID, err := run.Network.CreateSubnet(ctx, run.Config.Region, run.State.VPCID, cidr, azs[i], run.Config.StackName, false)
		if err != nil {
			return &errs.OrchestrationError{Stage: "network", Err: err}
		}
		run.State.PrivateSubnetIDs = append(run.State.PrivateSubnetIDs, subnetID)
		run.State.SubnetIDs = append(run.State.SubnetIDs, subnetID)
	}
	run.State.Provenance[model.ResourceSubnet] = model.ProvenanceCreated
	return nil
}

// securityRulesFor builds the inbound rule set for cfg's deployment: the
// shared service ports open to the world, the NFS port restricted to the
// VPC's own CIDR, and HTTPS included only when cfg enables it.
func securityRulesFor(cfg model.DeploymentConfig) []resources.SecurityRule {
	rules := []resources.SecurityRule{
		{Port: 22, CIDR: "0.0.0.0/0"},
		{Port: 80, CIDR: "0.0.0.0/0"},
		{Port: 5678, CIDR: "0.0.0.0/0"},
		{Port: 11434, CIDR: "0.0.0.0/0"},
		{Port: 6333, CIDR: "0.0.0.0/0"},
		{Port: 11235, CIDR: "0.0.0.0/0"},
		{Port: 2049, CIDR: resources.VPCCIDR},
	}
	if cfg.EnableHTTPS {
		rules = append(rules, resources.SecurityRule{Port: 443, CIDR: "0.0.0.0/0"})
	}
	return rules
}

func securityGroupStage(ctx context.Context, run *Run) error {
	sgID, err := run.Network.CreateSecurityGroup(ctx, run.Config.Region, run.State.VPCID, run.Config.StackName, securityRulesFor(run.Config))
	if err != nil {
		return &errs.OrchestrationError{Stage: "security_group", Err: err}
	}
	run.State.SecurityGroupID = sgID
	run.State.Provenance[model.ResourceSecurityGroup] = model.ProvenanceCreated
	return nil
}

func filesystemStage(ctx context.Context, run *Run) error {
	fsID, err := run.FS.Create(ctx, run.Config.Region, run.Config.StackName)
	if err != nil {
		return &errs.OrchestrationError{Stage: "filesystem", Err: err}
	}
	mountSubnet := run.State.PublicSubnetIDs[0]
	if len(run.State.PrivateSubnetIDs) > 0 {
		mountSubnet = run.State.PrivateSubnetIDs[0]
	}
	mountTargetID, mountTargetIP, err := run.FS.CreateMountTarget(ctx, run.Config.Region, fsID, mountSubnet, run.State.SecurityGroupID)
	if err != nil {
		return &errs.OrchestrationError{Stage: "filesystem", Err: err}
	}
	run.State.FilesystemID = fsID
	run.State.FilesystemMountTargetID = mountTargetID
	run.State.FilesystemMountTargetIP = mountTargetIP
	run.State.Provenance[model.ResourceFilesystem] = model.ProvenanceCreated
	return nil
}

func checkpointStage(ctx context.Context, run *Run) error {
	run.State.Status = model.StatusDeploying
	return run.checkpoint(ctx)
}

const identityPropagationRetries = 5
const identityPropagationDelay = 3 * time.Second

func identityStage(ctx context.Context, run *Run) error {
	roleName, profileName, err := run.Identity.CreateRole(ctx, run.Config.Region, run.Config.StackName)
	if err != nil {
		return &errs.OrchestrationError{Stage: "identity", Err: err}
	}
	run.State.IAMRoleName = roleName
	run.State.IAMProfileName = profileName
	run.instanceProfile = profileName
	run.State.Provenance[model.ResourceIAMRole] = model.ProvenanceCreated
	return nil
}

func userDataStage(ctx context.Context, run *Run) error {
	rendered, err := userdata.Render(userdata.Params{
		StackName:    run.Config.StackName,
		Tier:         string(run.Config.Tier),
		Region:       run.Config.Region,
		FilesystemID: run.State.FilesystemID,
	})
	if err != nil {
		return &errs.OrchestrationError{Stage: "user_data", Err: err}
	}
	run.userData = rendered
	return nil
}

func launchStage(ctx context.Context, run *Run) error {
	imageID, err := run.AMI.Resolve(ctx, run.Config.Region, run.Config.OS, run.Config.Architecture, run.Config.ImageID)
	if err != nil {
		return &errs.OrchestrationError{Stage: "launch", Err: err}
	}

	instanceType := run.Config.InstanceType

	var instanceID string
	for attempt := 0; attempt < identityPropagationRetries; attempt++ {
		instanceID, err = run.Compute.Launch(ctx, resources.LaunchInput{
			Region:             run.Config.Region,
			Stack:              run.Config.StackName,
			ImageID:            imageID,
			InstanceType:       instanceType,
			SubnetID:           run.State.PublicSubnetIDs[0],
			SecurityGroupID:    run.State.SecurityGroupID,
			AvailabilityZone:   run.azChoice,
			IAMInstanceProfile: run.instanceProfile,
			UserData:           run.userData,
			Spot:               run.useSpot,
		})
		if err == nil {
			break
		}
		if attempt < identityPropagationRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(identityPropagationDelay):
			}
		}
	}
	if err != nil {
		return &errs.OrchestrationError{Stage: "launch", Err: fmt.Errorf("after %d attempts: %w", identityPropagationRetries, err)}
	}

	run.State.InstanceID = instanceID
	run.State.Provenance[model.ResourceInstance] = model.ProvenanceCreated
	return nil
}

func finalizeStage(ctx context.Context, run *Run) error {
	host, _, err := run.Compute.Describe(ctx, run.Config.Region, run.State.InstanceID)
	if err != nil {
		return &errs.OrchestrationError{Stage: "finalize", Err: err}
	}
	run.State.PublicHost = host
	if run.Config.EnableHTTPS {
		run.State.PrimaryServiceURL = fmt.Sprintf("https://%s", host)
	} else {
		run.State.PrimaryServiceURL = fmt.Sprintf("http://%s:5678", host)
	}
	run.State.Status = model.StatusRunning
	now := time.Now().UTC()
	run.State.LastHealthyState = &now
	return run.checkpoint(ctx)
}

func loadBalancerStage(ctx context.Context, run *Run) error {
	lbARN, tgARN, dnsName, err := run.LB.Provision(ctx, run.Config.Region, run.Config.StackName, run.State.VPCID, run.State.InstanceID, run.State.PublicSubnetIDs, 80, 5678)
	if err != nil {
		return &errs.OrchestrationError{Stage: "load_balancer", Err: err}
	}
	run.State.LoadBalancerARN = lbARN
	run.State.TargetGroupARN = tgARN
	run.State.PublicHost = dnsName
	run.State.PrimaryServiceURL = fmt.Sprintf("http://%s", dnsName)
	run.State.Provenance[model.ResourceLoadBalancer] = model.ProvenanceCreated
	return run.checkpoint(ctx)
}

func cdnStage(ctx context.Context, run *Run) error {
	distID, domainName, err := run.CDN.Create(ctx, run.Config.Region, run.Config.StackName, run.State.PublicHost, run.Config.RedirectHTTPToHTTPS)
	if err != nil {
		return &errs.OrchestrationError{Stage: "cdn", Err: err}
	}
	run.State.DistributionID = distID
	run.State.PrimaryServiceURL = fmt.Sprintf("https://%s", domainName)
	run.State.Provenance[model.ResourceCDN] = model.ProvenanceCreated
	return run.checkpoint(ctx)
}
