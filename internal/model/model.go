// Package model defines the deployment configuration and state records
// persisted by the state store and mutated by the orchestrator.
package model

import (
	"fmt"
	"regexp"
	"time"
)

// CurrentSchemaVersion is the schema version new records are written at.
const CurrentSchemaVersion = 2

// previousStatesCap bounds the ring buffer of prior state snapshots kept on
// a DeploymentState. The original implementation this was distilled from
// kept an unbounded list; a deployment record that lives for years would
// grow without limit, so this is capped.
const previousStatesCap = 5

var stackNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// Tier identifies the deployment variant, which determines which
// orchestrator stages run.
type Tier string

const (
	TierDev        Tier = "dev"
	TierAutomation Tier = "automation"
	TierGPU        Tier = "gpu"
)

// Status is the lifecycle state of a deployment.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDeploying   Status = "deploying"
	StatusRunning     Status = "running"
	StatusUpdating    Status = "updating"
	StatusRollingBack Status = "rolling_back"
	StatusFailed      Status = "failed"
	StatusDestroyed   Status = "destroyed"
)

// Provenance records how a resource came to be associated with a
// deployment, which in turn governs whether destruction is allowed to
// delete it.
type Provenance int

const (
	ProvenancePending Provenance = iota
	ProvenanceCreated
	ProvenanceReused
	ProvenanceAutoDiscovered
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceCreated:
		return "created"
	case ProvenanceReused:
		return "reused"
	case ProvenanceAutoDiscovered:
		return "auto_discovered"
	default:
		return "pending"
	}
}

func (p Provenance) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *Provenance) UnmarshalJSON(data []byte) error {
	s := string(data)
	s = trimQuotes(s)
	switch s {
	case "created":
		*p = ProvenanceCreated
	case "reused":
		*p = ProvenanceReused
	case "auto_discovered":
		*p = ProvenanceAutoDiscovered
	default:
		*p = ProvenancePending
	}
	return nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ResourceKind names a provisionable resource category tracked by
// provenance.
type ResourceKind string

const (
	ResourceVPC             ResourceKind = "vpc"
	ResourceSubnet          ResourceKind = "subnet"
	ResourceSecurityGroup   ResourceKind = "security_group"
	ResourceFilesystem      ResourceKind = "filesystem"
	ResourceIAMRole         ResourceKind = "iam_role"
	ResourceInstance        ResourceKind = "instance"
	ResourceLoadBalancer    ResourceKind = "load_balancer"
	ResourceCDN             ResourceKind = "cdn"
	ResourceRouteTable      ResourceKind = "route_table"
	ResourceInternetGateway ResourceKind = "internet_gateway"
)

// ResourceProvenance maps a resource kind to how it was acquired.
type ResourceProvenance map[ResourceKind]Provenance

// RollbackPolicy controls whether the orchestrator tears down a partially
// applied deployment on failure, and how long it waits before doing so.
type RollbackPolicy struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	TimeoutMinutes int  `json:"timeout_minutes" yaml:"timeout_minutes"`
}

// DeploymentConfig is the immutable intent for a deployment. Once
// constructed and validated, no field is mutated; updates produce a new
// value.
type DeploymentConfig struct {
	StackName             string         `json:"stack_name" yaml:"stack_name"`
	Tier                  Tier           `json:"tier" yaml:"tier"`
	Region                string         `json:"region" yaml:"region"`
	InstanceType          string         `json:"instance_type" yaml:"instance_type"`
	PreferSpot            bool           `json:"prefer_spot" yaml:"prefer_spot"`
	OS                    string         `json:"os" yaml:"os"`
	Architecture          string         `json:"architecture" yaml:"architecture"`
	ImageVariant          string         `json:"image_variant,omitempty" yaml:"image_variant,omitempty"`
	ImageID               string         `json:"image_id,omitempty" yaml:"image_id,omitempty"`
	ExistingVPCID         string         `json:"existing_vpc_id,omitempty" yaml:"existing_vpc_id,omitempty"`
	ExistingSubnetID      string         `json:"existing_subnet_id,omitempty" yaml:"existing_subnet_id,omitempty"`
	EnableALB             bool           `json:"enable_alb" yaml:"enable_alb"`
	EnableCDN             bool           `json:"enable_cdn" yaml:"enable_cdn"`
	EnableHTTPS           bool           `json:"enable_https" yaml:"enable_https"`
	RedirectHTTPToHTTPS   bool           `json:"redirect_http_to_https" yaml:"redirect_http_to_https"`
	AttachInternetGateway bool           `json:"attach_internet_gateway" yaml:"attach_internet_gateway"`
	Rollback              RollbackPolicy `json:"rollback" yaml:"rollback"`
	BudgetLimitUSD        float64        `json:"budget_limit_usd,omitempty" yaml:"budget_limit_usd,omitempty"`
}

// Validate checks field-level invariants that do not require a provider
// call. It is the first step of every command that accepts a config.
func (c DeploymentConfig) Validate() error {
	if !stackNamePattern.MatchString(c.StackName) {
		return fmt.Errorf("stack_name %q must match %s", c.StackName, stackNamePattern.String())
	}
	if len(c.StackName) > 128 {
		return fmt.Errorf("stack_name must be at most 128 characters")
	}
	switch c.Tier {
	case TierDev, TierAutomation, TierGPU:
	default:
		return fmt.Errorf("tier %q is not one of dev, automation, gpu", c.Tier)
	}
	if c.Rollback.Enabled && (c.Rollback.TimeoutMinutes < 5 || c.Rollback.TimeoutMinutes > 60) {
		return fmt.Errorf("rollback.timeout_minutes must be in [5,60], got %d", c.Rollback.TimeoutMinutes)
	}
	if c.EnableCDN && !c.EnableALB {
		return fmt.Errorf("enable_cdn requires enable_alb")
	}
	if c.RedirectHTTPToHTTPS && !c.EnableHTTPS {
		return fmt.Errorf("redirect_http_to_https requires enable_https")
	}
	return nil
}

// CostTracking accumulates estimated and observed spend for a deployment.
type CostTracking struct {
	EstimatedMonthlyUSD  float64   `json:"estimated_monthly_usd"`
	ObservedToDateUSD    float64   `json:"observed_to_date_usd"`
	LastPricedAt         time.Time `json:"last_priced_at,omitempty"`
	IsSpot               bool      `json:"is_spot"`
	OnDemandPricePerHour float64   `json:"on_demand_price_per_hour"`
}

// RollbackRecord is appended to RollbackHistory each time a rollback is
// performed.
type RollbackRecord struct {
	ToVersion  int       `json:"to_version"`
	At         time.Time `json:"at"`
	Reason     string    `json:"reason,omitempty"`
	InitiatedBy string   `json:"initiated_by,omitempty"`
}

// DeploymentState is the mutable record of a deployment's current and
// historical condition. It is the payload persisted by the state store.
type DeploymentState struct {
	SchemaVersion     int                 `json:"schema_version"`
	Config            DeploymentConfig    `json:"config"`
	Status            Status              `json:"status"`
	InstanceID        string              `json:"instance_id,omitempty"`
	VPCID             string              `json:"vpc_id,omitempty"`
	SubnetIDs         []string            `json:"subnet_ids,omitempty"`
	PublicSubnetIDs   []string            `json:"public_subnet_ids,omitempty"`
	PrivateSubnetIDs  []string            `json:"private_subnet_ids,omitempty"`
	InternetGatewayID string              `json:"internet_gateway_id,omitempty"`
	RouteTableID      string              `json:"route_table_id,omitempty"`
	SecurityGroupID   string              `json:"security_group_id,omitempty"`
	FilesystemID      string              `json:"filesystem_id,omitempty"`
	FilesystemMountTargetID string        `json:"filesystem_mount_target_id,omitempty"`
	FilesystemMountTargetIP string        `json:"filesystem_mount_target_ip,omitempty"`
	IAMRoleName       string              `json:"iam_role_name,omitempty"`
	IAMProfileName    string              `json:"iam_profile_name,omitempty"`
	LoadBalancerARN   string              `json:"load_balancer_arn,omitempty"`
	TargetGroupARN    string              `json:"target_group_arn,omitempty"`
	DistributionID    string              `json:"distribution_id,omitempty"`
	PublicHost        string              `json:"public_host,omitempty"`
	PrimaryServiceURL string              `json:"primary_service_url,omitempty"`
	ContainerImages   map[string]string   `json:"container_images,omitempty"`
	Cost              CostTracking        `json:"cost"`
	Provenance        ResourceProvenance  `json:"resource_provenance,omitempty"`
	MigrationHistory  []string            `json:"migration_history,omitempty"`
	PreviousStates    []map[string]any    `json:"previous_states,omitempty"`
	RollbackHistory   []RollbackRecord    `json:"rollback_history,omitempty"`
	LastHealthyState  *time.Time          `json:"last_healthy_state,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	TerminatedAt      *time.Time          `json:"terminated_at,omitempty"`
}

// PushPreviousState pushes the given snapshot onto the front of
// PreviousStates, evicting the oldest entry once the ring is at capacity.
func (s *DeploymentState) PushPreviousState(snapshot map[string]any) {
	s.PreviousStates = append([]map[string]any{snapshot}, s.PreviousStates...)
	if len(s.PreviousStates) > previousStatesCap {
		s.PreviousStates = s.PreviousStates[:previousStatesCap]
	}
}

// ValidateState checks the invariants on a DeploymentState that must hold
// regardless of lifecycle stage.
func ValidateState(s *DeploymentState) error {
	if s.Config.StackName == "" {
		return fmt.Errorf("state: config.stack_name is required")
	}
	switch s.Status {
	case StatusRunning, StatusUpdating, StatusRollingBack:
		if s.InstanceID == "" {
			return fmt.Errorf("state: instance_id is required once status reaches %s", s.Status)
		}
		if len(s.SubnetIDs) == 0 {
			return fmt.Errorf("state: subnet_ids is required once status reaches %s", s.Status)
		}
	}
	if len(s.PreviousStates) > previousStatesCap {
		return fmt.Errorf("state: previous_states exceeds cap of %d", previousStatesCap)
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("state: created_at must be set")
	}
	if s.UpdatedAt.Before(s.CreatedAt) {
		return fmt.Errorf("state: updated_at must not precede created_at")
	}
	return nil
}
