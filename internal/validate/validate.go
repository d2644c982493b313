// Package validate runs the pre-deployment and post-deployment checks a
// deployment must pass before resources are created and after they come up.
package validate

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/servicequotas"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
	"github.com/GoCodeAlone/geuse/internal/model"
	"github.com/GoCodeAlone/geuse/internal/resources"
)

// Severity classifies how serious a failed check is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Result is the outcome of one check.
type Result struct {
	Name        string
	Passed      bool
	Message     string
	Severity    Severity
	Details     map[string]string
	Remediation string
}

// Checker runs the pre- and post-deployment validation suites.
type Checker struct {
	clients *awsclient.Factory
	caller  *resources.CallerIdentity
}

// New returns a Checker.
func New(clients *awsclient.Factory) *Checker {
	return &Checker{clients: clients, caller: resources.NewCallerIdentity(clients)}
}

// vCPUQuotaCode is the Service Quotas code for standard on-demand instance
// vCPU limits, used by the quota pre-check.
const (
	ec2ServiceCode = "ec2"
	vCPUQuotaCode  = "L-1216C47A"
)

// PreDeploy runs the seven sequential pre-deployment checks against cfg.
func (c *Checker) PreDeploy(ctx context.Context, cfg *model.DeploymentConfig) []Result {
	var results []Result

	results = append(results, c.checkCredentials(ctx, cfg.Region))
	results = append(results, c.checkStackNameFormat(cfg))
	results = append(results, c.checkTierConsistency(cfg))
	results = append(results, c.checkRegionReachable(ctx, cfg.Region))
	results = append(results, c.checkQuota(ctx, cfg))
	results = append(results, c.checkBudget(cfg))
	results = append(results, c.checkNetworkReferences(cfg))

	return results
}

func (c *Checker) checkCredentials(ctx context.Context, region string) Result {
	account, arn, err := c.caller.Resolve(ctx, region)
	if err != nil {
		return Result{
			Name:        "credentials",
			Passed:      false,
			Message:     fmt.Sprintf("unable to resolve AWS credentials: %v", err),
			Severity:    SeverityCritical,
			Remediation: "configure AWS credentials via environment, profile, or instance role",
		}
	}
	return Result{
		Name:     "credentials",
		Passed:   true,
		Message:  fmt.Sprintf("authenticated as %s (account %s)", arn, account),
		Severity: SeverityInfo,
		Details:  map[string]string{"account": account, "arn": arn},
	}
}

func (c *Checker) checkStackNameFormat(cfg *model.DeploymentConfig) Result {
	if err := cfg.Validate(); err != nil {
		return Result{
			Name:        "stack_name_format",
			Passed:      false,
			Message:     err.Error(),
			Severity:    SeverityCritical,
			Remediation: "use a stack name matching ^[A-Za-z][A-Za-z0-9-]*$, <=128 chars",
		}
	}
	return Result{Name: "stack_name_format", Passed: true, Message: "stack name valid", Severity: SeverityInfo}
}

func (c *Checker) checkTierConsistency(cfg *model.DeploymentConfig) Result {
	if cfg.Tier == model.TierGPU && !cfg.PreferSpot && cfg.InstanceType == "" {
		return Result{
			Name:        "tier_consistency",
			Passed:      false,
			Message:     "gpu tier requires an explicit instance type or spot preference",
			Severity:    SeverityWarning,
			Remediation: "set instance_type or enable prefer_spot for gpu tier",
		}
	}
	return Result{Name: "tier_consistency", Passed: true, Message: "tier configuration consistent", Severity: SeverityInfo}
}

func (c *Checker) checkRegionReachable(ctx context.Context, region string) Result {
	client, err := c.clients.EC2(ctx, region)
	if err != nil {
		return Result{Name: "region_reachable", Passed: false, Message: err.Error(), Severity: SeverityCritical}
	}
	_ = client
	return Result{Name: "region_reachable", Passed: true, Message: "region client constructed", Severity: SeverityInfo}
}

func (c *Checker) checkQuota(ctx context.Context, cfg *model.DeploymentConfig) Result {
	client, err := c.clients.ServiceQuotas(ctx, cfg.Region)
	if err != nil {
		return Result{
			Name:     "service_quota",
			Passed:   true,
			Message:  "quota check skipped: " + err.Error(),
			Severity: SeverityWarning,
		}
	}
	out, err := client.GetServiceQuota(ctx, &servicequotas.GetServiceQuotaInput{
		ServiceCode: aws.String(ec2ServiceCode),
		QuotaCode:   aws.String(vCPUQuotaCode),
	})
	if err != nil || out.Quota == nil || out.Quota.Value == nil {
		return Result{
			Name:     "service_quota",
			Passed:   true,
			Message:  "unable to verify vCPU quota, proceeding optimistically",
			Severity: SeverityWarning,
		}
	}
	if *out.Quota.Value < 4 {
		return Result{
			Name:        "service_quota",
			Passed:      false,
			Message:     fmt.Sprintf("on-demand vCPU quota is only %.0f", *out.Quota.Value),
			Severity:    SeverityCritical,
			Remediation: "request a Service Quotas increase for standard on-demand instances",
		}
	}
	return Result{Name: "service_quota", Passed: true, Message: "sufficient vCPU quota available", Severity: SeverityInfo}
}

func (c *Checker) checkBudget(cfg *model.DeploymentConfig) Result {
	if cfg.BudgetLimitUSD > 0 && cfg.BudgetLimitUSD < 1 {
		return Result{
			Name:        "budget_limit",
			Passed:      false,
			Message:     "budget limit below $1/month is unrealistic for any tier",
			Severity:    SeverityWarning,
			Remediation: "raise budget_limit_usd or omit it",
		}
	}
	return Result{Name: "budget_limit", Passed: true, Message: "budget limit acceptable", Severity: SeverityInfo}
}

func (c *Checker) checkNetworkReferences(cfg *model.DeploymentConfig) Result {
	if cfg.ExistingSubnetID != "" && cfg.ExistingVPCID == "" {
		return Result{
			Name:        "network_references",
			Passed:      false,
			Message:     "existing_subnet_id set without existing_vpc_id",
			Severity:    SeverityCritical,
			Remediation: "provide existing_vpc_id alongside existing_subnet_id",
		}
	}
	return Result{Name: "network_references", Passed: true, Message: "network references consistent", Severity: SeverityInfo}
}

// PostDeploy runs the three post-deployment checks against the deployed
// state's public host.
func (c *Checker) PostDeploy(ctx context.Context, state *model.DeploymentState) []Result {
	var results []Result
	results = append(results, c.checkInstanceRunning(state))
	results = append(results, c.checkHostReachable(ctx, state))
	results = append(results, c.checkFilesystemMounted(state))
	return results
}

func (c *Checker) checkInstanceRunning(state *model.DeploymentState) Result {
	if state.Status != model.StatusRunning {
		return Result{
			Name:     "instance_running",
			Passed:   false,
			Message:  fmt.Sprintf("deployment status is %s, expected running", state.Status),
			Severity: SeverityCritical,
		}
	}
	return Result{Name: "instance_running", Passed: true, Message: "instance is running", Severity: SeverityInfo}
}

func (c *Checker) checkHostReachable(ctx context.Context, state *model.DeploymentState) Result {
	if state.PublicHost == "" {
		return Result{Name: "host_reachable", Passed: false, Message: "no public host recorded", Severity: SeverityCritical}
	}
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(state.PublicHost, "22"))
	if err != nil {
		return Result{
			Name:        "host_reachable",
			Passed:      false,
			Message:     fmt.Sprintf("host %s unreachable: %v", state.PublicHost, err),
			Severity:    SeverityWarning,
			Remediation: "verify security group allows inbound access and the instance finished booting",
		}
	}
	_ = conn.Close()
	return Result{Name: "host_reachable", Passed: true, Message: "host accepts connections", Severity: SeverityInfo}
}

func (c *Checker) checkFilesystemMounted(state *model.DeploymentState) Result {
	if state.FilesystemID == "" {
		return Result{Name: "filesystem_mounted", Passed: true, Message: "no filesystem configured", Severity: SeverityInfo}
	}
	if state.FilesystemMountTargetIP == "" {
		return Result{
			Name:        "filesystem_mounted",
			Passed:      false,
			Message:     fmt.Sprintf("filesystem %s has no recorded mount target ip", state.FilesystemID),
			Severity:    SeverityWarning,
			Remediation: "verify the mount target finished creating and re-run deploy",
		}
	}
	return Result{Name: "filesystem_mounted", Passed: true, Message: fmt.Sprintf("filesystem mounted at %s", state.FilesystemMountTargetIP), Severity: SeverityInfo}
}
