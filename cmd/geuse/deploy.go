package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/model"
	"github.com/GoCodeAlone/geuse/internal/orchestrator"
	"github.com/GoCodeAlone/geuse/internal/validate"
)

func runDeploy(args []string) error {
	fs := flag.NewFlagSet("deploy", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	configPath := fs.String("config", "", "Path to a deployment config YAML file; individual flags below override it")
	stackName := fs.String("stack-name", "", "Stack name")
	tier := fs.String("tier", "", "Deployment tier: dev, automation, or gpu (default dev)")
	region := fs.String("region", "", "AWS region")
	instanceType := fs.String("instance-type", "", "EC2 instance type")
	useSpot := fs.Bool("use-spot", false, "Prefer spot capacity")
	osType := fs.String("os-type", "", "Base OS for AMI resolution (default ubuntu)")
	architecture := fs.String("architecture", "", "CPU architecture: x86_64 or arm64 (default x86_64)")
	amiID := fs.String("ami-id", "", "Explicit AMI id, bypassing AMI resolution")
	vpcID := fs.String("vpc-id", "", "Existing VPC id to deploy into")
	subnetID := fs.String("subnet-id", "", "Existing subnet id to deploy into")
	enableALB := fs.Bool("enable-alb", false, "Provision an application load balancer")
	enableCDN := fs.Bool("enable-cdn", false, "Provision a CloudFront distribution (requires --enable-alb)")
	noHTTPS := fs.Bool("no-https", false, "Disable HTTPS on the load balancer/CDN")
	noHTTPSRedirect := fs.Bool("no-https-redirect", false, "Disable HTTP-to-HTTPS redirection")
	attachIGW := fs.Bool("attach-internet-gateway", false, "Attach an internet gateway to a newly created VPC")
	skipValidation := fs.Bool("skip-validation", false, "Skip pre-deployment validation checks")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse deploy [--config path] [--stack-name S --tier T --region R ...]

Provision a new stack. Invoked with no args and no config, falls back to
reporting the missing required fields rather than prompting (non-text
output modes never prompt).

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}

	cfg, err := resolveDeployConfig(*configPath, *stackName, *tier, *region, *instanceType, *osType, *architecture, *amiID, *vpcID, *subnetID, *useSpot, *enableALB, *enableCDN, !*noHTTPS, !*noHTTPSRedirect, *attachIGW)
	if err != nil {
		return usageErrorf("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return usageErrorf("%v", err)
	}

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if !*skipValidation {
		checker := validate.New(e.clients)
		results := checker.PreDeploy(ctx, &cfg)
		for _, r := range results {
			if !r.Passed && r.Severity == validate.SeverityCritical {
				return fmt.Errorf("pre-deployment check %q failed: %s", r.Name, r.Message)
			}
		}
	}

	run := orchestrator.NewRun(cfg)
	run.Selector = e.selector
	run.AMI = e.resolver
	run.Network = e.network
	run.Compute = e.compute
	run.FS = e.fs
	run.Identity = e.identity
	run.LB = e.lb
	run.CDN = e.cdn
	run.Store = e.store
	run.Logger = e.logger

	pipeline := orchestrator.NewPipeline(orchestrator.StagesFor(cfg)...)
	runErr := pipeline.Execute(ctx, run)

	if saveErr := e.store.Save(ctx, run.State); saveErr != nil && runErr == nil {
		runErr = saveErr
	}

	if base.Format() != cliutil.OutputText {
		envelope := cliutil.OK(run.State, "deployed")
		if runErr != nil {
			envelope = cliutil.Failed("E_DEPLOY", runErr.Error(), nil)
		}
		_ = cliutil.Print(fs.Output(), base.Format(), envelope)
		return runErr
	}

	if runErr != nil {
		return runErr
	}
	fmt.Printf("deployed stack %s: %s\n", cfg.StackName, run.State.PrimaryServiceURL)
	return nil
}

func resolveDeployConfig(configPath, stackName, tier, region, instanceType, osType, architecture, amiID, vpcID, subnetID string, useSpot, enableALB, enableCDN, enableHTTPS, redirectHTTPS, attachIGW bool) (model.DeploymentConfig, error) {
	var cfg model.DeploymentConfig
	if configPath != "" {
		loaded, err := cliutil.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if stackName != "" {
		cfg.StackName = stackName
	}
	if tier != "" {
		cfg.Tier = model.Tier(tier)
	} else if cfg.Tier == "" {
		cfg.Tier = model.TierDev
	}
	if region != "" {
		cfg.Region = region
	}
	if instanceType != "" {
		cfg.InstanceType = instanceType
	}
	if osType != "" {
		cfg.OS = osType
	} else if cfg.OS == "" {
		cfg.OS = "ubuntu"
	}
	if architecture != "" {
		cfg.Architecture = architecture
	} else if cfg.Architecture == "" {
		cfg.Architecture = "x86_64"
	}
	if amiID != "" {
		cfg.ImageID = amiID
	}
	if vpcID != "" {
		cfg.ExistingVPCID = vpcID
	}
	if subnetID != "" {
		cfg.ExistingSubnetID = subnetID
	}
	cfg.PreferSpot = cfg.PreferSpot || useSpot
	cfg.EnableALB = cfg.EnableALB || enableALB
	cfg.EnableCDN = cfg.EnableCDN || enableCDN
	cfg.EnableHTTPS = enableHTTPS
	cfg.RedirectHTTPToHTTPS = redirectHTTPS
	cfg.AttachInternetGateway = cfg.AttachInternetGateway || attachIGW
	if cfg.StackName == "" {
		return cfg, fmt.Errorf("--stack-name (or config stack_name) is required")
	}
	return cfg, nil
}
