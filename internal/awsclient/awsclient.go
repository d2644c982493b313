// Package awsclient caches AWS SDK v2 service clients keyed by region so
// that repeated operations against the same region reuse one client
// instance instead of re-resolving credentials and endpoints each time.
package awsclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/efs"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/servicequotas"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Factory resolves and caches region-scoped AWS SDK clients. It holds no
// package-level state; callers construct one Factory at program start and
// pass it down via constructor injection.
type Factory struct {
	mu   sync.RWMutex
	cfgs map[string]aws.Config

	ec2  map[string]EC2Client
	iam  map[string]IAMClient
	efsc map[string]EFSClient
	elb  map[string]ELBClient
	cf   map[string]CloudFrontClient
	pr   map[string]PricingClient
	sq   map[string]ServiceQuotasClient
	sm   map[string]SSMClient
	stsc map[string]STSClient
}

// NewFactory returns an empty, ready-to-use Factory.
func NewFactory() *Factory {
	return &Factory{
		cfgs: make(map[string]aws.Config),
		ec2:  make(map[string]EC2Client),
		iam:  make(map[string]IAMClient),
		efsc: make(map[string]EFSClient),
		elb:  make(map[string]ELBClient),
		cf:   make(map[string]CloudFrontClient),
		pr:   make(map[string]PricingClient),
		sq:   make(map[string]ServiceQuotasClient),
		sm:   make(map[string]SSMClient),
		stsc: make(map[string]STSClient),
	}
}

func (f *Factory) configFor(ctx context.Context, region string) (aws.Config, error) {
	f.mu.RLock()
	cfg, ok := f.cfgs[region]
	f.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg, ok := f.cfgs[region]; ok {
		return cfg, nil
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config for %s: %w", region, err)
	}
	f.cfgs[region] = cfg
	return cfg, nil
}

// EC2 returns the cached EC2 client for region, constructing one if needed.
func (f *Factory) EC2(ctx context.Context, region string) (EC2Client, error) {
	f.mu.RLock()
	c, ok := f.ec2[region]
	f.mu.RUnlock()
	if ok {
		return c, nil
	}
	cfg, err := f.configFor(ctx, region)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.ec2[region]; ok {
		return c, nil
	}
	client := ec2.NewFromConfig(cfg)
	f.ec2[region] = client
	return client, nil
}

// IAM returns the cached IAM client. IAM is not region-scoped on AWS's
// side, but the cache is still keyed by the caller's region for symmetry
// with the other service lookups.
func (f *Factory) IAM(ctx context.Context, region string) (IAMClient, error) {
	f.mu.RLock()
	c, ok := f.iam[region]
	f.mu.RUnlock()
	if ok {
		return c, nil
	}
	cfg, err := f.configFor(ctx, region)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.iam[region]; ok {
		return c, nil
	}
	client := iam.NewFromConfig(cfg)
	f.iam[region] = client
	return client, nil
}

// EFS returns the cached EFS client for region.
func (f *Factory) EFS(ctx context.Context, region string) (EFSClient, error) {
	f.mu.RLock()
	c, ok := f.efsc[region]
	f.mu.RUnlock()
	if ok {
		return c, nil
	}
	cfg, err := f.configFor(ctx, region)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.efsc[region]; ok {
		return c, nil
	}
	client := efs.NewFromConfig(cfg)
	f.efsc[region] = client
	return client, nil
}

// ELB returns the cached Elastic Load Balancing v2 client for region.
func (f *Factory) ELB(ctx context.Context, region string) (ELBClient, error) {
	f.mu.RLock()
	c, ok := f.elb[region]
	f.mu.RUnlock()
	if ok {
		return c, nil
	}
	cfg, err := f.configFor(ctx, region)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.elb[region]; ok {
		return c, nil
	}
	client := elasticloadbalancingv2.NewFromConfig(cfg)
	f.elb[region] = client
	return client, nil
}

// CloudFront returns the cached CloudFront client. CloudFront is a global
// service; region only selects which regional endpoint resolves requests.
func (f *Factory) CloudFront(ctx context.Context, region string) (CloudFrontClient, error) {
	f.mu.RLock()
	c, ok := f.cf[region]
	f.mu.RUnlock()
	if ok {
		return c, nil
	}
	cfg, err := f.configFor(ctx, region)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cf[region]; ok {
		return c, nil
	}
	client := cloudfront.NewFromConfig(cfg)
	f.cf[region] = client
	return client, nil
}

// Pricing returns the cached Pricing client. The Pricing API only serves
// from us-east-1 and ap-south-1; callers should pass one of those as
// region regardless of the deployment's target region.
func (f *Factory) Pricing(ctx context.Context, region string) (PricingClient, error) {
	f.mu.RLock()
	c, ok := f.pr[region]
	f.mu.RUnlock()
	if ok {
		return c, nil
	}
	cfg, err := f.configFor(ctx, region)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.pr[region]; ok {
		return c, nil
	}
	client := pricing.NewFromConfig(cfg)
	f.pr[region] = client
	return client, nil
}

// ServiceQuotas returns the cached Service Quotas client for region.
func (f *Factory) ServiceQuotas(ctx context.Context, region string) (ServiceQuotasClient, error) {
	f.mu.RLock()
	c, ok := f.sq[region]
	f.mu.RUnlock()
	if ok {
		return c, nil
	}
	cfg, err := f.configFor(ctx, region)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.sq[region]; ok {
		return c, nil
	}
	client := servicequotas.NewFromConfig(cfg)
	f.sq[region] = client
	return client, nil
}

// SSM returns the cached Systems Manager client for region, used to run
// remote update commands against managed instances.
func (f *Factory) SSM(ctx context.Context, region string) (SSMClient, error) {
	f.mu.RLock()
	c, ok := f.sm[region]
	f.mu.RUnlock()
	if ok {
		return c, nil
	}
	cfg, err := f.configFor(ctx, region)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.sm[region]; ok {
		return c, nil
	}
	client := ssm.NewFromConfig(cfg)
	f.sm[region] = client
	return client, nil
}

// STS returns the cached Security Token Service client for region, used by
// the credentials validator to confirm the active identity.
func (f *Factory) STS(ctx context.Context, region string) (STSClient, error) {
	f.mu.RLock()
	c, ok := f.stsc[region]
	f.mu.RUnlock()
	if ok {
		return c, nil
	}
	cfg, err := f.configFor(ctx, region)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.stsc[region]; ok {
		return c, nil
	}
	client := sts.NewFromConfig(cfg)
	f.stsc[region] = client
	return client, nil
}
