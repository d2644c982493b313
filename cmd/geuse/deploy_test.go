package main

import (
	"testing"

	"github.com/GoCodeAlone/geuse/internal/model"
)

func TestResolveDeployConfigAppliesDefaults(t *testing.T) {
	cfg, err := resolveDeployConfig("", "demo", "", "us-east-1", "", "", "", "", "", "", false, false, false, true, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tier != model.TierDev {
		t.Errorf("expected default tier dev, got %s", cfg.Tier)
	}
	if cfg.OS != "ubuntu" {
		t.Errorf("expected default os ubuntu, got %s", cfg.OS)
	}
	if cfg.Architecture != "x86_64" {
		t.Errorf("expected default architecture x86_64, got %s", cfg.Architecture)
	}
}

func TestResolveDeployConfigRequiresStackName(t *testing.T) {
	if _, err := resolveDeployConfig("", "", "", "us-east-1", "", "", "", "", "", "", false, false, false, true, true, false); err == nil {
		t.Fatal("expected error when stack name is missing")
	}
}

func TestResolveDeployConfigOverridesFromFlags(t *testing.T) {
	cfg, err := resolveDeployConfig("", "demo", "automation", "us-west-2", "m5.large", "amazonlinux", "arm64", "ami-123", "vpc-1", "subnet-1", true, true, true, true, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tier != model.TierAutomation || cfg.Region != "us-west-2" || cfg.InstanceType != "m5.large" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if !cfg.PreferSpot || !cfg.EnableALB || !cfg.EnableCDN || !cfg.AttachInternetGateway {
		t.Errorf("expected all boolean overrides set: %+v", cfg)
	}
	if cfg.ImageID != "ami-123" || cfg.ExistingVPCID != "vpc-1" || cfg.ExistingSubnetID != "subnet-1" {
		t.Errorf("unexpected resource overrides: %+v", cfg)
	}
}
