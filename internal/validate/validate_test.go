package validate

import (
	"testing"

	"github.com/GoCodeAlone/geuse/internal/model"
)

func TestCheckStackNameFormatRejectsInvalidName(t *testing.T) {
	c := New(nil)
	cfg := &model.DeploymentConfig{StackName: "1-bad", Tier: model.TierDev, Region: "us-east-1"}
	result := c.checkStackNameFormat(cfg)
	if result.Passed {
		t.Fatal("expected stack name check to fail for name starting with a digit")
	}
}

func TestCheckStackNameFormatAcceptsValidName(t *testing.T) {
	c := New(nil)
	cfg := &model.DeploymentConfig{StackName: "my-stack", Tier: model.TierDev, Region: "us-east-1"}
	result := c.checkStackNameFormat(cfg)
	if !result.Passed {
		t.Fatalf("expected valid stack name to pass, got: %s", result.Message)
	}
}

func TestCheckNetworkReferencesRejectsSubnetWithoutVPC(t *testing.T) {
	c := New(nil)
	cfg := &model.DeploymentConfig{ExistingSubnetID: "subnet-123"}
	result := c.checkNetworkReferences(cfg)
	if result.Passed {
		t.Fatal("expected network reference check to fail without a vpc id")
	}
}

func TestCheckInstanceRunningFailsWhenNotRunning(t *testing.T) {
	c := New(nil)
	state := &model.DeploymentState{Status: model.StatusFailed}
	result := c.checkInstanceRunning(state)
	if result.Passed {
		t.Fatal("expected instance_running check to fail for non-running status")
	}
}

func TestCheckFilesystemMountedPassesWhenNoFilesystemConfigured(t *testing.T) {
	c := New(nil)
	state := &model.DeploymentState{}
	result := c.checkFilesystemMounted(state)
	if !result.Passed {
		t.Fatal("expected filesystem check to pass when no filesystem is configured")
	}
}
