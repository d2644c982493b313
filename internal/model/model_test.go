package model

import (
	"testing"
	"time"
)

func validBaseState() *DeploymentState {
	now := time.Now().UTC()
	return &DeploymentState{
		Config:     DeploymentConfig{StackName: "my-stack"},
		Status:     StatusRunning,
		InstanceID: "i-123",
		SubnetIDs:  []string{"subnet-1", "subnet-2"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestValidateStateRequiresSubnetIDsOnceRunning(t *testing.T) {
	s := validBaseState()
	s.SubnetIDs = nil
	if err := ValidateState(s); err == nil {
		t.Fatal("expected error when subnet_ids is empty and status is running")
	}
}

func TestValidateStatePassesWithSubnetIDs(t *testing.T) {
	s := validBaseState()
	if err := ValidateState(s); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateStateDoesNotRequireSubnetIDsBeforeDeploying(t *testing.T) {
	now := time.Now().UTC()
	s := &DeploymentState{
		Config:    DeploymentConfig{StackName: "my-stack"},
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ValidateState(s); err != nil {
		t.Fatalf("expected no error for a pending deployment with no subnets yet, got: %v", err)
	}
}
