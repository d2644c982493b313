package main

import (
	"testing"

	"github.com/GoCodeAlone/geuse/internal/model"
)

func TestActiveStackNamesExcludesDestroyed(t *testing.T) {
	records := []*model.DeploymentState{
		{Config: model.DeploymentConfig{StackName: "a"}, Status: model.StatusRunning},
		{Config: model.DeploymentConfig{StackName: "b"}, Status: model.StatusDestroyed},
	}
	got := activeStackNames(records)
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("expected only active stack a, got %+v", got)
	}
}

func TestAllStackNamesIncludesDestroyed(t *testing.T) {
	records := []*model.DeploymentState{
		{Config: model.DeploymentConfig{StackName: "a"}, Status: model.StatusRunning},
		{Config: model.DeploymentConfig{StackName: "b"}, Status: model.StatusDestroyed},
	}
	got := allStackNames(records)
	if len(got) != 2 {
		t.Errorf("expected both stacks, got %+v", got)
	}
}

func TestRegionsOfDedupesRegions(t *testing.T) {
	records := []*model.DeploymentState{
		{Config: model.DeploymentConfig{StackName: "a", Region: "us-east-1"}},
		{Config: model.DeploymentConfig{StackName: "b", Region: "us-east-1"}},
		{Config: model.DeploymentConfig{StackName: "c", Region: "us-west-2"}},
	}
	got := regionsOf(records)
	if len(got) != 2 {
		t.Errorf("expected 2 distinct regions, got %+v", got)
	}
}
