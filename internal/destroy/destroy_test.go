package destroy

import (
	"context"
	"testing"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
	"github.com/GoCodeAlone/geuse/internal/model"
	"github.com/GoCodeAlone/geuse/internal/resources"
)

func newTestService(dryRun bool) *Service {
	clients := awsclient.NewFactory()
	return New(
		resources.NewNetwork(clients),
		resources.NewCompute(clients),
		resources.NewFilesystem(clients),
		resources.NewIdentity(clients),
		resources.NewLoadBalancer(clients),
		resources.NewCDN(clients),
		dryRun,
	)
}

func TestDestroyPreservesReusedResources(t *testing.T) {
	svc := newTestService(true)
	state := &model.DeploymentState{
		VPCID:      "vpc-123",
		SubnetIDs:  []string{"subnet-123"},
		InstanceID: "i-123",
		Provenance: model.ResourceProvenance{
			model.ResourceVPC:    model.ProvenanceReused,
			model.ResourceSubnet: model.ProvenanceReused,
		},
	}

	result := svc.Destroy(context.Background(), "us-east-1", state)

	if len(result.Preserved) != 2 {
		t.Fatalf("expected 2 preserved resources, got %d: %+v", len(result.Preserved), result.Preserved)
	}
	for _, ref := range result.Deleted {
		if ref.Kind == model.ResourceVPC || ref.Kind == model.ResourceSubnet {
			t.Errorf("expected reused resource %s not to be deleted", ref.Kind)
		}
	}
}

func TestDestroyDeletesOwnedResourcesInDryRun(t *testing.T) {
	svc := newTestService(true)
	state := &model.DeploymentState{
		VPCID:           "vpc-123",
		SubnetIDs:       []string{"subnet-123", "subnet-456"},
		SecurityGroupID: "sg-123",
		InstanceID:      "i-123",
		Provenance:      model.ResourceProvenance{},
	}

	result := svc.Destroy(context.Background(), "us-east-1", state)

	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors in dry-run, got: %v", result.Errors)
	}
	if len(result.Deleted) != 5 {
		t.Fatalf("expected 5 resources marked deleted, got %d: %+v", len(result.Deleted), result.Deleted)
	}
}

func TestDestroySkipsResourcesNotPresentInState(t *testing.T) {
	svc := newTestService(true)
	state := &model.DeploymentState{VPCID: "vpc-only"}

	result := svc.Destroy(context.Background(), "us-east-1", state)

	if len(result.Deleted) != 1 || result.Deleted[0].Kind != model.ResourceVPC {
		t.Fatalf("expected only the vpc to be processed, got: %+v", result.Deleted)
	}
}
