package cleanup

import (
	"testing"

	"github.com/GoCodeAlone/geuse/internal/model"
)

func TestNewOrphanSetsEstimatedCost(t *testing.T) {
	o := newOrphan("demo", model.ResourceInstance, "i-123")
	if o.Stack != "demo" || o.ID != "i-123" {
		t.Fatalf("unexpected orphan fields: %+v", o)
	}
	if o.EstimatedMonthlyUSD != estimatedMonthlyCostByKind[model.ResourceInstance] {
		t.Errorf("expected estimated cost to match lookup table, got %v", o.EstimatedMonthlyUSD)
	}
}

func TestNewOrphanDefaultsToZeroCostForUnlistedKind(t *testing.T) {
	o := newOrphan("demo", model.ResourceKind("unknown"), "x")
	if o.EstimatedMonthlyUSD != 0 {
		t.Errorf("expected zero cost for unlisted kind, got %v", o.EstimatedMonthlyUSD)
	}
}

func TestScanSkipsActiveStacks(t *testing.T) {
	svc := New(nil, nil)
	report, err := svc.Scan(nil, "us-east-1", []string{"active-stack"}, []string{"active-stack"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// active-stack is in both candidate and active lists, so it should never
	// reach orphansForStack (which would nil-pointer-dereference on a nil
	// finder).
	if len(report.Orphans) != 0 {
		t.Errorf("expected no orphans for an active stack, got %+v", report.Orphans)
	}
}
