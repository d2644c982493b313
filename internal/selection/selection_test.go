package selection

import (
	"strings"
	"testing"
)

func TestSortCandidatesPrefersPlacementThenPrice(t *testing.T) {
	candidates := []capacityAZ{
		{az: "a", price: 1.0, placement: 3},
		{az: "b", price: 0.5, placement: 5},
		{az: "c", price: 0.2, placement: 5},
	}
	sortCandidates(candidates)
	if candidates[0].az != "c" || candidates[1].az != "b" || candidates[2].az != "a" {
		t.Fatalf("sorted = %+v, want c,b,a", candidates)
	}
}

func TestFallbackReasonPrefersNoSavingsOverUnstable(t *testing.T) {
	candidates := []capacityAZ{{az: "a", price: 1.0, stability: 0.9}}
	reason := fallbackReasonFor(candidates, 1.0)
	if reason != reasonNoSavings {
		t.Fatalf("reason = %q, want %q", reason, reasonNoSavings)
	}
}

func TestReasonNoSavingsMentionsThreshold(t *testing.T) {
	if !strings.Contains(reasonNoSavings, "≥ 80%") {
		t.Fatalf("reasonNoSavings = %q, want it to mention the ≥ 80%% threshold", reasonNoSavings)
	}
}

func TestFallbackReasonUnstableWhenCheapButVolatile(t *testing.T) {
	candidates := []capacityAZ{{az: "a", price: 0.5, stability: 0.1}}
	reason := fallbackReasonFor(candidates, 1.0)
	if reason != reasonUnstable {
		t.Fatalf("reason = %q, want %q", reason, reasonUnstable)
	}
}

func TestFallbackReasonNoCapacityWhenCheapAndStable(t *testing.T) {
	candidates := []capacityAZ{{az: "a", price: 0.5, stability: 0.9}}
	reason := fallbackReasonFor(candidates, 1.0)
	if reason != reasonNoCapacity {
		t.Fatalf("reason = %q, want %q", reason, reasonNoCapacity)
	}
}
