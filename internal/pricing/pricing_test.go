package pricing

import "testing"

func TestComputeOnDemandFallsBackWithoutCredentials(t *testing.T) {
	s := New(nilFactory())
	result, err := s.ComputeOnDemand(contextBackground(), "t3.medium", "us-east-1")
	if err != nil {
		t.Fatalf("ComputeOnDemand: %v", err)
	}
	if result.Source != SourceEstimated {
		t.Fatalf("Source = %v, want estimated (no AWS credentials in test env)", result.Source)
	}
	if result.Value != fallbackOnDemandByFamily["t3.medium"] {
		t.Fatalf("Value = %v, want %v", result.Value, fallbackOnDemandByFamily["t3.medium"])
	}
}

func TestComputeOnDemandUsesDefaultForUnknownFamily(t *testing.T) {
	s := New(nilFactory())
	result, err := s.ComputeOnDemand(contextBackground(), "x9.mystery", "us-east-1")
	if err != nil {
		t.Fatalf("ComputeOnDemand: %v", err)
	}
	if result.Value != fallbackOnDemandDefault {
		t.Fatalf("Value = %v, want default %v", result.Value, fallbackOnDemandDefault)
	}
}

func TestComputeOnDemandIsCachedOnSecondCall(t *testing.T) {
	s := New(nilFactory())
	ctx := contextBackground()
	if _, err := s.ComputeOnDemand(ctx, "t3.medium", "us-east-1"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	result, err := s.ComputeOnDemand(ctx, "t3.medium", "us-east-1")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if result.Source != SourceCached {
		t.Fatalf("Source = %v, want cached", result.Source)
	}
}

func TestRegionToLocationDefaultsForUnknownRegion(t *testing.T) {
	if got := regionToLocation("ap-southeast-9"); got != "US East (N. Virginia)" {
		t.Fatalf("regionToLocation = %q, want default location", got)
	}
}
