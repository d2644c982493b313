package ami

import "testing"

func TestIsGPUInstanceType(t *testing.T) {
	cases := map[string]bool{
		"g5.xlarge":  true,
		"g4dn.xlarge": true,
		"p5.48xlarge": true,
		"t3.medium":  false,
		"m5.large":   false,
	}
	for instanceType, want := range cases {
		if got := IsGPUInstanceType(instanceType); got != want {
			t.Errorf("IsGPUInstanceType(%q) = %v, want %v", instanceType, got, want)
		}
	}
}

func TestResolveReturnsExplicitImageIDUnchanged(t *testing.T) {
	r := New(nil)
	id, err := r.Resolve(nil, "us-east-1", "ubuntu", "x86_64", "ami-explicit")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "ami-explicit" {
		t.Fatalf("id = %q, want ami-explicit", id)
	}
}

func TestResolveUsesPreferredTable(t *testing.T) {
	r := New(nil)
	id, err := r.Resolve(nil, "us-east-1", "ubuntu", "x86_64", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != preferredImageIDs["us-east-1:ubuntu:x86_64:base"] {
		t.Fatalf("id = %q, want preferred table entry", id)
	}
}
