package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/GoCodeAlone/geuse/internal/model"
	"github.com/GoCodeAlone/geuse/internal/resources"
)

func TestTier2StagesAppendsLoadBalancerStage(t *testing.T) {
	if len(Tier2Stages()) != len(Tier1Stages())+1 {
		t.Fatalf("expected tier2 to add exactly one stage over tier1")
	}
}

func TestTier3StagesAppendsCDNStage(t *testing.T) {
	if len(Tier3Stages()) != len(Tier2Stages())+1 {
		t.Fatalf("expected tier3 to add exactly one stage over tier2")
	}
}

func TestStagesForSelectsByFeatureFlags(t *testing.T) {
	cases := []struct {
		cfg     model.DeploymentConfig
		wantLen int
	}{
		{model.DeploymentConfig{}, len(Tier1Stages())},
		{model.DeploymentConfig{EnableALB: true}, len(Tier2Stages())},
		{model.DeploymentConfig{EnableALB: true, EnableCDN: true}, len(Tier3Stages())},
	}
	for _, c := range cases {
		if got := len(StagesFor(c.cfg)); got != c.wantLen {
			t.Errorf("StagesFor(%+v): expected %d stages, got %d", c.cfg, c.wantLen, got)
		}
	}
}

func TestCheckDeadlineFailsAfterRollbackTimeout(t *testing.T) {
	run := NewRun(model.DeploymentConfig{Rollback: model.RollbackPolicy{Enabled: true, TimeoutMinutes: 5}})
	run.deadline = time.Now().Add(-time.Minute)
	if err := run.CheckDeadline(); err == nil {
		t.Fatal("expected deadline check to fail once the deadline has passed")
	}
}

func TestCheckDeadlinePassesWithNoDeadlineSet(t *testing.T) {
	run := NewRun(model.DeploymentConfig{})
	if err := run.CheckDeadline(); err != nil {
		t.Fatalf("expected no deadline to never fail, got: %v", err)
	}
}

func TestSecondaryAZFlipsTrailingLetter(t *testing.T) {
	cases := map[string]string{
		"us-east-1a": "us-east-1b",
		"us-east-1b": "us-east-1a",
		"":           "",
	}
	for in, want := range cases {
		if got := secondaryAZ(in); got != want {
			t.Errorf("secondaryAZ(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSecurityRulesForRestrictsNFSToVPCAndGatesHTTPS(t *testing.T) {
	rules := securityRulesFor(model.DeploymentConfig{})
	for _, r := range rules {
		if r.Port == 443 {
			t.Fatal("expected no 443 rule when EnableHTTPS is false")
		}
		if r.Port == 2049 && r.CIDR != resources.VPCCIDR {
			t.Errorf("expected NFS port scoped to %s, got %s", resources.VPCCIDR, r.CIDR)
		}
	}

	rules = securityRulesFor(model.DeploymentConfig{EnableHTTPS: true})
	found443 := false
	for _, r := range rules {
		if r.Port == 443 {
			found443 = true
		}
	}
	if !found443 {
		t.Fatal("expected a 443 rule when EnableHTTPS is true")
	}
}

func TestPipelineExecuteStopsAtFirstError(t *testing.T) {
	var ran []string
	failing := func(name string, fail bool) Stage {
		return func(ctx context.Context, run *Run) error {
			ran = append(ran, name)
			if fail {
				return context.Canceled
			}
			return nil
		}
	}
	p := NewPipeline(failing("a", false), failing("b", true), failing("c", false))
	run := NewRun(model.DeploymentConfig{StackName: "test"})
	if err := p.Execute(context.Background(), run); err == nil {
		t.Fatal("expected pipeline to return the stage's error")
	}
	if len(ran) != 2 {
		t.Fatalf("expected exactly 2 stages to run, got %d: %v", len(ran), ran)
	}
}
