package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cleanup"
	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/destroy"
	"github.com/GoCodeAlone/geuse/internal/discovery"
	"github.com/GoCodeAlone/geuse/internal/model"
	"github.com/GoCodeAlone/geuse/internal/statestore"
)

func runCleanup(args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	region := fs.String("region", "", "Region to scan, or \"all\" to scan every region with a recorded stack (required)")
	all := fs.Bool("all", false, "Consider every recorded stack (active or destroyed) as a cleanup candidate")
	dryRun := fs.Bool("dry-run", false, "Report orphans without deleting them")
	force := fs.Bool("force", false, "Required in non-text output modes to confirm deletion")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse cleanup --region <region|all> [--all] [--dry-run]

Cross-reference tagged resources against stacks with an active state
record, and report (with --dry-run, the default posture) or delete the
ones with no matching record.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if *region == "" {
		return usageErrorf("--region is required (pass \"all\" to scan every recorded region)")
	}
	if !*dryRun && base.Format() != cliutil.OutputText && !*force {
		return usageErrorf("--force is required to delete orphans in %s output mode", base.Format())
	}

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	records, err := e.store.Query(ctx, statestore.Filter{})
	if err != nil {
		return fmt.Errorf("query recorded stacks: %w", err)
	}

	active := activeStackNames(records)
	candidates := active
	if *all {
		candidates = allStackNames(records)
	}

	regions := []string{*region}
	if *region == "all" {
		regions = regionsOf(records)
	}

	finder := discovery.New(e.clients)
	svc := cleanup.New(finder, e.store)

	var report cleanupReport
	for _, r := range regions {
		rpt, err := svc.Scan(ctx, r, candidates, active)
		if err != nil {
			return err
		}
		report.Orphans = append(report.Orphans, rpt.Orphans...)
	}

	if !*dryRun && len(report.Orphans) > 0 {
		destroyer := destroy.New(e.network, e.compute, e.fs, e.identity, e.lb, e.cdn, false)
		deleted := svc.Delete(ctx, regions[0], report.Orphans, destroyer)
		report.Deleted = deleted.Deleted
		report.Errors = deleted.Errors
	}

	if base.Format() != cliutil.OutputText {
		envelope := cliutil.OK(report, "scanned")
		if len(report.Errors) > 0 {
			envelope = cliutil.Failed("E_CLEANUP", "one or more orphans failed to delete", report.Errors)
		}
		return cliutil.Print(fs.Output(), base.Format(), envelope)
	}

	fmt.Printf("found %d orphan(s)\n", len(report.Orphans))
	for _, o := range report.Orphans {
		fmt.Printf("  %s %s (stack=%s, ~$%.2f/mo)\n", o.Kind, o.ID, o.Stack, o.EstimatedMonthlyUSD)
	}
	if !*dryRun {
		fmt.Printf("deleted %d, %d error(s)\n", len(report.Deleted), len(report.Errors))
	}
	return nil
}

type cleanupReport = cleanup.Report

func activeStackNames(records []*model.DeploymentState) []string {
	names := make([]string, 0, len(records))
	for _, s := range records {
		if s.Status != model.StatusDestroyed {
			names = append(names, s.Config.StackName)
		}
	}
	return names
}

func allStackNames(records []*model.DeploymentState) []string {
	names := make([]string, 0, len(records))
	for _, s := range records {
		names = append(names, s.Config.StackName)
	}
	return names
}

func regionsOf(records []*model.DeploymentState) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range records {
		if s.Config.Region != "" && !seen[s.Config.Region] {
			seen[s.Config.Region] = true
			out = append(out, s.Config.Region)
		}
	}
	return out
}
