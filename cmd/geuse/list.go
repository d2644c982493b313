package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/discovery"
	"github.com/GoCodeAlone/geuse/internal/statestore"
)

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	discoverFromAWS := fs.Bool("discover-from-aws", false, "Also list stack-tagged resources found directly in AWS, not only recorded state")
	region := fs.String("region", "", "Region to scan when --discover-from-aws is set")
	status := fs.String("status", "", "Filter by lifecycle status")
	tier := fs.String("tier", "", "Filter by tier")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse list [--status S] [--tier T] [--discover-from-aws --region R]

List recorded deployments, optionally cross-referenced against resources
discovered directly in AWS.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if *discoverFromAWS && *region == "" {
		return usageErrorf("--region is required with --discover-from-aws")
	}

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	records, err := e.store.Query(ctx, statestore.Filter{
		Status: statestore.Status(*status),
		Tier:   statestore.Tier(*tier),
	})
	if err != nil {
		return err
	}

	type entry struct {
		StackName string `json:"stack_name" yaml:"stack_name"`
		Status    string `json:"status" yaml:"status"`
		Region    string `json:"region" yaml:"region"`
		Tier      string `json:"tier" yaml:"tier"`
	}
	entries := make([]entry, 0, len(records))
	for _, s := range records {
		entries = append(entries, entry{
			StackName: s.Config.StackName,
			Status:    string(s.Status),
			Region:    s.Config.Region,
			Tier:      string(s.Config.Tier),
		})
	}

	discoveredCounts := map[string]int{}
	if *discoverFromAWS {
		finder := discovery.New(e.clients)
		for _, e := range entries {
			discoveredCounts[e.StackName] = countDiscoveredResources(ctx, finder, *region, e.StackName)
		}
	}

	if base.Format() != cliutil.OutputText {
		data := map[string]any{"deployments": entries}
		if *discoverFromAWS {
			data["discovered_resource_counts"] = discoveredCounts
		}
		return cliutil.Print(fs.Output(), base.Format(), cliutil.OK(data, "listed"))
	}

	for _, e := range entries {
		line := fmt.Sprintf("%-24s %-12s %-14s %s", e.StackName, e.Status, e.Region, e.Tier)
		if *discoverFromAWS {
			line += fmt.Sprintf("  (%d resource(s) tagged in AWS)", discoveredCounts[e.StackName])
		}
		fmt.Println(line)
	}
	return nil
}

func countDiscoveredResources(ctx context.Context, finder *discovery.Finder, region, stack string) int {
	count := 0
	if vpcs, err := finder.VPCsForStack(ctx, region, stack); err == nil {
		count += len(vpcs)
	}
	if subnets, err := finder.SubnetsForStack(ctx, region, stack); err == nil {
		count += len(subnets)
	}
	if sgs, err := finder.SecurityGroupsForStack(ctx, region, stack); err == nil {
		count += len(sgs)
	}
	if instances, err := finder.InstancesForStack(ctx, region, stack); err == nil {
		count += len(instances)
	}
	if fs, err := finder.FileSystemsForStack(ctx, region, stack); err == nil {
		count += len(fs)
	}
	if lbs, err := finder.LoadBalancersForStack(ctx, region, stack); err == nil {
		count += len(lbs)
	}
	return count
}
