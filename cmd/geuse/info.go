package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/health"
)

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	host := fs.String("host", "", "Override the host to probe (defaults to the stack's recorded public host)")
	skipHealth := fs.Bool("skip-health", false, "Skip the live service health probes")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse info <stack-name> [--host H] [--skip-health]

Show a stack's recorded configuration and, unless --skip-health is set,
its current service health.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if fs.NArg() != 1 {
		return usageErrorf("info requires exactly one stack name argument")
	}
	stack := fs.Arg(0)

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	state, err := e.store.Load(ctx, stack, true)
	if err != nil {
		return err
	}

	target := state.PublicHost
	if *host != "" {
		target = *host
	}

	var results []health.Result
	if !*skipHealth && target != "" {
		results = health.CheckAll(ctx, target, health.DefaultProbes())
	}

	if base.Format() != cliutil.OutputText {
		data := map[string]any{"state": state, "health": results}
		return cliutil.Print(fs.Output(), base.Format(), cliutil.OK(data, "info"))
	}

	fmt.Printf("stack:   %s\ntier:    %s\nregion:  %s\nstatus:  %s\nhost:    %s\nurl:     %s\n", state.Config.StackName, state.Config.Tier, state.Config.Region, state.Status, state.PublicHost, state.PrimaryServiceURL)
	for _, r := range results {
		fmt.Printf("  [%s] %s (%dms)\n", passFail(r.Healthy), r.Name, r.LatencyMS)
	}
	return nil
}
