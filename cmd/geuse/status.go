package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/health"
	"github.com/GoCodeAlone/geuse/internal/validate"
)

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	stack := fs.String("stack-name", "", "Stack name to inspect (required)")
	checkHealth := fs.Bool("health", false, "Also probe the deployed services over HTTP/TCP")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse status --stack-name <name> [options]

Show the current recorded state of a stack, and optionally probe its
services for liveness.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if *stack == "" {
		return usageErrorf("--stack-name is required")
	}

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	state, err := e.store.Load(ctx, *stack, true)
	if err != nil {
		return err
	}

	checker := validate.New(e.clients)
	postResults := checker.PostDeploy(ctx, state)

	var healthResults []health.Result
	if *checkHealth && state.PublicHost != "" {
		healthResults = health.CheckAll(ctx, state.PublicHost, health.DefaultProbes())
	}

	if base.Format() != cliutil.OutputText {
		data := map[string]any{
			"state":         state,
			"checks":        postResults,
			"health_probes": healthResults,
		}
		return cliutil.Print(fs.Output(), base.Format(), cliutil.OK(data, "status"))
	}

	fmt.Printf("stack: %s\nstatus: %s\nhost: %s\nurl: %s\n", *stack, state.Status, state.PublicHost, state.PrimaryServiceURL)
	for _, r := range postResults {
		fmt.Printf("  [%s] %s: %s\n", passFail(r.Passed), r.Name, r.Message)
	}
	for _, r := range healthResults {
		fmt.Printf("  [%s] %s (%dms)\n", passFail(r.Healthy), r.Name, r.LatencyMS)
	}
	return nil
}

func passFail(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
