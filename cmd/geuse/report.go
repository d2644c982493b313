package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/health"
	"github.com/GoCodeAlone/geuse/internal/validate"
)

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	stack := fs.String("stack-name", "", "Stack name to report on (required)")
	post := fs.Bool("post", false, "Also run post-deployment validation checks")
	outputFile := fs.String("output-file", "", "Write the report to this path instead of stdout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse report --stack-name <name> [--post] [--output-file path]

Produce a point-in-time report combining recorded state, post-deployment
checks, and live service health for a stack.

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

	var checks []validate.Result
	if *post {
		checker := validate.New(e.clients)
		checks = checker.PostDeploy(ctx, state)
	}

	var results []health.Result
	if state.PublicHost != "" {
		results = health.CheckAll(ctx, state.PublicHost, health.DefaultProbes())
	}

	data := map[string]any{"state": state, "checks": checks, "health": results}

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			return fmt.Errorf("create report file %s: %w", *outputFile, err)
		}
		defer f.Close()
		out = f
	}

	format := base.Format()
	if format == cliutil.OutputText {
		format = cliutil.OutputJSON
	}
	return cliutil.Print(out, format, cliutil.OK(data, "report"))
}
