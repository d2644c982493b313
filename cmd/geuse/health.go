package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/health"
)

func runHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	host := fs.String("host", "", "Host to probe (required)")
	includePostgres := fs.Bool("include-postgres", false, "Also probe the optional Postgres TCP port")
	timeoutSec := fs.Int("timeout", 5, "Per-probe timeout in seconds")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse health --host <host> [--include-postgres] [--timeout SEC]

Probe a host's standard service set over HTTP/TCP without requiring a
recorded stack.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if *host == "" {
		return usageErrorf("--host is required")
	}

	probes := health.DefaultProbes()
	for i := range probes {
		probes[i].Timeout = time.Duration(*timeoutSec) * time.Second
	}
	if *includePostgres {
		pg := health.PostgresProbe()
		pg.Timeout = time.Duration(*timeoutSec) * time.Second
		probes = append(probes, pg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	results := health.CheckAll(ctx, *host, probes)

	allHealthy := true
	for _, r := range results {
		allHealthy = allHealthy && r.Healthy
	}

	if base.Format() != cliutil.OutputText {
		envelope := cliutil.OK(results, "healthy")
		if !allHealthy {
			envelope = cliutil.Failed("E_UNHEALTHY", "one or more probes failed", nil)
			envelope.Data = results
		}
		return cliutil.Print(fs.Output(), base.Format(), envelope)
	}

	for _, r := range results {
		fmt.Printf("  [%s] %s (%dms): %s\n", passFail(r.Healthy), r.Name, r.LatencyMS, r.Message)
	}
	if !allHealthy {
		return fmt.Errorf("one or more probes failed for host %s", *host)
	}
	return nil
}
