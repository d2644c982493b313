package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/validate"
)

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	configPath := fs.String("config", "", "Path to a deployment config YAML file (required)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse validate --config <path>

Run pre-deployment checks against a config without deploying anything.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if *configPath == "" {
		return usageErrorf("--config is required")
	}

	cfg, err := cliutil.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	checker := validate.New(e.clients)
	results := checker.PreDeploy(ctx, &cfg)

	var failed bool
	for _, r := range results {
		if !r.Passed && r.Severity == validate.SeverityCritical {
			failed = true
		}
	}

	if base.Format() != cliutil.OutputText {
		envelope := cliutil.OK(results, "validated")
		if failed {
			envelope = cliutil.Failed("E_VALIDATION", "one or more critical checks failed", nil)
			envelope.Data = results
		}
		return cliutil.Print(fs.Output(), base.Format(), envelope)
	}

	for _, r := range results {
		fmt.Printf("  [%s] %s (%s): %s\n", passFail(r.Passed), r.Name, r.Severity, r.Message)
	}
	if failed {
		return fmt.Errorf("one or more critical pre-deployment checks failed")
	}
	return nil
}
