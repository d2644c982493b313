package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/destroy"
	"github.com/GoCodeAlone/geuse/internal/model"
)

func runDestroy(args []string) error {
	fs := flag.NewFlagSet("destroy", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	stack := fs.String("stack-name", "", "Stack name to tear down (required)")
	dryRun := fs.Bool("dry-run", false, "Report what would be deleted without deleting anything")
	force := fs.Bool("force", false, "Required in non-text output modes to confirm destruction")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse destroy --stack-name <name> [options]

Tear down a stack's owned resources in reverse-dependency order. Resources
marked as reused (not created by this stack) are preserved. Non-text
output modes require --force; they never prompt interactively.

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
	if !*dryRun && base.Format() != cliutil.OutputText && !*force {
		return usageErrorf("--force is required to destroy a stack in %s output mode", base.Format())
	}

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	state, err := e.store.Load(ctx, *stack, true)
	if err != nil {
		return err
	}

	svc := destroy.New(e.network, e.compute, e.fs, e.identity, e.lb, e.cdn, *dryRun)
	result := svc.Destroy(ctx, state.Config.Region, state)

	if !*dryRun {
		state.Status = model.StatusDestroyed
		now := time.Now().UTC()
		state.TerminatedAt = &now
		if err := e.store.Save(ctx, state); err != nil {
			return fmt.Errorf("save destroyed state: %w", err)
		}
	}

	if base.Format() != cliutil.OutputText {
		envelope := cliutil.OK(result, "destroyed")
		if len(result.Errors) > 0 {
			envelope = cliutil.Failed("E_DESTROY", "one or more resources failed to delete", result.Errors)
		}
		return cliutil.Print(fs.Output(), base.Format(), envelope)
	}

	fmt.Printf("destroyed %d resource(s), preserved %d, %d error(s)\n", len(result.Deleted), len(result.Preserved), len(result.Errors))
	for _, msg := range result.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
	return nil
}
