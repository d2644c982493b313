package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/rollback"
)

func runRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	stack := fs.String("stack-name", "", "Stack name to roll back (required)")
	toVersion := fs.Int("to-version", 1, "1-based index into the snapshot ring (1 = most recent)")
	reason := fs.String("reason", "", "Reason recorded in the rollback history")
	initiatedBy := fs.String("by", "cli", "Identity recorded as having initiated this rollback")
	force := fs.Bool("force", false, "Required in non-text output modes to confirm the rollback")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse rollback --stack-name <name> [--to-version N]

Revert a stack to one of its previously snapshotted states.

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
	if base.Format() != cliutil.OutputText && !*force {
		return usageErrorf("--force is required to roll back a stack in %s output mode", base.Format())
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

	svc := rollback.New(e.compute, e.store)
	rollbackErr := svc.Rollback(ctx, state.Config.Region, state, *toVersion, *reason, *initiatedBy)

	if base.Format() != cliutil.OutputText {
		envelope := cliutil.OK(state, "rolled back")
		if rollbackErr != nil {
			envelope = cliutil.Failed("E_ROLLBACK", rollbackErr.Error(), nil)
		}
		_ = cliutil.Print(fs.Output(), base.Format(), envelope)
		return rollbackErr
	}
	if rollbackErr != nil {
		return rollbackErr
	}
	fmt.Printf("rolled back stack %s to version %d\n", *stack, *toVersion)
	return nil
}
