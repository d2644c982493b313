package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
)

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	stack := fs.String("stack-name", "", "Stack name whose state record to migrate (required)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse migrate --stack-name <name>

Load a stack's state record (which upgrades it to the current schema in
memory) and re-save it so the upgrade is persisted to disk rather than
re-applied on every subsequent load.

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

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	state, err := e.store.Load(ctx, *stack, true)
	if err != nil {
		return err
	}

	if err := e.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save migrated state: %w", err)
	}

	if base.Format() != cliutil.OutputText {
		return cliutil.Print(fs.Output(), base.Format(), cliutil.OK(state, "migrated"))
	}
	fmt.Printf("stack %s persisted at schema v%d\n", *stack, state.SchemaVersion)
	return nil
}
