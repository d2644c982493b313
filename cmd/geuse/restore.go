package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
)

func runRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	latest := fs.Bool("latest", false, "Restore the most recent backup")
	backupPath := fs.String("backup", "", "Path to a specific backup file to restore")
	force := fs.Bool("force", false, "Required in non-text output modes to confirm the restore")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse restore <stack-name> {--latest|--backup PATH}

Replace a stack's live state record with a previously taken backup.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if fs.NArg() != 1 {
		return usageErrorf("restore requires exactly one stack name argument")
	}
	stack := fs.Arg(0)
	if *latest == (*backupPath != "") {
		return usageErrorf("exactly one of --latest or --backup must be given")
	}
	if base.Format() != cliutil.OutputText && !*force {
		return usageErrorf("--force is required to restore a stack in %s output mode", base.Format())
	}

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	target := *backupPath
	if *latest {
		paths, err := e.store.ListBackups(stack)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no backups recorded for stack %s", stack)
		}
		target = paths[0]
	}

	state, err := e.store.Restore(ctx, stack, target)
	if err != nil {
		return err
	}

	if base.Format() != cliutil.OutputText {
		return cliutil.Print(fs.Output(), base.Format(), cliutil.OK(state, "restored"))
	}
	fmt.Printf("restored stack %s from %s\n", stack, target)
	return nil
}
