package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
)

func runBackup(args []string) error {
	if len(args) == 0 {
		return usageErrorf("backup requires a subcommand: create or list")
	}
	switch args[0] {
	case "create":
		return runBackupCreate(args[1:])
	case "list":
		return runBackupList(args[1:])
	default:
		return usageErrorf("unknown backup subcommand %q: expected create or list", args[0])
	}
}

func runBackupCreate(args []string) error {
	fs := flag.NewFlagSet("backup create", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	stack := fs.String("stack-name", "", "Stack name to snapshot (required)")
	label := fs.String("label", "", "Label appended to the backup filename, e.g. pre-rollback")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: geuse backup create --stack-name <name> [--label L]\n\nSnapshot a stack's current state record.\n\nOptions:\n")
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

	path, err := e.store.Backup(ctx, *stack, *label)
	if err != nil {
		return err
	}

	if base.Format() != cliutil.OutputText {
		return cliutil.Print(fs.Output(), base.Format(), cliutil.OK(map[string]string{"path": path}, "backup created"))
	}
	fmt.Printf("backed up stack %s to %s\n", *stack, path)
	return nil
}

func runBackupList(args []string) error {
	fs := flag.NewFlagSet("backup list", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	stack := fs.String("stack-name", "", "Stack name whose backups to list (required)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: geuse backup list --stack-name <name>\n\nList a stack's backups, newest first.\n\nOptions:\n")
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

	paths, err := e.store.ListBackups(*stack)
	if err != nil {
		return err
	}

	if base.Format() != cliutil.OutputText {
		return cliutil.Print(fs.Output(), base.Format(), cliutil.OK(paths, "backups"))
	}
	if len(paths) == 0 {
		fmt.Printf("no backups recorded for stack %s\n", *stack)
		return nil
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
