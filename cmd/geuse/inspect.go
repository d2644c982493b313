package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
)

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: geuse inspect <stack-name>\n\nDump the full recorded state record for a stack.\n")
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if fs.NArg() != 1 {
		return usageErrorf("inspect requires exactly one stack name argument")
	}
	stack := fs.Arg(0)

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	state, err := e.store.Load(ctx, stack, true)
	if err != nil {
		return err
	}

	format := base.Format()
	if format == cliutil.OutputText {
		format = cliutil.OutputJSON
	}
	return cliutil.Print(fs.Output(), format, cliutil.OK(state, "state"))
}
