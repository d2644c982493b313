package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/update"
)

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	stack := fs.String("stack-name", "", "Stack name to update (required)")
	instanceType := fs.String("instance-type", "", "New instance type, if resizing")
	images := fs.String("images", "", "Comma-separated name=image pairs to roll out, e.g. n8n=n8nio/n8n:1.2")
	initiatedBy := fs.String("by", "cli", "Identity recorded as having initiated this update")
	force := fs.Bool("force", false, "Required in non-text output modes to confirm the update")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse update --stack-name <name> [--instance-type T] [--images n8n=img,...]

Apply an instance-type resize and/or container image rollout to a running
stack, snapshotting the prior state so it can be rolled back.

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
		return usageErrorf("--force is required to update a stack in %s output mode", base.Format())
	}

	imageMap, err := parseImagePairs(*images)
	if err != nil {
		return err
	}

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Minute)
	defer cancel()

	state, err := e.store.Load(ctx, *stack, true)
	if err != nil {
		return err
	}

	svc := update.New(e.compute, e.clients, e.store)
	req := update.Request{NewInstanceType: *instanceType, ContainerImages: imageMap, InitiatedBy: *initiatedBy}
	applyErr := svc.Apply(ctx, state.Config.Region, state, req)

	if base.Format() != cliutil.OutputText {
		envelope := cliutil.OK(state, "updated")
		if applyErr != nil {
			envelope = cliutil.Failed("E_UPDATE", applyErr.Error(), nil)
		}
		_ = cliutil.Print(fs.Output(), base.Format(), envelope)
		return applyErr
	}
	if applyErr != nil {
		return applyErr
	}
	fmt.Printf("updated stack %s\n", *stack)
	return nil
}

func parseImagePairs(spec string) (map[string]string, error) {
	if spec == "" {
		return nil, nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, image, ok := strings.Cut(pair, "=")
		if !ok || name == "" || image == "" {
			return nil, fmt.Errorf("invalid image pair %q, expected name=image", pair)
		}
		out[name] = image
	}
	return out, nil
}
