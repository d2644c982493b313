package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/pricing"
)

func runCost(args []string) error {
	fs := flag.NewFlagSet("cost", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	stack := fs.String("stack-name", "", "Estimate cost for this recorded stack")
	instanceType := fs.String("instance-type", "", "Estimate standalone compute cost for this instance type (used without --stack-name)")
	region := fs.String("region", "us-east-1", "Region to price against")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse cost --stack-name <name>
       geuse cost --instance-type <type> [--region R]

Estimate the monthly on-demand cost of a recorded stack's compute, or of
a standalone instance type.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if *stack == "" && *instanceType == "" {
		return usageErrorf("one of --stack-name or --instance-type is required")
	}

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	priceSvc := pricing.New(e.clients)

	instType := *instanceType
	reg := *region
	if *stack != "" {
		state, err := e.store.Load(ctx, *stack, true)
		if err != nil {
			return err
		}
		instType = state.Config.InstanceType
		reg = state.Config.Region
	}

	result, err := priceSvc.ComputeOnDemand(ctx, instType, reg)
	if err != nil {
		return err
	}
	monthly := result.Value * 730

	data := map[string]any{
		"instance_type":         instType,
		"region":                reg,
		"hourly_usd":            result.Value,
		"estimated_monthly_usd": monthly,
		"source":                result.Source,
	}

	if base.Format() != cliutil.OutputText {
		return cliutil.Print(fs.Output(), base.Format(), cliutil.OK(data, "cost estimate"))
	}
	fmt.Printf("%s in %s: $%.4f/hr (~$%.2f/mo), source=%s\n", instType, reg, result.Value, monthly, result.Source)
	return nil
}
