// Package selection decides whether a deployment should launch on spot or
// on-demand capacity, and in which availability zone.
package selection

import (
	"context"
	"fmt"

	"github.com/GoCodeAlone/geuse/internal/capacity"
	"github.com/GoCodeAlone/geuse/internal/pricing"
)

// Choice is the outcome of selecting an instance type and capacity type
// for a deployment.
type Choice struct {
	InstanceType     string
	AvailabilityZone string
	UseSpot          bool
	OnDemandPrice    float64
	SpotPrice        float64
	HourlySavings    float64
	FallbackReason   string
}

const (
	reasonNoSpotPreference   = "spot not preferred"
	reasonNoSavings          = "no spot price below the required ≥ 80% on-demand savings threshold"
	reasonUnstable           = "spot price stability below threshold"
	reasonNoCapacity         = "no spot capacity available in any candidate az"
	reasonHistoryUnavailable = "spot price history unavailable"
)

// Selector chooses an instance type/AZ/capacity-type combination for a
// deployment, memoizing the result so repeated calls within one
// orchestrator run see a consistent choice.
type Selector struct {
	pricing  *pricing.Service
	capacity *capacity.Service

	done   bool
	result Choice
	err    error
}

// New returns a Selector backed by the given pricing and capacity
// services.
func New(p *pricing.Service, c *capacity.Service) *Selector {
	return &Selector{pricing: p, capacity: c}
}

// Select runs the selection algorithm once per Selector instance; later
// calls return the memoized result.
func (sel *Selector) Select(ctx context.Context, instanceType, region string, preferSpot bool) (Choice, error) {
	if sel.done {
		return sel.result, sel.err
	}
	sel.result, sel.err = sel.selectOnce(ctx, instanceType, region, preferSpot)
	sel.done = true
	return sel.result, sel.err
}

func (sel *Selector) selectOnce(ctx context.Context, instanceType, region string, preferSpot bool) (Choice, error) {
	onDemand, err := sel.pricing.ComputeOnDemand(ctx, instanceType, region)
	if err != nil {
		return Choice{}, fmt.Errorf("selection: on-demand price: %w", err)
	}

	choice := Choice{
		InstanceType:  instanceType,
		OnDemandPrice: onDemand.Value,
	}

	if !preferSpot {
		choice.FallbackReason = reasonNoSpotPreference
		return choice, nil
	}

	analysis, err := sel.capacity.AnalyzeSpot(ctx, instanceType, region, onDemand.Value)
	if err != nil {
		choice.FallbackReason = reasonHistoryUnavailable
		return choice, nil
	}
	if len(analysis.Prices) == 0 {
		choice.FallbackReason = reasonHistoryUnavailable
		return choice, nil
	}

	placementScores := sel.capacity.PlacementScores(ctx, instanceType, region)

	candidates := toCandidates(analysis, placementScores)
	sortCandidates(candidates)

	for _, cand := range candidates {
		if cand.price >= onDemand.Value*0.8 {
			continue
		}
		if cand.stability < 0.5 {
			continue
		}
		available, err := sel.capacity.CheckCapacity(ctx, instanceType, cand.az, region)
		if err != nil || !available {
			continue
		}
		choice.UseSpot = true
		choice.AvailabilityZone = cand.az
		choice.SpotPrice = cand.price
		choice.HourlySavings = onDemand.Value - cand.price
		return choice, nil
	}

	choice.FallbackReason = fallbackReasonFor(candidates, onDemand.Value)
	return choice, nil
}

type capacityAZ struct {
	az        string
	price     float64
	stability float64
	placement float64
}

func toCandidates(analysis capacity.Analysis, placement map[string]float64) []capacityAZ {
	out := make([]capacityAZ, 0, len(analysis.Prices))
	for _, p := range analysis.Prices {
		score, ok := placement[p.AvailabilityZone]
		if !ok {
			score = 5.0
		}
		out = append(out, capacityAZ{az: p.AvailabilityZone, price: p.Price, stability: p.Stability, placement: score})
	}
	return out
}

func sortCandidates(c []capacityAZ) {
	// AZ sort key: highest placement score first, then cheapest price.
	for i := 1; i < len(c); i++ {
		for j := i; j > 0; j-- {
			if less(c[j], c[j-1]) {
				c[j], c[j-1] = c[j-1], c[j]
			} else {
				break
			}
		}
	}
}

func less(a, b capacityAZ) bool {
	if a.placement != b.placement {
		return a.placement > b.placement
	}
	return a.price < b.price
}

func fallbackReasonFor(candidates []capacityAZ, onDemandPrice float64) string {
	anyCheap := false
	anyStable := false
	for _, c := range candidates {
		if c.price < onDemandPrice*0.8 {
			anyCheap = true
			if c.stability >= 0.5 {
				anyStable = true
			}
		}
	}
	switch {
	case !anyCheap:
		return reasonNoSavings
	case !anyStable:
		return reasonUnstable
	default:
		return reasonNoCapacity
	}
}
