package core

import (
	"math/rand"
	"sort"
)

// RunLocalSearch hill-climbs from the incumbent solution until no
// improving move exists or the iteration cap is reached (spec.md §4.7).
// Termination is guaranteed because profit is bounded and strict
// improvement is required at each step.
func RunLocalSearch(incumbent Solution, ctx OperatorContext, idx interactionIndex, maxIterations int, deadline deadlineChecker) Solution {
	if maxIterations <= 0 {
		maxIterations = 100
	}
	operators := operatorsFor(ctx.Config, ctx.Rng)

	current := rescoreSolution(incumbent, idx)
	currentProfit := current.TotalProfit()

	for iter := 0; iter < maxIterations; iter++ {
		if deadline.expired() {
			break
		}

		var bestNeighbor *Solution
		bestProfit := currentProfit

		for _, op := range operators {
			for _, neighbor := range op.Neighbors(current, ctx) {
				rescored := rescoreSolution(neighbor, idx)
				profit := rescored.TotalProfit()
				if profit > bestProfit {
					bestProfit = profit
					n := rescored
					bestNeighbor = &n
				}
			}
			if deadline.expired() {
				break
			}
		}

		if bestNeighbor == nil {
			break
		}
		current = *bestNeighbor
		currentProfit = bestProfit
	}

	return current
}

// operatorsFor returns the enabled operator set, honoring
// enable_neighbor_sampling by drawing a random half-sized subset per call
// from the context's seeded RNG when set (spec.md §4.6, §6).
func operatorsFor(cfg Config, rng *rand.Rand) []Operator {
	all := AllOperators()
	if !cfg.EnableNeighborSampling || rng == nil {
		return all
	}

	k := (len(all) + 1) / 2
	perm := rng.Perm(len(all))
	sampled := make([]Operator, k)
	for i, idx := range perm[:k] {
		sampled[i] = all[idx]
	}
	return sampled
}

// rescoreSolution recomputes revenue/profit for every allocation in sol
// using the chained soil-recovery/interaction context per field, exactly
// the way the orchestrator's final re-evaluation pass does (spec.md §4.9
// step 5) — this is the single place neighbor-operator outputs acquire
// real revenue/profit (DESIGN.md's resolution of the provisional-value
// open question).
func rescoreSolution(sol Solution, idx interactionIndex) Solution {
	type indexed struct {
		origIdx int
		alloc   CropAllocation
	}
	byField := make(map[string][]indexed)
	for i, a := range sol.Allocations {
		byField[a.Field().ID] = append(byField[a.Field().ID], indexed{origIdx: i, alloc: a})
	}

	out := make([]CropAllocation, len(sol.Allocations))
	for _, group := range byField {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].alloc.StartDate().Before(group[j].alloc.StartDate())
		})
		var prev *CropAllocation
		for _, entry := range group {
			a := entry.alloc
			interactionImpact := 1.0
			soilRecovery := 1.0
			if prev != nil {
				interactionImpact = idx.impact(prev.Crop().Tags, a.Crop().Tags)
				gap := int(a.StartDate().Sub(prev.CompletionDate()).Hours() / 24)
				soilRecovery = soilRecoveryFactor(gap)
			}
			revenue := applyRevenueAdjustment(a.Candidate.RevenueBeforeInteraction, a.Crop(), interactionImpact, soilRecovery)
			rescored := a
			rescored.Revenue = revenue
			rescored.Profit = revenue - a.Cost()
			out[entry.origIdx] = rescored

			prevCopy := rescored
			prev = &prevCopy
		}
	}

	return Solution{Allocations: out}
}

func groupByField(allocations []CropAllocation) map[string][]CropAllocation {
	m := make(map[string][]CropAllocation)
	for _, a := range allocations {
		m[a.Field().ID] = append(m[a.Field().ID], a)
	}
	return m
}

func sortAllocationsByStart(allocs []CropAllocation) {
	for i := 1; i < len(allocs); i++ {
		for j := i; j > 0 && allocs[j].StartDate().Before(allocs[j-1].StartDate()); j-- {
			allocs[j], allocs[j-1] = allocs[j-1], allocs[j]
		}
	}
}

// deadlineChecker abstracts the optional wall-clock budget so local search
// and ALNS can check it between iterations without importing time-control
// concerns into their own signatures.
type deadlineChecker interface {
	expired() bool
}

type noDeadline struct{}

func (noDeadline) expired() bool { return false }
