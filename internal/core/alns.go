package core

import (
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"
)

const (
	alnsInitialTemp   = 10000.0
	alnsCoolingFactor = 0.99
	alnsMinTemp       = 1.0
	alnsWeightDecay   = 0.99
	alnsResetPeriod   = 100
)

var destroyOperatorNames = []string{
	"random_removal", "worst_removal", "related_removal", "field_removal", "time_slice_removal",
}

var repairOperatorNames = []string{
	"greedy_insert", "regret_insert", "candidate_insert",
}

// adaptiveWeights mirrors original_source's AdaptiveWeights: roulette-wheel
// operator selection with a decayed-weight-plus-reward update rule and a
// periodic soft reset (spec.md §4.8 steps 1, 6, 7).
type adaptiveWeights struct {
	names  []string
	weight map[string]float64
}

func newAdaptiveWeights(names []string) *adaptiveWeights {
	w := &adaptiveWeights{names: names, weight: make(map[string]float64, len(names))}
	for _, n := range names {
		w.weight[n] = 1.0
	}
	return w
}

func (w *adaptiveWeights) selectOperator(rng *rand.Rand) string {
	total := 0.0
	for _, n := range w.names {
		total += w.weight[n]
	}
	if total <= 0 {
		return w.names[rng.Intn(len(w.names))]
	}
	r := rng.Float64() * total
	cumulative := 0.0
	for _, n := range w.names {
		cumulative += w.weight[n]
		if cumulative >= r {
			return n
		}
	}
	return w.names[len(w.names)-1]
}

func (w *adaptiveWeights) update(name string, improvement, threshold float64) {
	reward := 1.0
	if improvement > threshold {
		if improvement > threshold*2 {
			reward = 10
		} else {
			reward = 5
		}
	}
	w.weight[name] = w.weight[name]*alnsWeightDecay + reward
}

func (w *adaptiveWeights) resetPeriodically(iteration int) {
	if iteration%alnsResetPeriod != 0 {
		return
	}
	for _, n := range w.names {
		w.weight[n] = 0.5*w.weight[n] + 0.5
	}
}

// RunALNS executes the Adaptive Large Neighborhood Search of spec.md §4.8
// starting from initial and returns the best solution found (S*).
func RunALNS(initial Solution, ctx OperatorContext, idx interactionIndex, iterations int, deadline deadlineChecker) Solution {
	if iterations <= 0 {
		iterations = 200
	}

	current := rescoreSolution(initial, idx)
	best := current
	currentProfit := current.TotalProfit()
	bestProfit := currentProfit

	destroyWeights := newAdaptiveWeights(destroyOperatorNames)
	repairWeights := newAdaptiveWeights(repairOperatorNames)
	temp := alnsInitialTemp

	for iteration := 0; iteration < iterations; iteration++ {
		if deadline.expired() {
			break
		}

		destroyName := destroyWeights.selectOperator(ctx.Rng)
		repairName := repairWeights.selectOperator(ctx.Rng)

		partial, removed := runDestroy(destroyName, current, ctx)
		candidate := runRepair(repairName, partial, removed, ctx, idx)
		candidate = rescoreSolution(candidate, idx)

		candidateProfit := candidate.TotalProfit()
		delta := candidateProfit - currentProfit

		accept := delta > 0
		if !accept && temp > alnsMinTemp {
			accept = ctx.Rng.Float64() < math.Exp(delta/temp)
		}

		if accept {
			current = candidate
			currentProfit = candidateProfit
			if candidateProfit > bestProfit {
				best = candidate
				bestProfit = candidateProfit
			}
		}

		destroyWeights.update(destroyName, delta, 0)
		repairWeights.update(repairName, delta, 0)

		temp *= alnsCoolingFactor
		destroyWeights.resetPeriodically(iteration)
		repairWeights.resetPeriodically(iteration)
	}

	return best
}

// ---------------------------------------------------------------------
// destroy operators
// ---------------------------------------------------------------------

func runDestroy(name string, sol Solution, ctx OperatorContext) (partial Solution, removed []CropAllocation) {
	switch name {
	case "worst_removal":
		return worstRemoval(sol, ctx)
	case "related_removal":
		return relatedRemoval(sol, ctx)
	case "field_removal":
		return fieldRemoval(sol, ctx)
	case "time_slice_removal":
		return timeSliceRemoval(sol, ctx)
	default:
		return randomRemoval(sol, ctx)
	}
}

func removalCount(n int, rate float64) int {
	if rate <= 0 {
		rate = 0.3
	}
	count := int(float64(n) * rate)
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}
	return count
}

func randomRemoval(sol Solution, ctx OperatorContext) (Solution, []CropAllocation) {
	n := len(sol.Allocations)
	if n == 0 {
		return sol, nil
	}
	count := removalCount(n, ctx.Config.ALNSRemovalRate)
	perm := ctx.Rng.Perm(n)
	removeSet := make(map[int]bool, count)
	for i := 0; i < count; i++ {
		removeSet[perm[i]] = true
	}
	return splitByIndex(sol, removeSet)
}

func worstRemoval(sol Solution, ctx OperatorContext) (Solution, []CropAllocation) {
	n := len(sol.Allocations)
	if n == 0 {
		return sol, nil
	}
	count := removalCount(n, ctx.Config.ALNSRemovalRate)
	idxs := make([]int, n)
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool {
		return sol.Allocations[idxs[i]].ProfitRate() < sol.Allocations[idxs[j]].ProfitRate()
	})
	removeSet := make(map[int]bool, count)
	for i := 0; i < count; i++ {
		removeSet[idxs[i]] = true
	}
	return splitByIndex(sol, removeSet)
}

func relatedRemoval(sol Solution, ctx OperatorContext) (Solution, []CropAllocation) {
	n := len(sol.Allocations)
	if n == 0 {
		return sol, nil
	}
	count := removalCount(n, ctx.Config.ALNSRemovalRate)
	seed := sol.Allocations[ctx.Rng.Intn(n)]

	idxs := make([]int, n)
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool {
		return relatedness(seed, sol.Allocations[idxs[i]]) > relatedness(seed, sol.Allocations[idxs[j]])
	})
	removeSet := make(map[int]bool, count)
	for i := 0; i < count; i++ {
		removeSet[idxs[i]] = true
	}
	return splitByIndex(sol, removeSet)
}

// relatedness scores two allocations via 0.5*(same field) +
// 0.3*temporal-proximity + 0.2*(same crop), per spec.md §4.8.
func relatedness(a, b CropAllocation) float64 {
	score := 0.0
	if a.Field().ID == b.Field().ID {
		score += 0.5
	}
	daysApart := math.Abs(a.StartDate().Sub(b.StartDate()).Hours() / 24)
	temporal := 1 - daysApart/365
	if temporal < 0 {
		temporal = 0
	}
	score += 0.3 * temporal
	if a.Crop().ID == b.Crop().ID {
		score += 0.2
	}
	return score
}

func fieldRemoval(sol Solution, ctx OperatorContext) (Solution, []CropAllocation) {
	if len(sol.Allocations) == 0 {
		return sol, nil
	}
	fieldSet := map[string]bool{}
	var fieldIDs []string
	for _, a := range sol.Allocations {
		if !fieldSet[a.Field().ID] {
			fieldSet[a.Field().ID] = true
			fieldIDs = append(fieldIDs, a.Field().ID)
		}
	}
	target := fieldIDs[ctx.Rng.Intn(len(fieldIDs))]

	removeSet := make(map[int]bool)
	for i, a := range sol.Allocations {
		if a.Field().ID == target {
			removeSet[i] = true
		}
	}
	return splitByIndex(sol, removeSet)
}

func timeSliceRemoval(sol Solution, ctx OperatorContext) (Solution, []CropAllocation) {
	n := len(sol.Allocations)
	if n == 0 {
		return sol, nil
	}
	starts := make([]CropAllocation, n)
	copy(starts, sol.Allocations)
	sort.SliceStable(starts, func(i, j int) bool { return starts[i].StartDate().Before(starts[j].StartDate()) })
	median := starts[n/2].StartDate()

	removeSet := make(map[int]bool)
	for i, a := range sol.Allocations {
		days := math.Abs(a.StartDate().Sub(median).Hours() / 24)
		if days < 90 {
			removeSet[i] = true
		}
	}
	if len(removeSet) == 0 {
		removeSet[ctx.Rng.Intn(n)] = true
	}
	return splitByIndex(sol, removeSet)
}

func splitByIndex(sol Solution, removeSet map[int]bool) (Solution, []CropAllocation) {
	var remaining, removed []CropAllocation
	for i, a := range sol.Allocations {
		if removeSet[i] {
			removed = append(removed, a)
		} else {
			remaining = append(remaining, a)
		}
	}
	return Solution{Allocations: remaining}, removed
}

// ---------------------------------------------------------------------
// repair operators
// ---------------------------------------------------------------------

func runRepair(name string, partial Solution, removed []CropAllocation, ctx OperatorContext, idx interactionIndex) Solution {
	switch name {
	case "regret_insert":
		return regretInsert(partial, removed, ctx, idx)
	case "candidate_insert":
		return candidateInsert(partial, removed, ctx, idx)
	default:
		return greedyInsert(partial, removed, ctx)
	}
}

func greedyInsert(partial Solution, removed []CropAllocation, ctx OperatorContext) Solution {
	current := append([]CropAllocation{}, partial.Allocations...)
	sorted := append([]CropAllocation{}, removed...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ProfitRate() > sorted[j].ProfitRate() })

	for _, a := range sorted {
		if isFeasibleToAdd(current, a, true, ctx.Fields) {
			current = append(current, a)
		}
	}
	return Solution{Allocations: current}
}

// regretInsert reinserts the removed allocation with the highest regret —
// the opportunity cost of not inserting it now versus the best alternative
// (spec.md §4.8 repair operators).
func regretInsert(partial Solution, removed []CropAllocation, ctx OperatorContext, idx interactionIndex) Solution {
	current := append([]CropAllocation{}, partial.Allocations...)
	remaining := append([]CropAllocation{}, removed...)

	for len(remaining) > 0 {
		type regretEntry struct {
			index  int
			regret float64
		}
		var entries []regretEntry

		for i, a := range remaining {
			if !isFeasibleToAdd(current, a, true, ctx.Fields) {
				continue
			}
			profitWith := a.Profit

			bestAltProfit := 0.0
			for j, alt := range remaining {
				if j == i || !isFeasibleToAdd(current, alt, true, ctx.Fields) {
					continue
				}
				if alt.Profit > bestAltProfit {
					bestAltProfit = alt.Profit
				}
			}
			entries = append(entries, regretEntry{index: i, regret: profitWith - bestAltProfit})
		}

		if len(entries) == 0 {
			break
		}
		best := entries[0]
		for _, e := range entries[1:] {
			if e.regret > best.regret {
				best = e
			}
		}
		current = append(current, remaining[best.index])
		remaining = append(remaining[:best.index], remaining[best.index+1:]...)
	}

	return Solution{Allocations: current}
}

// candidateInsert reinserts removed allocations greedily, then tries
// inserting unused pool candidates (bounded to 50 insertions) in
// descending profit order (spec.md §4.8).
func candidateInsert(partial Solution, removed []CropAllocation, ctx OperatorContext, idx interactionIndex) Solution {
	greedy := greedyInsert(partial, removed, ctx)
	current := append([]CropAllocation{}, greedy.Allocations...)

	used := usedCandidateKeys(Solution{Allocations: current})

	sortedCandidatesByProfit := append([]AllocationCandidate{}, ctx.Candidates...)
	sort.SliceStable(sortedCandidatesByProfit, func(i, j int) bool {
		return sortedCandidatesByProfit[i].BaseProfit > sortedCandidatesByProfit[j].BaseProfit
	})

	const maxInserts = 50
	inserted := 0
	for _, cand := range sortedCandidatesByProfit {
		if inserted >= maxInserts {
			break
		}
		key := candidateKey(cand)
		if used[key] {
			continue
		}
		newAlloc := CropAllocation{ID: uuid.NewString(), Candidate: cand}
		if isFeasibleToAdd(current, newAlloc, true, ctx.Fields) {
			current = append(current, newAlloc)
			used[key] = true
			inserted++
		}
	}

	return Solution{Allocations: current}
}
