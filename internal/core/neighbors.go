package core

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
)

// OperatorContext carries the shared read-only state every neighbor
// operator needs: the candidate pool, field/crop indexes, and the
// optimization config. Operators never mutate the incumbent solution —
// they return freshly allocated neighbor solutions (spec.md §5).
type OperatorContext struct {
	Candidates []AllocationCandidate
	Fields     map[string]Field
	Crops      map[string]Crop
	Config     Config
	Rng        *rand.Rand
}

// candidatesForField and candidatesForFieldCrop filter the candidate pool
// by a linear scan for the operators that need one field's (or one field
// and crop's) candidates.
func (c OperatorContext) candidatesForField(fieldID string) []AllocationCandidate {
	var out []AllocationCandidate
	for _, cand := range c.Candidates {
		if cand.Field.ID == fieldID {
			out = append(out, cand)
		}
	}
	return out
}

func (c OperatorContext) candidatesForFieldCrop(fieldID, cropID string) []AllocationCandidate {
	var out []AllocationCandidate
	for _, cand := range c.Candidates {
		if cand.Field.ID == fieldID && cand.Crop.ID == cropID {
			out = append(out, cand)
		}
	}
	return out
}

// Operator is the single operation every neighbor transformation exposes:
// a pure function from (solution, context) to a sequence of candidate
// neighbors (spec.md §9 "dynamic dispatch" note — modeled as a small fixed
// set of interface implementations, not an open plugin mechanism).
//
// Operators emit allocations with zero Revenue/Profit: the final
// re-scoring happens once, in the local-search/ALNS re-evaluation step, to
// avoid the source's inconsistency of provisional values on neighbor
// outputs (DESIGN.md's resolution of that open question).
type Operator interface {
	Name() string
	Neighbors(sol Solution, ctx OperatorContext) []Solution
}

// AllOperators returns the eight operators of spec.md §4.6 in a fixed
// order, forming the registry consulted by local search and referenced by
// name from ALNS-adjacent configuration.
func AllOperators() []Operator {
	return []Operator{
		fieldSwapOperator{},
		fieldMoveOperator{},
		fieldReplaceOperator{},
		fieldRemoveOperator{},
		cropInsertOperator{},
		cropChangeOperator{},
		periodReplaceOperator{},
		areaAdjustOperator{},
	}
}

func withoutRevenue(cand AllocationCandidate) CropAllocation {
	return CropAllocation{ID: uuid.NewString(), Candidate: cand}
}

func replaceAllocation(sol Solution, removeIdx int, additions ...CropAllocation) Solution {
	out := make([]CropAllocation, 0, len(sol.Allocations)+len(additions))
	for i, a := range sol.Allocations {
		if i == removeIdx {
			continue
		}
		out = append(out, a)
	}
	out = append(out, additions...)
	return Solution{Allocations: out}
}

func nearestCandidates(pool []AllocationCandidate, fieldID string, around CropAllocation, limit int) []AllocationCandidate {
	var same []AllocationCandidate
	for _, c := range pool {
		if c.Field.ID == fieldID {
			same = append(same, c)
		}
	}
	sort.SliceStable(same, func(i, j int) bool {
		di := absDuration(same[i].StartDate.Sub(around.StartDate()))
		dj := absDuration(same[j].StartDate.Sub(around.StartDate()))
		return di < dj
	})
	if len(same) > limit {
		same = same[:limit]
	}
	return same
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// ---------------------------------------------------------------------
// field_swap
// ---------------------------------------------------------------------

type fieldSwapOperator struct{}

func (fieldSwapOperator) Name() string { return "field_swap" }

// Neighbors picks two allocations in different fields and generates a
// neighbor where each moves to the other's field, using the closest
// candidate from the pool for each side (spec.md §4.6). Per DESIGN.md's
// resolution of the source's dual-code-path ambiguity, this operator is
// candidate-pool-based only and rejects any neighbor that would be
// infeasible rather than force-placing it.
func (o fieldSwapOperator) Neighbors(sol Solution, ctx OperatorContext) []Solution {
	limit := nearestLimit(ctx.Config.CandidateDateToleranceDays)
	var neighbors []Solution

	for i := 0; i < len(sol.Allocations); i++ {
		for j := i + 1; j < len(sol.Allocations); j++ {
			a, b := sol.Allocations[i], sol.Allocations[j]
			if a.Field().ID == b.Field().ID {
				continue
			}

			aCandidates := nearestCandidates(ctx.Candidates, b.Field().ID, a, limit)
			bCandidates := nearestCandidates(ctx.Candidates, a.Field().ID, b, limit)

			aReplacement, aOK := closestSameCrop(aCandidates, a.Crop().ID, a.StartDate())
			bReplacement, bOK := closestSameCrop(bCandidates, b.Crop().ID, b.StartDate())
			if !aOK || !bOK {
				continue
			}
			if roundArea(aReplacement.AreaUsed+bReplacement.AreaUsed) != roundArea(a.AreaUsed()+b.AreaUsed()) {
				// Operator area preservation law (spec.md §8): the
				// combined area of the two affected allocations must be
				// preserved across the swap.
				continue
			}

			without := removeIndices(sol, i, j)
			candidate := Solution{Allocations: append(append([]CropAllocation{}, without.Allocations...),
				withoutRevenue(aReplacement), withoutRevenue(bReplacement))}

			if !solutionFeasible(candidate, ctx.Fields) {
				continue
			}
			neighbors = append(neighbors, candidate)
		}
	}
	return neighbors
}

func nearestLimit(toleranceDays int) int {
	switch {
	case toleranceDays <= 5:
		return 5
	case toleranceDays <= 10:
		return 10
	case toleranceDays <= 20:
		return 20
	default:
		return 50
	}
}

func closestSameCrop(pool []AllocationCandidate, cropID string, around time.Time) (AllocationCandidate, bool) {
	var best AllocationCandidate
	found := false
	var bestDelta time.Duration
	for _, c := range pool {
		if c.Crop.ID != cropID {
			continue
		}
		delta := absDuration(c.StartDate.Sub(around))
		if !found || delta < bestDelta {
			best, bestDelta, found = c, delta, true
		}
	}
	return best, found
}

func removeIndices(sol Solution, indices ...int) Solution {
	remove := make(map[int]bool, len(indices))
	for _, i := range indices {
		remove[i] = true
	}
	out := make([]CropAllocation, 0, len(sol.Allocations))
	for i, a := range sol.Allocations {
		if remove[i] {
			continue
		}
		out = append(out, a)
	}
	return Solution{Allocations: out}
}

func solutionFeasible(sol Solution, fields map[string]Field) bool {
	var built []CropAllocation
	for _, a := range sol.Allocations {
		if !isFeasibleToAdd(built, a, true, fields) {
			return false
		}
		built = append(built, a)
	}
	return true
}

// ---------------------------------------------------------------------
// field_move
// ---------------------------------------------------------------------

type fieldMoveOperator struct{}

func (fieldMoveOperator) Name() string { return "field_move" }

// Neighbors moves one allocation to a different field, keeping crop and
// approximate start date (spec.md §4.6).
func (o fieldMoveOperator) Neighbors(sol Solution, ctx OperatorContext) []Solution {
	limit := nearestLimit(ctx.Config.CandidateDateToleranceDays)
	var neighbors []Solution

	for i, a := range sol.Allocations {
		for fieldID := range ctx.Fields {
			if fieldID == a.Field().ID {
				continue
			}
			pool := nearestCandidates(ctx.Candidates, fieldID, a, limit)
			replacement, ok := closestSameCrop(pool, a.Crop().ID, a.StartDate())
			if !ok {
				continue
			}
			without := removeIndices(sol, i)
			neighbor := replaceAllocation(without, -1, withoutRevenue(replacement))
			if !solutionFeasible(neighbor, ctx.Fields) {
				continue
			}
			neighbors = append(neighbors, neighbor)
		}
	}
	return neighbors
}

// ---------------------------------------------------------------------
// field_replace
// ---------------------------------------------------------------------

type fieldReplaceOperator struct{}

func (fieldReplaceOperator) Name() string { return "field_replace" }

// Neighbors replaces an allocation in field A with a candidate from the
// pool for the same field but a different crop/period/area.
func (o fieldReplaceOperator) Neighbors(sol Solution, ctx OperatorContext) []Solution {
	max := ctx.Config.MaxPeriodReplaceAlternatives
	if max <= 0 {
		max = 10
	}
	var neighbors []Solution

	for i, a := range sol.Allocations {
		fieldPool := ctx.candidatesForField(a.Field().ID)
		count := 0
		for _, cand := range fieldPool {
			if cand.Crop.ID == a.Crop().ID && cand.StartDate.Equal(a.StartDate()) {
				continue
			}
			without := removeIndices(sol, i)
			neighbor := replaceAllocation(without, -1, withoutRevenue(cand))
			if !solutionFeasible(neighbor, ctx.Fields) {
				continue
			}
			neighbors = append(neighbors, neighbor)
			count++
			if count >= max {
				break
			}
		}
	}
	return neighbors
}

// ---------------------------------------------------------------------
// field_remove
// ---------------------------------------------------------------------

type fieldRemoveOperator struct{}

func (fieldRemoveOperator) Name() string { return "field_remove" }

// Neighbors drops one allocation.
func (o fieldRemoveOperator) Neighbors(sol Solution, ctx OperatorContext) []Solution {
	var neighbors []Solution
	for i := range sol.Allocations {
		neighbors = append(neighbors, removeIndices(sol, i))
	}
	return neighbors
}

// ---------------------------------------------------------------------
// crop_insert
// ---------------------------------------------------------------------

type cropInsertOperator struct{}

func (cropInsertOperator) Name() string { return "crop_insert" }

// Neighbors inserts a candidate from the pool that is not currently in the
// solution, if feasible.
func (o cropInsertOperator) Neighbors(sol Solution, ctx OperatorContext) []Solution {
	used := usedCandidateKeys(sol)
	var neighbors []Solution
	for _, cand := range ctx.Candidates {
		if used[candidateKey(cand)] {
			continue
		}
		neighbor := Solution{Allocations: append(append([]CropAllocation{}, sol.Allocations...), withoutRevenue(cand))}
		if !solutionFeasible(neighbor, ctx.Fields) {
			continue
		}
		neighbors = append(neighbors, neighbor)
	}
	return neighbors
}

func usedCandidateKeys(sol Solution) map[string]bool {
	used := make(map[string]bool, len(sol.Allocations))
	for _, a := range sol.Allocations {
		used[candidateKey(a.Candidate)] = true
	}
	return used
}

func candidateKey(c AllocationCandidate) string {
	return c.Field.ID + "|" + c.Crop.ID + "|" + c.StartDate.Format("2006-01-02")
}

// ---------------------------------------------------------------------
// crop_change
// ---------------------------------------------------------------------

type cropChangeOperator struct{}

func (cropChangeOperator) Name() string { return "crop_change" }

// Neighbors changes the crop on a field/period to a different crop with a
// matching candidate, preserving approximate area (area equivalence via
// area_used — spec.md §8's operator-area-preservation law).
func (o cropChangeOperator) Neighbors(sol Solution, ctx OperatorContext) []Solution {
	var neighbors []Solution
	for i, a := range sol.Allocations {
		fieldPool := ctx.candidatesForField(a.Field().ID)
		for _, cand := range fieldPool {
			if cand.Crop.ID == a.Crop().ID {
				continue
			}
			if roundArea(cand.AreaUsed) != roundArea(a.AreaUsed()) {
				continue
			}
			without := removeIndices(sol, i)
			neighbor := replaceAllocation(without, -1, withoutRevenue(cand))
			if !solutionFeasible(neighbor, ctx.Fields) {
				continue
			}
			neighbors = append(neighbors, neighbor)
		}
	}
	return neighbors
}

// ---------------------------------------------------------------------
// period_replace
// ---------------------------------------------------------------------

type periodReplaceOperator struct{}

func (periodReplaceOperator) Name() string { return "period_replace" }

// Neighbors replaces a (field, crop) allocation with a different-dated
// candidate for the same (field, crop).
func (o periodReplaceOperator) Neighbors(sol Solution, ctx OperatorContext) []Solution {
	max := ctx.Config.MaxPeriodReplaceAlternatives
	if max <= 0 {
		max = 10
	}
	var neighbors []Solution
	for i, a := range sol.Allocations {
		pool := ctx.candidatesForFieldCrop(a.Field().ID, a.Crop().ID)
		count := 0
		for _, cand := range pool {
			if cand.StartDate.Equal(a.StartDate()) {
				continue
			}
			without := removeIndices(sol, i)
			neighbor := replaceAllocation(without, -1, withoutRevenue(cand))
			if !solutionFeasible(neighbor, ctx.Fields) {
				continue
			}
			neighbors = append(neighbors, neighbor)
			count++
			if count >= max {
				break
			}
		}
	}
	return neighbors
}

// ---------------------------------------------------------------------
// area_adjust
// ---------------------------------------------------------------------

type areaAdjustOperator struct{}

func (areaAdjustOperator) Name() string { return "area_adjust" }

// Neighbors scales area_used by the configured multipliers subject to
// field capacity and profile constraints.
func (o areaAdjustOperator) Neighbors(sol Solution, ctx OperatorContext) []Solution {
	multipliers := ctx.Config.AreaAdjustmentMultipliers
	if len(multipliers) == 0 {
		multipliers = DefaultConfig().AreaAdjustmentMultipliers
	}

	var neighbors []Solution
	for i, a := range sol.Allocations {
		for _, m := range multipliers {
			newArea := roundArea(a.AreaUsed() * m)
			if newArea <= 0 {
				continue
			}
			field := ctx.Fields[a.Field().ID]
			if newArea > field.AreaM2 {
				continue
			}

			adjustedCand := a.Candidate
			adjustedCand.AreaUsed = newArea
			adjustedCand.RevenueBeforeInteraction = newArea * a.Crop().RevenuePerArea * adjustedCand.YieldFactor
			if a.Crop().HasMaxRevenue() && adjustedCand.RevenueBeforeInteraction > a.Crop().MaxRevenue {
				adjustedCand.RevenueBeforeInteraction = a.Crop().MaxRevenue
			}
			adjustedCand.BaseProfit = adjustedCand.RevenueBeforeInteraction - adjustedCand.Cost
			if adjustedCand.Cost != 0 {
				adjustedCand.ProfitRate = adjustedCand.BaseProfit / adjustedCand.Cost
			}

			without := removeIndices(sol, i)
			neighbor := replaceAllocation(without, -1, withoutRevenue(adjustedCand))
			if !solutionFeasible(neighbor, ctx.Fields) {
				continue
			}
			neighbors = append(neighbors, neighbor)
		}
	}
	return neighbors
}
