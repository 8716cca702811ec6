package core

import (
	"sort"

	"github.com/google/uuid"
)

// BuildGreedySolution sorts all candidates across fields by profit rate
// descending, then by profit descending, and accepts each one that is
// feasible against the partial solution built so far (spec.md §4.5).
func BuildGreedySolution(candidates []AllocationCandidate, fields map[string]Field, idx interactionIndex) Solution {
	sorted := make([]AllocationCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ProfitRate != sorted[j].ProfitRate {
			return sorted[i].ProfitRate > sorted[j].ProfitRate
		}
		return sorted[i].BaseProfit > sorted[j].BaseProfit
	})

	var allocations []CropAllocation
	lastOnField := make(map[string]int) // field ID -> index into allocations of its latest allocation

	for _, cand := range sorted {
		provisional := CropAllocation{Candidate: cand}
		if !isFeasibleToAdd(allocations, provisional, true, fields) {
			continue
		}

		interactionImpact := 1.0
		soilRecovery := 1.0
		if prevIdx, ok := lastOnField[cand.Field.ID]; ok {
			prev := allocations[prevIdx].Candidate
			if !prev.CompletionDate.After(cand.StartDate) {
				interactionImpact = idx.impact(prev.Crop.Tags, cand.Crop.Tags)
				gap := int(cand.StartDate.Sub(prev.CompletionDate).Hours() / 24)
				soilRecovery = soilRecoveryFactor(gap)
			}
		}

		revenue := applyRevenueAdjustment(cand.RevenueBeforeInteraction, cand.Crop, interactionImpact, soilRecovery)
		alloc := CropAllocation{
			ID:        uuid.NewString(),
			Candidate: cand,
			Revenue:   revenue,
			Profit:    revenue - cand.Cost,
		}
		allocations = append(allocations, alloc)

		if existingIdx, ok := lastOnField[cand.Field.ID]; !ok || allocations[existingIdx].CompletionDate().Before(cand.CompletionDate) {
			lastOnField[cand.Field.ID] = len(allocations) - 1
		}
	}

	return Solution{Allocations: allocations}
}
