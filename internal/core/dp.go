package core

import (
	"sort"

	"github.com/google/uuid"
)

// SelectFieldDP computes the maximum-profit non-overlapping selection over
// one field's candidates using weighted interval scheduling (spec.md
// §4.4). Soil recovery and interaction impact are applied uniformly during
// scoring here and are not re-applied differently elsewhere — see
// DESIGN.md's resolution of the "DP occasionally disables soil recovery"
// open question.
func SelectFieldDP(field Field, candidates []AllocationCandidate, idx interactionIndex) Solution {
	if len(candidates) == 0 {
		return Solution{}
	}

	sorted := make([]AllocationCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CompletionDate.Equal(sorted[j].CompletionDate) {
			return sorted[i].CompletionDate.Before(sorted[j].CompletionDate)
		}
		if !sorted[i].StartDate.Equal(sorted[j].StartDate) {
			return sorted[i].StartDate.Before(sorted[j].StartDate)
		}
		return sorted[i].Crop.ID < sorted[j].Crop.ID
	})

	n := len(sorted)
	// p[j] = latest index finishing on or before sorted[j].start - fallow,
	// or -1 if none.
	p := make([]int, n)
	for j := 0; j < n; j++ {
		deadline := sorted[j].StartDate.AddDate(0, 0, -field.FallowDays)
		best := -1
		for i := 0; i < j; i++ {
			if !sorted[i].CompletionDate.After(deadline) {
				best = i
			}
		}
		p[j] = best
	}

	// value[j] = profit of placing j right after p[j], including
	// interaction impact and soil recovery from the predecessor.
	value := make([]float64, n)
	for j := 0; j < n; j++ {
		value[j] = scoreArc(sorted, p[j], j, idx)
	}

	// bestAt[j] = best profit using only sorted[0..j-1], taking the
	// candidate at j-1 or not — standard weighted-interval-scheduling
	// recurrence.
	bestAt := make([]float64, n+1)
	include := make([]bool, n+1)
	bestAt[0] = 0
	for j := 1; j <= n; j++ {
		idxJ := j - 1
		withJ := value[idxJ]
		if p[idxJ] >= 0 {
			withJ += bestAt[p[idxJ]+1]
		}
		without := bestAt[j-1]
		if withJ > without {
			bestAt[j] = withJ
			include[j] = true
		} else {
			bestAt[j] = without
			include[j] = false
		}
	}
	var selected []int
	j := n
	for j > 0 {
		if include[j] {
			selected = append(selected, j-1)
			if p[j-1] >= 0 {
				j = p[j-1] + 1
			} else {
				j = 0
			}
		} else {
			j--
		}
	}

	// selected is in reverse completion order; walk it to build allocations
	// with correctly chained soil-recovery context.
	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}

	var allocations []CropAllocation
	prevIdx := -1
	for _, si := range selected {
		cand := sorted[si]
		interactionImpact := 1.0
		soilRecovery := 1.0
		if prevIdx >= 0 {
			prev := sorted[prevIdx]
			interactionImpact = idx.impact(prev.Crop.Tags, cand.Crop.Tags)
			gap := int(cand.StartDate.Sub(prev.CompletionDate).Hours() / 24)
			soilRecovery = soilRecoveryFactor(gap)
		}
		revenue := applyRevenueAdjustment(cand.RevenueBeforeInteraction, cand.Crop, interactionImpact, soilRecovery)
		allocations = append(allocations, CropAllocation{
			ID:        uuid.NewString(),
			Candidate: cand,
			Revenue:   revenue,
			Profit:    revenue - cand.Cost,
		})
		prevIdx = si
	}

	return Solution{Allocations: allocations}
}

// scoreArc computes the profit value of placing candidate j immediately
// after predecessor index p (or with no predecessor when p < 0), applying
// interaction impact and soil recovery exactly as the orchestrator's final
// re-evaluation pass would (spec.md §4.4, §4.9 step 5).
func scoreArc(candidates []AllocationCandidate, p, j int, idx interactionIndex) float64 {
	cand := candidates[j]
	interactionImpact := 1.0
	soilRecovery := 1.0
	if p >= 0 {
		prev := candidates[p]
		interactionImpact = idx.impact(prev.Crop.Tags, cand.Crop.Tags)
		gap := int(cand.StartDate.Sub(prev.CompletionDate).Hours() / 24)
		soilRecovery = soilRecoveryFactor(gap)
	}
	revenue := applyRevenueAdjustment(cand.RevenueBeforeInteraction, cand.Crop, interactionImpact, soilRecovery)
	return revenue - cand.Cost
}
