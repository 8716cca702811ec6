package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkCandidate(fieldID, cropID string, start time.Time, days int, cost, revenue float64) AllocationCandidate {
	profit := revenue - cost
	rate := 0.0
	if cost != 0 {
		rate = profit / cost
	}
	return AllocationCandidate{
		Field:                    Field{ID: fieldID, AreaM2: 100, FallowDays: 7},
		Crop:                     Crop{ID: cropID},
		StartDate:                start,
		CompletionDate:           start.AddDate(0, 0, days),
		GrowthDays:               days,
		AreaUsed:                 50,
		Cost:                     cost,
		RevenueBeforeInteraction: revenue,
		BaseProfit:               profit,
		ProfitRate:               rate,
		YieldFactor:              1.0,
	}
}

func TestSelectFieldDP_RespectsFallowAndMaximizesProfit(t *testing.T) {
	field := Field{ID: "F1", AreaM2: 100, FallowDays: 7}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Two non-conflicting candidates spaced beyond fallow, plus one that
	// overlaps the fallow window of the first and must be excluded.
	c1 := mkCandidate("F1", "C", start, 5, 25, 1000)
	c2 := mkCandidate("F1", "C", start.AddDate(0, 0, 12), 5, 25, 1000) // starts day 12, c1 completes day5+fallow7=day12: OK
	cConflict := mkCandidate("F1", "C", start.AddDate(0, 0, 8), 5, 25, 1000) // starts day8 < day12 deadline

	idx := newInteractionIndex(nil)
	sol := SelectFieldDP(field, []AllocationCandidate{c1, c2, cConflict}, idx)

	require.Len(t, sol.Allocations, 2)
	assert.InDelta(t, 1950.0, sol.TotalProfit(), 1e-6)
}

func TestSelectFieldDP_EmptyCandidates(t *testing.T) {
	field := Field{ID: "F1", AreaM2: 100, FallowDays: 7}
	idx := newInteractionIndex(nil)
	sol := SelectFieldDP(field, nil, idx)
	assert.Empty(t, sol.Allocations)
}

func TestSelectFieldDP_SingleFieldOptimality_BruteForce(t *testing.T) {
	field := Field{ID: "F1", AreaM2: 100, FallowDays: 3}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	pool := []AllocationCandidate{
		mkCandidate("F1", "C", start, 4, 20, 300),
		mkCandidate("F1", "C", start.AddDate(0, 0, 5), 4, 20, 150),
		mkCandidate("F1", "C", start.AddDate(0, 0, 10), 4, 20, 400),
		mkCandidate("F1", "C", start.AddDate(0, 0, 2), 6, 30, 500),
	}
	idx := newInteractionIndex(nil)

	dpSol := SelectFieldDP(field, pool, idx)
	dpProfit := dpSol.TotalProfit()

	bestBrute := bruteForceBestProfit(field, pool, idx)
	assert.InDelta(t, bestBrute, dpProfit, 1e-6)
}

// bruteForceBestProfit enumerates all feasible subsets of a small pool to
// cross-check the DP's optimality claim (spec.md §8's single-field
// optimality law).
func bruteForceBestProfit(field Field, pool []AllocationCandidate, idx interactionIndex) float64 {
	n := len(pool)
	best := 0.0
	for mask := 0; mask < (1 << n); mask++ {
		var subset []CropAllocation
		feasible := true
		for i := 0; i < n; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			alloc := CropAllocation{ID: fmt.Sprintf("a%d", i), Candidate: pool[i]}
			if !isFeasibleToAdd(subsetAllocs(subset), alloc, false, map[string]Field{field.ID: field}) {
				feasible = false
				break
			}
			subset = append(subset, alloc)
		}
		if !feasible {
			continue
		}
		rescored := rescoreSolution(Solution{Allocations: subset}, idx)
		if p := rescored.TotalProfit(); p > best {
			best = p
		}
	}
	return best
}

func subsetAllocs(s []CropAllocation) []CropAllocation { return s }
