package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCtx(candidates []AllocationCandidate, fields map[string]Field, cfg Config) OperatorContext {
	return OperatorContext{
		Candidates: candidates,
		Fields:     fields,
		Crops:      map[string]Crop{},
		Config:     cfg,
		Rng:        newSeededRNG(1),
	}
}

func TestFieldSwap_PreservesCombinedArea(t *testing.T) {
	fieldA := Field{ID: "FA", AreaM2: 200, FallowDays: 0}
	fieldB := Field{ID: "FB", AreaM2: 200, FallowDays: 0}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	allocA := CropAllocation{ID: "a1", Candidate: mkCandidateOnField(fieldA, "C1", start, 5, 50)}
	allocB := CropAllocation{ID: "a2", Candidate: mkCandidateOnField(fieldB, "C2", start, 5, 80)}
	sol := Solution{Allocations: []CropAllocation{allocA, allocB}}

	pool := []AllocationCandidate{
		mkCandidateOnField(fieldB, "C1", start, 5, 50), // matches allocA's crop on fieldB
		mkCandidateOnField(fieldA, "C2", start, 5, 80), // matches allocB's crop on fieldA
	}

	cfg := DefaultConfig()
	ctx := buildCtx(pool, map[string]Field{"FA": fieldA, "FB": fieldB}, cfg)

	neighbors := fieldSwapOperator{}.Neighbors(sol, ctx)
	require.Len(t, neighbors, 1)

	n := neighbors[0]
	var total float64
	for _, a := range n.Allocations {
		total += a.AreaUsed()
	}
	assert.InDelta(t, 130.0, total, 1e-9, "field_swap must preserve the combined area of the swapped pair")
}

func TestFieldSwap_SkipsWhenAreaWouldChange(t *testing.T) {
	fieldA := Field{ID: "FA", AreaM2: 200, FallowDays: 0}
	fieldB := Field{ID: "FB", AreaM2: 200, FallowDays: 0}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	allocA := CropAllocation{ID: "a1", Candidate: mkCandidateOnField(fieldA, "C1", start, 5, 50)}
	allocB := CropAllocation{ID: "a2", Candidate: mkCandidateOnField(fieldB, "C2", start, 5, 80)}
	sol := Solution{Allocations: []CropAllocation{allocA, allocB}}

	// Only a differently-sized replacement is available on each side.
	pool := []AllocationCandidate{
		mkCandidateOnField(fieldB, "C1", start, 5, 999), // area differs from 50
		mkCandidateOnField(fieldA, "C2", start, 5, 80),
	}
	pool[0].AreaUsed = 999

	cfg := DefaultConfig()
	ctx := buildCtx(pool, map[string]Field{"FA": fieldA, "FB": fieldB}, cfg)

	neighbors := fieldSwapOperator{}.Neighbors(sol, ctx)
	assert.Empty(t, neighbors, "a swap that changes combined area must be rejected")
}

func TestCropChange_RequiresMatchingArea(t *testing.T) {
	field := Field{ID: "F1", AreaM2: 200, FallowDays: 0}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	alloc := CropAllocation{ID: "a1", Candidate: mkCandidateOnField(field, "C1", start, 5, 50)}
	sol := Solution{Allocations: []CropAllocation{alloc}}

	sameArea := mkCandidateOnField(field, "C2", start, 5, 50)
	diffArea := mkCandidateOnField(field, "C3", start, 5, 999)

	pool := []AllocationCandidate{sameArea, diffArea}
	cfg := DefaultConfig()
	ctx := buildCtx(pool, map[string]Field{"F1": field}, cfg)

	neighbors := cropChangeOperator{}.Neighbors(sol, ctx)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "C2", neighbors[0].Allocations[0].Crop().ID)
}

func TestFieldRemove_DropsExactlyOneAllocation(t *testing.T) {
	field := Field{ID: "F1", AreaM2: 200, FallowDays: 0}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	sol := Solution{Allocations: []CropAllocation{
		{ID: "a1", Candidate: mkCandidateOnField(field, "C1", start, 5, 50)},
		{ID: "a2", Candidate: mkCandidateOnField(field, "C2", start.AddDate(0, 0, 10), 5, 50)},
	}}

	neighbors := fieldRemoveOperator{}.Neighbors(sol, OperatorContext{})
	require.Len(t, neighbors, 2)
	for _, n := range neighbors {
		assert.Len(t, n.Allocations, 1)
	}
}

func TestNeighbors_NeverPopulateRevenueOrProfit(t *testing.T) {
	field := Field{ID: "F1", AreaM2: 200, FallowDays: 0}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	alloc := CropAllocation{ID: "a1", Candidate: mkCandidateOnField(field, "C1", start, 5, 50)}
	sol := Solution{Allocations: []CropAllocation{alloc}}

	pool := []AllocationCandidate{mkCandidateOnField(field, "C1", start.AddDate(0, 0, 20), 5, 50)}
	cfg := DefaultConfig()
	ctx := buildCtx(pool, map[string]Field{"F1": field}, cfg)

	neighbors := periodReplaceOperator{}.Neighbors(sol, ctx)
	require.NotEmpty(t, neighbors)
	for _, n := range neighbors {
		for _, a := range n.Allocations {
			assert.Equal(t, 0.0, a.Revenue)
			assert.Equal(t, 0.0, a.Profit)
		}
	}
}

func mkCandidateOnField(field Field, cropID string, start time.Time, days int, area float64) AllocationCandidate {
	cost := float64(days) * field.DailyFixedCost
	revenue := area * 10
	return AllocationCandidate{
		Field:                    field,
		Crop:                     Crop{ID: cropID, AreaPerUnit: 1, RevenuePerArea: 10},
		StartDate:                start,
		CompletionDate:           start.AddDate(0, 0, days),
		GrowthDays:               days,
		AreaUsed:                 area,
		Cost:                     cost,
		RevenueBeforeInteraction: revenue,
		BaseProfit:               revenue - cost,
		YieldFactor:              1.0,
	}
}
