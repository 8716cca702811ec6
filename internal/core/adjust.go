package core

// AdjustAllocation re-scopes a single allocation's area within an existing
// solution and re-validates the result, without re-running the whole
// optimizer. Grounded on original_source's allocation-adjustment CLI
// controller (see SPEC_FULL.md §4's "Allocation adjustment" addition).
//
// It returns InternalInconsistency if the adjustment would violate a
// solution invariant (area or fallow) once re-scored.
func AdjustAllocation(sol Solution, fields map[string]Field, rules []InteractionRule, allocationID string, newArea float64) (Solution, error) {
	idx := newInteractionIndex(rules)
	found := false
	out := make([]CropAllocation, len(sol.Allocations))
	for i, a := range sol.Allocations {
		if a.ID != allocationID {
			out[i] = a
			continue
		}
		found = true
		adjusted := a
		adjusted.Candidate.AreaUsed = newArea
		adjusted.Candidate.RevenueBeforeInteraction = newArea * a.Crop().RevenuePerArea * a.Candidate.YieldFactor
		if a.Crop().HasMaxRevenue() && adjusted.Candidate.RevenueBeforeInteraction > a.Crop().MaxRevenue {
			adjusted.Candidate.RevenueBeforeInteraction = a.Crop().MaxRevenue
		}
		out[i] = adjusted
	}
	if !found {
		return Solution{}, newDiagnosticError(CodeInvalidRequest, "unknown allocation id: "+allocationID)
	}

	adjustedSolution := rescoreSolution(Solution{Allocations: out}, idx)
	for fieldID, allocs := range groupByField(adjustedSolution.Allocations) {
		field := fields[fieldID]
		sortAllocationsByStart(allocs)
		for i := 0; i < len(allocs); i++ {
			for j := i + 1; j < len(allocs); j++ {
				if allocs[i].OverlapsWithFallow(allocs[j], field.FallowDays) {
					return Solution{}, newDiagnosticError(CodeInternalInconsistency, "adjustment violates fallow invariant on field "+fieldID)
				}
			}
		}
		if !areaInvariantHolds(allocs, field.AreaM2) {
			return Solution{}, newDiagnosticError(CodeInternalInconsistency, "adjustment violates area invariant on field "+fieldID)
		}
	}

	return adjustedSolution, nil
}
