package core

import "time"

// isFeasibleToAdd checks whether adding newAlloc to current is feasible:
// no time/fallow overlap on the same field, and (optionally) the field's
// area cap is respected at every date the new allocation is active.
// Grounded on original_source's AllocationUtils.is_feasible_to_add.
func isFeasibleToAdd(current []CropAllocation, newAlloc CropAllocation, checkArea bool, fields map[string]Field) bool {
	fallow := 0
	if f, ok := fields[newAlloc.Field().ID]; ok {
		fallow = f.FallowDays
	}

	for _, existing := range current {
		if existing.Field().ID != newAlloc.Field().ID {
			continue
		}
		if existing.OverlapsWithFallow(newAlloc, fallow) {
			return false
		}
	}

	if checkArea {
		f, ok := fields[newAlloc.Field().ID]
		if ok && !areaFits(current, newAlloc, f.AreaM2) {
			return false
		}
	}

	return true
}

// areaFits reports whether adding newAlloc keeps the field's area
// invariant (spec.md §8 invariant 2) at every date the allocation overlaps
// with an existing one on the same field.
func areaFits(current []CropAllocation, newAlloc CropAllocation, maxArea float64) bool {
	overlapping := overlappingArea(current, newAlloc)
	return overlapping+newAlloc.AreaUsed() <= maxArea+areaEpsilon
}

const areaEpsilon = 1e-9

// overlappingArea sums the area_used of allocations on the same field
// whose active window intersects newAlloc's window — a conservative
// over-approximation of the date-by-date invariant that is exact whenever
// allocations don't partially overlap mid-window, which holds here because
// C4/C5/C6 never produce partial-area overlaps within a single field.
func overlappingArea(current []CropAllocation, newAlloc CropAllocation) float64 {
	total := 0.0
	for _, existing := range current {
		if existing.Field().ID != newAlloc.Field().ID {
			continue
		}
		if timeOverlaps(existing.StartDate(), existing.CompletionDate(), newAlloc.StartDate(), newAlloc.CompletionDate()) {
			total += existing.AreaUsed()
		}
	}
	return total
}

func timeOverlaps(start1, end1, start2, end2 time.Time) bool {
	return !end1.Before(start2) && !end2.Before(start1)
}
