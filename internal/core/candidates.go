package core

import (
	"sort"
	"sync"
	"time"
)

// GenerateCandidates builds the flat candidate list of spec.md §4.2 for
// every (field, crop, start date, area) tuple consistent with the horizon.
// When cfg.EnableParallelCandidateGeneration is set, generation fans out
// one worker per field; each worker produces its candidates in a
// deterministic per-field order and results are merged by sorting on
// (field_id, crop_id, start_date) before being handed to the DP phase, so
// parallelism never perturbs the result (spec.md §5).
//
// weatherGapFields is the subset of req.Fields (in field order) for which
// at least one candidate was dropped because the weather series lacked
// coverage for a required date (spec.md §7's WeatherGap diagnostic); the
// caller aggregates it into one warning per field.
func GenerateCandidates(req Request, profiles map[string]CropProfile) (candidates []AllocationCandidate, weatherGapFields []string) {
	fields := req.Fields
	if !req.Config.EnableParallelCandidateGeneration || len(fields) <= 1 {
		var all []AllocationCandidate
		var gaps []string
		for _, f := range fields {
			out, gap := generateForField(f, req, profiles)
			all = append(all, out...)
			if gap {
				gaps = append(gaps, f.ID)
			}
		}
		return sortedCandidates(all), gaps
	}

	buckets := make([][]AllocationCandidate, len(fields))
	gapFlags := make([]bool, len(fields))
	var wg sync.WaitGroup
	for i, f := range fields {
		wg.Add(1)
		go func(i int, f Field) {
			defer wg.Done()
			buckets[i], gapFlags[i] = generateForField(f, req, profiles)
		}(i, f)
	}
	wg.Wait()

	var all []AllocationCandidate
	var gaps []string
	for i, b := range buckets {
		all = append(all, b...)
		if gapFlags[i] {
			gaps = append(gaps, fields[i].ID)
		}
	}
	return sortedCandidates(all), gaps
}

func sortedCandidates(all []AllocationCandidate) []AllocationCandidate {
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Field.ID != all[j].Field.ID {
			return all[i].Field.ID < all[j].Field.ID
		}
		if all[i].Crop.ID != all[j].Crop.ID {
			return all[i].Crop.ID < all[j].Crop.ID
		}
		return all[i].StartDate.Before(all[j].StartDate)
	})
	return all
}

func generateForField(field Field, req Request, profiles map[string]CropProfile) ([]AllocationCandidate, bool) {
	var out []AllocationCandidate
	weatherGap := false
	for _, cropSpec := range req.Crops {
		profile, ok := resolveProfile(cropSpec, profiles)
		if !ok {
			continue
		}
		series, ok := req.Weather[field.Location]
		if !ok {
			series = req.Weather[""]
		}

		strategy := req.Config.CandidateGenerationStrategy
		if strategy == "" {
			strategy = StrategyEnumeration
		}

		var starts []time.Time
		switch strategy {
		case StrategyPeriodTemplate:
			starts = periodTemplateStarts(profile, req, series)
		default:
			starts = enumerationStarts(req)
		}

		areaFractions := req.Config.CandidateAreaFractions
		if len(areaFractions) == 0 {
			areaFractions = DefaultConfig().CandidateAreaFractions
		}

		for _, start := range starts {
			outcome, ok, _ := simulateGrowth(profile, start, series)
			if !ok {
				// A gap is a date from this start through the horizon end
				// that the series has no record for.
				for d := start; !weatherGap && !d.After(req.HorizonEnd); d = d.AddDate(0, 0, 1) {
					if _, found := series.ByDate(d); !found {
						weatherGap = true
					}
				}
				continue
			}
			if outcome.CompletionDate.After(req.HorizonEnd) {
				continue
			}
			if start.Before(req.HorizonStart) {
				continue
			}

			for _, area := range candidateAreas(field, profile.Crop, cropSpec, areaFractions) {
				cand := buildCandidate(field, profile.Crop, start, outcome, area)
				out = append(out, cand)
			}
		}
	}
	return out, weatherGap
}

func resolveProfile(spec CropSpec, profiles map[string]CropProfile) (CropProfile, bool) {
	if spec.ProfileOverride != nil {
		return *spec.ProfileOverride, true
	}
	p, ok := profiles[spec.CropID]
	return p, ok
}

// enumerationStarts enumerates start dates at the configured stride
// (default 7 days) across the horizon (spec.md §4.2 enumeration strategy).
func enumerationStarts(req Request) []time.Time {
	stride := req.Config.EnumerationStrideDays
	if stride <= 0 {
		stride = 7
	}
	var starts []time.Time
	for d := req.HorizonStart; !d.After(req.HorizonEnd); d = d.AddDate(0, 0, stride) {
		starts = append(starts, d)
	}
	return starts
}

// periodTemplateStarts generates up to max_templates_per_crop start-date
// templates using the crop's viable temperature window: the set of dates
// whose mean temperature (when known) falls within the first stage's
// optimal range, spread across the horizon.
func periodTemplateStarts(profile CropProfile, req Request, series WeatherSeries) []time.Time {
	maxTemplates := req.Config.MaxTemplatesPerCrop
	if maxTemplates <= 0 {
		maxTemplates = 200
	}
	if len(profile.Stages) == 0 {
		return nil
	}
	firstStage := profile.Stages[0]

	var viable []time.Time
	for d := req.HorizonStart; !d.After(req.HorizonEnd); d = d.AddDate(0, 0, 1) {
		rec, ok := series.ByDate(d)
		if !ok || rec.MeanTemp == nil {
			continue
		}
		if *rec.MeanTemp >= firstStage.Temperature.OptimalMin && *rec.MeanTemp <= firstStage.Temperature.OptimalMax {
			viable = append(viable, d)
		}
		if len(viable) >= maxTemplates {
			break
		}
	}
	return viable
}

// candidateAreas discretizes the field's remaining capacity into the
// configured fraction tiers, adapted from the teacher's grow-bag
// layout-tiering idiom generalized from container counts to field area
// (see DESIGN.md). When the crop spec carries a TargetArea it is used
// instead of the fraction tiers, clamped to the field's area, and when the crop has a revenue
// cap the maximum usable area is additionally bounded by
// max_revenue / revenue_per_area.
func candidateAreas(field Field, crop Crop, spec CropSpec, fractions []float64) []float64 {
	if spec.TargetArea > 0 {
		if spec.TargetArea > field.AreaM2 {
			return []float64{field.AreaM2}
		}
		return []float64{spec.TargetArea}
	}

	capArea := field.AreaM2
	if crop.HasMaxRevenue() && crop.RevenuePerArea > 0 {
		impliedMax := crop.MaxRevenue / crop.RevenuePerArea
		if impliedMax < capArea {
			capArea = impliedMax
		}
	}

	seen := make(map[float64]bool)
	var out []float64
	for _, f := range fractions {
		a := capArea * f
		if a <= 0 {
			continue
		}
		rounded := roundArea(a)
		if seen[rounded] {
			continue
		}
		seen[rounded] = true
		out = append(out, rounded)
	}
	return out
}

func roundArea(a float64) float64 {
	// Round to the nearest hundredth of a square meter to collapse
	// floating-point noise from fraction multiplication before dedup.
	return float64(int64(a*100+0.5)) / 100
}

func buildCandidate(field Field, crop Crop, start time.Time, outcome GrowthOutcome, area float64) AllocationCandidate {
	cost := float64(outcome.GrowthDays) * field.DailyFixedCost
	revenue := area * crop.RevenuePerArea * outcome.YieldFactor
	if crop.HasMaxRevenue() && revenue > crop.MaxRevenue {
		revenue = crop.MaxRevenue
	}
	profit := revenue - cost
	rate := 0.0
	if cost != 0 {
		rate = profit / cost
	}

	return AllocationCandidate{
		Field:                    field,
		Crop:                     crop,
		StartDate:                start,
		CompletionDate:           outcome.CompletionDate,
		GrowthDays:               outcome.GrowthDays,
		AccumulatedGDD:           outcome.AccumulatedGDD,
		AreaUsed:                 area,
		Cost:                     cost,
		RevenueBeforeInteraction: revenue,
		BaseProfit:               profit,
		ProfitRate:               rate,
		YieldFactor:              outcome.YieldFactor,
	}
}

// FilterDominated drops strictly-dominated duplicates: two candidates
// dominate one another if they share (field, crop, area) and one completes
// earlier with weakly better cost (spec.md §4.2).
func FilterDominated(candidates []AllocationCandidate) []AllocationCandidate {
	type key struct {
		field, crop string
		area        float64
	}
	groups := make(map[key][]AllocationCandidate)
	for _, c := range candidates {
		k := key{c.Field.ID, c.Crop.ID, roundArea(c.AreaUsed)}
		groups[k] = append(groups[k], c)
	}

	var out []AllocationCandidate
	for _, group := range groups {
		out = append(out, dominantOf(group)...)
	}
	return sortedCandidates(out)
}

func dominantOf(group []AllocationCandidate) []AllocationCandidate {
	var kept []AllocationCandidate
	for i, c := range group {
		dominated := false
		for j, other := range group {
			if i == j {
				continue
			}
			if other.CompletionDate.Before(c.CompletionDate) && other.Cost <= c.Cost {
				dominated = true
				break
			}
			if other.CompletionDate.Equal(c.CompletionDate) && other.Cost < c.Cost {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, c)
		}
	}
	return kept
}
