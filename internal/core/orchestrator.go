package core

import (
	"fmt"
	"math"
	"time"
)

// Response is the outer return value of Orchestrate: a result plus a
// possible fatal error. Non-fatal diagnostics travel inside the result
// itself (spec.md §7).
type Response struct {
	Result OptimizationResult
}

// ProgressEvent is emitted once per ALNS iteration by OrchestrateStream.
type ProgressEvent struct {
	Iteration   int
	BestProfit  float64
	Temperature float64
}

// Orchestrate runs the full C1→C9 pipeline: validate, generate candidates,
// build an initial solution, improve it, and emit a result (spec.md §4.9).
func Orchestrate(req Request) (Response, error) {
	return orchestrate(req, nil)
}

// OrchestrateStream is the additive variant of Orchestrate that reports
// ALNS progress on a channel as it runs; the channel is closed when the
// call returns. It shares every step of Orchestrate except the ALNS loop,
// which runALNSWithProgress repeats so it can report each iteration (see
// SPEC_FULL.md §4's "Intermediate result streaming" addition).
func OrchestrateStream(req Request, progress chan<- ProgressEvent) (Response, error) {
	defer close(progress)
	return orchestrate(req, progress)
}

func orchestrate(req Request, progress chan<- ProgressEvent) (Response, error) {
	start := time.Now()

	if err := validateRequest(req); err != nil {
		return Response{}, err
	}

	cfg := req.Config
	deadline := newDeadline(req.MaxComputationTime, start)

	profiles := resolveProfiles(req)
	candidates, weatherGapFields := GenerateCandidates(req, profiles)
	if cfg.EnableCandidateFiltering {
		candidates = FilterDominated(candidates)
	}
	warnings := weatherGapWarnings(weatherGapFields)

	if len(candidates) == 0 {
		diagnostic := &Diagnostic{Code: CodeNoViableCandidates, Message: "no allocation candidates could be generated for the requested horizon"}
		if len(weatherGapFields) > 0 {
			diagnostic = &Diagnostic{Code: CodeWeatherGap, Message: "weather series lacks entries for required dates on every field; no candidates could be generated"}
		}
		return Response{Result: OptimizationResult{
			Success:       true,
			WallClockTime: time.Since(start),
			Diagnostic:    diagnostic,
			Warnings:      warnings,
		}}, nil
	}

	fields := fieldIndex(req.Fields)
	crops := cropIndex(req.Crops, profiles)
	idx := newInteractionIndex(req.InteractionRules)

	algorithm := cfg.InitialAlgorithm
	if algorithm == "" {
		algorithm = AlgorithmDP
	}

	var initial Solution
	switch algorithm {
	case AlgorithmGreedy:
		initial = BuildGreedySolution(candidates, fields, idx)
	default:
		initial = buildDPSolution(req.Fields, candidates, idx)
	}

	singleField := len(req.Fields) == 1 && !hasCrossFieldInteraction(req.InteractionRules)

	rng := newSeededRNG(cfg.RandomSeed)
	opCtx := OperatorContext{Candidates: candidates, Fields: fields, Crops: crops, Config: cfg, Rng: rng}

	final := initial
	improved := false
	optimalEligible := algorithm == AlgorithmDP && singleField

	if cfg.EnableALNS {
		final = runALNSWithProgress(initial, opCtx, idx, cfg.ALNSIterations, deadline, progress)
		improved = true
	} else if cfg.MaxLocalSearchIterations > 0 {
		final = RunLocalSearch(initial, opCtx, idx, cfg.MaxLocalSearchIterations, deadline)
		improved = true
	} else {
		final = rescoreSolution(initial, idx)
	}

	if err := checkInvariants(final, fields, req); err != nil {
		return Response{}, err
	}

	result := buildResult(final, req, algorithm, optimalEligible && !improved, time.Since(start))
	result.Warnings = warnings
	if deadline.expired() {
		result.Diagnostic = &Diagnostic{Code: CodeDeadline, Message: "computation time budget exceeded; returning best-known solution"}
		result.IsOptimal = false
	}

	return Response{Result: result}, nil
}

func runALNSWithProgress(initial Solution, ctx OperatorContext, idx interactionIndex, iterations int, deadline deadlineChecker, progress chan<- ProgressEvent) Solution {
	if progress == nil {
		return RunALNS(initial, ctx, idx, iterations, deadline)
	}
	// The streaming variant re-implements the loop shape of RunALNS so it
	// can emit one ProgressEvent per iteration; the destroy/repair/accept
	// logic is identical (see alns.go), kept separate here only because
	// channel plumbing has no place in the synchronous core loop.
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
		candidate := rescoreSolution(runRepair(repairName, partial, removed, ctx, idx), idx)

		delta := candidate.TotalProfit() - currentProfit
		accept := delta > 0
		if !accept && temp > alnsMinTemp {
			accept = ctx.Rng.Float64() < math.Exp(delta/temp)
		}
		if accept {
			current = candidate
			currentProfit = candidate.TotalProfit()
			if currentProfit > bestProfit {
				best = candidate
				bestProfit = currentProfit
			}
		}
		destroyWeights.update(destroyName, delta, 0)
		repairWeights.update(repairName, delta, 0)
		temp *= alnsCoolingFactor
		destroyWeights.resetPeriodically(iteration)
		repairWeights.resetPeriodically(iteration)

		progress <- ProgressEvent{Iteration: iteration, BestProfit: bestProfit, Temperature: temp}
	}

	return best
}

func buildDPSolution(fields []Field, candidates []AllocationCandidate, idx interactionIndex) Solution {
	var all []CropAllocation
	for _, f := range fields {
		var perField []AllocationCandidate
		for _, c := range candidates {
			if c.Field.ID == f.ID {
				perField = append(perField, c)
			}
		}
		sol := SelectFieldDP(f, perField, idx)
		all = append(all, sol.Allocations...)
	}
	return Solution{Allocations: all}
}

func hasCrossFieldInteraction(rules []InteractionRule) bool {
	return len(rules) > 0
}

func fieldIndex(fields []Field) map[string]Field {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.ID] = f
	}
	return m
}

func cropIndex(specs []CropSpec, profiles map[string]CropProfile) map[string]Crop {
	m := make(map[string]Crop, len(specs))
	for _, s := range specs {
		if p, ok := profiles[s.CropID]; ok {
			m[s.CropID] = p.Crop
		}
	}
	return m
}

func resolveProfiles(req Request) map[string]CropProfile {
	out := make(map[string]CropProfile, len(req.Crops))
	for _, spec := range req.Crops {
		if spec.ProfileOverride != nil {
			out[spec.CropID] = *spec.ProfileOverride
			continue
		}
		if p, ok := req.Profiles[spec.CropID]; ok {
			out[spec.CropID] = p
		}
	}
	return out
}

func validateRequest(req Request) error {
	if len(req.Fields) == 0 {
		return newDiagnosticError(CodeInvalidRequest, "request must specify at least one field")
	}
	if req.HorizonStart.After(req.HorizonEnd) {
		return newDiagnosticError(CodeInvalidRequest, "horizon start must not be after horizon end")
	}
	if len(req.Crops) == 0 {
		return newDiagnosticError(CodeInvalidRequest, "request must specify at least one crop")
	}
	profiles := resolveProfiles(req)
	for _, spec := range req.Crops {
		profile, ok := profiles[spec.CropID]
		if !ok {
			return newDiagnosticError(CodeInvalidRequest, fmt.Sprintf("unknown crop profile: %s", spec.CropID))
		}
		if err := validateProfile(profile); err != nil {
			return err
		}
	}
	for _, f := range req.Fields {
		if f.AreaM2 <= 0 {
			return newDiagnosticError(CodeInvalidRequest, fmt.Sprintf("field %s has non-positive area", f.ID))
		}
	}
	return nil
}

func validateProfile(p CropProfile) error {
	for i, s := range p.Stages {
		if s.Thermal.RequiredGDD <= 0 {
			return newDiagnosticError(CodeInvalidRequest, fmt.Sprintf("crop %s stage %d has non-positive required GDD", p.Crop.ID, i))
		}
		t := s.Temperature
		if !(t.Base < t.OptimalMin && t.OptimalMin <= t.OptimalMax && t.OptimalMax < t.MaxTemperature) {
			return newDiagnosticError(CodeInvalidRequest, fmt.Sprintf("crop %s stage %d violates base < optimal_min <= optimal_max < max_temperature", p.Crop.ID, i))
		}
	}
	return nil
}

// checkInvariants enforces spec.md §8's quantified invariants on the final
// solution before it is returned. A violation here indicates a bug in the
// engine itself (spec.md §7's InternalInconsistency), not a user error.
func checkInvariants(sol Solution, fields map[string]Field, req Request) error {
	byField := groupByField(sol.Allocations)
	for fieldID, allocs := range byField {
		field := fields[fieldID]
		sortAllocationsByStart(allocs)
		for i := 0; i < len(allocs); i++ {
			for j := i + 1; j < len(allocs); j++ {
				if allocs[i].OverlapsWithFallow(allocs[j], field.FallowDays) {
					return newDiagnosticError(CodeInternalInconsistency, fmt.Sprintf("fallow invariant violated on field %s", fieldID))
				}
			}
		}
		if !areaInvariantHolds(allocs, field.AreaM2) {
			return newDiagnosticError(CodeInternalInconsistency, fmt.Sprintf("area invariant violated on field %s", fieldID))
		}
	}
	for _, a := range sol.Allocations {
		if a.StartDate().Before(req.HorizonStart) || a.CompletionDate().After(req.HorizonEnd) {
			return newDiagnosticError(CodeInternalInconsistency, "allocation outside requested horizon")
		}
		if a.Crop().HasMaxRevenue() && a.Revenue > a.Crop().MaxRevenue+areaEpsilon {
			return newDiagnosticError(CodeInternalInconsistency, "allocation revenue exceeds crop's max_revenue cap")
		}
	}
	return nil
}

// areaInvariantHolds checks, date by date at every allocation boundary,
// that the sum of area_used active on that date never exceeds the field's
// area — sufficient because area usage only changes at allocation
// start/completion boundaries.
func areaInvariantHolds(allocs []CropAllocation, maxArea float64) bool {
	checkpoints := make(map[time.Time]bool)
	for _, a := range allocs {
		checkpoints[a.StartDate()] = true
	}
	for d := range checkpoints {
		total := 0.0
		for _, a := range allocs {
			if !a.StartDate().After(d) && !a.CompletionDate().Before(d) {
				total += a.AreaUsed()
			}
		}
		if total > maxArea+areaEpsilon {
			return false
		}
	}
	return true
}

// weatherGapWarnings formats one aggregated warning per field named in
// fieldIDs, per spec.md §7's WeatherGap diagnostic ("weather series lacks
// entries for required dates; affected candidates dropped silently, one
// aggregated warning per field").
func weatherGapWarnings(fieldIDs []string) []string {
	if len(fieldIDs) == 0 {
		return nil
	}
	warnings := make([]string, len(fieldIDs))
	for i, id := range fieldIDs {
		warnings[i] = fmt.Sprintf("field %s: weather series lacks entries for required dates; affected candidates were dropped", id)
	}
	return warnings
}

func buildResult(sol Solution, req Request, algorithm InitialAlgorithm, isOptimal bool, elapsed time.Duration) OptimizationResult {
	schedules := buildFieldSchedules(sol, req)
	cropAreas := buildCropAreas(sol)

	return OptimizationResult{
		Success:        true,
		Solution:       sol,
		TotalCost:      sol.TotalCost(),
		TotalRevenue:   sol.TotalRevenue(),
		TotalProfit:    sol.TotalProfit(),
		FieldSchedules: schedules,
		CropAreas:      cropAreas,
		Algorithm:      string(algorithm),
		WallClockTime:  elapsed,
		IsOptimal:      isOptimal,
	}
}

func buildFieldSchedules(sol Solution, req Request) []FieldSchedule {
	byField := groupByField(sol.Allocations)
	var out []FieldSchedule
	for _, f := range req.Fields {
		allocs := byField[f.ID]
		out = append(out, FieldSchedule{
			FieldID:     f.ID,
			Allocations: allocs,
			Utilization: averageUtilization(allocs, f, req.HorizonStart, req.HorizonEnd),
		})
	}
	return out
}

func averageUtilization(allocs []CropAllocation, field Field, start, end time.Time) float64 {
	if field.AreaM2 <= 0 || !end.After(start) {
		return 0
	}
	totalDays := 0
	usedAreaDays := 0.0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		totalDays++
		for _, a := range allocs {
			if !a.StartDate().After(d) && !a.CompletionDate().Before(d) {
				usedAreaDays += a.AreaUsed()
			}
		}
	}
	if totalDays == 0 {
		return 0
	}
	return usedAreaDays / (float64(totalDays) * field.AreaM2)
}

func buildCropAreas(sol Solution) []CropAreaTotal {
	totals := make(map[string]float64)
	var order []string
	for _, a := range sol.Allocations {
		if _, seen := totals[a.Crop().ID]; !seen {
			order = append(order, a.Crop().ID)
		}
		totals[a.Crop().ID] += a.AreaUsed()
	}
	out := make([]CropAreaTotal, 0, len(order))
	for _, id := range order {
		out = append(out, CropAreaTotal{CropID: id, Area: totals[id]})
	}
	return out
}
