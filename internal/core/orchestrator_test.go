package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldFor(areaM2, fixedCost float64, fallow int) Field {
	return Field{ID: "F", AreaM2: areaM2, DailyFixedCost: fixedCost, FallowDays: fallow}
}

func profileFor(cropID string, requiredGDD, revenuePerArea float64) CropProfile {
	return CropProfile{
		Crop: Crop{ID: cropID, AreaPerUnit: 1, RevenuePerArea: revenuePerArea},
		Stages: []GrowthStageRequirement{
			{
				Index: 1,
				Name:  "only",
				Temperature: TemperatureProfile{
					Base: 10, OptimalMin: 20, OptimalMax: 28, MaxTemperature: 35,
					HighStressThreshold: 1000, LowStressThreshold: -1000, FrostThreshold: -1000,
				},
				Thermal: ThermalRequirement{RequiredGDD: requiredGDD},
			},
		},
	}
}

// S1: single field, no crops complete because the weather series runs out
// before any candidate reaches its required GDD. The series covers every
// date of the horizon, so there is no weather gap and the diagnostic is
// plain NoViableCandidates.
func TestOrchestrate_S1_NoViableCandidates(t *testing.T) {
	field := fieldFor(100, 10, 0)
	profile := profileFor("C", 10000, 0)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := dayRange(start, 30, 12)

	req := Request{
		Fields:       []Field{field},
		Crops:        []CropSpec{{CropID: "C"}},
		Profiles:     map[string]CropProfile{"C": profile},
		Weather:      map[string]WeatherSeries{"": series},
		HorizonStart: start,
		HorizonEnd:   start.AddDate(0, 0, 29),
		Objective:    MaximizeProfit,
		Config:       DefaultConfig(),
	}

	resp, err := Orchestrate(req)
	require.NoError(t, err)
	assert.True(t, resp.Result.Success)
	assert.Empty(t, resp.Result.Solution.Allocations)
	require.NotNil(t, resp.Result.Diagnostic)
	assert.Equal(t, CodeNoViableCandidates, resp.Result.Diagnostic.Code)
	assert.Equal(t, 0.0, resp.Result.TotalProfit)
}

// S6: weather gap on one of two fields surfaces as a per-field warning
// rather than suppressing the candidates the other field still produces.
func TestOrchestrate_S6_WeatherGapWarnsWithoutSuppressingOtherField(t *testing.T) {
	goodField := fieldFor(100, 5, 0)
	goodField.ID = "good"
	goodField.Location = "good"
	gapField := fieldFor(100, 5, 0)
	gapField.ID = "gap"
	gapField.Location = "gap"

	profile := profileFor("C", 60, 10)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	goodSeries := dayRange(start, 40, 22)
	gapSeries := dayRange(start, 3, 22) // too short to ever complete

	cfg := DefaultConfig()
	cfg.EnumerationStrideDays = 5
	cfg.CandidateAreaFractions = []float64{1.0}
	cfg.InitialAlgorithm = AlgorithmGreedy

	req := Request{
		Fields:   []Field{goodField, gapField},
		Crops:    []CropSpec{{CropID: "C"}},
		Profiles: map[string]CropProfile{"C": profile},
		Weather: map[string]WeatherSeries{
			"good": goodSeries,
			"gap":  gapSeries,
		},
		HorizonStart: start,
		HorizonEnd:   start.AddDate(0, 0, 10),
		Objective:    MaximizeProfit,
		Config:       cfg,
	}

	resp, err := Orchestrate(req)
	require.NoError(t, err)
	require.True(t, resp.Result.Success)
	assert.NotEmpty(t, resp.Result.Solution.Allocations, "the good field must still produce a plan")
	require.Len(t, resp.Result.Warnings, 1)
	assert.Contains(t, resp.Result.Warnings[0], "gap")
	if resp.Result.Diagnostic != nil {
		assert.NotEqual(t, CodeWeatherGap, resp.Result.Diagnostic.Code)
	}
}

// S2: single field, single crop, DP produces the optimal chain within a
// horizon sized so exactly two fallow-respecting cycles fit.
func TestOrchestrate_S2_SingleFieldDP(t *testing.T) {
	field := fieldFor(100, 5, 7)
	profile := profileFor("C", 60, 10)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := dayRange(start, 40, 22) // 12 GDD/day

	cfg := DefaultConfig()
	cfg.EnumerationStrideDays = 1
	cfg.CandidateAreaFractions = []float64{1.0}
	cfg.InitialAlgorithm = AlgorithmDP
	// Disable local search / ALNS so the result reflects the DP solution
	// directly — is_optimal is only claimed when no metaheuristic ran.
	cfg.MaxLocalSearchIterations = 0

	req := Request{
		Fields:       []Field{field},
		Crops:        []CropSpec{{CropID: "C"}},
		Profiles:     map[string]CropProfile{"C": profile},
		Weather:      map[string]WeatherSeries{"": series},
		HorizonStart: start,
		// A planting started on day s grows on days s..s+4 and completes on
		// day s+4; with 7 fallow days the next may start on day s+11. A
		// 24-day horizon (day indices 0..23) admits exactly two cycles
		// (e.g. starts at day 0 and day 11) and excludes a third (it could
		// start on day 22 at the earliest and would complete on day 26).
		HorizonEnd: start.AddDate(0, 0, 23),
		Objective:  MaximizeProfit,
		Config:     cfg,
	}

	resp, err := Orchestrate(req)
	require.NoError(t, err)
	require.True(t, resp.Result.Success)
	assert.Len(t, resp.Result.Solution.Allocations, 2)
	assert.InDelta(t, 1950.0, resp.Result.TotalProfit, 1e-6)
	assert.True(t, resp.Result.IsOptimal)
}

// S4: fallow enforced — the greedy builder must not accept two candidates
// whose gap is shorter than the field's fallow period.
func TestOrchestrate_S4_FallowEnforced(t *testing.T) {
	field := fieldFor(100, 5, 7)
	profile := profileFor("C", 60, 10)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := dayRange(start, 60, 22)

	cfg := DefaultConfig()
	cfg.EnumerationStrideDays = 1
	cfg.CandidateAreaFractions = []float64{1.0}
	cfg.InitialAlgorithm = AlgorithmGreedy

	req := Request{
		Fields:       []Field{field},
		Crops:        []CropSpec{{CropID: "C"}},
		Profiles:     map[string]CropProfile{"C": profile},
		Weather:      map[string]WeatherSeries{"": series},
		HorizonStart: start,
		HorizonEnd:   start.AddDate(0, 0, 59),
		Objective:    MaximizeProfit,
		Config:       cfg,
	}

	resp, err := Orchestrate(req)
	require.NoError(t, err)

	allocs := resp.Result.Solution.Allocations
	for i := 0; i < len(allocs); i++ {
		for j := i + 1; j < len(allocs); j++ {
			assert.True(t, allocs[i].OverlapsWithFallow(allocs[j], field.FallowDays) == false ||
				allocs[i].StartDate().Equal(allocs[j].StartDate()),
				"invariant 1 must hold between every pair of allocations")
		}
	}
}

// S5: interaction penalty — back-to-back plantings of the same group on
// one field must have the successor's revenue multiplied by the rule.
func TestOrchestrate_S5_InteractionPenalty(t *testing.T) {
	field := fieldFor(100, 5, 0)
	profileA := profileFor("A", 60, 10)
	profileA.Crop.Tags = []string{"Solanaceae"}
	profileB := profileFor("B", 60, 10)
	profileB.Crop.Tags = []string{"Solanaceae"}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := dayRange(start, 40, 22)

	rule := InteractionRule{
		ID: "rule1", Type: ContinuousCultivation,
		SourceGroup: "Solanaceae", TargetGroup: "Solanaceae",
		ImpactRatio: 0.7, Directional: true,
	}

	cfg := DefaultConfig()
	cfg.EnumerationStrideDays = 5
	cfg.CandidateAreaFractions = []float64{1.0}
	cfg.InitialAlgorithm = AlgorithmDP

	req := Request{
		Fields:       []Field{field},
		Crops:        []CropSpec{{CropID: "A"}, {CropID: "B"}},
		Profiles:     map[string]CropProfile{"A": profileA, "B": profileB},
		Weather:      map[string]WeatherSeries{"": series},
		HorizonStart: start,
		// 5-day growth with 0 fallow: a horizon of exactly 10 days admits
		// two back-to-back plantings (start 0, start 5) and excludes a
		// third (would need to start at day 10, completing at day 14).
		HorizonEnd:       start.AddDate(0, 0, 10),
		Objective:        MaximizeProfit,
		InteractionRules: []InteractionRule{rule},
		Config:           cfg,
	}

	resp, err := Orchestrate(req)
	require.NoError(t, err)
	require.True(t, resp.Result.Success)
	require.Len(t, resp.Result.Solution.Allocations, 2)
	// The second, back-to-back planting of the same interaction group must
	// be discounted by the rule's impact ratio, so the pair's total revenue
	// falls strictly short of two full, unpenalized plantings.
	assert.Less(t, resp.Result.TotalRevenue, 2*1000.0)
}

func TestOrchestrate_InvalidRequest_EmptyFields(t *testing.T) {
	req := Request{
		Crops:        []CropSpec{{CropID: "C"}},
		HorizonStart: time.Now(),
		HorizonEnd:   time.Now(),
		Config:       DefaultConfig(),
	}
	_, err := Orchestrate(req)
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidRequest, code)
}

func TestOrchestrate_InvalidRequest_InvertedHorizon(t *testing.T) {
	field := fieldFor(100, 5, 0)
	profile := profileFor("C", 60, 10)
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	req := Request{
		Fields:       []Field{field},
		Crops:        []CropSpec{{CropID: "C"}},
		Profiles:     map[string]CropProfile{"C": profile},
		HorizonStart: start,
		HorizonEnd:   start.AddDate(0, 0, -1),
		Config:       DefaultConfig(),
	}
	_, err := Orchestrate(req)
	require.Error(t, err)
	code, _ := CodeOf(err)
	assert.Equal(t, CodeInvalidRequest, code)
}

func TestOrchestrate_Determinism(t *testing.T) {
	field := fieldFor(500, 5, 7)
	profileA := profileFor("A", 60, 10)
	profileB := profileFor("B", 80, 12)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := dayRange(start, 120, 22)

	cfg := DefaultConfig()
	cfg.EnableALNS = true
	cfg.ALNSIterations = 20
	cfg.RandomSeed = 7
	cfg.EnumerationStrideDays = 10

	buildReq := func() Request {
		return Request{
			Fields:       []Field{field},
			Crops:        []CropSpec{{CropID: "A"}, {CropID: "B"}},
			Profiles:     map[string]CropProfile{"A": profileA, "B": profileB},
			Weather:      map[string]WeatherSeries{"": series},
			HorizonStart: start,
			HorizonEnd:   start.AddDate(0, 0, 119),
			Objective:    MaximizeProfit,
			Config:       cfg,
		}
	}

	resp1, err1 := Orchestrate(buildReq())
	resp2, err2 := Orchestrate(buildReq())
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, resp1.Result.TotalProfit, resp2.Result.TotalProfit)
	assert.Equal(t, len(resp1.Result.Solution.Allocations), len(resp2.Result.Solution.Allocations))
}
