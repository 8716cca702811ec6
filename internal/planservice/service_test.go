package planservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldplan/allocator/internal/core"
	"github.com/fieldplan/allocator/internal/planservice"
	"github.com/fieldplan/allocator/test/mocks"
)

func singleCropProfile(cropID string, requiredGDD, revenuePerArea float64) core.CropProfile {
	return core.CropProfile{
		Crop: core.Crop{ID: cropID, AreaPerUnit: 1, RevenuePerArea: revenuePerArea},
		Stages: []core.GrowthStageRequirement{
			{
				Index: 1,
				Name:  "only",
				Temperature: core.TemperatureProfile{
					Base: 10, OptimalMin: 20, OptimalMax: 28, MaxTemperature: 35,
					HighStressThreshold: 1000, LowStressThreshold: -1000, FrostThreshold: -1000,
				},
				Thermal: core.ThermalRequirement{RequiredGDD: requiredGDD},
			},
		},
	}
}

func steadyWeather(start time.Time, days int, meanTemp float64) []core.WeatherRecord {
	records := make([]core.WeatherRecord, 0, days)
	for i := 0; i < days; i++ {
		mean, hi, lo := meanTemp, meanTemp+5, meanTemp-5
		records = append(records, core.WeatherRecord{
			Date:     start.AddDate(0, 0, i),
			MeanTemp: &mean,
			MaxTemp:  &hi,
			MinTemp:  &lo,
		})
	}
	return records
}

func newTestService(t *testing.T, profiles *mocks.MockProfileStore, rules *mocks.MockRuleStore, weatherSource *mocks.MockWeatherSource) *planservice.Service {
	t.Helper()
	log, err := zap.NewDevelopment()
	require.NoError(t, err)
	return planservice.NewService(profiles, rules, weatherSource, nil, log)
}

func TestBuildPlan_Success(t *testing.T) {
	profiles := mocks.NewMockProfileStore()
	profiles.SetProfile("C", singleCropProfile("C", 60, 10))
	rules := mocks.NewMockRuleStore()
	weatherSource := mocks.NewMockWeatherSource()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	weatherSource.SetRecords("field-1", steadyWeather(start, 40, 22))

	svc := newTestService(t, profiles, rules, weatherSource)

	cfg := core.DefaultConfig()
	cfg.EnumerationStrideDays = 1
	cfg.CandidateAreaFractions = []float64{1.0}
	cfg.InitialAlgorithm = core.AlgorithmDP
	cfg.MaxLocalSearchIterations = 0

	params := planservice.PlanParams{
		Fields: []core.Field{{ID: "F1", AreaM2: 100, DailyFixedCost: 5, FallowDays: 7, Location: "field-1"}},
		Crops:  []core.CropSpec{{CropID: "C"}},
		HorizonStart: start,
		HorizonEnd:   start.AddDate(0, 0, 23),
		Objective:    core.MaximizeProfit,
		Config:       cfg,
	}

	result, err := svc.BuildPlan(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.PlanID)
	assert.NotEmpty(t, result.Solution.Allocations)
	assert.Equal(t, 1, weatherSource.FetchCount())
}

func TestBuildPlan_PropagatesProfileStoreError(t *testing.T) {
	profiles := mocks.NewMockProfileStore()
	profiles.SetErrorSimulation(true)
	rules := mocks.NewMockRuleStore()
	weatherSource := mocks.NewMockWeatherSource()

	svc := newTestService(t, profiles, rules, weatherSource)

	params := planservice.PlanParams{
		Fields:       []core.Field{{ID: "F1", AreaM2: 100, Location: "field-1"}},
		Crops:        []core.CropSpec{{CropID: "C"}},
		HorizonStart: time.Now(),
		HorizonEnd:   time.Now().AddDate(0, 0, 30),
		Objective:    core.MaximizeProfit,
		Config:       core.DefaultConfig(),
	}

	_, err := svc.BuildPlan(context.Background(), params)
	assert.Error(t, err)
}

func TestBuildPlan_PropagatesWeatherFetchError(t *testing.T) {
	profiles := mocks.NewMockProfileStore()
	profiles.SetProfile("C", singleCropProfile("C", 60, 10))
	rules := mocks.NewMockRuleStore()
	weatherSource := mocks.NewMockWeatherSource()
	weatherSource.SetErrorSimulation(true)

	svc := newTestService(t, profiles, rules, weatherSource)

	params := planservice.PlanParams{
		Fields:       []core.Field{{ID: "F1", AreaM2: 100, Location: "field-1"}},
		Crops:        []core.CropSpec{{CropID: "C"}},
		HorizonStart: time.Now(),
		HorizonEnd:   time.Now().AddDate(0, 0, 30),
		Objective:    core.MaximizeProfit,
		Config:       core.DefaultConfig(),
	}

	_, err := svc.BuildPlan(context.Background(), params)
	assert.Error(t, err)
}

func TestAdjustPlan_RequiresResultCache(t *testing.T) {
	profiles := mocks.NewMockProfileStore()
	rules := mocks.NewMockRuleStore()
	weatherSource := mocks.NewMockWeatherSource()

	svc := newTestService(t, profiles, rules, weatherSource)

	_, err := svc.AdjustPlan(context.Background(), "some-plan-id", "some-allocation-id", 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caching")
}
