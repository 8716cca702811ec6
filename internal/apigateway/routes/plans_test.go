package routes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldplan/allocator/internal/apigateway/routes"
	"github.com/fieldplan/allocator/internal/core"
	"github.com/fieldplan/allocator/internal/planservice"
	"github.com/fieldplan/allocator/internal/utils/validator"
	"github.com/fieldplan/allocator/pkg/dto"
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

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	profiles := mocks.NewMockProfileStore()
	profiles.SetProfile("C", singleCropProfile("C", 60, 10))
	rules := mocks.NewMockRuleStore()
	weatherSource := mocks.NewMockWeatherSource()
	weatherSource.SetRecords("field-1", steadyWeather(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 40, 22))

	log, err := zap.NewDevelopment()
	require.NoError(t, err)

	svc := planservice.NewService(profiles, rules, weatherSource, nil, log)

	router := chi.NewRouter()
	routes.RegisterPlanRoutes(router, &routes.PlanHandlers{
		Service:   svc,
		Validator: validator.NewValidator(),
		Log:       log,
	})
	return router
}

func validPlanRequestBody() []byte {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	req := dto.PlanRequest{
		Fields: []dto.FieldRequest{
			{ID: "F1", AreaM2: 100, DailyFixedCost: 5, FallowDays: 7, Location: "field-1"},
		},
		Crops: []dto.CropSpecRequest{
			{CropID: "C"},
		},
		HorizonStart: start,
		HorizonEnd:   start.AddDate(0, 0, 23),
		Objective:    "maximize_profit",
	}
	data, _ := json.Marshal(req)
	return data
}

func TestCreatePlan_Success(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/plans/", bytes.NewReader(validPlanRequestBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.PlanID)
}

func TestCreatePlan_RejectsInvalidBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/plans/", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePlan_RejectsFailingValidation(t *testing.T) {
	router := newTestRouter(t)

	req := dto.PlanRequest{
		Objective: "not_a_real_objective",
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/v1/plans/", bytes.NewReader(data))
	httpReq.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httpReq)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdjustPlan_UnprocessableWithoutCache(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(dto.AdjustRequest{AllocationID: "alloc-1", NewAreaM2: 50})
	req := httptest.NewRequest(http.MethodPost, "/v1/plans/some-plan-id/adjust", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdjustPlan_RejectsMissingFields(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(dto.AdjustRequest{})
	req := httptest.NewRequest(http.MethodPost, "/v1/plans/some-plan-id/adjust", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
