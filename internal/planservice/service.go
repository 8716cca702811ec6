// Package planservice wires the weather, crop-profile, and interaction
// rule collaborators into core.Orchestrate, adding result caching and
// orchestration metrics around the pure engine (teacher's
// internal/scheduler/service.go pattern, generalized from maintenance
// scheduling to field-plan optimization).
package planservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fieldplan/allocator/internal/core"
	"github.com/fieldplan/allocator/internal/utils/cache"
	"github.com/fieldplan/allocator/internal/utils/logger"
	"github.com/fieldplan/allocator/internal/weather"
)

var (
	planLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fieldplan",
		Subsystem: "plan_service",
		Name:      "orchestration_latency_seconds",
		Help:      "Latency of a full plan orchestration call",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"algorithm"})

	planCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldplan",
		Subsystem: "plan_service",
		Name:      "cache_hits_total",
		Help:      "Total number of plan result cache hits",
	})

	planErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldplan",
		Subsystem: "plan_service",
		Name:      "errors_total",
		Help:      "Total number of plan orchestration errors by diagnostic code",
	}, []string{"code"})
)

func init() {
	prometheus.MustRegister(planLatency, planCacheHits, planErrors)
}

const (
	resultCacheTTL = 10 * time.Minute
	planCacheTTL   = 30 * time.Minute
	planIDPrefix   = "plan:id:"
)

// adjustablePlan is what gets cached under a plan's ID, carrying enough
// of the original request to let AdjustPlan re-score a single allocation
// without re-running the optimizer.
type adjustablePlan struct {
	Result core.OptimizationResult
	Fields map[string]core.Field
	Rules  []core.InteractionRule
}

// ProfileStore resolves crop growth profiles. cropprofiles.Store satisfies
// this.
type ProfileStore interface {
	GetMany(cropIDs []string) (map[string]core.CropProfile, error)
}

// RuleStore resolves cross-crop interaction rules by tag group.
// interactionrules.Store satisfies this.
type RuleStore interface {
	ListForGroups(groups []string) ([]core.InteractionRule, error)
}

// Service coordinates weather/profile/rule lookups with core.Orchestrate,
// caching results by request fingerprint.
type Service struct {
	profiles    ProfileStore
	rules       RuleStore
	weather     weather.Source
	resultCache *cache.ResultClient
	log         *zap.Logger
}

// NewService constructs a Service from its collaborators. resultCache may
// be nil to disable result caching.
func NewService(profiles ProfileStore, rules RuleStore, weatherSource weather.Source, resultCache *cache.ResultClient, log *zap.Logger) *Service {
	return &Service{
		profiles:    profiles,
		rules:       rules,
		weather:     weatherSource,
		resultCache: resultCache,
		log:         log,
	}
}

// PlanParams is the service-level input: field/crop identifiers plus the
// horizon and configuration a caller wants to optimize over. It omits the
// profiles/weather/rules the service resolves itself.
type PlanParams struct {
	Fields             []core.Field
	Crops              []core.CropSpec
	HorizonStart       time.Time
	HorizonEnd         time.Time
	Objective          core.Objective
	MaxComputationTime time.Duration
	Config             core.Config
}

// BuildPlan resolves crop profiles, interaction rules, and weather series
// for params, then runs the optimizer.
func (s *Service) BuildPlan(ctx context.Context, params PlanParams) (core.OptimizationResult, error) {
	start := time.Now()

	cacheKey := fingerprint(params)
	if s.resultCache != nil {
		var cached core.OptimizationResult
		if err := s.resultCache.Get(ctx, cacheKey, &cached); err == nil {
			planCacheHits.Inc()
			return cached, nil
		}
	}

	cropIDs := make([]string, 0, len(params.Crops))
	tags := make(map[string]bool)
	for _, c := range params.Crops {
		cropIDs = append(cropIDs, c.CropID)
	}

	profiles, err := s.profiles.GetMany(cropIDs)
	if err != nil {
		return core.OptimizationResult{}, fmt.Errorf("failed to load crop profiles: %w", err)
	}
	for _, p := range profiles {
		for _, t := range p.Crop.Tags {
			tags[t] = true
		}
	}

	groups := make([]string, 0, len(tags))
	for t := range tags {
		groups = append(groups, t)
	}
	rules, err := s.rules.ListForGroups(groups)
	if err != nil {
		return core.OptimizationResult{}, fmt.Errorf("failed to load interaction rules: %w", err)
	}

	weatherByLocation := make(map[string]core.WeatherSeries, len(params.Fields))
	for _, f := range params.Fields {
		if _, ok := weatherByLocation[f.Location]; ok {
			continue
		}
		records, err := s.weather.Fetch(ctx, f.Location, params.HorizonStart, params.HorizonEnd)
		if err != nil {
			return core.OptimizationResult{}, fmt.Errorf("failed to fetch weather for location %q: %w", f.Location, err)
		}
		weatherByLocation[f.Location] = core.WeatherSeries{Location: f.Location, Records: records}
	}

	req := core.Request{
		Fields:             params.Fields,
		Crops:              params.Crops,
		Profiles:           profiles,
		Weather:            weatherByLocation,
		HorizonStart:       params.HorizonStart,
		HorizonEnd:         params.HorizonEnd,
		Objective:          params.Objective,
		MaxComputationTime: params.MaxComputationTime,
		InteractionRules:   rules,
		Config:             params.Config,
	}

	resp, err := core.Orchestrate(req)
	if err != nil {
		code, ok := core.CodeOf(err)
		if !ok {
			code = core.CodeInternalInconsistency
		}
		planErrors.WithLabelValues(string(code)).Inc()
		logger.Error(s.log, "plan orchestration failed", err)
		return core.OptimizationResult{}, err
	}

	planLatency.WithLabelValues(resp.Result.Algorithm).Observe(time.Since(start).Seconds())
	if resp.Result.Diagnostic != nil {
		planErrors.WithLabelValues(string(resp.Result.Diagnostic.Code)).Inc()
	}

	resp.Result.PlanID = uuid.NewString()

	if s.resultCache != nil {
		if err := s.resultCache.Set(ctx, cacheKey, resp.Result, resultCacheTTL); err != nil {
			logger.Error(s.log, "failed to cache plan result", err)
		}

		fieldsByID := make(map[string]core.Field, len(params.Fields))
		for _, f := range params.Fields {
			fieldsByID[f.ID] = f
		}
		plan := adjustablePlan{Result: resp.Result, Fields: fieldsByID, Rules: rules}
		if err := s.resultCache.Set(ctx, planIDPrefix+resp.Result.PlanID, plan, planCacheTTL); err != nil {
			logger.Error(s.log, "failed to cache adjustable plan", err)
		}
	}

	return resp.Result, nil
}

// AdjustPlan re-scopes a single allocation's area within a previously
// computed plan (identified by the PlanID returned from BuildPlan) and
// re-validates the result, without re-running the optimizer.
func (s *Service) AdjustPlan(ctx context.Context, planID, allocationID string, newArea float64) (core.OptimizationResult, error) {
	if s.resultCache == nil {
		return core.OptimizationResult{}, fmt.Errorf("adjustment requires result caching to be enabled")
	}

	var plan adjustablePlan
	if err := s.resultCache.Get(ctx, planIDPrefix+planID, &plan); err != nil {
		return core.OptimizationResult{}, fmt.Errorf("plan %q not found: %w", planID, err)
	}

	adjusted, err := core.AdjustAllocation(plan.Result.Solution, plan.Fields, plan.Rules, allocationID, newArea)
	if err != nil {
		code, ok := core.CodeOf(err)
		if !ok {
			code = core.CodeInternalInconsistency
		}
		planErrors.WithLabelValues(string(code)).Inc()
		return core.OptimizationResult{}, err
	}

	result := plan.Result
	result.Solution = adjusted
	plan.Result = result

	if err := s.resultCache.Set(ctx, planIDPrefix+planID, plan, planCacheTTL); err != nil {
		logger.Error(s.log, "failed to update cached plan after adjustment", err)
	}

	return result, nil
}

func fingerprint(params PlanParams) string {
	payload := struct {
		FieldIDs     []string
		CropIDs      []string
		HorizonStart time.Time
		HorizonEnd   time.Time
		Objective    core.Objective
	}{
		HorizonStart: params.HorizonStart,
		HorizonEnd:   params.HorizonEnd,
		Objective:    params.Objective,
	}
	for _, f := range params.Fields {
		payload.FieldIDs = append(payload.FieldIDs, f.ID)
	}
	for _, c := range params.Crops {
		payload.CropIDs = append(payload.CropIDs, c.CropID)
	}

	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return "plan:" + hex.EncodeToString(sum[:])
}
