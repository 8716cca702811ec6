package dto

import (
	"fmt"

	"github.com/fieldplan/allocator/internal/core"
)

// ToCoreFields converts the wire field list into core.Field values.
func (req *PlanRequest) ToCoreFields() []core.Field {
	out := make([]core.Field, 0, len(req.Fields))
	for _, f := range req.Fields {
		out = append(out, core.Field{
			ID:             f.ID,
			AreaM2:         f.AreaM2,
			DailyFixedCost: f.DailyFixedCost,
			FallowDays:     f.FallowDays,
			Location:       f.Location,
		})
	}
	return out
}

// ToCoreCrops converts the wire crop spec list into core.CropSpec values.
func (req *PlanRequest) ToCoreCrops() []core.CropSpec {
	out := make([]core.CropSpec, 0, len(req.Crops))
	for _, c := range req.Crops {
		out = append(out, core.CropSpec{
			CropID:     c.CropID,
			Variety:    c.Variety,
			TargetArea: c.TargetArea,
		})
	}
	return out
}

// ToCoreConfig merges req's optional overrides onto core.DefaultConfig.
func (req *PlanRequest) ToCoreConfig() core.Config {
	cfg := core.DefaultConfig()
	if req.Config == nil {
		return cfg
	}
	override := req.Config
	if override.InitialAlgorithm != "" {
		cfg.InitialAlgorithm = core.InitialAlgorithm(override.InitialAlgorithm)
	}
	if override.MaxLocalSearchIterations != nil {
		cfg.MaxLocalSearchIterations = *override.MaxLocalSearchIterations
	}
	if override.EnableALNS != nil {
		cfg.EnableALNS = *override.EnableALNS
	}
	if override.ALNSIterations != nil {
		cfg.ALNSIterations = *override.ALNSIterations
	}
	if override.ALNSRemovalRate != nil {
		cfg.ALNSRemovalRate = *override.ALNSRemovalRate
	}
	if override.RandomSeed != nil {
		cfg.RandomSeed = *override.RandomSeed
	}
	if len(override.CandidateAreaFractions) > 0 {
		cfg.CandidateAreaFractions = override.CandidateAreaFractions
	}
	return cfg
}

// ToCoreObjective converts the validated objective string into core.Objective.
func (req *PlanRequest) ToCoreObjective() core.Objective {
	return core.Objective(req.Objective)
}

// FromCoreResult converts an orchestration result into its wire shape.
func FromCoreResult(result core.OptimizationResult) PlanResponse {
	resp := PlanResponse{
		PlanID:       result.PlanID,
		Success:      result.Success,
		TotalCost:    result.TotalCost,
		TotalRevenue: result.TotalRevenue,
		TotalProfit:  result.TotalProfit,
		Algorithm:    result.Algorithm,
		IsOptimal:    result.IsOptimal,
		WallClockMs:  result.WallClockTime.Milliseconds(),
		Warnings:     result.Warnings,
	}
	if result.Diagnostic != nil {
		resp.Diagnostic = &DiagnosticResponse{
			Code:    string(result.Diagnostic.Code),
			Message: result.Diagnostic.Message,
		}
	}
	resp.Allocations = make([]AllocationResponse, 0, len(result.Solution.Allocations))
	for _, a := range result.Solution.Allocations {
		resp.Allocations = append(resp.Allocations, AllocationResponse{
			ID:             a.ID,
			FieldID:        a.Field().ID,
			CropID:         a.Crop().ID,
			StartDate:      a.StartDate(),
			CompletionDate: a.CompletionDate(),
			AreaUsed:       a.AreaUsed(),
			Revenue:        a.Revenue,
			Cost:           a.Cost(),
			Profit:         a.Profit,
		})
	}
	return resp
}

// FieldCountSummary returns a short human-readable summary, useful for
// logging request shape without dumping the full payload.
func (req *PlanRequest) FieldCountSummary() string {
	return fmt.Sprintf("%d fields, %d crops", len(req.Fields), len(req.Crops))
}
