package dto

import "time"

// FieldRequest is the wire shape of one field in a PlanRequest.
type FieldRequest struct {
	ID             string  `json:"id" validate:"required"`
	AreaM2         float64 `json:"area_m2" validate:"required,field_area"`
	DailyFixedCost float64 `json:"daily_fixed_cost" validate:"gte=0"`
	FallowDays     int     `json:"fallow_days" validate:"gte=0"`
	Location       string  `json:"location" validate:"required"`
}

// CropSpecRequest is the wire shape of one crop specification.
type CropSpecRequest struct {
	CropID     string  `json:"crop_id" validate:"required"`
	Variety    string  `json:"variety"`
	TargetArea float64 `json:"target_area" validate:"gte=0"`
}

// ConfigRequest is the wire shape of the optional optimization
// configuration overrides a caller may supply.
type ConfigRequest struct {
	InitialAlgorithm         string    `json:"initial_algorithm,omitempty"`
	MaxLocalSearchIterations *int      `json:"max_local_search_iterations,omitempty"`
	EnableALNS               *bool     `json:"enable_alns,omitempty"`
	ALNSIterations           *int      `json:"alns_iterations,omitempty"`
	ALNSRemovalRate          *float64  `json:"alns_removal_rate,omitempty" validate:"omitempty,fraction"`
	RandomSeed               *int64    `json:"random_seed,omitempty"`
	CandidateAreaFractions   []float64 `json:"candidate_area_fractions,omitempty"`
}

// PlanRequest is the HTTP gateway's request body for POST /v1/plans.
type PlanRequest struct {
	Fields           []FieldRequest    `json:"fields" validate:"required,min=1,dive"`
	Crops            []CropSpecRequest `json:"crops" validate:"required,min=1,dive"`
	HorizonStart     time.Time         `json:"horizon_start" validate:"required"`
	HorizonEnd       time.Time         `json:"horizon_end" validate:"required"`
	Objective        string            `json:"objective" validate:"required,objective"`
	MaxComputationMs int64             `json:"max_computation_ms,omitempty" validate:"gte=0"`
	Config           *ConfigRequest    `json:"config,omitempty"`
}

// AllocationResponse is the wire shape of one adopted allocation.
type AllocationResponse struct {
	ID             string    `json:"id"`
	FieldID        string    `json:"field_id"`
	CropID         string    `json:"crop_id"`
	StartDate      time.Time `json:"start_date"`
	CompletionDate time.Time `json:"completion_date"`
	AreaUsed       float64   `json:"area_used"`
	Revenue        float64   `json:"revenue"`
	Cost           float64   `json:"cost"`
	Profit         float64   `json:"profit"`
}

// DiagnosticResponse is the wire shape of an orchestration diagnostic.
type DiagnosticResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PlanResponse is the HTTP gateway's response body for a completed plan
// request.
type PlanResponse struct {
	PlanID       string               `json:"plan_id"`
	Success      bool                 `json:"success"`
	Allocations  []AllocationResponse `json:"allocations"`
	TotalCost    float64              `json:"total_cost"`
	TotalRevenue float64              `json:"total_revenue"`
	TotalProfit  float64              `json:"total_profit"`
	Algorithm    string               `json:"algorithm"`
	IsOptimal    bool                 `json:"is_optimal"`
	WallClockMs  int64                `json:"wall_clock_ms"`
	Diagnostic   *DiagnosticResponse  `json:"diagnostic,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
	Advisory     string               `json:"advisory,omitempty"`
}

// AdjustRequest is the wire shape for POST /v1/plans/{id}/adjust — a
// narrow re-scoring of a single allocation within a previously computed
// plan, without re-running the optimizer.
type AdjustRequest struct {
	AllocationID string  `json:"allocation_id" validate:"required"`
	NewAreaM2    float64 `json:"new_area_m2" validate:"required,gt=0"`
}
