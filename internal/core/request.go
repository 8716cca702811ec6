package core

import "time"

// Objective enumerates the optimization objective.
type Objective string

const (
	MaximizeProfit Objective = "maximize_profit"
	MinimizeCost   Objective = "minimize_cost"
)

// CandidateStrategy enumerates candidate-generation strategies (C2).
type CandidateStrategy string

const (
	StrategyEnumeration    CandidateStrategy = "enumeration"
	StrategyPeriodTemplate CandidateStrategy = "period_template"
)

// InitialAlgorithm enumerates initial-solution builders.
type InitialAlgorithm string

const (
	AlgorithmDP      InitialAlgorithm = "dp"
	AlgorithmGreedy  InitialAlgorithm = "greedy"
)

// CropSpec is a per-crop specification within a Request.
type CropSpec struct {
	CropID         string
	Variety        string
	TargetArea     float64 // 0 means unconstrained
	ProfileOverride *CropProfile
}

// Config carries the recognized optimization configuration options
// (spec.md §6).
type Config struct {
	EnableParallelCandidateGeneration bool
	EnableCandidateFiltering          bool
	CandidateGenerationStrategy       CandidateStrategy
	MaxTemplatesPerCrop               int
	CandidateDateToleranceDays        int
	InitialAlgorithm                  InitialAlgorithm
	MaxLocalSearchIterations          int
	EnableALNS                        bool
	ALNSIterations                    int
	ALNSRemovalRate                   float64
	AreaAdjustmentMultipliers         []float64
	MaxPeriodReplaceAlternatives      int
	EnableNeighborSampling            bool
	RandomSeed                        int64
	EnumerationStrideDays             int
	CandidateAreaFractions            []float64
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		EnableParallelCandidateGeneration: false,
		EnableCandidateFiltering:          false,
		CandidateGenerationStrategy:       StrategyEnumeration,
		MaxTemplatesPerCrop:               200,
		CandidateDateToleranceDays:        20,
		InitialAlgorithm:                  AlgorithmDP,
		MaxLocalSearchIterations:          100,
		EnableALNS:                        false,
		ALNSIterations:                    200,
		ALNSRemovalRate:                   0.3,
		AreaAdjustmentMultipliers:         []float64{0.8, 1.2},
		MaxPeriodReplaceAlternatives:      10,
		EnableNeighborSampling:            false,
		RandomSeed:                        1,
		EnumerationStrideDays:             7,
		CandidateAreaFractions:            []float64{0.25, 0.5, 0.75, 1.0},
	}
}

// Request is the pure input contract to Orchestrate.
type Request struct {
	FieldIDs            []string
	Fields              []Field
	Crops               []CropSpec
	Profiles            map[string]CropProfile // keyed by crop ID
	Weather             map[string]WeatherSeries // keyed by location
	HorizonStart         time.Time
	HorizonEnd           time.Time
	Objective            Objective
	MaxComputationTime   time.Duration // 0 means unbounded
	InteractionRules     []InteractionRule
	Config               Config
}
