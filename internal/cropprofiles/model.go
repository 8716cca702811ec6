// Package cropprofiles persists crop growth profiles (core.CropProfile) in
// Postgres, fronted by an in-process read-through cache.
package cropprofiles

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldplan/allocator/internal/core"
)

// CropRecord is the GORM row for a crop's identity and revenue parameters.
type CropRecord struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	Name           string `gorm:"type:varchar(100);not null"`
	Variety        string `gorm:"type:varchar(100)"`
	AreaPerUnit    float64
	RevenuePerArea float64
	MaxRevenue     float64
	Tags           string `gorm:"type:varchar(255)"` // comma-joined
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName pins the GORM table name.
func (CropRecord) TableName() string { return "crop_profiles" }

// StageRecord is one ordered growth stage belonging to a CropRecord.
type StageRecord struct {
	ID                     string `gorm:"type:uuid;primaryKey"`
	CropRecordID           string `gorm:"type:uuid;not null;index"`
	Index                  int
	Name                   string
	Base                   float64
	OptimalMin             float64
	OptimalMax             float64
	HighStressThreshold    float64
	LowStressThreshold     float64
	FrostThreshold         float64
	MaxTemperature         float64
	SterilityRiskThreshold float64
	HighTempImpact         float64
	LowTempImpact          float64
	FrostImpact            float64
	SterilityImpact        float64
	MinSunshineHours       float64
	TargetSunshineHours    float64
	RequiredGDD            float64
	EarlyHarvestGDD        float64
}

// TableName pins the GORM table name.
func (StageRecord) TableName() string { return "crop_profile_stages" }

// BeforeCreate assigns a UUID when the caller didn't supply one.
func (c *CropRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// BeforeUpdate refreshes UpdatedAt.
func (c *CropRecord) BeforeUpdate(tx *gorm.DB) error {
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// BeforeCreate assigns a UUID when the caller didn't supply one.
func (s *StageRecord) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// toDomain converts a CropRecord and its stages into a core.CropProfile.
func toDomain(rec CropRecord, stages []StageRecord) core.CropProfile {
	profile := core.CropProfile{
		Crop: core.Crop{
			ID:             rec.ID,
			Name:           rec.Name,
			Variety:        rec.Variety,
			AreaPerUnit:    rec.AreaPerUnit,
			RevenuePerArea: rec.RevenuePerArea,
			MaxRevenue:     rec.MaxRevenue,
			Tags:           splitTags(rec.Tags),
		},
		Stages: make([]core.GrowthStageRequirement, 0, len(stages)),
	}
	for _, s := range stages {
		profile.Stages = append(profile.Stages, core.GrowthStageRequirement{
			Index: s.Index,
			Name:  s.Name,
			Temperature: core.TemperatureProfile{
				Base:                   s.Base,
				OptimalMin:             s.OptimalMin,
				OptimalMax:             s.OptimalMax,
				HighStressThreshold:    s.HighStressThreshold,
				LowStressThreshold:     s.LowStressThreshold,
				FrostThreshold:         s.FrostThreshold,
				MaxTemperature:         s.MaxTemperature,
				SterilityRiskThreshold: s.SterilityRiskThreshold,
				HighTempImpact:         s.HighTempImpact,
				LowTempImpact:          s.LowTempImpact,
				FrostImpact:            s.FrostImpact,
				SterilityImpact:        s.SterilityImpact,
			},
			Sunshine: core.SunshineProfile{
				MinHours:    s.MinSunshineHours,
				TargetHours: s.TargetSunshineHours,
			},
			Thermal: core.ThermalRequirement{
				RequiredGDD:     s.RequiredGDD,
				EarlyHarvestGDD: s.EarlyHarvestGDD,
			},
		})
	}
	return profile
}

// fromDomain converts a core.CropProfile into its persistence records.
func fromDomain(profile core.CropProfile) (CropRecord, []StageRecord) {
	rec := CropRecord{
		ID:             profile.Crop.ID,
		Name:           profile.Crop.Name,
		Variety:        profile.Crop.Variety,
		AreaPerUnit:    profile.Crop.AreaPerUnit,
		RevenuePerArea: profile.Crop.RevenuePerArea,
		MaxRevenue:     profile.Crop.MaxRevenue,
		Tags:           joinTags(profile.Crop.Tags),
	}
	stages := make([]StageRecord, 0, len(profile.Stages))
	for _, s := range profile.Stages {
		stages = append(stages, StageRecord{
			CropRecordID:           rec.ID,
			Index:                  s.Index,
			Name:                   s.Name,
			Base:                   s.Temperature.Base,
			OptimalMin:             s.Temperature.OptimalMin,
			OptimalMax:             s.Temperature.OptimalMax,
			HighStressThreshold:    s.Temperature.HighStressThreshold,
			LowStressThreshold:     s.Temperature.LowStressThreshold,
			FrostThreshold:         s.Temperature.FrostThreshold,
			MaxTemperature:         s.Temperature.MaxTemperature,
			SterilityRiskThreshold: s.Temperature.SterilityRiskThreshold,
			HighTempImpact:         s.Temperature.HighTempImpact,
			LowTempImpact:          s.Temperature.LowTempImpact,
			FrostImpact:            s.Temperature.FrostImpact,
			SterilityImpact:        s.Temperature.SterilityImpact,
			MinSunshineHours:       s.Sunshine.MinHours,
			TargetSunshineHours:    s.Sunshine.TargetHours,
			RequiredGDD:            s.Thermal.RequiredGDD,
			EarlyHarvestGDD:        s.Thermal.EarlyHarvestGDD,
		})
	}
	return rec, stages
}

func splitTags(joined string) []string {
	if joined == "" {
		return nil
	}
	var tags []string
	start := 0
	for i := 0; i <= len(joined); i++ {
		if i == len(joined) || joined[i] == ',' {
			if i > start {
				tags = append(tags, joined[start:i])
			}
			start = i + 1
		}
	}
	return tags
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ","
		}
		out += t
	}
	return out
}
