// Package interactionrules persists the agronomic interaction rules
// (core.InteractionRule) that penalize or reward adjacent plantings.
package interactionrules

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/fieldplan/allocator/internal/core"
)

// Record is the GORM row for one interaction rule.
type Record struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Type        string `gorm:"type:varchar(50);not null;index"`
	SourceGroup string `gorm:"type:varchar(100);not null;index"`
	TargetGroup string `gorm:"type:varchar(100);not null;index"`
	ImpactRatio float64
	Directional bool
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName pins the GORM table name.
func (Record) TableName() string { return "interaction_rules" }

// BeforeCreate assigns a UUID when the caller didn't supply one.
func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// BeforeUpdate refreshes UpdatedAt.
func (r *Record) BeforeUpdate(tx *gorm.DB) error {
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func toDomain(r Record) core.InteractionRule {
	return core.InteractionRule{
		ID:          r.ID,
		Type:        core.InteractionRuleType(r.Type),
		SourceGroup: r.SourceGroup,
		TargetGroup: r.TargetGroup,
		ImpactRatio: r.ImpactRatio,
		Directional: r.Directional,
		Description: r.Description,
	}
}

func fromDomain(rule core.InteractionRule) Record {
	return Record{
		ID:          rule.ID,
		Type:        string(rule.Type),
		SourceGroup: rule.SourceGroup,
		TargetGroup: rule.TargetGroup,
		ImpactRatio: rule.ImpactRatio,
		Directional: rule.Directional,
		Description: rule.Description,
	}
}

// Store is a Postgres-backed interaction rule repository.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate runs the GORM auto-migration for the rules table.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&Record{}); err != nil {
		return errors.Wrap(err, "failed to migrate interaction rule table")
	}
	return nil
}

// ListAll returns every interaction rule known to the store.
func (s *Store) ListAll() ([]core.InteractionRule, error) {
	var records []Record
	if err := s.db.Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list interaction rules")
	}
	rules := make([]core.InteractionRule, 0, len(records))
	for _, r := range records {
		rules = append(rules, toDomain(r))
	}
	return rules, nil
}

// ListForGroups returns rules whose source or target group matches one of
// groups, which the caller derives from the crops.Tags involved in a plan.
func (s *Store) ListForGroups(groups []string) ([]core.InteractionRule, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	var records []Record
	if err := s.db.Where("source_group IN ? OR target_group IN ?", groups, groups).Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query interaction rules for groups")
	}
	rules := make([]core.InteractionRule, 0, len(records))
	for _, r := range records {
		rules = append(rules, toDomain(r))
	}
	return rules, nil
}

// Upsert persists rule.
func (s *Store) Upsert(rule core.InteractionRule) error {
	rec := fromDomain(rule)
	if err := s.db.Save(&rec).Error; err != nil {
		return errors.Wrap(err, "failed to upsert interaction rule")
	}
	return nil
}

// Delete removes the rule with the given ID.
func (s *Store) Delete(ruleID string) error {
	if err := s.db.Delete(&Record{}, "id = ?", ruleID).Error; err != nil {
		return errors.Wrap(err, "failed to delete interaction rule")
	}
	return nil
}
