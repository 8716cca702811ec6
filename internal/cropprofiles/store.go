package cropprofiles

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/fieldplan/allocator/internal/core"
)

const (
	cacheDefaultExpiration = 10 * time.Minute
	cacheCleanupInterval   = 15 * time.Minute
)

// Store is a Postgres-backed crop profile repository with a read-through
// in-process cache in front of it.
type Store struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:    db,
		cache: cache.New(cacheDefaultExpiration, cacheCleanupInterval),
	}
}

// Migrate runs the GORM auto-migration for the store's tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&CropRecord{}, &StageRecord{}); err != nil {
		return errors.Wrap(err, "failed to migrate crop profile tables")
	}
	return nil
}

// Get returns the crop profile for cropID, preferring the cache.
func (s *Store) Get(cropID string) (core.CropProfile, error) {
	if cropID == "" {
		return core.CropProfile{}, errors.New("crop id cannot be empty")
	}

	if cached, ok := s.cache.Get(cropID); ok {
		return cached.(core.CropProfile), nil
	}

	var rec CropRecord
	if err := s.db.First(&rec, "id = ?", cropID).Error; err != nil {
		return core.CropProfile{}, errors.Wrapf(err, "crop profile %s not found", cropID)
	}

	var stages []StageRecord
	if err := s.db.Where("crop_record_id = ?", cropID).Order("index").Find(&stages).Error; err != nil {
		return core.CropProfile{}, errors.Wrapf(err, "failed to load stages for crop %s", cropID)
	}

	profile := toDomain(rec, stages)
	s.cache.Set(cropID, profile, cache.DefaultExpiration)
	return profile, nil
}

// GetMany returns profiles for every requested crop ID, keyed by ID.
func (s *Store) GetMany(cropIDs []string) (map[string]core.CropProfile, error) {
	result := make(map[string]core.CropProfile, len(cropIDs))
	for _, id := range cropIDs {
		profile, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		result[id] = profile
	}
	return result, nil
}

// Upsert persists profile and invalidates its cache entry.
func (s *Store) Upsert(profile core.CropProfile) error {
	rec, stages := fromDomain(profile)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&rec).Error; err != nil {
			return errors.Wrap(err, "failed to upsert crop record")
		}
		if err := tx.Where("crop_record_id = ?", rec.ID).Delete(&StageRecord{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear existing stages")
		}
		for i := range stages {
			stages[i].CropRecordID = rec.ID
			if err := tx.Create(&stages[i]).Error; err != nil {
				return errors.Wrap(err, "failed to create stage record")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Delete(rec.ID)
	return nil
}

// Delete removes a crop profile and its stages.
func (s *Store) Delete(cropID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("crop_record_id = ?", cropID).Delete(&StageRecord{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete stage records")
		}
		if err := tx.Delete(&CropRecord{}, "id = ?", cropID).Error; err != nil {
			return errors.Wrap(err, "failed to delete crop record")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Delete(cropID)
	return nil
}
