package mocks

import (
	"errors"
	"sync"

	"github.com/fieldplan/allocator/internal/core"
)

// MockProfileStore is a thread-safe in-memory planservice.ProfileStore double.
type MockProfileStore struct {
	mu             sync.RWMutex
	profiles       map[string]core.CropProfile
	simulateErrors bool
}

// NewMockProfileStore returns an empty MockProfileStore.
func NewMockProfileStore() *MockProfileStore {
	return &MockProfileStore{profiles: make(map[string]core.CropProfile)}
}

// SetProfile registers the profile returned for a given crop ID.
func (m *MockProfileStore) SetProfile(cropID string, profile core.CropProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[cropID] = profile
}

// SetErrorSimulation toggles whether GetMany returns an error.
func (m *MockProfileStore) SetErrorSimulation(simulate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simulateErrors = simulate
}

// GetMany implements planservice.ProfileStore.
func (m *MockProfileStore) GetMany(cropIDs []string) (map[string]core.CropProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.simulateErrors {
		return nil, errors.New("mock: profile store unavailable")
	}

	out := make(map[string]core.CropProfile, len(cropIDs))
	for _, id := range cropIDs {
		profile, ok := m.profiles[id]
		if !ok {
			return nil, errors.New("mock: crop profile not found: " + id)
		}
		out[id] = profile
	}
	return out, nil
}

// MockRuleStore is a thread-safe in-memory planservice.RuleStore double.
type MockRuleStore struct {
	mu             sync.RWMutex
	rules          []core.InteractionRule
	simulateErrors bool
}

// NewMockRuleStore returns an empty MockRuleStore.
func NewMockRuleStore() *MockRuleStore {
	return &MockRuleStore{}
}

// SetRules registers the rules returned for every group lookup.
func (m *MockRuleStore) SetRules(rules []core.InteractionRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = rules
}

// SetErrorSimulation toggles whether ListForGroups returns an error.
func (m *MockRuleStore) SetErrorSimulation(simulate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simulateErrors = simulate
}

// ListForGroups implements planservice.RuleStore.
func (m *MockRuleStore) ListForGroups(groups []string) ([]core.InteractionRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.simulateErrors {
		return nil, errors.New("mock: rule store unavailable")
	}
	return m.rules, nil
}
