// Package mocks provides test doubles for the planning service's external
// collaborators.
package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fieldplan/allocator/internal/core"
)

// MockWeatherSource is a thread-safe in-memory weather.Source double.
type MockWeatherSource struct {
	mu             sync.RWMutex
	records        map[string][]core.WeatherRecord
	simulateErrors bool
	fetchDelay     time.Duration
	fetchCount     int
}

// NewMockWeatherSource returns an empty MockWeatherSource.
func NewMockWeatherSource() *MockWeatherSource {
	return &MockWeatherSource{records: make(map[string][]core.WeatherRecord)}
}

// SetRecords registers the records returned for a given location.
func (m *MockWeatherSource) SetRecords(location string, records []core.WeatherRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[location] = records
}

// SetErrorSimulation toggles whether Fetch returns an error.
func (m *MockWeatherSource) SetErrorSimulation(simulate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simulateErrors = simulate
}

// SetFetchDelay configures an artificial delay, useful for testing
// context cancellation and deadline behavior.
func (m *MockWeatherSource) SetFetchDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchDelay = d
}

// FetchCount returns the number of times Fetch has been called.
func (m *MockWeatherSource) FetchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetchCount
}

// Fetch implements weather.Source.
func (m *MockWeatherSource) Fetch(ctx context.Context, location string, start, end time.Time) ([]core.WeatherRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.Lock()
	m.fetchCount++
	delay := m.fetchDelay
	simulateErrors := m.simulateErrors
	records := m.records[location]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if simulateErrors {
		return nil, errors.New("mock: weather source unavailable")
	}

	out := make([]core.WeatherRecord, 0, len(records))
	for _, r := range records {
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
