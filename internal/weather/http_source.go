package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/fieldplan/allocator/internal/core"
)

// HTTPSource fetches weather series from a remote weather API, breaking the
// circuit after repeated failures to avoid stalling an orchestration call
// on a degraded upstream.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPSource returns an HTTPSource pointed at baseURL.
func NewHTTPSource(baseURL string, httpClient *http.Client) *HTTPSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	settings := gobreaker.Settings{
		Name:    "weather-source-circuit-breaker",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
	}
	return &HTTPSource{
		baseURL:    baseURL,
		httpClient: httpClient,
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

type apiRecord struct {
	Date             string   `json:"date"`
	MeanTemp         *float64 `json:"mean_temp"`
	MaxTemp          *float64 `json:"max_temp"`
	MinTemp          *float64 `json:"min_temp"`
	Precipitation    *float64 `json:"precipitation"`
	SunshineDuration *float64 `json:"sunshine_duration"`
	WindSpeed        *float64 `json:"wind_speed"`
	WeatherCode      *int     `json:"weather_code"`
}

// Fetch requests location's weather series for [start, end] through the
// circuit breaker.
func (h *HTTPSource) Fetch(ctx context.Context, location string, start, end time.Time) ([]core.WeatherRecord, error) {
	result, err := h.breaker.Execute(func() (interface{}, error) {
		q := url.Values{}
		q.Set("location", location)
		q.Set("start", start.Format("2006-01-02"))
		q.Set("end", end.Format("2006-01-02"))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/weather?"+q.Encode(), nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build weather request")
		}

		resp, err := h.httpClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "weather request failed")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, errors.Errorf("weather source returned status %d", resp.StatusCode)
		}

		var apiRecords []apiRecord
		if err := json.NewDecoder(resp.Body).Decode(&apiRecords); err != nil {
			return nil, errors.Wrap(err, "failed to decode weather response")
		}
		return apiRecords, nil
	})
	if err != nil {
		return nil, fmt.Errorf("weather source for %q: %w", location, err)
	}

	apiRecords := result.([]apiRecord)
	records := make([]core.WeatherRecord, 0, len(apiRecords))
	for _, a := range apiRecords {
		date, err := time.Parse("2006-01-02", a.Date)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid date %q in weather response", a.Date)
		}
		records = append(records, core.WeatherRecord{
			Date:             date,
			MeanTemp:         a.MeanTemp,
			MaxTemp:          a.MaxTemp,
			MinTemp:          a.MinTemp,
			Precipitation:    a.Precipitation,
			SunshineDuration: a.SunshineDuration,
			WindSpeed:        a.WindSpeed,
			WeatherCode:      a.WeatherCode,
		})
	}
	return records, nil
}
