package weather

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/fieldplan/allocator/internal/core"
)

// dailyRecord is the on-disk JSON shape for one day of a location's
// weather file, mirroring core.WeatherRecord: optional fields are pointers
// that stay nil when the key is absent.
type dailyRecord struct {
	Date             string   `json:"date"`
	MeanTemp         *float64 `json:"mean_temp,omitempty"`
	MaxTemp          *float64 `json:"max_temp,omitempty"`
	MinTemp          *float64 `json:"min_temp,omitempty"`
	Precipitation    *float64 `json:"precipitation,omitempty"`
	SunshineDuration *float64 `json:"sunshine_duration,omitempty"`
	WindSpeed        *float64 `json:"wind_speed,omitempty"`
	WeatherCode      *int     `json:"weather_code,omitempty"`
}

// FileSource reads per-location weather series from JSON files laid out as
// <dir>/<location>.json, each holding an array of dailyRecord.
type FileSource struct {
	dir string
}

// NewFileSource returns a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Fetch reads the location's weather file and returns the records falling
// within [start, end], sorted ascending by date.
func (f *FileSource) Fetch(ctx context.Context, location string, start, end time.Time) ([]core.WeatherRecord, error) {
	path := filepath.Join(f.dir, location+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read weather file for location %q", location)
	}

	var daily []dailyRecord
	if err := json.Unmarshal(raw, &daily); err != nil {
		return nil, errors.Wrapf(err, "failed to parse weather file for location %q", location)
	}

	records := make([]core.WeatherRecord, 0, len(daily))
	for _, d := range daily {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid date %q in weather file for location %q", d.Date, location)
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		records = append(records, core.WeatherRecord{
			Date:             date,
			MeanTemp:         d.MeanTemp,
			MaxTemp:          d.MaxTemp,
			MinTemp:          d.MinTemp,
			Precipitation:    d.Precipitation,
			SunshineDuration: d.SunshineDuration,
			WindSpeed:        d.WindSpeed,
			WeatherCode:      d.WeatherCode,
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}
