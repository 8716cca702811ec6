// Package weather provides the out-of-core weather collaborators that
// supply core.WeatherSeries to the planning service: a local file reader
// and a circuit-broken HTTP client.
package weather

import (
	"context"
	"time"

	"github.com/fieldplan/allocator/internal/core"
)

// Source fetches the daily weather records for a location over
// [start, end], inclusive.
type Source interface {
	Fetch(ctx context.Context, location string, start, end time.Time) ([]core.WeatherRecord, error)
}
