// Package forecast obtains future daily values for a variable from a
// pretrained model, a precomputed table, or a remote model worker.
package forecast

import (
	"context"
	"errors"
	"time"

	"cuacadesa/internal/models"
	"cuacadesa/internal/series"
)

var (
	// ErrMissingArtifact is returned when a model or scaler file does not exist
	ErrMissingArtifact = errors.New("model artifact not found")
	// ErrDimensionMismatch is returned when input rows do not match the expected channel count
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Provider produces a forecast of horizon days following history
type Provider interface {
	Name() string
	Forecast(ctx context.Context, history []models.DailyReading, horizon int) ([]models.ForecastPoint, error)
}

// Clock returns the current time
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// futureDates returns n consecutive days starting the day after last
func futureDates(last time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	d := series.Day(last)
	for i := range out {
		out[i] = d.AddDate(0, 0, i+1)
	}
	return out
}

func lastDate(history []models.DailyReading) time.Time {
	return history[len(history)-1].Date
}
