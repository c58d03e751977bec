package forecast

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cuacadesa/internal/models"

	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func history(values ...float64) []models.DailyReading {
	out := make([]models.DailyReading, len(values))
	for i, v := range values {
		out[i] = models.DailyReading{Date: day0.AddDate(0, 0, i), Value: v}
	}
	return out
}

type fakeProvider struct {
	value float64
	err   error
	calls int
	last  []models.DailyReading
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Forecast(_ context.Context, h []models.DailyReading, horizon int) ([]models.ForecastPoint, error) {
	f.calls++
	f.last = h
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.ForecastPoint, horizon)
	for i, d := range futureDates(lastDate(h), horizon) {
		out[i] = models.ForecastPoint{Date: d, Value: f.value}
	}
	return out, nil
}

var errBoom = errors.New("boom")

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// persistence returns a model predicting the last value plus step
func persistence(channels int, step float64) *LinearModel {
	m := &LinearModel{
		Name:         "persistence",
		Channels:     channels,
		ChunkLength:  1,
		CovariateDim: CovariateDim,
	}
	for c := 0; c < channels; c++ {
		w := make([]float64, channels+CovariateDim)
		w[c] = 1
		m.Weights = append(m.Weights, w)
		m.Bias = append(m.Bias, step)
	}
	return m
}
