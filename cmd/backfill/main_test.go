package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"cuacadesa/internal/forecast"
	"cuacadesa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type constProvider struct{ value float64 }

func (p constProvider) Name() string { return "const" }

func (p constProvider) Forecast(_ context.Context, h []models.DailyReading, horizon int) ([]models.ForecastPoint, error) {
	last := h[len(h)-1].Date
	out := make([]models.ForecastPoint, horizon)
	for i := range out {
		out[i] = models.ForecastPoint{Date: last.AddDate(0, 0, i+1), Value: p.value}
	}
	return out, nil
}

type stubHistory map[string][]models.DailyReading

func (s stubHistory) History(variable string) ([]models.DailyReading, error) {
	h, ok := s[variable]
	if !ok {
		return nil, errors.New("no history")
	}
	return h, nil
}

func TestBackfill(t *testing.T) {
	clock := fixedClock(day0.AddDate(0, 0, 3))
	providers := map[string]forecast.Provider{
		"rainfall":  forecast.NewBackfillingModel(constProvider{1}, "", 2, clock),
		"windspeed": constProvider{2},
	}
	src := stubHistory{
		"rainfall":  {{Date: day0, Value: 4}},
		"windspeed": {{Date: day0, Value: 3}},
	}

	added, err := backfill(context.Background(), []string{"rainfall", "windspeed"}, providers, src)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"rainfall": 3}, added)
}

func TestBackfill_HistoryError(t *testing.T) {
	clock := fixedClock(day0.AddDate(0, 0, 3))
	providers := map[string]forecast.Provider{
		"rainfall":  forecast.NewBackfillingModel(constProvider{1}, "", 2, clock),
		"windspeed": forecast.NewBackfillingModel(constProvider{2}, "", 2, clock),
	}
	src := stubHistory{"windspeed": {{Date: day0, Value: 3}}}

	added, err := backfill(context.Background(), []string{"rainfall", "windspeed"}, providers, src)
	assert.Error(t, err)
	assert.Equal(t, 3, added["windspeed"])
}
