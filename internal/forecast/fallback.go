package forecast

import (
	"fmt"

	"cuacadesa/internal/models"
	"cuacadesa/internal/series"

	"gonum.org/v1/gonum/stat"
)

// FallbackMode selects the flat series used when a forecast fails
type FallbackMode string

const (
	FallbackZeros FallbackMode = "zeros"
	FallbackMean  FallbackMode = "mean"
)

// ParseFallbackMode validates a fallback name from config
func ParseFallbackMode(name string) (FallbackMode, error) {
	switch FallbackMode(name) {
	case FallbackZeros, FallbackMean:
		return FallbackMode(name), nil
	}
	return "", fmt.Errorf("unknown fallback %q (want zeros or mean)", name)
}

// Fallback returns a flat forecast of horizon days after the last history
// day: all zeros, or the historical mean.
func Fallback(mode FallbackMode, history []models.DailyReading, horizon int) []models.ForecastPoint {
	if len(history) == 0 || horizon < 1 {
		return nil
	}

	value := 0.0
	if mode == FallbackMean {
		value = stat.Mean(series.Values(history), nil)
	}

	dates := futureDates(lastDate(history), horizon)
	out := make([]models.ForecastPoint, horizon)
	for i, d := range dates {
		out[i] = models.ForecastPoint{Date: d, Value: value}
	}
	return out
}
