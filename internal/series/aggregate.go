// Package series turns history CSVs into daily series and joins forecasts.
package series

import (
	"fmt"
	"sort"
	"time"

	"cuacadesa/internal/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Aggregation reduces the readings of one calendar day to a single value
type Aggregation string

const (
	Sum  Aggregation = "sum"
	Mean Aggregation = "mean"
)

// ParseAggregation validates an aggregation name from config
func ParseAggregation(name string) (Aggregation, error) {
	switch Aggregation(name) {
	case Sum, Mean:
		return Aggregation(name), nil
	}
	return "", fmt.Errorf("unknown aggregation %q (want sum or mean)", name)
}

// Day truncates t to midnight UTC of its calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Aggregate collapses raw readings into one value per calendar day across the
// full observed range. Days without readings are 0.
func Aggregate(raw []models.RawReading, agg Aggregation) []models.DailyReading {
	if len(raw) == 0 {
		return nil
	}

	byDay := make(map[time.Time][]float64)
	first, last := Day(raw[0].Timestamp), Day(raw[0].Timestamp)
	for _, r := range raw {
		d := Day(r.Timestamp)
		byDay[d] = append(byDay[d], r.Value)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	out := make([]models.DailyReading, 0, DaysBetween(first, last)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, models.DailyReading{Date: d, Value: reduce(byDay[d], agg)})
	}
	return out
}

func reduce(values []float64, agg Aggregation) float64 {
	if len(values) == 0 {
		return 0
	}
	if agg == Mean {
		return stat.Mean(values, nil)
	}
	return floats.Sum(values)
}

// Values extracts the values of a daily series
func Values(readings []models.DailyReading) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		out[i] = r.Value
	}
	return out
}

// Tail returns the last n readings (all of them when n <= 0 or n >= len)
func Tail(readings []models.DailyReading, n int) []models.DailyReading {
	if n <= 0 || n >= len(readings) {
		return readings
	}
	return readings[len(readings)-n:]
}

// AppendForecast extends a daily history with forecast points dated after
// its last day. Negative forecast values are clamped to 0 since history
// values are non-negative.
func AppendForecast(history []models.DailyReading, points []models.ForecastPoint) []models.DailyReading {
	out := make([]models.DailyReading, len(history), len(history)+len(points))
	copy(out, history)

	var last time.Time
	if len(history) > 0 {
		last = history[len(history)-1].Date
	}

	sorted := SortPoints(points)
	for _, p := range sorted {
		d := Day(p.Date)
		if len(history) > 0 && !d.After(last) {
			continue
		}
		v := p.Value
		if v < 0 {
			v = 0
		}
		out = append(out, models.DailyReading{Date: d, Value: v})
		last = d
	}
	return out
}

// SortPoints returns a date-ordered copy of points
func SortPoints(points []models.ForecastPoint) []models.ForecastPoint {
	sorted := make([]models.ForecastPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}
