package forecast

import (
	"context"
	"fmt"

	"cuacadesa/internal/models"
	"cuacadesa/internal/series"
)

// PrecomputedTable serves a forecast exported to CSV by an offline run
type PrecomputedTable struct {
	path      string
	clock     Clock
	fromToday bool
}

// NewPrecomputedTable reads forecasts from path. With fromToday the table is
// served from the current day onward, otherwise from the day after the last
// history day.
func NewPrecomputedTable(path string, clock Clock, fromToday bool) *PrecomputedTable {
	return &PrecomputedTable{path: path, clock: clock, fromToday: fromToday}
}

func (p *PrecomputedTable) Name() string { return "precomputed" }

func (p *PrecomputedTable) Forecast(ctx context.Context, history []models.DailyReading, horizon int) ([]models.ForecastPoint, error) {
	points, err := series.ReadPointsFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read precomputed forecast: %w", err)
	}

	var out []models.ForecastPoint
	for _, pt := range points {
		if !p.keep(pt, history) {
			continue
		}
		if len(out) > 0 && !pt.Date.After(out[len(out)-1].Date) {
			continue
		}
		out = append(out, pt)
		if len(out) == horizon {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("precomputed forecast %s has no rows in range", p.path)
	}
	return out, nil
}

func (p *PrecomputedTable) keep(pt models.ForecastPoint, history []models.DailyReading) bool {
	if p.fromToday {
		return !pt.Date.Before(series.Day(p.clock.Now()))
	}
	if len(history) == 0 {
		return true
	}
	return pt.Date.After(lastDate(history))
}
