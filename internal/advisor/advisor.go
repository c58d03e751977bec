// Package advisor derives farming (tani) and livestock (ternak)
// recommendations from the joined rainfall and wind forecasts.
package advisor

import (
	"errors"
	"fmt"

	"cuacadesa/internal/models"
	"cuacadesa/internal/series"
)

// ErrEmptyInput is returned when there is no forecast day to advise on
var ErrEmptyInput = errors.New("no overlapping forecast days to generate insights from")

// DefaultLongTermDays covers days 8-37 of the joined forecast
const DefaultLongTermDays = 30

// Options selects the advisory variant
type Options struct {
	// Extended enables the long-term livestock rules
	Extended bool
	// LongTermDays limits the long-term window; 0 uses every remaining day
	LongTermDays int
}

// Engine generates insights. It holds no state besides its options.
type Engine struct {
	opts Options
}

// NewEngine creates a new advisory engine
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// LongTermDays returns the configured long-term window length
func (e *Engine) LongTermDays() int {
	return e.opts.LongTermDays
}

// GenerateInsights joins the two forecasts and runs every rule over them
func (e *Engine) GenerateInsights(rain, wind []models.ForecastPoint) (*models.Insight, error) {
	joined, err := series.Join(rain, wind, e.opts.LongTermDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyInput, err)
	}
	return e.Generate(joined)
}

// Generate runs the short-term and long-term rules over an already joined
// forecast and computes the overall status. It never modifies joined.
func (e *Engine) Generate(joined models.JoinedForecast) (*models.Insight, error) {
	if len(joined.ShortTerm) == 0 {
		return nil, ErrEmptyInput
	}

	insight := &models.Insight{
		PeriodStart: joined.ShortTerm[0].Date,
		PeriodEnd:   joined.ShortTerm[len(joined.ShortTerm)-1].Date,
	}
	if n := len(joined.LongTerm); n > 0 {
		insight.PeriodEnd = joined.LongTerm[n-1].Date
	}

	insight.Tani.ShortTerm, insight.Ternak.ShortTerm = shortTermAdvice(joined.ShortTerm)

	long := summarize(joined.LongTerm)
	insight.Tani.LongTerm, insight.Ternak.LongTerm = longTermAdvice(long, e.opts.Extended)
	insight.Status = status(long)
	insight.LongTermRainTotal = long.rainTotal
	insight.LongTermWindyDays = long.windyDays

	return insight, nil
}

// GenerateInsights runs the default (non-extended, 30 day) engine
func GenerateInsights(rain, wind []models.ForecastPoint) (*models.Insight, error) {
	return NewEngine(Options{LongTermDays: DefaultLongTermDays}).GenerateInsights(rain, wind)
}
