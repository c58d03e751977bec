package forecast

import (
	"context"
	"fmt"

	"cuacadesa/internal/log"
	"cuacadesa/internal/models"
	"cuacadesa/internal/series"
)

// BackfillingModel keeps the history current up to today before
// forecasting. Missing days between the last observation and today are
// predicted by the inner provider, appended and persisted.
type BackfillingModel struct {
	inner     Provider
	path      string
	precision int
	clock     Clock
}

// NewBackfillingModel wraps inner. When path is empty the filled history is
// not persisted.
func NewBackfillingModel(inner Provider, path string, precision int, clock Clock) *BackfillingModel {
	return &BackfillingModel{inner: inner, path: path, precision: precision, clock: clock}
}

func (b *BackfillingModel) Name() string { return "backfill+" + b.inner.Name() }

// Backfill returns history extended up to today and the number of days
// added. On error the returned history is still usable: unchanged when the
// gap forecast failed, extended when only persisting failed.
func (b *BackfillingModel) Backfill(ctx context.Context, history []models.DailyReading) ([]models.DailyReading, int, error) {
	if len(history) == 0 {
		return history, 0, nil
	}

	gap := series.DaysBetween(lastDate(history), b.clock.Now())
	if gap <= 0 {
		return history, 0, nil
	}

	points, err := b.inner.Forecast(ctx, history, gap)
	if err != nil {
		return history, 0, fmt.Errorf("gap forecast of %d days failed: %w", gap, err)
	}

	filled := series.AppendForecast(history, points)
	added := len(filled) - len(history)

	if b.path != "" && added > 0 {
		if err := b.persist(filled[len(history):]); err != nil {
			return filled, added, fmt.Errorf("failed to persist backfilled history: %w", err)
		}
		log.Infof("Backfilled %d days into %s", added, b.path)
	}

	return filled, added, nil
}

func (b *BackfillingModel) Forecast(ctx context.Context, history []models.DailyReading, horizon int) ([]models.ForecastPoint, error) {
	filled, _, err := b.Backfill(ctx, history)
	if err != nil {
		log.Warnf("Backfill incomplete, continuing: %v", err)
	}
	return b.inner.Forecast(ctx, filled, horizon)
}

// persist merges the filled days into the raw history file as one reading
// at midnight per day, rounded to precision. Existing readings are kept as
// they were.
func (b *BackfillingModel) persist(days []models.DailyReading) error {
	existing, err := series.ReadRawFile(b.path)
	if err != nil {
		return err
	}
	incoming := make([]models.RawReading, len(days))
	for i, d := range days {
		incoming[i] = models.RawReading{Timestamp: d.Date, Value: series.Round(d.Value, b.precision)}
	}
	return series.WriteRawFile(b.path, series.MergeRaw(existing, incoming))
}

// AsBackfilling finds a BackfillingModel behind p, looking through wrappers
// that expose Unwrap
func AsBackfilling(p Provider) (*BackfillingModel, bool) {
	for p != nil {
		if b, ok := p.(*BackfillingModel); ok {
			return b, true
		}
		w, ok := p.(interface{ Unwrap() Provider })
		if !ok {
			return nil, false
		}
		p = w.Unwrap()
	}
	return nil, false
}
