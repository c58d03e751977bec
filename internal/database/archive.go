package database

import (
	"fmt"
	"sort"

	"cuacadesa/internal/models"
	"cuacadesa/internal/stream"
)

// Archive stores a published advisory and the forecasts it was derived from
// in one transaction; nothing is stored when any insert fails.
// Messages without an advisory only store their forecasts.
func (db *DB) Archive(msg *stream.AdvisoryMessage, streamID string) error {
	defer db.updateStats()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if committed

	if rec := newRecord(msg); rec != nil {
		if _, err := insertAdvisory(tx, rec, streamID); err != nil {
			return err
		}
	}

	for _, variable := range sortedVariables(msg.Forecasts) {
		fc := msg.Forecasts[variable]
		if len(fc.Points) == 0 {
			continue
		}
		if err := insertForecast(tx, msg.Site, variable, fc.Provider, fc.Fallback, msg.GeneratedAt, fc.Points); err != nil {
			return fmt.Errorf("failed to archive %s forecast: %w", variable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive of %s: %w", streamID, err)
	}
	return nil
}

func sortedVariables(forecasts map[string]stream.ForecastSeries) []string {
	names := make([]string, 0, len(forecasts))
	for name := range forecasts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newRecord(msg *stream.AdvisoryMessage) *models.AdvisoryRecord {
	if msg.Insight == nil {
		return nil
	}
	in := msg.Insight
	return &models.AdvisoryRecord{
		Site:        msg.Site,
		GeneratedAt: msg.GeneratedAt,
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		Status:      in.Status.Code,
		Severity:    string(in.Status.Severity),
		Insight:     *in,
	}
}
