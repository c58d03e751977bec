// Package dashboard builds the per-variable panels and the advisory for one
// site from the history CSVs and the configured forecast providers.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cuacadesa/internal/advisor"
	"cuacadesa/internal/config"
	"cuacadesa/internal/forecast"
	"cuacadesa/internal/log"
	"cuacadesa/internal/metrics"
	"cuacadesa/internal/models"
	"cuacadesa/internal/series"
	"cuacadesa/internal/stream"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrMissingData is returned when a history CSV is missing or empty
	ErrMissingData = errors.New("history data not available")
	// ErrUnknownVariable is returned for a variable that is not configured
	ErrUnknownVariable = errors.New("unknown variable")
)

// NoOverlapNotice is shown when no advisory can be generated
const NoOverlapNotice = "Prakiraan curah hujan dan kecepatan angin tidak memiliki tanggal yang sama, saran tidak dapat dibuat."

// Publisher receives dashboards passed to Service.Publish
type Publisher interface {
	Publish(ctx context.Context, msg *stream.AdvisoryMessage) (string, error)
}

type Service struct {
	cfg       *config.Config
	providers map[string]forecast.Provider
	engine    *advisor.Engine
	fallback  forecast.FallbackMode
	publisher Publisher
	now       func() time.Time
}

// NewService checks that every configured variable has a provider.
// publisher may be nil.
func NewService(cfg *config.Config, providers map[string]forecast.Provider, publisher Publisher) (*Service, error) {
	for _, name := range cfg.VariableNames() {
		if providers[name] == nil {
			return nil, fmt.Errorf("no forecast provider for %s", name)
		}
	}

	mode, err := forecast.ParseFallbackMode(cfg.Forecast.Fallback)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:       cfg,
		providers: providers,
		engine: advisor.NewEngine(advisor.Options{
			Extended:     cfg.Advisory.Extended,
			LongTermDays: cfg.LongTermDays(),
		}),
		fallback:  mode,
		publisher: publisher,
		now:       time.Now,
	}, nil
}

// Build forecasts every variable concurrently, then derives the advisory.
// Missing history fails the whole build; a failed forecast is replaced by
// the fallback series and reported on its panel.
func (s *Service) Build(ctx context.Context) (*models.Dashboard, error) {
	names := s.cfg.VariableNames()
	panels := make([]*models.Panel, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			p, err := s.Panel(gctx, name)
			if err != nil {
				return err
			}
			panels[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &models.Dashboard{
		Site:        s.cfg.Site.Name,
		GeneratedAt: s.now().UTC(),
		Panels:      make(map[string]models.Panel, len(panels)),
	}
	for i, name := range names {
		d.Panels[name] = *panels[i]
		if panels[i].Warning != "" {
			d.Notices = append(d.Notices, panels[i].Warning)
		}
	}

	insight, err := s.engine.GenerateInsights(d.Panels[models.Rainfall].Forecast, d.Panels[models.WindSpeed].Forecast)
	switch {
	case errors.Is(err, advisor.ErrEmptyInput):
		log.Warnf("No advisory for %s: %v", d.Site, err)
		d.Notices = append(d.Notices, NoOverlapNotice)
	case err != nil:
		return nil, err
	default:
		d.Insight = insight
		metrics.SetAdvisoryStatus(insight.Status.Code, advisor.StatusCodes(), insight.LongTermRainTotal)
	}

	return d, nil
}

// Publish sends a built dashboard to the advisory stream. Build never
// publishes, so reads of the dashboard do not create stream entries.
func (s *Service) Publish(ctx context.Context, d *models.Dashboard) (string, error) {
	if s.publisher == nil {
		return "", errors.New("no advisory publisher configured")
	}
	id, err := s.publisher.Publish(ctx, Message(d))
	metrics.RecordPublish(err)
	if err != nil {
		return "", fmt.Errorf("failed to publish advisory for %s: %w", d.Site, err)
	}
	log.Debugf("Published advisory %s for %s", id, d.Site)
	return id, nil
}

// History reads and aggregates the history CSV of a variable
func (s *Service) History(variable string) ([]models.DailyReading, error) {
	v, ok := s.cfg.Variables[variable]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, variable)
	}

	agg, err := series.ParseAggregation(v.Aggregation)
	if err != nil {
		return nil, err
	}

	raw, err := series.ReadRawFile(v.CSV)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", ErrMissingData, v.CSV)
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingData, err)
	}

	daily := series.Aggregate(raw, agg)
	if len(daily) == 0 {
		return nil, fmt.Errorf("%w: %s has no readings", ErrMissingData, v.CSV)
	}
	return daily, nil
}

// Panel builds the chart data and forecast of a single variable
func (s *Service) Panel(ctx context.Context, variable string) (*models.Panel, error) {
	history, err := s.History(variable)
	if err != nil {
		return nil, err
	}
	v := s.cfg.Variables[variable]
	provider := s.providers[variable]
	horizon := s.cfg.Forecast.Horizon

	if b, ok := forecast.AsBackfilling(provider); ok {
		filled, added, err := b.Backfill(ctx, history)
		if err != nil {
			log.Warnf("Backfill of %s incomplete: %v", variable, err)
		}
		if added > 0 {
			log.Infof("Backfilled %d days of %s", added, variable)
		}
		history = filled
	}

	panel := &models.Panel{
		Variable:  variable,
		Title:     v.Title,
		Unit:      v.Unit,
		Provider:  provider.Name(),
		LastDate:  history[len(history)-1].Date,
		LastValue: history[len(history)-1].Value,
	}

	start := time.Now()
	points, err := provider.Forecast(ctx, history, horizon)
	metrics.RecordForecast(variable, provider.Name(), time.Since(start), err)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnw("forecast failed, using fallback", "variable", variable, "provider", provider.Name(), "error", err)
		points = forecast.Fallback(s.fallback, history, horizon)
		metrics.RecordFallback(variable, string(s.fallback))
		panel.Provider = "fallback-" + string(s.fallback)
		panel.Warning = fmt.Sprintf("Prakiraan %s gagal (%v), ditampilkan nilai cadangan %s.", v.Title, err, s.fallback)
	}

	panel.Forecast = points
	panel.Chart = chart(v, series.Tail(history, s.cfg.Forecast.HistoryDays), points)
	return panel, nil
}

func chart(v config.VariableConfig, history []models.DailyReading, points []models.ForecastPoint) models.Chart {
	c := models.Chart{
		Title:     v.Title,
		Unit:      v.Unit,
		Color:     v.Color,
		Threshold: v.WarningThreshold,
		History:   make([]models.ChartPoint, len(history)),
		Forecast:  make([]models.ChartPoint, len(points)),
	}
	for i, h := range history {
		c.History[i] = models.ChartPoint{Date: h.Date, Value: h.Value}
	}
	for i, p := range points {
		c.Forecast[i] = models.ChartPoint{Date: p.Date, Value: p.Value}
	}
	return c
}

// Message converts a dashboard into the published advisory payload
func Message(d *models.Dashboard) *stream.AdvisoryMessage {
	msg := &stream.AdvisoryMessage{
		Site:        d.Site,
		GeneratedAt: d.GeneratedAt,
		Insight:     d.Insight,
		Forecasts:   make(map[string]stream.ForecastSeries, len(d.Panels)),
	}
	for name, p := range d.Panels {
		msg.Forecasts[name] = stream.ForecastSeries{
			Provider: p.Provider,
			Fallback: p.Warning != "",
			Points:   p.Forecast,
		}
	}
	return msg
}
