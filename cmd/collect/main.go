package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cuacadesa/internal/api"
	"cuacadesa/internal/config"
	"cuacadesa/internal/log"
	"cuacadesa/internal/metrics"
	"cuacadesa/internal/series"
)

// hourlyFetcher is the part of the Open-Meteo client used by the collector
type hourlyFetcher interface {
	GetHourly(ctx context.Context, params api.HourlyParams) (*api.HourlyData, error)
}

func main() {
	env, err := config.GetEnv()
	log.Init(env.Debug)
	defer log.Sync()
	if err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client := api.NewOpenMeteoClient()
	if err := runOnce(context.Background(), client, cfg); err != nil {
		log.Fatalf("Data collection failed: %v", err)
	}

	if cfg.Collect.Interval <= 0 {
		log.Infof("Data collection completed. Exiting")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Collector running every %s. Press Ctrl+C to stop...", cfg.Collect.Interval)
	ticker := time.NewTicker(cfg.Collect.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Infof("Shutting down collector...")
			return
		case <-ticker.C:
			if err := runOnce(ctx, client, cfg); err != nil {
				log.Errorf("Data collection failed: %v", err)
			}
		}
	}
}

func runOnce(ctx context.Context, client hourlyFetcher, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	imported, err := collect(ctx, client, cfg, time.Now())
	if err != nil {
		return err
	}
	for name, n := range imported {
		log.Infof("Imported %d %s readings", n, name)
	}
	return nil
}

// collect fetches the past days of hourly observations for the site and
// merges them into each variable's history CSV
func collect(ctx context.Context, client hourlyFetcher, cfg *config.Config, now time.Time) (map[string]int, error) {
	names := cfg.VariableNames()
	fields := make([]string, 0, len(names))
	for _, name := range names {
		if f := cfg.Variables[name].OpenMeteoField; f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no variable has an open_meteo_field")
	}

	data, err := client.GetHourly(ctx, api.HourlyParams{
		Latitude:     cfg.Site.Latitude,
		Longitude:    cfg.Site.Longitude,
		HourlyFields: fields,
		Timezone:     cfg.Site.Timezone,
		PastDays:     cfg.Collect.PastDays,
		ForecastDays: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch observations: %w", err)
	}

	// Open-Meteo timestamps are local wall clock times of the site
	if loc, err := time.LoadLocation(data.Timezone); err == nil && data.Timezone != "" {
		now = now.In(loc)
	}

	imported := make(map[string]int, len(names))
	for _, name := range names {
		v := cfg.Variables[name]
		if v.OpenMeteoField == "" {
			continue
		}

		incoming := data.Readings(v.OpenMeteoField, now)
		existing, err := series.ReadRawFile(v.CSV)
		if err != nil {
			log.Warnf("Starting new history for %s: %v", name, err)
			existing = nil
		}

		merged := series.MergeRaw(existing, incoming)
		if err := series.WriteRawFile(v.CSV, merged); err != nil {
			return imported, fmt.Errorf("failed to write %s history: %w", name, err)
		}

		imported[name] = len(incoming)
		metrics.RecordImport(name, len(incoming))
	}

	return imported, nil
}
