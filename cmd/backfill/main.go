package main

import (
	"context"
	"fmt"
	"time"

	"cuacadesa/internal/config"
	"cuacadesa/internal/dashboard"
	"cuacadesa/internal/forecast"
	"cuacadesa/internal/log"
	"cuacadesa/internal/models"
)

// historySource is the part of the dashboard service used to read history
type historySource interface {
	History(variable string) ([]models.DailyReading, error)
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
	if cfg.Forecast.Provider != config.ProviderBackfill {
		log.Fatalf("forecast.provider is %q, backfill needs %q", cfg.Forecast.Provider, config.ProviderBackfill)
	}

	providers, err := forecast.Setup(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to set up forecast providers: %v", err)
	}
	svc, err := dashboard.NewService(cfg, providers, nil)
	if err != nil {
		log.Fatalf("Failed to create dashboard service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	added, err := backfill(ctx, cfg.VariableNames(), providers, svc)
	for name, n := range added {
		log.Infof("Backfilled %d days of %s", n, name)
	}
	if err != nil {
		log.Fatalf("Backfill failed: %v", err)
	}
}

// backfill extends every variable's stored history up to today. All
// variables are attempted; the first error is returned.
func backfill(ctx context.Context, names []string, providers map[string]forecast.Provider, src historySource) (map[string]int, error) {
	added := make(map[string]int, len(names))
	var firstErr error

	for _, name := range names {
		bf, ok := forecast.AsBackfilling(providers[name])
		if !ok {
			log.Warnf("Provider for %s does not backfill, skipping", name)
			continue
		}

		history, err := src.History(name)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to read %s history: %w", name, err)
			}
			continue
		}

		_, n, err := bf.Backfill(ctx, history)
		added[name] = n
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to backfill %s: %w", name, err)
		}
	}

	return added, firstErr
}
