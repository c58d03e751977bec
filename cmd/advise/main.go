package main

import (
	"context"
	"os"
	"time"

	"cuacadesa/internal/config"
	"cuacadesa/internal/dashboard"
	"cuacadesa/internal/database"
	"cuacadesa/internal/forecast"
	"cuacadesa/internal/log"
	"cuacadesa/internal/stream"

	"github.com/go-redis/redis/v8"
)

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

	var redisClient *redis.Client
	var streamClient forecast.StreamClient
	if cfg.Forecast.Provider == config.ProviderRemote || cfg.Publish.Enabled {
		redisClient = stream.NewClient(config.GetRedisConfig())
		defer redisClient.Close()
		streamClient = redisClient
	}

	providers, err := forecast.Setup(cfg, streamClient)
	if err != nil {
		log.Fatalf("Failed to set up forecast providers: %v", err)
	}

	var publisher dashboard.Publisher
	if cfg.Publish.Enabled {
		publisher = stream.NewPublisher(redisClient, config.GetRedisConfig().Stream)
	}

	svc, err := dashboard.NewService(cfg, providers, publisher)
	if err != nil {
		log.Fatalf("Failed to create dashboard service: %v", err)
	}

	// Run once (the scheduler handles repetition)
	timeout := cfg.Forecast.Remote.Timeout + time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	d, err := svc.Build(ctx)
	if err != nil {
		log.Fatalf("Failed to build advisory: %v", err)
	}

	if err := dashboard.WriteReport(os.Stdout, d); err != nil {
		log.Errorf("Failed to print report: %v", err)
	}

	if cfg.Publish.Enabled {
		if _, err := svc.Publish(ctx, d); err != nil {
			log.Warnf("Advisory not published: %v", err)
		}
	}

	// With publishing enabled the archiver stores the advisory
	if cfg.Database.Enabled && !cfg.Publish.Enabled {
		db, err := database.NewDB(config.GetDatabaseDSN())
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		if err := db.Archive(dashboard.Message(d), ""); err != nil {
			log.Fatalf("Failed to store advisory: %v", err)
		}
	}

	log.Infof("Advisory run completed in %.1fs", time.Since(start).Seconds())
}
