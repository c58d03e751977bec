package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cuacadesa/internal/config"
	"cuacadesa/internal/dashboard"
	"cuacadesa/internal/database"
	"cuacadesa/internal/forecast"
	"cuacadesa/internal/log"
	"cuacadesa/internal/server"
	"cuacadesa/internal/stream"
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
	if cfg.Log.Debug && !env.Debug {
		log.Init(true)
	}

	// Advisories are published by cmd/advise; the server only needs redis
	// to reach the model worker
	var streamClient forecast.StreamClient
	if cfg.Forecast.Provider == config.ProviderRemote {
		redisClient := stream.NewClient(config.GetRedisConfig())
		defer redisClient.Close()
		streamClient = redisClient
	}
	providers, err := forecast.Setup(cfg, streamClient)
	if err != nil {
		log.Fatalf("Failed to set up forecast providers: %v", err)
	}

	svc, err := dashboard.NewService(cfg, providers, nil)
	if err != nil {
		log.Fatalf("Failed to create dashboard service: %v", err)
	}

	var store server.AdvisoryStore
	if cfg.Database.Enabled {
		db, err := database.NewDB(config.GetDatabaseDSN())
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		store = db
	}

	httpServer := server.NewServer(svc, store, server.Options{
		Site:      cfg.Site.Name,
		Precision: cfg.Precision(),
		RateLimit: cfg.Server.RateLimit,
		Burst:     cfg.Server.Burst,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Infof("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Errorf("Shutdown failed: %v", err)
		}
	}()

	log.Infow("starting server", "addr", cfg.Server.Addr, "site", cfg.Site.Name, "provider", cfg.Forecast.Provider)
	if err := httpServer.Start(cfg.Server.Addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Infof("Server stopped")
}
