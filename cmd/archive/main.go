package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cuacadesa/internal/config"
	"cuacadesa/internal/database"
	"cuacadesa/internal/log"
	"cuacadesa/internal/stream"
)

const (
	consumerGroup = "advisory_archivers"
	consumerName  = "archiver-1"
)

func main() {
	env, err := config.GetEnv()
	log.Init(env.Debug)
	defer log.Sync()
	if err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	redisCfg := config.GetRedisConfig()
	redisClient := stream.NewClient(redisCfg)
	defer redisClient.Close()

	db, err := database.NewDB(config.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Infof("Shutting down archiver...")
		cancel()
	}()

	consumer := stream.NewConsumer(redisClient, redisCfg.Stream, consumerGroup, consumerName,
		func(_ context.Context, id string, msg *stream.AdvisoryMessage) error {
			if err := db.Archive(msg, id); err != nil {
				return err
			}
			status := "none"
			if msg.Insight != nil {
				status = msg.Insight.Status.Code
			}
			log.Infow("archived advisory", "id", id, "site", msg.Site, "status", status)
			return nil
		})

	log.Infof("Archiving advisories from stream %s. Press Ctrl+C to stop...", redisCfg.Stream)
	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("Archiver failed: %v", err)
	}

	handled, failures := consumer.Stats()
	log.Infof("Archiver stopped: %d archived, %d failed", handled, failures)
}
