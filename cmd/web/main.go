package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"paysim/internal/config"
	"paysim/internal/handlers"
	"paysim/internal/helpers/logs"
	"paysim/internal/helpers/random"
	"paysim/internal/payment"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Error loading .env: %v", err)
	}
	cfg, err := config.LoadService()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		rdb     *redis.Client
		shipper *logs.StreamShipper
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   0,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Could not connect to Redis: %v", err)
		}
		shipper = logs.NewStreamShipper(rdb, logs.StreamConfig{Stream: cfg.RedisStream})
		shipper.Start(ctx)
	}

	logger, err := logs.NewLogger(logs.Options{Service: cfg.ServiceName, Level: cfg.LogLevel, Stream: shipper})
	if err != nil {
		log.Fatalf("Could not build logger: %v", err)
	}
	emitter := logs.NewEmitter(logger)

	sim := payment.NewSimulator(payment.Dependencies{
		Random:  random.New(cfg.RandomSeed),
		Emitter: emitter,
	})
	app := handlers.NewApp(&handlers.Handlers{
		Simulator: sim,
		Emitter:   emitter,
		Service:   cfg.ServiceName,
		Version:   cfg.Version,
	})

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		emitter.Info(ctx, "service_started", "Payment service listening",
			zap.String("port", cfg.Port),
			zap.Bool("seeded", cfg.RandomSeed != nil),
			zap.Bool("redis_stream", shipper != nil),
		)
		if err := app.Listen(":" + cfg.Port); err != nil {
			emitter.Error(ctx, "service_listen_failed", "Error starting server", zap.Error(err))
		}
	}()

	<-c
	emitter.Info(ctx, "service_stopping", "Shutting down payment service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer func() {
		if shipper != nil {
			shipper.Stop()
		}
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Printf("Error closing Redis client: %v", err)
			}
		}
		shutdownCancel()
		emitter.Sync()
	}()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		emitter.Error(ctx, "service_shutdown_failed", "Error during server shutdown", zap.Error(err))
	}
}
