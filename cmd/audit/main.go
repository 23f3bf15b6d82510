package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/tair/commerce-core/internal/audit"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/config"
	"github.com/tair/commerce-core/pkg/logger"
	"github.com/tair/commerce-core/pkg/tracing"
)

func main() {
	cfg := config.Load("audit-service", "", "")

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Strs("brokers", cfg.KafkaBrokers).
		Str("group_id", cfg.KafkaGroupID).
		Msg("Starting audit consumer")

	// Initialize tracer
	tp, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, kafka.AllTopics)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka consumer")
	}
	defer consumer.Close()

	audit.Register(consumer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start Kafka consumer")
	}

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down audit consumer...")
}
