package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	cartdomain "github.com/tair/commerce-core/internal/cart/domain"
	"github.com/tair/commerce-core/internal/order"
	orderdomain "github.com/tair/commerce-core/internal/order/domain"
	productdomain "github.com/tair/commerce-core/internal/product/domain"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/auth"
	"github.com/tair/commerce-core/pkg/config"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/grpcserver"
	"github.com/tair/commerce-core/pkg/httpserver"
	"github.com/tair/commerce-core/pkg/logger"
	"github.com/tair/commerce-core/pkg/tracing"
)

func main() {
	cfg := config.Load("order-service", "8081", "9091")

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Msg("Starting order service")

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

	// Connect to database
	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	if err := migrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Logger.Info().Msg("Database initialized successfully")

	publisher := newPublisher(cfg)
	if closer, ok := publisher.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// Initialize handlers with Wire DI
	handlers, err := order.InitializeHandlers(db, cfg, publisher)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize handlers")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	middlewareConfig := httpserver.DefaultMiddlewareConfig(cfg.ServiceName)
	if redisClient := newRedisClient(ctx, cfg); redisClient != nil {
		defer redisClient.Close()
		middlewareConfig.RateLimiter = httpserver.NewRateLimiter(redisClient, cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	router := httpserver.NewRouter(middlewareConfig, sqlDB, handlers.Registrars()...)
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpcserver.New(grpcserver.Options{Validator: auth.NewTokenValidator(cfg.JWTSecret)})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Serve(ctx, httpServer) })
	g.Go(func() error { return grpcServer.Serve(ctx, cfg.GRPCPort) })
	g.Go(func() error {
		grpcServer.WatchDependency(ctx, sqlDB, 15*time.Second)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Logger.Error().Err(err).Msg("Server stopped with error")
	}
	logger.Logger.Info().Msg("Order service stopped")
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&productdomain.Product{},
		&cartdomain.CartItem{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
	)
}

func newPublisher(cfg *config.Config) kafka.EventPublisher {
	if !cfg.KafkaEnabled {
		logger.Logger.Info().Msg("Kafka disabled, domain events are dropped")
		return kafka.NopPublisher{}
	}

	publisher, err := kafka.NewPublisher(cfg.KafkaBrokers)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Kafka unavailable, domain events are dropped")
		return kafka.NopPublisher{}
	}
	return publisher
}

// newRedisClient returns nil when Redis is disabled or unreachable; requests are then
// not rate limited
func newRedisClient(ctx context.Context, cfg *config.Config) *redis.Client {
	if !cfg.RedisEnabled {
		return nil
	}

	client, err := database.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Redis unavailable, rate limiting disabled")
		return nil
	}
	return client
}
