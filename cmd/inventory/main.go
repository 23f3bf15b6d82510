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

	"github.com/tair/commerce-core/internal/inventory"
	"github.com/tair/commerce-core/internal/inventory/cache"
	"github.com/tair/commerce-core/internal/inventory/domain"
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
	cfg := config.Load("inventory-service", "8082", "9092")

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Msg("Starting inventory service")

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := newPublisher(cfg)
	if closer, ok := publisher.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	redisClient := newRedisClient(ctx, cfg)
	var stockCache domain.StockCache = cache.NopStockCache{}
	middlewareConfig := httpserver.DefaultMiddlewareConfig(cfg.ServiceName)
	if redisClient != nil {
		defer redisClient.Close()
		stockCache = cache.NewRedisStockCache(redisClient, cfg.StockCacheTTL)
		middlewareConfig.RateLimiter = httpserver.NewRateLimiter(redisClient, cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	// Initialize handler with Wire DI
	handler, err := inventory.InitializeHTTPHandler(db, cfg, publisher, stockCache)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize handler")
	}

	router := httpserver.NewRouter(middlewareConfig, sqlDB, handler)
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
	logger.Logger.Info().Msg("Inventory service stopped")
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&productdomain.Product{},
		&domain.Inventory{},
		&domain.StockMovement{},
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

// newRedisClient returns nil when Redis is disabled or unreachable; the service then
// runs without stock cache and rate limiting
func newRedisClient(ctx context.Context, cfg *config.Config) *redis.Client {
	if !cfg.RedisEnabled {
		return nil
	}

	client, err := database.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Redis unavailable, stock cache and rate limiting disabled")
		return nil
	}

	logger.Logger.Info().
		Str("addr", cfg.RedisAddr).
		Dur("stock_cache_ttl", cfg.StockCacheTTL).
		Msg("Redis connected")
	return client
}
