package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/tracing"
)

// Config holds the settings shared by every service binary
type Config struct {
	ServiceName string
	Environment string
	LogLevel    string

	HTTPPort string
	GRPCPort string

	Database database.Config
	Tracing  tracing.Config

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaGroupID string

	RedisEnabled  bool
	RedisAddr     string
	RedisDB       int
	StockCacheTTL time.Duration

	// RateLimitRequests per client IP and RateLimitWindow; applied when Redis is enabled
	RateLimitRequests int
	RateLimitWindow   time.Duration

	JWTSecret string

	Gateway GatewayConfig
}

// GatewayConfig configures the external payment gateway client
type GatewayConfig struct {
	BaseURL        string
	KeyID          string
	KeySecret      string
	Currency       string
	Timeout        time.Duration
	MaxFailures    int
	BreakerTimeout time.Duration
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads configuration from the environment, applying per-service defaults
func Load(serviceName, defaultHTTPPort, defaultGRPCPort string) *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("OTEL_SERVICE_NAME", serviceName)
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_PORT", defaultHTTPPort)
	v.SetDefault("GRPC_PORT", defaultGRPCPort)

	v.SetDefault("JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
	v.SetDefault("TRACE_SAMPLE_RATIO", 1.0)
	v.SetDefault("SERVICE_VERSION", "1.0.0")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "commercedb")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute)

	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_ID", serviceName)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("STOCK_CACHE_TTL", 10*time.Minute)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)

	v.SetDefault("JWT_SECRET", "change-me")

	v.SetDefault("GATEWAY_BASE_URL", "https://api.razorpay.com/v1")
	v.SetDefault("GATEWAY_CURRENCY", "INR")
	v.SetDefault("GATEWAY_TIMEOUT", 10*time.Second)
	v.SetDefault("GATEWAY_MAX_FAILURES", 5)
	v.SetDefault("GATEWAY_BREAKER_TIMEOUT", 30*time.Second)

	return &Config{
		ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTPPort:    v.GetString("HTTP_PORT"),
		GRPCPort:    v.GetString("GRPC_PORT"),
		Database: database.Config{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Tracing: tracing.Config{
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			ServiceVersion: v.GetString("SERVICE_VERSION"),
			Environment:    v.GetString("ENVIRONMENT"),
			Endpoint:       v.GetString("JAEGER_ENDPOINT"),
			SampleRatio:    v.GetFloat64("TRACE_SAMPLE_RATIO"),
		},
		KafkaEnabled:      v.GetBool("KAFKA_ENABLED"),
		KafkaBrokers:      splitList(v.GetString("KAFKA_BROKERS")),
		KafkaGroupID:      v.GetString("KAFKA_GROUP_ID"),
		RedisEnabled:      v.GetBool("REDIS_ENABLED"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisDB:           v.GetInt("REDIS_DB"),
		StockCacheTTL:     v.GetDuration("STOCK_CACHE_TTL"),
		RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		Gateway: GatewayConfig{
			BaseURL:        v.GetString("GATEWAY_BASE_URL"),
			KeyID:          v.GetString("GATEWAY_KEY_ID"),
			KeySecret:      v.GetString("GATEWAY_KEY_SECRET"),
			Currency:       v.GetString("GATEWAY_CURRENCY"),
			Timeout:        v.GetDuration("GATEWAY_TIMEOUT"),
			MaxFailures:    v.GetInt("GATEWAY_MAX_FAILURES"),
			BreakerTimeout: v.GetDuration("GATEWAY_BREAKER_TIMEOUT"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
