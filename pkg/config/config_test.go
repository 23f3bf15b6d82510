package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load("order-service", "8084", "9094")

	assert.Equal(t, "order-service", cfg.ServiceName)
	assert.Equal(t, "8084", cfg.HTTPPort)
	assert.Equal(t, "9094", cfg.GRPCPort)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "order-service", cfg.Tracing.ServiceName)
	assert.Equal(t, "http://localhost:14268/api/traces", cfg.Tracing.Endpoint)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("TRACE_SAMPLE_RATIO", "0.1")

	cfg := Load("inventory-service", "8082", "9092")

	assert.Equal(t, "9999", cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 0.1, cfg.Tracing.SampleRatio)
	assert.Equal(t, "production", cfg.Tracing.Environment)
}
