package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tair/commerce-core/internal/payment/domain"
	"github.com/tair/commerce-core/pkg/config"
	"github.com/tair/commerce-core/pkg/logger"
	"github.com/tair/commerce-core/pkg/metrics"
)

var tracer = otel.Tracer("payment-gateway")

// Client talks to the payment gateway's REST API
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	httpClient *http.Client
	breaker    *CircuitBreaker
}

// NewClient creates a gateway client with a bounded timeout and a circuit breaker
func NewClient(cfg config.GatewayConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		currency:  cfg.Currency,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: NewCircuitBreaker("payment-gateway", cfg.MaxFailures, cfg.BreakerTimeout),
	}
}

// Currency returns the currency orders are registered in
func (c *Client) Currency() string {
	return c.currency
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder registers an order with the gateway. Network failures, timeouts,
// 5xx responses and an open circuit all map to ErrGatewayUnavailable.
func (c *Client) CreateOrder(ctx context.Context, req domain.CreateGatewayOrderRequest) (*domain.GatewayOrder, error) {
	ctx, span := tracer.Start(ctx, "gateway.CreateOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("gateway.receipt", req.Receipt),
		attribute.Int64("gateway.amount", req.Amount),
	)

	start := time.Now()
	var order domain.GatewayOrder
	err := c.breaker.Call(func() error {
		return c.post(ctx, "/orders", req, &order)
	}, isUnavailable)

	result := metrics.ResultSuccess
	switch {
	case errors.Is(err, ErrCircuitOpen):
		result = metrics.ResultRejected
		err = fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	case err != nil && isUnavailable(err):
		result = metrics.ResultError
	case err != nil:
		result = metrics.ResultRejected
	}
	metrics.GatewayRequestDuration.WithLabelValues("create_order", result).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error(ctx).
			Err(err).
			Str("receipt", req.Receipt).
			Msg("Gateway order registration failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("gateway.order_id", order.ID))
	return &order, nil
}

// VerifySignature checks a payment callback against the key secret
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) error {
	return VerifySignature(c.keySecret, gatewayOrderID, paymentID, signature)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", domain.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr errorResponse
		_ = json.Unmarshal(raw, &apiErr)
		description := apiErr.Error.Description
		if description == "" {
			description = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %s", domain.ErrGatewayRejected, description)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", domain.ErrGatewayUnavailable, err)
	}
	return nil
}

func isUnavailable(err error) bool {
	return errors.Is(err, domain.ErrGatewayUnavailable)
}
