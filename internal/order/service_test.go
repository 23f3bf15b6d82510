package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	cartdomain "github.com/tair/commerce-core/internal/cart/domain"
	cartrepo "github.com/tair/commerce-core/internal/cart/repository"
	"github.com/tair/commerce-core/internal/order/domain"
	"github.com/tair/commerce-core/internal/payment/gateway"
	productdomain "github.com/tair/commerce-core/internal/product/domain"
	productrepo "github.com/tair/commerce-core/internal/product/repository"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/kafka/kafkatest"
	"github.com/tair/commerce-core/pkg/auth"
	"github.com/tair/commerce-core/pkg/config"
	"github.com/tair/commerce-core/pkg/database/databasetest"
	"github.com/tair/commerce-core/pkg/httpserver"
)

const (
	jwtSecret     = "jwt-secret"
	gatewayKey    = "rzp_test_key"
	gatewaySecret = "rzp_test_secret"
)

// gatewayStub imitates the gateway's order endpoint
type gatewayStub struct {
	mu       sync.Mutex
	status   int
	requests []map[string]interface{}
}

func (g *gatewayStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	g.requests = append(g.requests, body)

	if g.status != 0 {
		w.WriteHeader(g.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":       fmt.Sprintf("order_T%d", len(g.requests)),
		"amount":   body["amount"],
		"currency": body["currency"],
		"receipt":  body["receipt"],
		"status":   "created",
	})
}

type service struct {
	db        *gorm.DB
	router    *mux.Router
	validator *auth.TokenValidator
	gateway   *gatewayStub
	events    *kafkatest.Recorder
}

func newService(t *testing.T) *service {
	t.Helper()
	db := databasetest.NewSQLite(t,
		&domain.Order{}, &domain.OrderItem{}, &productdomain.Product{}, &cartdomain.CartItem{})

	stub := &gatewayStub{}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		JWTSecret: jwtSecret,
		Gateway: config.GatewayConfig{
			BaseURL:        srv.URL,
			KeyID:          gatewayKey,
			KeySecret:      gatewaySecret,
			Currency:       "INR",
			Timeout:        2 * time.Second,
			MaxFailures:    5,
			BreakerTimeout: time.Minute,
		},
	}
	events := &kafkatest.Recorder{}
	handlers, err := InitializeHandlers(db, cfg, events)
	require.NoError(t, err)

	router := mux.NewRouter()
	for _, r := range handlers.Registrars() {
		r.RegisterRoutes(router)
	}

	return &service{
		db:        db,
		router:    router,
		validator: auth.NewTokenValidator(jwtSecret),
		gateway:   stub,
		events:    events,
	}
}

// fillCart gives customer one line priced from the cart and one priced from the catalog
func (s *service) fillCart(t *testing.T, customerID uint) {
	t.Helper()
	ctx := t.Context()
	products := productrepo.NewGormProductRepository(s.db)
	carts := cartrepo.NewGormCartRepository(s.db)

	mug := &productdomain.Product{Name: "Mug", SKU: fmt.Sprintf("MUG-%d", customerID), Price: decimal.RequireFromString("12.00")}
	require.NoError(t, products.Create(ctx, mug))
	require.NoError(t, carts.AddItem(ctx, &cartdomain.CartItem{
		CustomerID: customerID, ProductID: mug.ID, Quantity: 2,
	}))
	require.NoError(t, carts.AddItem(ctx, &cartdomain.CartItem{
		CustomerID: customerID, ProductID: 9001, Quantity: 1, Price: decimal.RequireFromString("26.50"),
	}))
}

func (s *service) do(t *testing.T, method, path string, userID uint, role string, body interface{}) (int, httpserver.Response) {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	req := httptest.NewRequest(method, path, &payload)
	req.ContentLength = int64(payload.Len())
	if userID != 0 {
		tok, err := s.validator.GenerateToken(userID, "user", role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp httpserver.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func dataField(t *testing.T, resp httpserver.Response, key string) interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "response data is %T", resp.Data)
	return data[key]
}

func TestOrderService_CheckoutToRefund(t *testing.T) {
	s := newService(t)
	s.fillCart(t, 7)

	code, resp := s.do(t, http.MethodPost, "/api/checkout", 7, "customer", map[string]interface{}{})
	require.Equal(t, http.StatusCreated, code, resp.Error)
	assert.Equal(t, "order_T1", dataField(t, resp, "gateway_order_id"))
	assert.Equal(t, gatewayKey, dataField(t, resp, "key_id"))
	assert.EqualValues(t, 5050, dataField(t, resp, "amount"))

	order := dataField(t, resp, "order").(map[string]interface{})
	orderID := uint(order["id"].(float64))
	assert.Equal(t, "50.50", order["total_amount"])
	assert.Equal(t, "pending", order["status"])
	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, order["order_number"])

	require.Len(t, s.gateway.requests, 1)
	assert.Equal(t, order["order_number"], s.gateway.requests[0]["receipt"])

	code, resp = s.do(t, http.MethodPost, "/api/payments/verify", 7, "customer", map[string]string{
		"razorpay_order_id":   "order_T1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  gateway.Sign(gatewaySecret, "order_T1", "pay_1"),
	})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, "confirmed", dataField(t, resp, "status"))
	assert.Equal(t, "paid", dataField(t, resp, "payment_status"))
	assert.Len(t, s.events.OfType(kafka.EventTypeOrderPaymentConfirmed), 1)

	var remaining int64
	require.NoError(t, s.db.Model(&cartdomain.CartItem{}).Where("customer_id = ?", 7).Count(&remaining).Error)
	assert.Zero(t, remaining)

	orderPath := fmt.Sprintf("/api/orders/%d", orderID)
	code, _ = s.do(t, http.MethodGet, orderPath, 7, "customer", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, orderPath, 8, "customer", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = s.do(t, http.MethodPatch, orderPath+"/status", 1, httpserver.RoleAdmin, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, resp.Error, "confirmed")

	for _, status := range []string{"processing", "shipped"} {
		code, resp = s.do(t, http.MethodPatch, orderPath+"/status", 1, httpserver.RoleAdmin, map[string]string{"status": status})
		require.Equal(t, http.StatusOK, code, resp.Error)
		assert.Equal(t, status, dataField(t, resp, "status"))
	}

	code, _ = s.do(t, http.MethodPost, orderPath+"/refund", 7, "customer", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.do(t, http.MethodPost, orderPath+"/refund", 1, httpserver.RoleAdmin, map[string]string{"amount": "500"})
	assert.Equal(t, http.StatusBadRequest, code, resp.Error)

	code, resp = s.do(t, http.MethodPost, orderPath+"/refund", 1, httpserver.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, "refunded", dataField(t, resp, "payment_status"))
	assert.Equal(t, "shipped", dataField(t, resp, "status"))
	assert.Equal(t, "50.50", dataField(t, resp, "refund_amount"))

	code, resp = s.do(t, http.MethodPost, orderPath+"/refund", 1, httpserver.RoleAdmin, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, resp.Error, "Cannot refund order with payment status: refunded")
}

func TestOrderService_BadSignatureCancelsOrder(t *testing.T) {
	s := newService(t)
	s.fillCart(t, 3)

	code, resp := s.do(t, http.MethodPost, "/api/checkout", 3, "customer", map[string]interface{}{})
	require.Equal(t, http.StatusCreated, code, resp.Error)

	code, resp = s.do(t, http.MethodPost, "/api/payments/verify", 3, "customer", map[string]string{
		"razorpay_order_id":   "order_T1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "forged",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "payment signature verification failed", resp.Error)

	var order domain.Order
	require.NoError(t, s.db.Where("gateway_order_id = ?", "order_T1").First(&order).Error)
	assert.Equal(t, domain.StatusCancelled, order.Status)
	assert.Equal(t, domain.PaymentFailed, order.PaymentStatus)

	var remaining int64
	require.NoError(t, s.db.Model(&cartdomain.CartItem{}).Where("customer_id = ?", 3).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}

func TestOrderService_GatewayOutage(t *testing.T) {
	s := newService(t)
	s.fillCart(t, 4)
	s.gateway.status = http.StatusBadGateway

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString("{}"))
	tok, err := s.validator.GenerateToken(4, "user", "customer", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var orders int64
	require.NoError(t, s.db.Model(&domain.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestOrderService_PaymentFailedUnknownOrder(t *testing.T) {
	s := newService(t)

	code, resp := s.do(t, http.MethodPost, "/api/payments/failed", 3, "customer", map[string]string{
		"razorpay_order_id": "order_missing",
		"error_description": "card declined",
	})
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Order not found", resp.Message)
}
