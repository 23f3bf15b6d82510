package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/commerce-core/internal/inventory/cache"
	"github.com/tair/commerce-core/internal/inventory/domain"
	"github.com/tair/commerce-core/internal/inventory/repository"
	"github.com/tair/commerce-core/internal/inventory/usecase/command"
	"github.com/tair/commerce-core/internal/inventory/usecase/query"
	productdomain "github.com/tair/commerce-core/internal/product/domain"
	productrepo "github.com/tair/commerce-core/internal/product/repository"
	"github.com/tair/commerce-core/kafka"
	"github.com/tair/commerce-core/pkg/auth"
	"github.com/tair/commerce-core/pkg/database"
	"github.com/tair/commerce-core/pkg/database/databasetest"
	"github.com/tair/commerce-core/pkg/httpserver"
)

type fixture struct {
	router    *mux.Router
	validator *auth.TokenValidator
	product   *productdomain.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.NewSQLite(t, &domain.Inventory{}, &domain.StockMovement{}, &productdomain.Product{})
	tx := database.NewGormTransactor(db)
	inventories := repository.NewGormInventoryRepository(db)
	movements := repository.NewGormMovementRepository(db)
	products := productrepo.NewGormProductRepository(db)
	stockCache := cache.NopStockCache{}
	publisher := kafka.NopPublisher{}

	product := &productdomain.Product{Name: "Lamp", SKU: "LAMP-1", Price: decimal.NewFromInt(30), TrackInventory: true}
	require.NoError(t, products.Create(t.Context(), product))

	resync := command.NewResyncProductStockHandler(tx, inventories, products, stockCache)
	validator := auth.NewTokenValidator("secret")
	handler := NewInventoryHandler(
		command.NewUpsertInventoryHandler(tx, inventories, movements, resync, publisher),
		command.NewAdjustStockHandler(tx, inventories, movements, resync, publisher),
		command.NewTransferStockHandler(tx, inventories, movements, resync, publisher),
		command.NewDeleteInventoryHandler(tx, inventories, movements, resync, publisher),
		resync,
		query.NewGetInventoryHandler(inventories),
		query.NewListInventoryHandler(inventories),
		query.NewListLowStockHandler(inventories),
		query.NewListMovementsHandler(movements),
		query.NewGetProductStockHandler(inventories, stockCache),
		httpserver.NewAuthenticator(validator),
	)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return &fixture{router: router, validator: validator, product: product}
}

func (f *fixture) do(t *testing.T, method, path, role string, body interface{}) (*httptest.ResponseRecorder, httpserver.Response) {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	req := httptest.NewRequest(method, path, &payload)
	if role != "" {
		tok, err := f.validator.GenerateToken(5, "operator", role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp httpserver.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestInventoryHandler_StockLifecycle(t *testing.T) {
	f := newFixture(t)

	rec, resp := f.do(t, http.MethodPost, "/api/inventory", "admin", map[string]interface{}{
		"product_id": f.product.ID, "location": "main", "quantity": 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)

	rec, resp = f.do(t, http.MethodPost, "/api/inventory/1/adjust", "admin", map[string]interface{}{
		"movement_type": "in", "quantity": 50, "reason": "restock",
	})
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	data := resp.Data.(map[string]interface{})
	assert.EqualValues(t, 150, data["product_stock"])

	rec, resp = f.do(t, http.MethodPost, "/api/inventory/1/adjust", "admin", map[string]interface{}{
		"movement_type": "out", "quantity": 200,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, resp.Error, "insufficient stock")

	rec, resp = f.do(t, http.MethodGet, "/api/stock-movements?product_id=1&movement_type=in", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := resp.Data.(map[string]interface{})
	assert.EqualValues(t, 2, page["total"])

	rec, resp = f.do(t, http.MethodGet, "/api/inventory/product/1/stock", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 150, resp.Data.(map[string]interface{})["available"])
}

func TestInventoryHandler_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		role   string
		body   interface{}
		status int
	}{
		{"list needs a token", http.MethodGet, "/api/inventory", "", nil, http.StatusUnauthorized},
		{"adjust needs admin", http.MethodPost, "/api/inventory/1/adjust", "customer", map[string]interface{}{"movement_type": "in", "quantity": 1}, http.StatusForbidden},
		{"unknown record", http.MethodGet, "/api/inventory/42", "customer", nil, http.StatusNotFound},
		{"bad movement type", http.MethodGet, "/api/stock-movements?movement_type=teleport", "admin", nil, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/api/stock-movements?from=yesterday", "admin", nil, http.StatusBadRequest},
		{"negative quantity", http.MethodPost, "/api/inventory", "admin", map[string]interface{}{"product_id": 1, "quantity": -1}, http.StatusBadRequest},
		{"delete unknown", http.MethodDelete, "/api/inventory/42", "admin", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := f.do(t, tt.method, tt.path, tt.role, tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
