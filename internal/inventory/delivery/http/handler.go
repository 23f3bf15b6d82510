package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/tair/commerce-core/internal/inventory/domain"
	"github.com/tair/commerce-core/internal/inventory/usecase/command"
	"github.com/tair/commerce-core/internal/inventory/usecase/query"
	"github.com/tair/commerce-core/pkg/httpserver"
	"github.com/tair/commerce-core/pkg/logger"
)

// InventoryHandler handles HTTP requests for inventory and the stock ledger
type InventoryHandler struct {
	// Command handlers
	upsertHandler   *command.UpsertInventoryHandler
	adjustHandler   *command.AdjustStockHandler
	transferHandler *command.TransferStockHandler
	deleteHandler   *command.DeleteInventoryHandler
	resyncHandler   *command.ResyncProductStockHandler

	// Query handlers
	getHandler       *query.GetInventoryHandler
	listHandler      *query.ListInventoryHandler
	lowStockHandler  *query.ListLowStockHandler
	movementsHandler *query.ListMovementsHandler
	stockHandler     *query.GetProductStockHandler

	auth *httpserver.Authenticator
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(
	upsertHandler *command.UpsertInventoryHandler,
	adjustHandler *command.AdjustStockHandler,
	transferHandler *command.TransferStockHandler,
	deleteHandler *command.DeleteInventoryHandler,
	resyncHandler *command.ResyncProductStockHandler,
	getHandler *query.GetInventoryHandler,
	listHandler *query.ListInventoryHandler,
	lowStockHandler *query.ListLowStockHandler,
	movementsHandler *query.ListMovementsHandler,
	stockHandler *query.GetProductStockHandler,
	auth *httpserver.Authenticator,
) *InventoryHandler {
	return &InventoryHandler{
		upsertHandler:    upsertHandler,
		adjustHandler:    adjustHandler,
		transferHandler:  transferHandler,
		deleteHandler:    deleteHandler,
		resyncHandler:    resyncHandler,
		getHandler:       getHandler,
		listHandler:      listHandler,
		lowStockHandler:  lowStockHandler,
		movementsHandler: movementsHandler,
		stockHandler:     stockHandler,
		auth:             auth,
	}
}

// RegisterRoutes registers all inventory routes
func (h *InventoryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/inventory", h.auth.AuthMiddleware(h.ListInventory)).Methods(http.MethodGet)
	router.HandleFunc("/api/inventory", h.auth.AdminMiddleware(h.UpsertInventory)).Methods(http.MethodPost, http.MethodPut)
	router.HandleFunc("/api/inventory/low-stock", h.auth.AuthMiddleware(h.ListLowStock)).Methods(http.MethodGet)
	router.HandleFunc("/api/inventory/{id:[0-9]+}", h.auth.AuthMiddleware(h.GetInventory)).Methods(http.MethodGet)
	router.HandleFunc("/api/inventory/{id:[0-9]+}", h.auth.AdminMiddleware(h.DeleteInventory)).Methods(http.MethodDelete)
	router.HandleFunc("/api/inventory/{id:[0-9]+}/adjust", h.auth.AdminMiddleware(h.AdjustStock)).Methods(http.MethodPost)
	router.HandleFunc("/api/inventory/{id:[0-9]+}/transfer", h.auth.AdminMiddleware(h.TransferStock)).Methods(http.MethodPost)

	router.HandleFunc("/api/inventory/product/{product_id:[0-9]+}/stock", h.GetProductStock).Methods(http.MethodGet)
	router.HandleFunc("/api/inventory/product/{product_id:[0-9]+}/resync", h.auth.AdminMiddleware(h.ResyncProductStock)).Methods(http.MethodPost)

	router.HandleFunc("/api/stock-movements", h.auth.AdminMiddleware(h.ListMovements)).Methods(http.MethodGet)
}

// ListInventory handles GET /api/inventory
func (h *InventoryHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	result, err := h.listHandler.Handle(r.Context(), query.ListInventoryQuery{
		ProductID: httpserver.QueryUint(r, "product_id"),
		Location:  r.URL.Query().Get("location"),
		Limit:     httpserver.QueryInt(r, "limit", 10),
		Offset:    httpserver.QueryInt(r, "offset", 0),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "", result)
}

// ListLowStock handles GET /api/inventory/low-stock
func (h *InventoryHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	inventories, err := h.lowStockHandler.Handle(r.Context(), query.ListLowStockQuery{
		Limit:  httpserver.QueryInt(r, "limit", 10),
		Offset: httpserver.QueryInt(r, "offset", 0),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "", inventories)
}

// GetInventory handles GET /api/inventory/{id}
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := httpserver.PathUint(r, "id")
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid inventory ID")
		return
	}

	inventory, err := h.getHandler.Handle(r.Context(), query.GetInventoryQuery{ID: id})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "", inventory)
}

// UpsertInventory handles POST /api/inventory
func (h *InventoryHandler) UpsertInventory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID         uint             `json:"product_id"`
		Location          string           `json:"location"`
		Quantity          *int             `json:"quantity"`
		ReservedQuantity  *int             `json:"reserved_quantity"`
		LowStockThreshold *int             `json:"low_stock_threshold"`
		CostPrice         *decimal.Decimal `json:"cost_price"`
		BatchNumber       *string          `json:"batch_number"`
		ExpiryDate        *time.Time       `json:"expiry_date"`
		Notes             *string          `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.upsertHandler.Handle(r.Context(), command.UpsertInventoryCommand{
		ProductID:         req.ProductID,
		Location:          req.Location,
		Quantity:          req.Quantity,
		ReservedQuantity:  req.ReservedQuantity,
		LowStockThreshold: req.LowStockThreshold,
		CostPrice:         req.CostPrice,
		BatchNumber:       req.BatchNumber,
		ExpiryDate:        req.ExpiryDate,
		Notes:             req.Notes,
		ActorID:           httpserver.ActorID(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status, message := http.StatusOK, "Inventory updated"
	if result.Created {
		status, message = http.StatusCreated, "Inventory created"
	}
	httpserver.RespondData(w, status, message, result.Inventory)
}

// AdjustStock handles POST /api/inventory/{id}/adjust
func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := httpserver.PathUint(r, "id")
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid inventory ID")
		return
	}

	var req struct {
		Type          string           `json:"movement_type"`
		Quantity      int              `json:"quantity"`
		SetQuantity   *int             `json:"set_quantity"`
		ReferenceType *string          `json:"reference_type"`
		ReferenceID   *uint            `json:"reference_id"`
		CostPrice     *decimal.Decimal `json:"cost_price"`
		Reason        *string          `json:"reason"`
		Notes         *string          `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.adjustHandler.Handle(r.Context(), command.AdjustStockCommand{
		InventoryID: id,
		Type:        domain.MovementType(req.Type),
		Quantity:    req.Quantity,
		SetQuantity: req.SetQuantity,
		MovementContext: command.MovementContext{
			ReferenceType: req.ReferenceType,
			ReferenceID:   req.ReferenceID,
			CostPrice:     req.CostPrice,
			Reason:        req.Reason,
			Notes:         req.Notes,
			ActorID:       httpserver.ActorID(r.Context()),
		},
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "Stock adjusted", map[string]interface{}{
		"inventory":     result.Inventory,
		"movement":      result.Movement,
		"product_stock": result.ProductStock,
	})
}

// TransferStock handles POST /api/inventory/{id}/transfer
func (h *InventoryHandler) TransferStock(w http.ResponseWriter, r *http.Request) {
	id, ok := httpserver.PathUint(r, "id")
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid inventory ID")
		return
	}

	var req struct {
		ToLocation string  `json:"to_location"`
		Quantity   int     `json:"quantity"`
		Notes      *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.transferHandler.Handle(r.Context(), command.TransferStockCommand{
		InventoryID: id,
		ToLocation:  req.ToLocation,
		Quantity:    req.Quantity,
		Notes:       req.Notes,
		ActorID:     httpserver.ActorID(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "Stock transferred", map[string]interface{}{
		"source":      result.Source,
		"destination": result.Destination,
		"movements":   []*domain.StockMovement{result.SourceMovement, result.DestinationMovement},
	})
}

// DeleteInventory handles DELETE /api/inventory/{id}
func (h *InventoryHandler) DeleteInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := httpserver.PathUint(r, "id")
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid inventory ID")
		return
	}

	err := h.deleteHandler.Handle(r.Context(), command.DeleteInventoryCommand{
		InventoryID: id,
		ActorID:     httpserver.ActorID(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "Inventory deleted", nil)
}

// GetProductStock handles GET /api/inventory/product/{product_id}/stock
func (h *InventoryHandler) GetProductStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := httpserver.PathUint(r, "product_id")
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	view, err := h.stockHandler.Handle(r.Context(), query.GetProductStockQuery{ProductID: productID})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "", view)
}

// ResyncProductStock handles POST /api/inventory/product/{product_id}/resync
func (h *InventoryHandler) ResyncProductStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := httpserver.PathUint(r, "product_id")
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	result, err := h.resyncHandler.Handle(r.Context(), command.ResyncProductStockCommand{ProductID: productID})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "Product stock synced", result)
}

// ListMovements handles GET /api/stock-movements
func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := query.ListMovementsQuery{
		ProductID:   httpserver.QueryUint(r, "product_id"),
		InventoryID: httpserver.QueryUint(r, "inventory_id"),
		Location:    params.Get("location"),
		Limit:       httpserver.QueryInt(r, "limit", 10),
		Offset:      httpserver.QueryInt(r, "offset", 0),
	}
	if t := params.Get("movement_type"); t != "" {
		movementType := domain.MovementType(t)
		q.Type = &movementType
	}

	for name, target := range map[string]**time.Time{"from": &q.From, "to": &q.To} {
		raw := params.Get(name)
		if raw == "" {
			continue
		}
		parsed, err := parseDate(raw)
		if err != nil {
			httpserver.RespondError(w, http.StatusBadRequest, "Invalid "+name+" date")
			return
		}
		*target = &parsed
	}

	result, err := h.movementsHandler.Handle(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "", result)
}

// parseDate accepts RFC 3339 timestamps or plain dates
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// writeError maps business errors to 4xx with their message and hides everything else
func (h *InventoryHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInventoryNotFound):
		httpserver.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		httpserver.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httpserver.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(r.Context()).
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Inventory request failed")
		httpserver.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
