package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/tair/commerce-core/internal/order/domain"
	"github.com/tair/commerce-core/internal/order/usecase/command"
	"github.com/tair/commerce-core/internal/order/usecase/query"
	"github.com/tair/commerce-core/pkg/httpserver"
	"github.com/tair/commerce-core/pkg/logger"
)

// OrderHandler handles HTTP requests for orders using CQRS pattern
type OrderHandler struct {
	// Command handlers
	createHandler        *command.CreateOrderHandler
	transitionHandler    *command.TransitionStatusHandler
	paymentStatusHandler *command.UpdatePaymentStatusHandler
	refundHandler        *command.RefundOrderHandler
	deleteHandler        *command.DeleteOrderHandler

	// Query handlers
	getHandler  *query.GetOrderHandler
	listHandler *query.ListOrdersHandler

	auth *httpserver.Authenticator
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(
	createHandler *command.CreateOrderHandler,
	transitionHandler *command.TransitionStatusHandler,
	paymentStatusHandler *command.UpdatePaymentStatusHandler,
	refundHandler *command.RefundOrderHandler,
	deleteHandler *command.DeleteOrderHandler,
	getHandler *query.GetOrderHandler,
	listHandler *query.ListOrdersHandler,
	auth *httpserver.Authenticator,
) *OrderHandler {
	return &OrderHandler{
		createHandler:        createHandler,
		transitionHandler:    transitionHandler,
		paymentStatusHandler: paymentStatusHandler,
		refundHandler:        refundHandler,
		deleteHandler:        deleteHandler,
		getHandler:           getHandler,
		listHandler:          listHandler,
		auth:                 auth,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/orders", h.auth.AuthMiddleware(h.ListOrders)).Methods(http.MethodGet)
	router.HandleFunc("/api/orders", h.auth.AuthMiddleware(h.CreateOrder)).Methods(http.MethodPost)
	router.HandleFunc("/api/orders/{id}", h.auth.AuthMiddleware(h.GetOrder)).Methods(http.MethodGet)
	router.HandleFunc("/api/orders/number/{number}", h.auth.AuthMiddleware(h.GetOrderByNumber)).Methods(http.MethodGet)

	router.HandleFunc("/api/orders/{id}/status", h.auth.AdminMiddleware(h.TransitionStatus)).Methods(http.MethodPatch)
	router.HandleFunc("/api/orders/{id}/payment-status", h.auth.AdminMiddleware(h.UpdatePaymentStatus)).Methods(http.MethodPatch)
	router.HandleFunc("/api/orders/{id}/refund", h.auth.AdminMiddleware(h.RefundOrder)).Methods(http.MethodPost)
	router.HandleFunc("/api/orders/{id}", h.auth.AdminMiddleware(h.DeleteOrder)).Methods(http.MethodDelete)
}

// ListOrders handles GET /api/orders. Customers only see their own orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := query.ListOrdersQuery{
		CustomerID: httpserver.QueryUint(r, "customer_id"),
		Limit:      httpserver.QueryInt(r, "limit", 10),
		Offset:     httpserver.QueryInt(r, "offset", 0),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.Status(s)
		q.Status = &status
	}
	if s := r.URL.Query().Get("payment_status"); s != "" {
		status := domain.PaymentStatus(s)
		q.PaymentStatus = &status
	}
	if !httpserver.IsAdmin(r.Context()) {
		actor := httpserver.ActorID(r.Context())
		q.CustomerID = &actor
	}

	result, err := h.listHandler.Handle(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "", result)
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httpserver.PathUint(r, "id")
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}
	h.respondOrder(w, r, query.GetOrderQuery{OrderID: id})
}

// GetOrderByNumber handles GET /api/orders/number/{number}
func (h *OrderHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	h.respondOrder(w, r, query.GetOrderQuery{OrderNumber: mux.Vars(r)["number"]})
}

func (h *OrderHandler) respondOrder(w http.ResponseWriter, r *http.Request, q query.GetOrderQuery) {
	view, err := h.getHandler.Handle(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !httpserver.IsAdmin(r.Context()) && view.CustomerID != httpserver.ActorID(r.Context()) {
		h.writeError(w, r, domain.ErrOrderNotFound)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "", view)
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AddressID *uint `json:"address_id"`
		Items     []struct {
			ProductID uint `json:"product_id"`
			Quantity  int  `json:"quantity"`
		} `json:"items"`
		PaymentMethod string  `json:"payment_method"`
		Notes         *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.CreateOrderCommand{
		CustomerID:    httpserver.ActorID(r.Context()),
		AddressID:     req.AddressID,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, command.CreateOrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.createHandler.Handle(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusCreated, "Order created", query.NewOrderView(order))
}

// TransitionStatus handles PATCH /api/orders/{id}/status
func (h *OrderHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httpserver.PathUint(r, "id")
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req struct {
		Status string  `json:"status"`
		Notes  *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.transitionHandler.Handle(r.Context(), command.TransitionStatusCommand{
		OrderID: id,
		Status:  domain.Status(req.Status),
		Notes:   req.Notes,
		ActorID: httpserver.ActorID(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "Order status updated", query.NewOrderView(order))
}

// UpdatePaymentStatus handles PATCH /api/orders/{id}/payment-status
func (h *OrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httpserver.PathUint(r, "id")
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.paymentStatusHandler.Handle(r.Context(), command.UpdatePaymentStatusCommand{
		OrderID:       id,
		PaymentStatus: domain.PaymentStatus(req.PaymentStatus),
		ActorID:       httpserver.ActorID(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "Payment status updated", query.NewOrderView(order))
}

// RefundOrder handles POST /api/orders/{id}/refund
func (h *OrderHandler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httpserver.PathUint(r, "id")
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req struct {
		Amount *decimal.Decimal `json:"amount"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpserver.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	order, err := h.refundHandler.Handle(r.Context(), command.RefundOrderCommand{
		OrderID: id,
		Amount:  req.Amount,
		ActorID: httpserver.ActorID(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "Order refunded", query.NewOrderView(order))
}

// DeleteOrder handles DELETE /api/orders/{id}
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httpserver.PathUint(r, "id")
	if !ok {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	err := h.deleteHandler.Handle(r.Context(), command.DeleteOrderCommand{
		OrderID: id,
		ActorID: httpserver.ActorID(r.Context()),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "Order deleted", nil)
}

// writeError maps business errors to 4xx with their message and hides everything else
func (h *OrderHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		httpserver.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotRefundable):
		httpserver.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httpserver.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(r.Context()).
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Order request failed")
		httpserver.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
