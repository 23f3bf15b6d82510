package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	orderdomain "github.com/tair/commerce-core/internal/order/domain"
	"github.com/tair/commerce-core/internal/order/usecase/query"
	"github.com/tair/commerce-core/internal/payment/domain"
	"github.com/tair/commerce-core/internal/payment/usecase/command"
	"github.com/tair/commerce-core/pkg/httpserver"
	"github.com/tair/commerce-core/pkg/logger"
)

// PaymentHandler handles checkout and gateway callbacks
type PaymentHandler struct {
	createHandler *command.CreatePaymentOrderHandler
	verifyHandler *command.VerifyPaymentHandler
	failedHandler *command.PaymentFailedHandler
	auth          *httpserver.Authenticator
	keyID         string
}

// GatewayKeyID is the public key id handed to checkout clients
type GatewayKeyID string

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(
	createHandler *command.CreatePaymentOrderHandler,
	verifyHandler *command.VerifyPaymentHandler,
	failedHandler *command.PaymentFailedHandler,
	auth *httpserver.Authenticator,
	keyID GatewayKeyID,
) *PaymentHandler {
	return &PaymentHandler{
		createHandler: createHandler,
		verifyHandler: verifyHandler,
		failedHandler: failedHandler,
		auth:          auth,
		keyID:         string(keyID),
	}
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/checkout", h.auth.AuthMiddleware(h.Checkout)).Methods(http.MethodPost)
	router.HandleFunc("/api/payments/verify", h.auth.AuthMiddleware(h.VerifyPayment)).Methods(http.MethodPost)
	router.HandleFunc("/api/payments/failed", h.auth.AuthMiddleware(h.PaymentFailed)).Methods(http.MethodPost)
}

// Checkout handles POST /api/checkout
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AddressID     *uint   `json:"address_id"`
		PaymentMethod string  `json:"payment_method"`
		Notes         *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "razorpay"
	}

	result, err := h.createHandler.Handle(r.Context(), command.CreatePaymentOrderCommand{
		CustomerID:    httpserver.ActorID(r.Context()),
		AddressID:     req.AddressID,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpserver.RespondData(w, http.StatusCreated, "Checkout started", map[string]interface{}{
		"order":            query.NewOrderView(result.Order),
		"gateway_order_id": result.GatewayOrder.ID,
		"amount":           result.GatewayOrder.Amount,
		"currency":         result.GatewayOrder.Currency,
		"key_id":           h.keyID,
	})
}

// VerifyPayment handles POST /api/payments/verify
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GatewayOrderID   string `json:"razorpay_order_id"`
		GatewayPaymentID string `json:"razorpay_payment_id"`
		Signature        string `json:"razorpay_signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.verifyHandler.Handle(r.Context(), command.VerifyPaymentCommand{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpserver.RespondData(w, http.StatusOK, "Payment confirmed", query.NewOrderView(order))
}

// PaymentFailed handles POST /api/payments/failed
func (h *PaymentHandler) PaymentFailed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GatewayOrderID   string `json:"razorpay_order_id"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.failedHandler.Handle(r.Context(), command.PaymentFailedCommand{
		GatewayOrderID:   req.GatewayOrderID,
		ErrorDescription: req.ErrorDescription,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !result.Found {
		httpserver.RespondJSON(w, http.StatusOK, httpserver.Response{Success: false, Message: "Order not found"})
		return
	}
	httpserver.RespondData(w, http.StatusOK, "Payment failure recorded", query.NewOrderView(result.Order))
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		httpserver.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrValidation):
		httpserver.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSignatureVerificationFailed):
		httpserver.RespondError(w, http.StatusBadRequest, domain.ErrSignatureVerificationFailed.Error())
	case errors.Is(err, domain.ErrAlreadyPaid), errors.Is(err, domain.ErrPaymentClosed):
		httpserver.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrGatewayRejected):
		httpserver.RespondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrGatewayUnavailable):
		w.Header().Set("Retry-After", "30")
		httpserver.RespondError(w, http.StatusServiceUnavailable, "Payment gateway unavailable, please retry")
	default:
		logger.Error(r.Context()).
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Payment request failed")
		httpserver.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
