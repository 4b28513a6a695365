package checkout

import (
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/Zura1555/ecommerce/internal"
	"github.com/Zura1555/ecommerce/internal/transport"
	"github.com/Zura1555/ecommerce/pkg/logger"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	service *Service
	logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		service:     service,
		logger:      logger,
	}
}

// Checkout handles POST /api/v1/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Checkout: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.service.Checkout(r.Context(), &req)
	if err != nil {
		h.logger.Error("Checkout: service error", "error", err)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

// GetOrderStatus handles GET /api/v1/orders/{orderID}. Access requires the
// order token issued at checkout.
func (h *Handler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.HandleError(w, errors.NewUnauthorizedError("order token required", errors.ErrCodeInvalidOrderToken))
		return
	}

	if err := h.service.VerifyOrderToken(token, orderID); err != nil {
		logger.From(r.Context()).Warn("GetOrderStatus: token rejected", "order_id", orderID, "error", err)
		h.HandleError(w, err)
		return
	}

	// the verified order id is the caller's identity for the rest of the request
	ctx := errors.ContextWithOrderID(r.Context(), orderID)

	resp, err := h.service.GetOrderStatus(errors.OrderIDFromContext(ctx))
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// RetryPayment handles POST /api/v1/orders/{orderID}/payment/retry. The
// same order token that grants status polling grants the retry.
func (h *Handler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.HandleError(w, errors.NewUnauthorizedError("order token required", errors.ErrCodeInvalidOrderToken))
		return
	}

	if err := h.service.VerifyOrderToken(token, orderID); err != nil {
		logger.From(r.Context()).Warn("RetryPayment: token rejected", "order_id", orderID, "error", err)
		h.HandleError(w, err)
		return
	}

	resp, err := h.service.RetryPayment(r.Context(), orderID)
	if err != nil {
		h.logger.Error("RetryPayment: service error", "order_id", orderID, "error", err)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
