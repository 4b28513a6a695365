package payment

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/Zura1555/ecommerce/internal/sepay"
	"github.com/Zura1555/ecommerce/internal/transport"
)

// WebhookHandler terminates the gateway's callback endpoint. Signature
// verification happens on the raw body before anything in it is trusted.
type WebhookHandler struct {
	*transport.BaseHandler
	paymentService ServiceAPI
	webhookSecret  string
	logger         *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI, webhookSecret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    baseHandler,
		paymentService: paymentService,
		webhookSecret:  webhookSecret,
		logger:         logger,
	}
}

// HandleWebhook processes POST callbacks from the gateway.
//
// Response contract: 401 on a bad signature, otherwise always 200 with a
// received acknowledgement even when processing fails, so the gateway does
// not retry into a persistent error.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		h.WriteJSON(w, http.StatusOK, WebhookAck{Received: true, Error: "Processing error"})
		return
	}

	signature := r.Header.Get(sepay.SignatureHeader)

	if h.webhookSecret == "" {
		// mock mode has no shared secret; this must never look like a
		// verified message in the logs
		h.logger.Warn("webhook signature verification skipped: no secret configured",
			"remote_addr", r.RemoteAddr)
	} else if !sepay.VerifyWebhook(body, signature, h.webhookSecret) {
		h.logger.Error("invalid webhook signature", "remote_addr", r.RemoteAddr)
		h.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Error("malformed webhook body", "error", err)
		h.WriteJSON(w, http.StatusOK, WebhookAck{Received: true, Error: "Processing error"})
		return
	}

	h.logger.Info("sepay webhook received",
		"order_id", event.OrderID,
		"status", event.Status,
		"transaction_id", event.TransactionID)

	if err := h.paymentService.HandleWebhook(r.Context(), &event); err != nil {
		h.logger.Error("webhook processing failed",
			"error", err,
			"order_id", event.OrderID,
			"status", event.Status)
		h.WriteJSON(w, http.StatusOK, WebhookAck{Received: true, Error: "Processing error"})
		return
	}

	h.WriteJSON(w, http.StatusOK, WebhookAck{Received: true})
}

// WebhookStatus serves GET probes of the webhook path. It never touches
// payment state.
func (h *WebhookHandler) WebhookStatus(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Sepay webhook endpoint",
		"status":  "active",
		"url":     "/api/v1/sepay/webhook",
	})
}
