package order

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Zura1555/ecommerce/internal/core/events"
)

// EventHandler reacts to payment outcomes. On a completed payment it hands
// the order off to fulfillment; today that hand-off is a structured log the
// fulfillment tooling tails.
type EventHandler struct {
	orders ServiceAPI
	logger *slog.Logger
}

func NewEventHandler(orders ServiceAPI, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		orders: orders,
		logger: logger,
	}
}

func (h *EventHandler) HandlePaymentCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(*events.PaymentCompletedEvent)
	if !ok {
		return fmt.Errorf("expected PaymentCompletedEvent, got %T", event)
	}

	ord, err := h.orders.GetByOrderID(completed.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s for fulfillment: %w", completed.OrderID, err)
	}

	h.logger.Info("order ready for fulfillment",
		"order_id", ord.OrderID,
		"customer_email", ord.CustomerEmail,
		"amount_vnd", ord.AmountVND,
		"transaction_id", completed.TransactionID,
		"event_id", completed.EventID())

	return nil
}

func (h *EventHandler) HandlePaymentFailed(ctx context.Context, event events.Event) error {
	failed, ok := event.(*events.PaymentFailedEvent)
	if !ok {
		return fmt.Errorf("expected PaymentFailedEvent, got %T", event)
	}

	h.logger.Warn("order payment failed",
		"order_id", failed.OrderID,
		"reason", failed.Reason,
		"event_id", failed.EventID())

	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentCompleted, h.HandlePaymentCompleted)
	eventBus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentFailed)

	h.logger.Info("order event handlers registered",
		"handlers", []string{events.EventTypePaymentCompleted, events.EventTypePaymentFailed})
}
