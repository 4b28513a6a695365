package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentExpired   = "payment.expired"
)

type PaymentCompletedEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	PaidAt        string `json:"paid_at,omitempty"`
}

func NewPaymentCompletedEvent(orderID, transactionID string, amount int64, paidAt string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":       orderID,
				"transaction_id": transactionID,
				"amount":         amount,
				"paid_at":        paidAt,
			},
		},
		OrderID:       orderID,
		TransactionID: transactionID,
		Amount:        amount,
		PaidAt:        paidAt,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason,omitempty"`
}

func NewPaymentFailedEvent(orderID, transactionID string, amount int64, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":       orderID,
				"transaction_id": transactionID,
				"amount":         amount,
				"reason":         reason,
			},
		},
		OrderID:       orderID,
		TransactionID: transactionID,
		Amount:        amount,
		Reason:        reason,
	}
}

type PaymentExpiredEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
}

func NewPaymentExpiredEvent(orderID string) *PaymentExpiredEvent {
	return &PaymentExpiredEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentExpired,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id": orderID,
			},
		},
		OrderID: orderID,
	}
}
