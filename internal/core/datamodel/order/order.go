package order

import (
	"encoding/json"
	"time"
)

// Payment status of an order. Paid, failed and expired are terminal.
const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
	PaymentStatusExpired = "expired"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCancelled  = "cancelled"
)

type Order struct {
	ID            int64           `gorm:"primaryKey"`
	OrderID       string          `gorm:"column:order_id;not null;uniqueIndex"`
	CustomerName  string          `gorm:"column:customer_name;not null"`
	CustomerEmail string          `gorm:"column:customer_email;not null"`
	CustomerPhone *string         `gorm:"column:customer_phone"`
	AmountVND     int64           `gorm:"column:amount_vnd;not null"`
	Items         json.RawMessage `gorm:"column:items;type:jsonb"`
	PaymentStatus string          `gorm:"column:payment_status;default:unpaid"`
	Status        string          `gorm:"column:status;default:pending"`
	TransactionID *string         `gorm:"column:transaction_id"`
	FailedReason  *string         `gorm:"column:failed_reason"`
	PaidAt        *time.Time      `gorm:"column:paid_at"`
	CreatedAt     time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Order) TableName() string {
	return "orders"
}

// PaymentPatch carries the target values a reconciled webhook maps to.
// Updates are plain sets so redelivered events stay idempotent.
type PaymentPatch struct {
	PaymentStatus string
	Status        string
	TransactionID *string
	FailedReason  *string
	PaidAt        *time.Time
}

// IsTerminalPaymentStatus reports whether a payment status must not be
// overwritten by later webhook deliveries.
func IsTerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusExpired:
		return true
	}
	return false
}
