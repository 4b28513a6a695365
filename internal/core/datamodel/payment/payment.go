package payment

import (
	"encoding/json"
	"time"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusExpired = "expired"
)

// Payment is the record of one outbound payment attempt against the
// gateway, keyed by the caller generated order id.
type Payment struct {
	ID              int64           `gorm:"primaryKey"`
	OrderID         string          `gorm:"column:order_id;not null;uniqueIndex"`
	AmountVND       int64           `gorm:"column:amount_vnd;not null"`
	Status          string          `gorm:"column:status;default:pending"`
	TransactionID   *string         `gorm:"column:transaction_id"`
	GatewayResponse json.RawMessage `gorm:"column:gateway_response;type:jsonb"`
	FailureReason   *string         `gorm:"column:failure_reason"`
	RetryCount      int             `gorm:"column:retry_count;default:0"`
	ProcessedAt     *time.Time      `gorm:"column:processed_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Payment) TableName() string {
	return "payments"
}
