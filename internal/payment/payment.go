package payment

import (
	"context"
	"encoding/json"
	"time"

	paymentmodel "github.com/Zura1555/ecommerce/internal/core/datamodel/payment"
	"github.com/Zura1555/ecommerce/internal/sepay"
)

// RepositoryAPI is the persistence contract for payment attempt records.
type RepositoryAPI interface {
	Create(p *paymentmodel.Payment) error
	GetByOrderID(orderID string) (*paymentmodel.Payment, error)
	UpdateStatus(id int64, status string, transactionID *string, gatewayResponse json.RawMessage, failureReason *string) error
	IncrementRetryCount(id int64) error
	ListStalePending(olderThan time.Time, limit int) ([]*paymentmodel.Payment, error)
}

// GatewayAPI is the slice of the Sepay client the payment service needs.
type GatewayAPI interface {
	CreatePayment(ctx context.Context, req *sepay.PaymentRequest) *sepay.PaymentResponse
}

// ServiceAPI is what handlers and the checkout flow see of payments.
type ServiceAPI interface {
	InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) *sepay.PaymentResponse
	RetryPayment(ctx context.Context, req *InitiatePaymentRequest) *sepay.PaymentResponse
	HandleWebhook(ctx context.Context, event *WebhookEvent) error
	GetPaymentByOrderID(orderID string) (*paymentmodel.Payment, error)
	ExpireStalePayments(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}
