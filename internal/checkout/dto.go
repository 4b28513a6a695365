package checkout

import (
	errors "github.com/Zura1555/ecommerce/internal"
	"github.com/Zura1555/ecommerce/internal/cart"
	"github.com/Zura1555/ecommerce/internal/core/common/validation"
	"github.com/Zura1555/ecommerce/internal/sepay"
)

// CheckoutRequest is the storefront's place-order payload. The server
// recomputes the total from the items; a client supplied total is never
// trusted.
type CheckoutRequest struct {
	Items         []cart.Item `json:"items"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	Note          string      `json:"note,omitempty"`
}

func (r *CheckoutRequest) Validate() error {
	if len(r.Items) == 0 {
		return errors.NewValidationError("cart is empty", errors.ErrCodeEmptyCart)
	}

	validator := validation.NewValidator()

	validator.Field("customer_name", r.CustomerName).Required().MaxLength(120)
	validator.Field("customer_email", r.CustomerEmail).Required().Email()
	validator.Field("amount", cart.Total(r.Items)).Required().NonNegativeInt(errors.ErrCodeInvalidAmount)

	for _, item := range r.Items {
		if item.Quantity <= 0 {
			return errors.NewValidationError("item quantity must be positive", errors.ErrCodeValidationFailed)
		}
		if item.Price < 0 {
			return errors.NewValidationError("item price must not be negative", errors.ErrCodeInvalidAmount)
		}
	}

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CheckoutResponse struct {
	OrderID       string             `json:"order_id"`
	AmountVND     int64              `json:"amount_vnd"`
	PaymentURL    string             `json:"payment_url,omitempty"`
	QRCode        string             `json:"qr_code,omitempty"`
	BankAccount   *sepay.BankAccount `json:"bank_account,omitempty"`
	TransactionID string             `json:"transaction_id,omitempty"`
	OrderToken    string             `json:"order_token"`
}

// RetryPaymentResponse carries the fresh gateway details after a failed
// payment attempt is retried. No new order token is issued; the caller
// already holds one.
type RetryPaymentResponse struct {
	OrderID       string             `json:"order_id"`
	AmountVND     int64              `json:"amount_vnd"`
	PaymentURL    string             `json:"payment_url,omitempty"`
	QRCode        string             `json:"qr_code,omitempty"`
	BankAccount   *sepay.BankAccount `json:"bank_account,omitempty"`
	TransactionID string             `json:"transaction_id,omitempty"`
}

type OrderStatusResponse struct {
	OrderID       string `json:"order_id"`
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	PaidAt        string `json:"paid_at,omitempty"`
	FailedReason  string `json:"failed_reason,omitempty"`
}
