package order

import (
	"errors"

	ordermodel "github.com/Zura1555/ecommerce/internal/core/datamodel/order"
)

// ErrNotFound is returned when no order exists for a given order id.
// Webhook reconciliation treats it as an orphaned event, not a failure.
var ErrNotFound = errors.New("order not found")

// RepositoryAPI is the persistence contract for orders.
type RepositoryAPI interface {
	Create(o *ordermodel.Order) error
	GetByOrderID(orderID string) (*ordermodel.Order, error)
	PatchPayment(orderID string, patch ordermodel.PaymentPatch) error
}

// ServiceAPI is what the payment and checkout layers see of the order store.
type ServiceAPI interface {
	CreateOrder(o *ordermodel.Order) error
	GetByOrderID(orderID string) (*ordermodel.Order, error)
	ApplyPaymentPatch(orderID string, patch ordermodel.PaymentPatch) error
}
