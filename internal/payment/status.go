package payment

import (
	ordermodel "github.com/Zura1555/ecommerce/internal/core/datamodel/order"
	paymentmodel "github.com/Zura1555/ecommerce/internal/core/datamodel/payment"
)

// Transition is the pair of target states a classified webhook maps an
// order to.
type Transition struct {
	PaymentStatus string
	OrderStatus   string
}

// MapWebhookStatus classifies a gateway status into an order transition.
// The second return is false for statuses this core does not recognize;
// those produce no transition and are only logged.
func MapWebhookStatus(status string) (Transition, bool) {
	switch status {
	case WebhookStatusSuccess, WebhookStatusPaid:
		return Transition{
			PaymentStatus: ordermodel.PaymentStatusPaid,
			OrderStatus:   ordermodel.StatusProcessing,
		}, true
	case WebhookStatusFailed:
		return Transition{
			PaymentStatus: ordermodel.PaymentStatusFailed,
			OrderStatus:   ordermodel.StatusCancelled,
		}, true
	case WebhookStatusExpired:
		return Transition{
			PaymentStatus: ordermodel.PaymentStatusExpired,
			OrderStatus:   ordermodel.StatusCancelled,
		}, true
	}
	return Transition{}, false
}

// recordStatus maps an order payment status onto the payment attempt
// record's status vocabulary.
func recordStatus(orderPaymentStatus string) string {
	switch orderPaymentStatus {
	case ordermodel.PaymentStatusPaid:
		return paymentmodel.StatusSuccess
	case ordermodel.PaymentStatusFailed:
		return paymentmodel.StatusFailed
	case ordermodel.PaymentStatusExpired:
		return paymentmodel.StatusExpired
	}
	return paymentmodel.StatusPending
}
