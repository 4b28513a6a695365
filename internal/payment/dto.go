package payment

// Webhook statuses as the gateway sends them. "success" and "paid" are
// synonyms on the wire.
const (
	WebhookStatusPending = "pending"
	WebhookStatusSuccess = "success"
	WebhookStatusPaid    = "paid"
	WebhookStatusFailed  = "failed"
	WebhookStatusExpired = "expired"
)

// WebhookEvent is the parsed body of a gateway callback. It arrives as an
// opaque signed payload and must not be trusted before signature
// verification.
type WebhookEvent struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount,omitempty"`
	PaidAt        string `json:"paid_at,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// InitiatePaymentRequest carries everything needed to create a payment for
// a just-placed order.
type InitiatePaymentRequest struct {
	OrderID       string
	Amount        int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Description   string
	ReturnURL     string
}

// WebhookAck is the acknowledgement body returned to the gateway. Always
// 200 with Received true, even on processing errors, to suppress retry
// storms; the only non-200 is the signature rejection.
type WebhookAck struct {
	Received bool   `json:"received"`
	Error    string `json:"error,omitempty"`
}
