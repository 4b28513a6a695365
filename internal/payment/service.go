package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	ordermodel "github.com/Zura1555/ecommerce/internal/core/datamodel/order"
	paymentmodel "github.com/Zura1555/ecommerce/internal/core/datamodel/payment"
	"github.com/Zura1555/ecommerce/internal/core/events"
	"github.com/Zura1555/ecommerce/internal/order"
	"github.com/Zura1555/ecommerce/internal/sepay"
)

// PaymentService owns payment reconciliation: creating payments against the
// gateway and mapping verified webhook events onto order state transitions.
type PaymentService struct {
	gateway    GatewayAPI
	repository RepositoryAPI
	orders     order.ServiceAPI
	eventBus   *events.EventBus
	logger     *slog.Logger
}

func NewPaymentService(gateway GatewayAPI, repository RepositoryAPI, orders order.ServiceAPI, eventBus *events.EventBus, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		gateway:    gateway,
		repository: repository,
		orders:     orders,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// InitiatePayment records a payment attempt and creates the payment at the
// gateway. Gateway failures come back as a typed response, never an error;
// the checkout flow surfaces them to the customer.
func (s *PaymentService) InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) *sepay.PaymentResponse {
	record := &paymentmodel.Payment{
		OrderID:   req.OrderID,
		AmountVND: req.Amount,
		Status:    paymentmodel.StatusPending,
	}

	if err := s.repository.Create(record); err != nil {
		s.logger.Error("failed to create payment record", "error", err, "order_id", req.OrderID)
		return &sepay.PaymentResponse{Success: false, Error: "failed to record payment attempt"}
	}

	resp := s.dispatchToGateway(ctx, record.ID, req)
	if !resp.Success {
		return resp
	}

	s.logger.Info("payment initiated",
		"order_id", req.OrderID,
		"amount_vnd", req.Amount,
		"transaction_id", resp.TransactionID)

	return resp
}

// RetryPayment re-runs gateway creation for an order whose previous attempt
// failed, reusing the existing payment record and counting the attempt.
func (s *PaymentService) RetryPayment(ctx context.Context, req *InitiatePaymentRequest) *sepay.PaymentResponse {
	record, err := s.repository.GetByOrderID(req.OrderID)
	if err != nil {
		s.logger.Error("no payment record to retry", "error", err, "order_id", req.OrderID)
		return &sepay.PaymentResponse{Success: false, Error: "no payment attempt to retry"}
	}

	if record.Status != paymentmodel.StatusFailed {
		s.logger.Warn("refusing retry of non-failed payment",
			"order_id", req.OrderID,
			"status", record.Status)
		return &sepay.PaymentResponse{Success: false, Error: fmt.Sprintf("payment is %s, only failed payments can be retried", record.Status)}
	}

	if err := s.repository.IncrementRetryCount(record.ID); err != nil {
		s.logger.Error("failed to increment retry count", "error", err, "order_id", req.OrderID)
	}

	s.logger.Info("retrying payment",
		"order_id", req.OrderID,
		"retry_count", record.RetryCount+1)

	resp := s.dispatchToGateway(ctx, record.ID, req)
	if !resp.Success {
		return resp
	}

	s.logger.Info("payment retried",
		"order_id", req.OrderID,
		"transaction_id", resp.TransactionID)

	return resp
}

// dispatchToGateway sends the create-payment request and records the outcome
// on the payment record. A declined attempt ends failed with the gateway's
// reason; an accepted one stays pending until the webhook settles it.
func (s *PaymentService) dispatchToGateway(ctx context.Context, recordID int64, req *InitiatePaymentRequest) *sepay.PaymentResponse {
	resp := s.gateway.CreatePayment(ctx, &sepay.PaymentRequest{
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Description:   req.Description,
		ReturnURL:     req.ReturnURL,
	})

	respJSON, _ := json.Marshal(resp)

	if !resp.Success {
		failureReason := resp.Error
		if err := s.repository.UpdateStatus(recordID, paymentmodel.StatusFailed, nil, respJSON, &failureReason); err != nil {
			s.logger.Error("failed to mark payment record failed", "error", err, "order_id", req.OrderID)
		}
		s.logger.Error("payment creation failed at gateway",
			"order_id", req.OrderID,
			"error", resp.Error)
		return resp
	}

	var transactionID *string
	if resp.TransactionID != "" {
		transactionID = &resp.TransactionID
	}

	// still pending: settlement arrives asynchronously via webhook
	if err := s.repository.UpdateStatus(recordID, paymentmodel.StatusPending, transactionID, respJSON, nil); err != nil {
		s.logger.Error("failed to store gateway response", "error", err, "order_id", req.OrderID)
	}

	return resp
}

// HandleWebhook reconciles a verified webhook event against the order
// store. Orphaned events, unknown statuses and already-terminal orders are
// logged and swallowed: the caller acknowledges them all the same. An error
// return means an internal processing failure and is also acknowledged
// upstream; it exists so callers can log and count it.
func (s *PaymentService) HandleWebhook(ctx context.Context, event *WebhookEvent) error {
	transition, ok := MapWebhookStatus(event.Status)
	if !ok {
		s.logger.Warn("unknown payment status in webhook",
			"order_id", event.OrderID,
			"status", event.Status)
		return nil
	}

	ord, err := s.orders.GetByOrderID(event.OrderID)
	if err != nil {
		if err == order.ErrNotFound {
			s.logger.Warn("webhook for unknown order, ignoring",
				"order_id", event.OrderID,
				"status", event.Status,
				"transaction_id", event.TransactionID)
			return nil
		}
		return fmt.Errorf("lookup order %s: %w", event.OrderID, err)
	}

	if ordermodel.IsTerminalPaymentStatus(ord.PaymentStatus) {
		if ord.PaymentStatus == transition.PaymentStatus {
			// duplicate delivery of the same terminal event: a no-op
			s.logger.Info("duplicate webhook for settled order, ignoring",
				"order_id", event.OrderID,
				"payment_status", ord.PaymentStatus)
			return nil
		}
		s.logger.Warn("refusing transition out of terminal payment state",
			"order_id", event.OrderID,
			"current", ord.PaymentStatus,
			"requested", transition.PaymentStatus)
		return nil
	}

	patch := s.buildPatch(transition, event)
	if err := s.orders.ApplyPaymentPatch(event.OrderID, patch); err != nil {
		return fmt.Errorf("apply payment patch: %w", err)
	}

	s.updatePaymentRecord(event, transition)
	s.publishTransitionEvent(ctx, event, transition)

	s.logger.Info("webhook reconciled",
		"order_id", event.OrderID,
		"payment_status", transition.PaymentStatus,
		"order_status", transition.OrderStatus,
		"transaction_id", event.TransactionID)

	return nil
}

func (s *PaymentService) buildPatch(transition Transition, event *WebhookEvent) ordermodel.PaymentPatch {
	patch := ordermodel.PaymentPatch{
		PaymentStatus: transition.PaymentStatus,
		Status:        transition.OrderStatus,
	}

	if event.TransactionID != "" {
		patch.TransactionID = &event.TransactionID
	}

	switch transition.PaymentStatus {
	case ordermodel.PaymentStatusPaid:
		paidAt := time.Now().UTC()
		if event.PaidAt != "" {
			if parsed, err := time.Parse(time.RFC3339, event.PaidAt); err == nil {
				paidAt = parsed
			}
		}
		patch.PaidAt = &paidAt
	case ordermodel.PaymentStatusFailed:
		if event.Reason != "" {
			patch.FailedReason = &event.Reason
		}
	}

	return patch
}

func (s *PaymentService) updatePaymentRecord(event *WebhookEvent, transition Transition) {
	record, err := s.repository.GetByOrderID(event.OrderID)
	if err != nil {
		s.logger.Warn("no payment record for webhook order",
			"order_id", event.OrderID,
			"error", err)
		return
	}

	eventJSON, _ := json.Marshal(event)

	var transactionID *string
	if event.TransactionID != "" {
		transactionID = &event.TransactionID
	}

	var failureReason *string
	if event.Reason != "" {
		failureReason = &event.Reason
	}

	if err := s.repository.UpdateStatus(record.ID, recordStatus(transition.PaymentStatus), transactionID, eventJSON, failureReason); err != nil {
		s.logger.Error("failed to update payment record from webhook",
			"error", err,
			"order_id", event.OrderID)
	}
}

func (s *PaymentService) publishTransitionEvent(ctx context.Context, event *WebhookEvent, transition Transition) {
	switch transition.PaymentStatus {
	case ordermodel.PaymentStatusPaid:
		completed := events.NewPaymentCompletedEvent(event.OrderID, event.TransactionID, event.Amount, event.PaidAt)
		s.eventBus.Publish(ctx, completed)
	case ordermodel.PaymentStatusFailed:
		failed := events.NewPaymentFailedEvent(event.OrderID, event.TransactionID, event.Amount, event.Reason)
		s.eventBus.Publish(ctx, failed)
	case ordermodel.PaymentStatusExpired:
		expired := events.NewPaymentExpiredEvent(event.OrderID)
		s.eventBus.Publish(ctx, expired)
	}
}

func (s *PaymentService) GetPaymentByOrderID(orderID string) (*paymentmodel.Payment, error) {
	return s.repository.GetByOrderID(orderID)
}

// ExpireStalePayments marks payment attempts still pending after olderThan
// as expired and cancels their orders through the same guarded transition
// path the webhook uses. The returned count covers orders actually
// cancelled; records force-expired without an order transition (orphans,
// guard refusals) are logged but not counted.
func (s *PaymentService) ExpireStalePayments(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	stale, err := s.repository.ListStalePending(cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("list stale pending payments: %w", err)
	}

	expired := 0
	forced := 0
	for _, record := range stale {
		event := &WebhookEvent{
			OrderID: record.OrderID,
			Status:  WebhookStatusExpired,
		}
		if record.TransactionID != nil {
			event.TransactionID = *record.TransactionID
		}

		if err := s.HandleWebhook(ctx, event); err != nil {
			s.logger.Error("failed to expire stale payment",
				"error", err,
				"order_id", record.OrderID)
			continue
		}

		// orphaned or guard-refused events leave the record pending and
		// the sweeper would pick it up again forever
		if fresh, err := s.repository.GetByOrderID(record.OrderID); err == nil && fresh.Status == paymentmodel.StatusPending {
			if err := s.repository.UpdateStatus(fresh.ID, paymentmodel.StatusExpired, nil, nil, nil); err != nil {
				s.logger.Error("failed to mark stale payment record expired",
					"error", err,
					"order_id", record.OrderID)
			}
			forced++
			continue
		}
		expired++
	}

	if expired > 0 || forced > 0 {
		s.logger.Info("expired stale pending payments",
			"orders_cancelled", expired,
			"records_force_expired", forced)
	}

	return expired, nil
}
