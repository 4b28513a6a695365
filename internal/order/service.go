package order

import (
	"fmt"
	"log/slog"

	ordermodel "github.com/Zura1555/ecommerce/internal/core/datamodel/order"
)

// Service wraps the order repository with logging. It intentionally has
// "set" semantics on patches: deciding whether a patch is allowed at all
// (terminal-state guard) belongs to the payment reconciliation layer.
type Service struct {
	repository RepositoryAPI
	logger     *slog.Logger
}

func NewService(repository RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		logger:     logger,
	}
}

func (s *Service) CreateOrder(o *ordermodel.Order) error {
	if o.PaymentStatus == "" {
		o.PaymentStatus = ordermodel.PaymentStatusUnpaid
	}
	if o.Status == "" {
		o.Status = ordermodel.StatusPending
	}

	if err := s.repository.Create(o); err != nil {
		s.logger.Error("failed to create order", "error", err, "order_id", o.OrderID)
		return fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("order created",
		"order_id", o.OrderID,
		"amount_vnd", o.AmountVND,
		"customer_email", o.CustomerEmail)
	return nil
}

func (s *Service) GetByOrderID(orderID string) (*ordermodel.Order, error) {
	return s.repository.GetByOrderID(orderID)
}

func (s *Service) ApplyPaymentPatch(orderID string, patch ordermodel.PaymentPatch) error {
	if err := s.repository.PatchPayment(orderID, patch); err != nil {
		s.logger.Error("failed to patch order payment state",
			"error", err,
			"order_id", orderID,
			"payment_status", patch.PaymentStatus)
		return fmt.Errorf("patch order %s: %w", orderID, err)
	}

	s.logger.Info("order payment state updated",
		"order_id", orderID,
		"payment_status", patch.PaymentStatus,
		"status", patch.Status)
	return nil
}
