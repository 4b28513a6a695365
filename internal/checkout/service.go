package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errors "github.com/Zura1555/ecommerce/internal"
	"github.com/Zura1555/ecommerce/internal/cart"
	ordermodel "github.com/Zura1555/ecommerce/internal/core/datamodel/order"
	paymentmodel "github.com/Zura1555/ecommerce/internal/core/datamodel/payment"
	"github.com/Zura1555/ecommerce/internal/order"
	"github.com/Zura1555/ecommerce/internal/payment"
	"github.com/google/uuid"
)

// Service turns a validated cart into an order with an initiated payment.
type Service struct {
	orders   order.ServiceAPI
	payments payment.ServiceAPI
	tokens   *OrderTokenIssuer
	logger   *slog.Logger
}

func NewService(orders order.ServiceAPI, payments payment.ServiceAPI, tokens *OrderTokenIssuer, logger *slog.Logger) *Service {
	return &Service{
		orders:   orders,
		payments: payments,
		tokens:   tokens,
		logger:   logger,
	}
}

func generateOrderID() string {
	suffix := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

// Checkout creates the order and initiates its payment. A gateway failure
// is returned as a typed error the handler surfaces to the customer; it
// must never look like a placed order.
func (s *Service) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	total := cart.Total(req.Items)
	orderID := generateOrderID()

	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		return nil, errors.NewInternalError("failed to encode order items").WithCause(err)
	}

	var phone *string
	if req.CustomerPhone != "" {
		phone = &req.CustomerPhone
	}

	ord := &ordermodel.Order{
		OrderID:       orderID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: phone,
		AmountVND:     total,
		Items:         itemsJSON,
	}

	if err := s.orders.CreateOrder(ord); err != nil {
		return nil, errors.NewInternalError("failed to create order").WithCause(err)
	}

	description := req.Note
	if description == "" {
		description = fmt.Sprintf("Đơn hàng AKVA - %s", orderID)
	}

	resp := s.payments.InitiatePayment(ctx, &payment.InitiatePaymentRequest{
		OrderID:       orderID,
		Amount:        total,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Description:   description,
	})

	if !resp.Success {
		s.logger.Error("checkout payment initiation failed",
			"order_id", orderID,
			"error", resp.Error)
		return nil, errors.NewExternalError(resp.Error, errors.ErrCodePaymentFailed)
	}

	token, err := s.tokens.Issue(orderID)
	if err != nil {
		s.logger.Error("failed to issue order token", "error", err, "order_id", orderID)
		return nil, errors.NewInternalError("failed to issue order token").WithCause(err)
	}

	s.logger.Info("checkout completed",
		"order_id", orderID,
		"amount_vnd", total,
		"items", len(req.Items),
		"transaction_id", resp.TransactionID)

	return &CheckoutResponse{
		OrderID:       orderID,
		AmountVND:     total,
		PaymentURL:    resp.PaymentURL,
		QRCode:        resp.QRCode,
		BankAccount:   resp.BankAccount,
		TransactionID: resp.TransactionID,
		OrderToken:    token,
	}, nil
}

// RetryPayment re-attempts payment creation for an order whose previous
// attempt was declined at the gateway. Settled orders are refused; the
// webhook path will not transition them again either.
func (s *Service) RetryPayment(ctx context.Context, orderID string) (*RetryPaymentResponse, error) {
	ord, err := s.orders.GetByOrderID(orderID)
	if err != nil {
		if err == order.ErrNotFound {
			return nil, errors.NewNotFoundError("order not found", errors.ErrCodeOrderNotFound)
		}
		return nil, errors.NewInternalError("failed to load order").WithCause(err)
	}

	if ordermodel.IsTerminalPaymentStatus(ord.PaymentStatus) {
		return nil, errors.NewValidationError("payment for this order is already settled", errors.ErrCodeTerminalState)
	}

	record, err := s.payments.GetPaymentByOrderID(orderID)
	if err != nil {
		return nil, errors.NewNotFoundError("no payment attempt for this order", errors.ErrCodePaymentNotFound)
	}
	if record.Status != paymentmodel.StatusFailed {
		return nil, errors.NewValidationError("only failed payment attempts can be retried", errors.ErrCodeValidationFailed)
	}

	phone := ""
	if ord.CustomerPhone != nil {
		phone = *ord.CustomerPhone
	}

	resp := s.payments.RetryPayment(ctx, &payment.InitiatePaymentRequest{
		OrderID:       ord.OrderID,
		Amount:        ord.AmountVND,
		CustomerName:  ord.CustomerName,
		CustomerEmail: ord.CustomerEmail,
		CustomerPhone: phone,
		Description:   fmt.Sprintf("Đơn hàng AKVA - %s", ord.OrderID),
	})

	if !resp.Success {
		s.logger.Error("payment retry failed at gateway",
			"order_id", orderID,
			"error", resp.Error)
		return nil, errors.NewExternalError(resp.Error, errors.ErrCodePaymentFailed)
	}

	s.logger.Info("payment retried",
		"order_id", orderID,
		"transaction_id", resp.TransactionID)

	return &RetryPaymentResponse{
		OrderID:       ord.OrderID,
		AmountVND:     ord.AmountVND,
		PaymentURL:    resp.PaymentURL,
		QRCode:        resp.QRCode,
		BankAccount:   resp.BankAccount,
		TransactionID: resp.TransactionID,
	}, nil
}

// GetOrderStatus returns the payment view of an order for storefront
// polling.
func (s *Service) GetOrderStatus(orderID string) (*OrderStatusResponse, error) {
	ord, err := s.orders.GetByOrderID(orderID)
	if err != nil {
		if err == order.ErrNotFound {
			return nil, errors.NewNotFoundError("order not found", errors.ErrCodeOrderNotFound)
		}
		return nil, errors.NewInternalError("failed to load order").WithCause(err)
	}

	resp := &OrderStatusResponse{
		OrderID:       ord.OrderID,
		PaymentStatus: ord.PaymentStatus,
		Status:        ord.Status,
	}
	if ord.TransactionID != nil {
		resp.TransactionID = *ord.TransactionID
	}
	if ord.PaidAt != nil {
		resp.PaidAt = ord.PaidAt.UTC().Format(time.RFC3339)
	}
	if ord.FailedReason != nil {
		resp.FailedReason = *ord.FailedReason
	}

	return resp, nil
}

// VerifyOrderToken checks a bearer token grants access to orderID.
func (s *Service) VerifyOrderToken(tokenString, orderID string) error {
	subject, err := s.tokens.Verify(tokenString)
	if err != nil {
		return err
	}
	if subject != orderID {
		return errors.NewUnauthorizedError("order token does not match order", errors.ErrCodeInvalidOrderToken)
	}
	return nil
}
