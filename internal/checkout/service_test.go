package checkout_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/Zura1555/ecommerce/internal"
	"github.com/Zura1555/ecommerce/internal/cart"
	"github.com/Zura1555/ecommerce/internal/checkout"
	ordermodel "github.com/Zura1555/ecommerce/internal/core/datamodel/order"
	paymentmodel "github.com/Zura1555/ecommerce/internal/core/datamodel/payment"
	"github.com/Zura1555/ecommerce/internal/order"
	paymentPkg "github.com/Zura1555/ecommerce/internal/payment"
	"github.com/Zura1555/ecommerce/internal/sepay"
)

// Mock order service for checkout tests
type mockOrderService struct {
	orders      map[string]*ordermodel.Order
	createError error
}

func newMockOrderService() *mockOrderService {
	return &mockOrderService{orders: make(map[string]*ordermodel.Order)}
}

func (m *mockOrderService) CreateOrder(o *ordermodel.Order) error {
	if m.createError != nil {
		return m.createError
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = ordermodel.PaymentStatusUnpaid
	}
	if o.Status == "" {
		o.Status = ordermodel.StatusPending
	}
	m.orders[o.OrderID] = o
	return nil
}

func (m *mockOrderService) GetByOrderID(orderID string) (*ordermodel.Order, error) {
	o, exists := m.orders[orderID]
	if !exists {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderService) ApplyPaymentPatch(orderID string, patch ordermodel.PaymentPatch) error {
	return nil
}

// Mock payment service for checkout tests
type mockPaymentService struct {
	response *sepay.PaymentResponse
	requests []*paymentPkg.InitiatePaymentRequest
	retries  []*paymentPkg.InitiatePaymentRequest
	records  map[string]*paymentmodel.Payment
}

func (m *mockPaymentService) InitiatePayment(ctx context.Context, req *paymentPkg.InitiatePaymentRequest) *sepay.PaymentResponse {
	m.requests = append(m.requests, req)
	return m.response
}

func (m *mockPaymentService) RetryPayment(ctx context.Context, req *paymentPkg.InitiatePaymentRequest) *sepay.PaymentResponse {
	m.retries = append(m.retries, req)
	return m.response
}

func (m *mockPaymentService) HandleWebhook(ctx context.Context, event *paymentPkg.WebhookEvent) error {
	return nil
}

func (m *mockPaymentService) GetPaymentByOrderID(orderID string) (*paymentmodel.Payment, error) {
	if p, exists := m.records[orderID]; exists {
		return p, nil
	}
	return nil, order.ErrNotFound
}

func (m *mockPaymentService) ExpireStalePayments(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	return 0, nil
}

var _ = Describe("CheckoutService", func() {
	var (
		service      *checkout.Service
		mockOrders   *mockOrderService
		mockPayments *mockPaymentService
		issuer       *checkout.OrderTokenIssuer
	)

	validRequest := func() *checkout.CheckoutRequest {
		return &checkout.CheckoutRequest{
			Items: []cart.Item{
				{ID: "vase-terra", ProductID: "vase-terra", Title: "Terracotta Vase", Price: 450000, Quantity: 1},
				{ID: "bowl-ocean", ProductID: "bowl-ocean", Title: "Ocean Bowl", Price: 320000, Quantity: 2},
			},
			CustomerName:  "Nguyen Van A",
			CustomerEmail: "a@mail.com",
			CustomerPhone: "0901234567",
		}
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		mockOrders = newMockOrderService()
		mockPayments = &mockPaymentService{
			response: &sepay.PaymentResponse{
				Success:       true,
				PaymentURL:    "https://pay.sepay.vn/checkout/txn-001",
				TransactionID: "txn-001",
			},
		}
		issuer = checkout.NewOrderTokenIssuer(tokenSecret, time.Hour)
		service = checkout.NewService(mockOrders, mockPayments, issuer, logger)
	})

	Describe("Checkout", func() {
		Context("when the request is valid", func() {
			It("should create the order with the recomputed total", func() {
				resp, err := service.Checkout(context.Background(), validRequest())

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.AmountVND).To(Equal(int64(450000 + 2*320000)))

				created, err := mockOrders.GetByOrderID(resp.OrderID)
				Expect(err).ToNot(HaveOccurred())
				Expect(created.AmountVND).To(Equal(resp.AmountVND))
				Expect(created.PaymentStatus).To(Equal(ordermodel.PaymentStatusUnpaid))
				Expect(created.Items).ToNot(BeEmpty())
			})

			It("should generate an order id in the ORD-<millis>-<suffix> shape", func() {
				resp, err := service.Checkout(context.Background(), validRequest())

				Expect(err).ToNot(HaveOccurred())
				parts := strings.SplitN(resp.OrderID, "-", 3)
				Expect(parts).To(HaveLen(3))
				Expect(parts[0]).To(Equal("ORD"))
				Expect(parts[1]).ToNot(BeEmpty())
				Expect(parts[2]).ToNot(BeEmpty())
			})

			It("should pass the default Vietnamese description to the gateway", func() {
				resp, err := service.Checkout(context.Background(), validRequest())

				Expect(err).ToNot(HaveOccurred())
				Expect(mockPayments.requests).To(HaveLen(1))
				Expect(mockPayments.requests[0].Description).To(Equal("Đơn hàng AKVA - " + resp.OrderID))
			})

			It("should issue a token that grants access to exactly this order", func() {
				resp, err := service.Checkout(context.Background(), validRequest())
				Expect(err).ToNot(HaveOccurred())
				Expect(resp.OrderToken).ToNot(BeEmpty())

				Expect(service.VerifyOrderToken(resp.OrderToken, resp.OrderID)).To(Succeed())
				Expect(service.VerifyOrderToken(resp.OrderToken, "ORD-other")).ToNot(Succeed())
			})

			It("should surface the gateway payment details", func() {
				resp, err := service.Checkout(context.Background(), validRequest())

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.PaymentURL).To(Equal("https://pay.sepay.vn/checkout/txn-001"))
				Expect(resp.TransactionID).To(Equal("txn-001"))
			})
		})

		Context("when the cart is empty", func() {
			It("should reject with the empty cart code", func() {
				req := validRequest()
				req.Items = nil

				_, err := service.Checkout(context.Background(), req)

				Expect(err).To(HaveOccurred())
				appErr, ok := err.(*apperrors.AppError)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeEmptyCart))
				Expect(mockPayments.requests).To(BeEmpty())
			})
		})

		Context("when customer details are invalid", func() {
			It("should reject a missing name", func() {
				req := validRequest()
				req.CustomerName = ""

				_, err := service.Checkout(context.Background(), req)
				Expect(err).To(HaveOccurred())
			})

			It("should reject a malformed email", func() {
				req := validRequest()
				req.CustomerEmail = "not-an-email"

				_, err := service.Checkout(context.Background(), req)
				Expect(err).To(HaveOccurred())
			})

			It("should reject a non-positive item quantity", func() {
				req := validRequest()
				req.Items[0].Quantity = 0

				_, err := service.Checkout(context.Background(), req)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("when the gateway declines the payment", func() {
			It("should return a bad gateway error, not a placed order", func() {
				mockPayments.response = &sepay.PaymentResponse{
					Success: false,
					Error:   "amount below minimum",
				}

				resp, err := service.Checkout(context.Background(), validRequest())

				Expect(resp).To(BeNil())
				Expect(err).To(HaveOccurred())
				appErr, ok := err.(*apperrors.AppError)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodePaymentFailed))
				Expect(appErr.StatusCode).To(Equal(502))
				Expect(appErr.Message).To(ContainSubstring("amount below minimum"))
			})
		})
	})

	Describe("RetryPayment", func() {
		BeforeEach(func() {
			phone := "0901234567"
			mockOrders.orders["ORD-7"] = &ordermodel.Order{
				OrderID:       "ORD-7",
				CustomerName:  "Nguyen Van A",
				CustomerEmail: "a@mail.com",
				CustomerPhone: &phone,
				AmountVND:     450000,
				PaymentStatus: ordermodel.PaymentStatusUnpaid,
				Status:        ordermodel.StatusPending,
			}
			reason := "amount below minimum"
			mockPayments.records = map[string]*paymentmodel.Payment{
				"ORD-7": {
					ID:            1,
					OrderID:       "ORD-7",
					AmountVND:     450000,
					Status:        paymentmodel.StatusFailed,
					FailureReason: &reason,
				},
			}
		})

		Context("when the previous attempt failed at the gateway", func() {
			It("should retry with the order's details and surface the new payment", func() {
				resp, err := service.RetryPayment(context.Background(), "ORD-7")

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.OrderID).To(Equal("ORD-7"))
				Expect(resp.AmountVND).To(Equal(int64(450000)))
				Expect(resp.PaymentURL).To(Equal("https://pay.sepay.vn/checkout/txn-001"))
				Expect(resp.TransactionID).To(Equal("txn-001"))

				Expect(mockPayments.retries).To(HaveLen(1))
				Expect(mockPayments.retries[0].CustomerName).To(Equal("Nguyen Van A"))
				Expect(mockPayments.retries[0].CustomerPhone).To(Equal("0901234567"))
				Expect(mockPayments.retries[0].Description).To(Equal("Đơn hàng AKVA - ORD-7"))
			})
		})

		Context("when the order payment is already settled", func() {
			It("should refuse without retrying", func() {
				mockOrders.orders["ORD-7"].PaymentStatus = ordermodel.PaymentStatusPaid

				_, err := service.RetryPayment(context.Background(), "ORD-7")

				Expect(err).To(HaveOccurred())
				appErr, ok := err.(*apperrors.AppError)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeTerminalState))
				Expect(mockPayments.retries).To(BeEmpty())
			})
		})

		Context("when the payment attempt is still pending", func() {
			It("should refuse without retrying", func() {
				mockPayments.records["ORD-7"].Status = paymentmodel.StatusPending

				_, err := service.RetryPayment(context.Background(), "ORD-7")

				Expect(err).To(HaveOccurred())
				appErr, ok := err.(*apperrors.AppError)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeValidationFailed))
				Expect(mockPayments.retries).To(BeEmpty())
			})
		})

		Context("when there is no payment record", func() {
			It("should return a not found error", func() {
				delete(mockPayments.records, "ORD-7")

				_, err := service.RetryPayment(context.Background(), "ORD-7")

				Expect(err).To(HaveOccurred())
				appErr, ok := err.(*apperrors.AppError)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodePaymentNotFound))
				Expect(appErr.StatusCode).To(Equal(404))
			})
		})

		Context("when the order does not exist", func() {
			It("should return a not found error", func() {
				_, err := service.RetryPayment(context.Background(), "ORD-missing")

				Expect(err).To(HaveOccurred())
				appErr, ok := err.(*apperrors.AppError)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeOrderNotFound))
			})
		})

		Context("when the gateway declines again", func() {
			It("should return a bad gateway error", func() {
				mockPayments.response = &sepay.PaymentResponse{
					Success: false,
					Error:   "amount below minimum",
				}

				_, err := service.RetryPayment(context.Background(), "ORD-7")

				Expect(err).To(HaveOccurred())
				appErr, ok := err.(*apperrors.AppError)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodePaymentFailed))
				Expect(appErr.StatusCode).To(Equal(502))
			})
		})
	})

	Describe("GetOrderStatus", func() {
		Context("when the order exists", func() {
			It("should return its payment view", func() {
				txn := "txn-010"
				paidAt := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
				mockOrders.orders["ORD-10"] = &ordermodel.Order{
					OrderID:       "ORD-10",
					PaymentStatus: ordermodel.PaymentStatusPaid,
					Status:        ordermodel.StatusProcessing,
					TransactionID: &txn,
					PaidAt:        &paidAt,
				}

				resp, err := service.GetOrderStatus("ORD-10")

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.PaymentStatus).To(Equal(ordermodel.PaymentStatusPaid))
				Expect(resp.Status).To(Equal(ordermodel.StatusProcessing))
				Expect(resp.TransactionID).To(Equal("txn-010"))
				Expect(resp.PaidAt).To(Equal("2025-01-15T10:30:00Z"))
			})
		})

		Context("when the order does not exist", func() {
			It("should return a not found error", func() {
				_, err := service.GetOrderStatus("ORD-missing")

				Expect(err).To(HaveOccurred())
				appErr, ok := err.(*apperrors.AppError)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeOrderNotFound))
				Expect(appErr.StatusCode).To(Equal(404))
			})
		})
	})
})
