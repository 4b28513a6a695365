package checkout_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Zura1555/ecommerce/internal/cart"
	"github.com/Zura1555/ecommerce/internal/checkout"
	ordermodel "github.com/Zura1555/ecommerce/internal/core/datamodel/order"
	paymentmodel "github.com/Zura1555/ecommerce/internal/core/datamodel/payment"
	"github.com/Zura1555/ecommerce/internal/sepay"
	"github.com/Zura1555/ecommerce/internal/transport"
)

var _ = Describe("CheckoutHandler", func() {
	var (
		router       *chi.Mux
		mockOrders   *mockOrderService
		mockPayments *mockPaymentService
	)

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
		issuer := checkout.NewOrderTokenIssuer(tokenSecret, time.Hour)
		service := checkout.NewService(mockOrders, mockPayments, issuer, logger)
		handler := checkout.NewHandler(transport.NewBaseHandler(logger), service, logger)

		router = chi.NewRouter()
		router.Post("/checkout", handler.Checkout)
		router.Get("/orders/{orderID}", handler.GetOrderStatus)
		router.Post("/orders/{orderID}/payment/retry", handler.RetryPayment)
	})

	checkoutBody := func() []byte {
		body, err := json.Marshal(checkout.CheckoutRequest{
			Items: []cart.Item{
				{ID: "vase-terra", ProductID: "vase-terra", Title: "Terracotta Vase", Price: 450000, Quantity: 1},
			},
			CustomerName:  "Nguyen Van A",
			CustomerEmail: "a@mail.com",
		})
		Expect(err).ToNot(HaveOccurred())
		return body
	}

	Describe("POST /checkout", func() {
		Context("when the request is valid", func() {
			It("should respond 201 with the order and token", func() {
				req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(checkoutBody()))
				recorder := httptest.NewRecorder()

				router.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusCreated))

				var resp checkout.CheckoutResponse
				Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.OrderID).To(HavePrefix("ORD-"))
				Expect(resp.AmountVND).To(Equal(int64(450000)))
				Expect(resp.OrderToken).ToNot(BeEmpty())
				Expect(resp.TransactionID).To(Equal("txn-001"))
			})
		})

		Context("when the body is not JSON", func() {
			It("should respond 400", func() {
				req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader([]byte("{not json")))
				recorder := httptest.NewRecorder()

				router.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			})
		})

		Context("when the cart is empty", func() {
			It("should respond 400", func() {
				body, _ := json.Marshal(checkout.CheckoutRequest{
					CustomerName:  "Nguyen Van A",
					CustomerEmail: "a@mail.com",
				})
				req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(body))
				recorder := httptest.NewRecorder()

				router.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			})
		})

		Context("when the gateway declines", func() {
			It("should respond 502", func() {
				mockPayments.response = &sepay.PaymentResponse{Success: false, Error: "gateway down"}

				req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(checkoutBody()))
				recorder := httptest.NewRecorder()

				router.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusBadGateway))
			})
		})
	})

	Describe("GET /orders/{orderID}", func() {
		var (
			orderID    string
			orderToken string
		)

		BeforeEach(func() {
			req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(checkoutBody()))
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusCreated))

			var resp checkout.CheckoutResponse
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			orderID = resp.OrderID
			orderToken = resp.OrderToken
		})

		Context("when the order token matches", func() {
			It("should return the order status", func() {
				req := httptest.NewRequest(http.MethodGet, "/orders/"+orderID, nil)
				req.Header.Set("Authorization", "Bearer "+orderToken)
				recorder := httptest.NewRecorder()

				router.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusOK))

				var resp checkout.OrderStatusResponse
				Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.OrderID).To(Equal(orderID))
				Expect(resp.PaymentStatus).To(Equal(ordermodel.PaymentStatusUnpaid))
			})
		})

		Context("when no token is provided", func() {
			It("should respond 401", func() {
				req := httptest.NewRequest(http.MethodGet, "/orders/"+orderID, nil)
				recorder := httptest.NewRecorder()

				router.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			})
		})

		Context("when the token belongs to a different order", func() {
			It("should respond 401", func() {
				issuer := checkout.NewOrderTokenIssuer(tokenSecret, time.Hour)
				otherToken, err := issuer.Issue("ORD-someone-else")
				Expect(err).ToNot(HaveOccurred())

				req := httptest.NewRequest(http.MethodGet, "/orders/"+orderID, nil)
				req.Header.Set("Authorization", "Bearer "+otherToken)
				recorder := httptest.NewRecorder()

				router.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			})
		})

		Context("when the order does not exist", func() {
			It("should respond 404 for a valid token with that subject", func() {
				issuer := checkout.NewOrderTokenIssuer(tokenSecret, time.Hour)
				token, err := issuer.Issue("ORD-missing")
				Expect(err).ToNot(HaveOccurred())

				req := httptest.NewRequest(http.MethodGet, "/orders/ORD-missing", nil)
				req.Header.Set("Authorization", "Bearer "+token)
				recorder := httptest.NewRecorder()

				router.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("POST /orders/{orderID}/payment/retry", func() {
		var (
			orderID    string
			orderToken string
		)

		BeforeEach(func() {
			req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(checkoutBody()))
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			Expect(recorder.Code).To(Equal(http.StatusCreated))

			var resp checkout.CheckoutResponse
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			orderID = resp.OrderID
			orderToken = resp.OrderToken

			reason := "gateway down"
			mockPayments.records = map[string]*paymentmodel.Payment{
				orderID: {
					ID:            1,
					OrderID:       orderID,
					AmountVND:     450000,
					Status:        paymentmodel.StatusFailed,
					FailureReason: &reason,
				},
			}
		})

		Context("when the order token matches", func() {
			It("should retry and return the new payment details", func() {
				req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/payment/retry", nil)
				req.Header.Set("Authorization", "Bearer "+orderToken)
				recorder := httptest.NewRecorder()

				router.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusOK))

				var resp checkout.RetryPaymentResponse
				Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.OrderID).To(Equal(orderID))
				Expect(resp.TransactionID).To(Equal("txn-001"))
				Expect(mockPayments.retries).To(HaveLen(1))
			})
		})

		Context("when no token is provided", func() {
			It("should respond 401 without retrying", func() {
				req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/payment/retry", nil)
				recorder := httptest.NewRecorder()

				router.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
				Expect(mockPayments.retries).To(BeEmpty())
			})
		})

		Context("when the order payment is already settled", func() {
			It("should respond 400 without retrying", func() {
				mockOrders.orders[orderID].PaymentStatus = ordermodel.PaymentStatusPaid

				req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/payment/retry", nil)
				req.Header.Set("Authorization", "Bearer "+orderToken)
				recorder := httptest.NewRecorder()

				router.ServeHTTP(recorder, req)

				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
				Expect(mockPayments.retries).To(BeEmpty())
			})
		})
	})
})
