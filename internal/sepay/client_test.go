package sepay_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Zura1555/ecommerce/internal/sepay"
)

var _ = Describe("Client", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	})

	Describe("CreatePayment", func() {
		Context("when credentials are not configured", func() {
			It("should return a mock payment response without touching the network", func() {
				client := sepay.NewClient(sepay.Config{
					StoreDomain: "https://shop.example.com",
				}, logger)

				Expect(client.Configured()).To(BeFalse())

				resp := client.CreatePayment(context.Background(), &sepay.PaymentRequest{
					OrderID: "ORD-1700000000000-abc123",
					Amount:  450000,
				})

				Expect(resp.Success).To(BeTrue())
				Expect(resp.TransactionID).To(Equal("MOCK-ORD-1700000000000-abc123"))
				Expect(resp.PaymentURL).To(Equal("/orders/ORD-1700000000000-abc123?mock=true"))
				Expect(resp.BankAccount).ToNot(BeNil())
				Expect(resp.BankAccount.BankName).To(Equal("Vietcombank"))
				Expect(resp.BankAccount.AccountNumber).To(Equal("1234567890"))
				Expect(resp.BankAccount.AccountName).To(Equal("CONG TY DEMO"))
			})
		})

		Context("when the gateway accepts the payment", func() {
			It("should return the gateway payment details and send auth headers", func() {
				var gotAPIKey, gotSignature string
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					gotAPIKey = r.Header.Get("X-Api-Key")
					gotSignature = r.Header.Get("X-Signature")

					Expect(r.Method).To(Equal(http.MethodPost))
					Expect(r.URL.Path).To(Equal("/api/v1/payment"))

					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]interface{}{
						"payment_url":    "https://pay.sepay.vn/checkout/txn-001",
						"qr_code":        "https://pay.sepay.vn/qr/txn-001.png",
						"transaction_id": "txn-001",
					})
				}))
				defer server.Close()

				client := sepay.NewClient(sepay.Config{
					APIKey:      "api-key",
					SecretKey:   "secret-key",
					BaseURL:     server.URL,
					StoreDomain: "https://shop.example.com",
				}, logger)

				resp := client.CreatePayment(context.Background(), &sepay.PaymentRequest{
					OrderID:       "ORD-1",
					Amount:        450000,
					CustomerName:  "Nguyen Van A",
					CustomerEmail: "a@mail.com",
				})

				Expect(resp.Success).To(BeTrue())
				Expect(resp.TransactionID).To(Equal("txn-001"))
				Expect(resp.PaymentURL).To(Equal("https://pay.sepay.vn/checkout/txn-001"))
				Expect(gotAPIKey).To(Equal("api-key"))
				Expect(gotSignature).ToNot(BeEmpty())
			})
		})

		Context("when the gateway rejects the payment with a 4xx", func() {
			It("should surface the API message and not retry", func() {
				var calls int32
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(&calls, 1)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusBadRequest)
					json.NewEncoder(w).Encode(map[string]string{"message": "amount below minimum"})
				}))
				defer server.Close()

				client := sepay.NewClient(sepay.Config{
					APIKey:      "api-key",
					SecretKey:   "secret-key",
					BaseURL:     server.URL,
					StoreDomain: "https://shop.example.com",
				}, logger)

				resp := client.CreatePayment(context.Background(), &sepay.PaymentRequest{
					OrderID: "ORD-2",
					Amount:  100,
				})

				Expect(resp.Success).To(BeFalse())
				Expect(resp.Error).To(ContainSubstring("amount below minimum"))
				Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
			})
		})

		Context("when the gateway returns a 5xx on the first attempt", func() {
			It("should retry once and succeed", func() {
				var calls int32
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if atomic.AddInt32(&calls, 1) == 1 {
						w.WriteHeader(http.StatusBadGateway)
						return
					}
					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]interface{}{
						"payment_url":    "https://pay.sepay.vn/checkout/txn-002",
						"transaction_id": "txn-002",
					})
				}))
				defer server.Close()

				client := sepay.NewClient(sepay.Config{
					APIKey:       "api-key",
					SecretKey:    "secret-key",
					BaseURL:      server.URL,
					StoreDomain:  "https://shop.example.com",
					RetryBackoff: time.Millisecond,
				}, logger)

				resp := client.CreatePayment(context.Background(), &sepay.PaymentRequest{
					OrderID: "ORD-3",
					Amount:  450000,
				})

				Expect(resp.Success).To(BeTrue())
				Expect(resp.TransactionID).To(Equal("txn-002"))
				Expect(atomic.LoadInt32(&calls)).To(Equal(int32(2)))
			})

			It("should give up after the retry also fails", func() {
				var calls int32
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(&calls, 1)
					w.WriteHeader(http.StatusInternalServerError)
				}))
				defer server.Close()

				client := sepay.NewClient(sepay.Config{
					APIKey:       "api-key",
					SecretKey:    "secret-key",
					BaseURL:      server.URL,
					StoreDomain:  "https://shop.example.com",
					RetryBackoff: time.Millisecond,
				}, logger)

				resp := client.CreatePayment(context.Background(), &sepay.PaymentRequest{
					OrderID: "ORD-4",
					Amount:  450000,
				})

				Expect(resp.Success).To(BeFalse())
				Expect(resp.Error).To(ContainSubstring("500"))
				Expect(atomic.LoadInt32(&calls)).To(Equal(int32(2)))
			})
		})

		Context("when the context is cancelled during backoff", func() {
			It("should stop retrying and report the failure", func() {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusServiceUnavailable)
				}))
				defer server.Close()

				client := sepay.NewClient(sepay.Config{
					APIKey:       "api-key",
					SecretKey:    "secret-key",
					BaseURL:      server.URL,
					StoreDomain:  "https://shop.example.com",
					RetryBackoff: time.Minute,
				}, logger)

				ctx, cancel := context.WithCancel(context.Background())
				go func() {
					time.Sleep(10 * time.Millisecond)
					cancel()
				}()

				resp := client.CreatePayment(ctx, &sepay.PaymentRequest{
					OrderID: "ORD-5",
					Amount:  450000,
				})

				Expect(resp.Success).To(BeFalse())
				Expect(resp.Error).ToNot(BeEmpty())
			})
		})
	})

	Describe("GetPaymentStatus", func() {
		Context("when credentials are not configured", func() {
			It("should report pending without touching the network", func() {
				client := sepay.NewClient(sepay.Config{
					StoreDomain: "https://shop.example.com",
				}, logger)

				status, err := client.GetPaymentStatus(context.Background(), "MOCK-ORD-1")

				Expect(err).ToNot(HaveOccurred())
				Expect(status.Status).To(Equal("pending"))
			})
		})

		Context("when the gateway knows the transaction", func() {
			It("should return the gateway status", func() {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					Expect(r.URL.Path).To(Equal("/api/v1/payment/txn-001"))
					Expect(r.Header.Get("X-Api-Key")).To(Equal("api-key"))

					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]interface{}{
						"status":  "paid",
						"amount":  450000,
						"paid_at": "2025-01-15T10:30:00Z",
					})
				}))
				defer server.Close()

				client := sepay.NewClient(sepay.Config{
					APIKey:      "api-key",
					SecretKey:   "secret-key",
					BaseURL:     server.URL,
					StoreDomain: "https://shop.example.com",
				}, logger)

				status, err := client.GetPaymentStatus(context.Background(), "txn-001")

				Expect(err).ToNot(HaveOccurred())
				Expect(status.Status).To(Equal("paid"))
				Expect(status.Amount).To(Equal(int64(450000)))
				Expect(status.PaidAt).To(Equal("2025-01-15T10:30:00Z"))
			})
		})

		Context("when the gateway returns an error status", func() {
			It("should return an error", func() {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNotFound)
				}))
				defer server.Close()

				client := sepay.NewClient(sepay.Config{
					APIKey:      "api-key",
					SecretKey:   "secret-key",
					BaseURL:     server.URL,
					StoreDomain: "https://shop.example.com",
				}, logger)

				status, err := client.GetPaymentStatus(context.Background(), "txn-missing")

				Expect(err).To(HaveOccurred())
				Expect(status).To(BeNil())
				Expect(strings.Contains(err.Error(), "404")).To(BeTrue())
			})
		})
	})
})
