package sepay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	sandboxBaseURL    = "https://sandbox.sepay.vn"
	productionBaseURL = "https://api.sepay.vn"

	// MockTransactionPrefix marks transaction ids issued by the
	// development fallback when no credentials are configured.
	MockTransactionPrefix = "MOCK-"
)

// PaymentRequest is an outbound payment creation request. Immutable once
// sent; the order id is caller generated and unique.
type PaymentRequest struct {
	OrderID       string
	Amount        int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Description   string
	ReturnURL     string
}

type BankAccount struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// PaymentResponse is the typed result of a payment creation attempt. All
// failures surface here; CreatePayment never returns an error.
type PaymentResponse struct {
	Success       bool         `json:"success"`
	PaymentURL    string       `json:"payment_url,omitempty"`
	QRCode        string       `json:"qr_code,omitempty"`
	BankAccount   *BankAccount `json:"bank_account,omitempty"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// PaymentStatus is the result of a gateway status query.
type PaymentStatus struct {
	Status string `json:"status"`
	Amount int64  `json:"amount,omitempty"`
	PaidAt string `json:"paid_at,omitempty"`
}

type Config struct {
	APIKey    string
	SecretKey string
	Sandbox   bool
	// BaseURL overrides the sandbox/production endpoint selection.
	BaseURL        string
	StoreDomain    string
	WebhookURL     string
	RequestTimeout time.Duration
	RetryBackoff   time.Duration
}

type Client struct {
	apiKey       string
	secretKey    string
	baseURL      string
	storeDomain  string
	webhookURL   string
	retryBackoff time.Duration
	timeout      time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	baseURL := productionBaseURL
	if config.Sandbox {
		baseURL = sandboxBaseURL
	}
	if config.BaseURL != "" {
		baseURL = config.BaseURL
	}

	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backoff := config.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	webhookURL := config.WebhookURL
	if webhookURL == "" {
		webhookURL = config.StoreDomain + "/api/v1/sepay/webhook"
	}

	return &Client{
		apiKey:       config.APIKey,
		secretKey:    config.SecretKey,
		baseURL:      baseURL,
		storeDomain:  config.StoreDomain,
		webhookURL:   webhookURL,
		retryBackoff: backoff,
		timeout:      timeout,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// Configured reports whether real gateway credentials are present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.secretKey != ""
}

// WebhookSecret returns the shared secret used to verify inbound webhooks.
// Empty when running without credentials.
func (c *Client) WebhookSecret() string {
	return c.secretKey
}

// CreatePayment creates a payment against the gateway. Failures never
// escape as errors: the caller always receives a typed response with either
// the success fields or Error populated.
//
// Without credentials it degrades to a deterministic mock response so the
// checkout flow stays usable in development. This path performs no network
// call and is logged loudly on every invocation.
func (c *Client) CreatePayment(ctx context.Context, req *PaymentRequest) *PaymentResponse {
	if !c.Configured() {
		c.logger.Warn("sepay credentials not configured, returning mock payment response",
			"order_id", req.OrderID,
			"amount", req.Amount)

		return &PaymentResponse{
			Success:    true,
			PaymentURL: fmt.Sprintf("/orders/%s?mock=true", req.OrderID),
			QRCode:     "https://via.placeholder.com/300x300?text=QR+Code",
			BankAccount: &BankAccount{
				BankName:      "Vietcombank",
				AccountNumber: "1234567890",
				AccountName:   "CONG TY DEMO",
			},
			TransactionID: MockTransactionPrefix + req.OrderID,
		}
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Đơn hàng #%s", req.OrderID)
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = fmt.Sprintf("%s/orders/%s", c.storeDomain, req.OrderID)
	}

	payload := map[string]interface{}{
		"order_id": req.OrderID,
		"amount":   req.Amount,
		"customer": map[string]string{
			"name":  req.CustomerName,
			"email": req.CustomerEmail,
			"phone": req.CustomerPhone,
		},
		"description": description,
		"return_url":  returnURL,
		"webhook_url": c.webhookURL,
	}

	signature, err := SignPayload(payload, c.secretKey)
	if err != nil {
		c.logger.Error("failed to sign payment payload", "error", err, "order_id", req.OrderID)
		return &PaymentResponse{Success: false, Error: "failed to sign payment request"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("failed to marshal payment payload", "error", err, "order_id", req.OrderID)
		return &PaymentResponse{Success: false, Error: "failed to encode payment request"}
	}

	resp, err := c.postPaymentWithRetry(ctx, body, signature, req.OrderID)
	if err != nil {
		c.logger.Error("sepay payment creation failed", "error", err, "order_id", req.OrderID)
		return &PaymentResponse{Success: false, Error: err.Error()}
	}

	return resp
}

// postPaymentWithRetry issues the create-payment call with a bounded timeout
// and a single retry with backoff on transport errors and 5xx responses.
func (c *Client) postPaymentWithRetry(ctx context.Context, body []byte, signature, orderID string) (*PaymentResponse, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying sepay payment creation",
				"order_id", orderID,
				"backoff", c.retryBackoff,
				"error", lastErr)
			select {
			case <-time.After(c.retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, retryable, err := c.postPayment(ctx, body, signature)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, lastErr
}

func (c *Client) postPayment(ctx context.Context, body []byte, signature string) (resp *PaymentResponse, retryable bool, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/api/v1/payment", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create payment request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Signature", signature)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("payment request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read payment response: %w", err)
	}

	if httpResp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("payment API returned status %d", httpResp.StatusCode)
	}

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return nil, false, fmt.Errorf("payment API error: %s", apiErr.Message)
		}
		return nil, false, fmt.Errorf("payment API returned status %d", httpResp.StatusCode)
	}

	var data struct {
		PaymentURL    string       `json:"payment_url"`
		QRCode        string       `json:"qr_code"`
		BankAccount   *BankAccount `json:"bank_account"`
		TransactionID string       `json:"transaction_id"`
	}
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, false, fmt.Errorf("decode payment response: %w", err)
	}

	c.logger.Info("sepay payment created",
		"transaction_id", data.TransactionID,
		"payment_url", data.PaymentURL)

	return &PaymentResponse{
		Success:       true,
		PaymentURL:    data.PaymentURL,
		QRCode:        data.QRCode,
		BankAccount:   data.BankAccount,
		TransactionID: data.TransactionID,
	}, false, nil
}

// GetPaymentStatus queries the gateway for the current status of a
// transaction. Without credentials the status is reported as pending.
func (c *Client) GetPaymentStatus(ctx context.Context, transactionID string) (*PaymentStatus, error) {
	if !c.Configured() {
		return &PaymentStatus{Status: "pending"}, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/v1/payment/%s", c.baseURL, transactionID)
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment API returned status %d", httpResp.StatusCode)
	}

	var status PaymentStatus
	if err := json.NewDecoder(httpResp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}

	return &status, nil
}
