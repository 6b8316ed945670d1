package zitopay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	BaseURL string
	APIKey  string
}

// Client creates payment sessions with the Zitopay gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zitopay api status %d: %s", e.StatusCode, e.Body)
}

// PaymentMetadata is round-tripped through the gateway: it comes back
// verbatim inside the webhook notification and is the only way the webhook
// recovers the order context.
type PaymentMetadata struct {
	OrderID  string `json:"orderId"`
	BundleID string `json:"bundleId"`
	Receiver string `json:"receiver"`
	Payer    string `json:"payer"`
}

type CreatePaymentRequest struct {
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	CallbackURL string          `json:"callback_url"`
	Metadata    PaymentMetadata `json:"metadata"`
}

type CreatedPayment struct {
	PaymentURL string `json:"payment_url"`
	Redirect   string `json:"redirect"`
	Reference  string `json:"reference"`
}

// URL returns the redirect target for the buyer, whichever field the
// gateway chose to populate.
func (p CreatedPayment) URL() string {
	if strings.TrimSpace(p.PaymentURL) != "" {
		return strings.TrimSpace(p.PaymentURL)
	}
	return strings.TrimSpace(p.Redirect)
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
		logger:     logger,
	}
}

// CreatePayment registers a payment session and returns the gateway
// response along with the raw body.
func (c *Client) CreatePayment(ctx context.Context, in CreatePaymentRequest) (CreatedPayment, []byte, error) {
	var out CreatedPayment
	payload, err := json.Marshal(in)
	if err != nil {
		return out, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments/create", bytes.NewReader(payload))
	if err != nil {
		return out, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, body, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, body, fmt.Errorf("decode create payment response: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("zitopay_api_response", "status", resp.StatusCode, "order_id", in.Metadata.OrderID)
	}
	return out, body, nil
}
