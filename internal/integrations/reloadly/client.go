package reloadly

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
	TopupURL string
}

// Client performs topups against the Reloadly API.
type Client struct {
	topupURL   string
	httpClient *http.Client
	tokens     *TokenManager
	logger     *slog.Logger
}

// TopupError carries the provider's response body for diagnostics; it is
// recorded on the order when a delivery fails.
type TopupError struct {
	StatusCode int
	Body       string
}

func (e *TopupError) Error() string {
	return fmt.Sprintf("reloadly error: %s", e.Body)
}

type RecipientPhone struct {
	CountryCode string `json:"countryCode"`
	Number      string `json:"number"`
}

type TopupRequest struct {
	OperatorID     int64          `json:"operatorId"`
	RecipientPhone RecipientPhone `json:"recipientPhone"`
	Amount         string         `json:"amount"`
}

type topupStatus struct {
	Status string `json:"status"`
}

func NewClient(cfg Config, tm *TokenManager, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	topupURL := strings.TrimRight(strings.TrimSpace(cfg.TopupURL), "/")
	if topupURL == "" {
		topupURL = "https://topups.reloadly.com"
	}
	return &Client{
		topupURL:   topupURL,
		httpClient: httpClient,
		tokens:     tm,
		logger:     logger,
	}
}

// Topup submits one topup and returns the provider's raw response body.
// An HTTP status of 400 or above, or a body whose status field is FAILED,
// is a *TopupError.
func (c *Client) Topup(ctx context.Context, in TopupRequest) (json.RawMessage, error) {
	if c.tokens == nil {
		return nil, fmt.Errorf("reloadly token manager is required")
	}
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.topupURL+"/topups", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &TopupError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var status topupStatus
	if len(body) > 0 {
		// status field only; the rest of the body is stored opaquely
		_ = json.Unmarshal(body, &status)
	}
	if status.Status == "FAILED" {
		return nil, &TopupError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if c.logger != nil {
		c.logger.Debug("reloadly_topup_response", "status", resp.StatusCode, "operator_id", in.OperatorID)
	}
	return json.RawMessage(body), nil
}
