package reloadly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

type TokenManagerConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	Audience     string
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	Audience     string `json:"audience"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenManager caches a single Reloadly access token obtained through the
// client-credentials exchange. The cached token is reused until it is
// within refreshSkew of expiring.
type TokenManager struct {
	client       *http.Client
	cfg          TokenManagerConfig
	now          func() time.Time
	refreshSkew  time.Duration
	mu           sync.Mutex
	cachedToken  string
	cachedExpiry time.Time
}

func NewTokenManager(cfg TokenManagerConfig, client *http.Client) *TokenManager {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(cfg.AuthURL) == "" {
		cfg.AuthURL = "https://auth.reloadly.com/oauth/token"
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		cfg.Audience = "https://topups.reloadly.com"
	}
	return &TokenManager{
		client:      client,
		cfg:         cfg,
		now:         time.Now,
		refreshSkew: 60 * time.Second,
	}
}

func (tm *TokenManager) AccessToken(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := tm.now()
	if tm.cachedToken != "" && now.Before(tm.cachedExpiry.Add(-tm.refreshSkew)) {
		return tm.cachedToken, nil
	}

	if err := tm.refreshLocked(ctx); err != nil {
		return "", err
	}
	return tm.cachedToken, nil
}

func (tm *TokenManager) refreshLocked(ctx context.Context) error {
	if strings.TrimSpace(tm.cfg.ClientID) == "" || strings.TrimSpace(tm.cfg.ClientSecret) == "" {
		return fmt.Errorf("reloadly client credentials are required")
	}

	payload, err := json.Marshal(tokenRequest{
		ClientID:     tm.cfg.ClientID,
		ClientSecret: tm.cfg.ClientSecret,
		GrantType:    "client_credentials",
		Audience:     tm.cfg.Audience,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tm.cfg.AuthURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := tm.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reloadly oauth token request failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode reloadly token response: %w", err)
	}
	if strings.TrimSpace(parsed.AccessToken) == "" {
		return fmt.Errorf("reloadly oauth token response missing access_token")
	}

	expiresIn := parsed.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	tm.cachedToken = strings.TrimSpace(parsed.AccessToken)
	tm.cachedExpiry = tm.now().Add(time.Duration(expiresIn) * time.Second)
	return nil
}
