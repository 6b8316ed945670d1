package orders

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Notification is a Zitopay webhook payload. Two shapes are in the wild:
// a flat one (metadata.orderId + top-level status) and a nested one
// (data.orderId + data.status); both are supported.
type Notification struct {
	Status   string `json:"status"`
	Metadata struct {
		OrderID string `json:"orderId"`
	} `json:"metadata"`
	Data struct {
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
	} `json:"data"`
}

func (n Notification) OrderID() string {
	if id := strings.TrimSpace(n.Metadata.OrderID); id != "" {
		return id
	}
	return strings.TrimSpace(n.Data.OrderID)
}

func (n Notification) StatusValue() string {
	if n.Status != "" {
		return n.Status
	}
	if n.Data.Status != "" {
		return n.Data.Status
	}
	return "unknown"
}

// isSuccessStatus matches the gateway's success statuses exactly; the set
// is case-sensitive on purpose, matching what the gateway actually sends.
func isSuccessStatus(status string) bool {
	switch status {
	case "SUCCESS", "completed", "PAID":
		return true
	default:
		return false
	}
}

// VerifySignature checks the webhook signature header against the
// HMAC-SHA256 hex digest of the raw body. With an empty secret the
// notification is accepted unverified; with a secret configured both a
// missing and a mismatched header are rejected.
func VerifySignature(secret string, body []byte, header string) error {
	if secret == "" {
		return nil
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(header)) {
		return ErrInvalidSignature
	}
	return nil
}
