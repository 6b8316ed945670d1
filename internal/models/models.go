package models

import (
	"encoding/json"
	"time"
)

// Bundle is one entry of the data bundle catalog. The catalog is loaded
// once at startup and never changes while the process runs.
type Bundle struct {
	ID       string `json:"id"`
	Network  string `json:"network"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	Validity string `json:"validity"`
	Popular  int    `json:"popular"`
	Img      string `json:"img"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusFailed    = "failed"
)

// Order is a purchase record. Status is one of the constants above or a
// lower-cased provider status carried over from a webhook notification.
type Order struct {
	ID               string          `json:"id"`
	Status           string          `json:"status"`
	BundleID         string          `json:"bundleId"`
	Receiver         string          `json:"receiver"`
	Payer            string          `json:"payer"`
	Amount           int64           `json:"amount"`
	CreatedAt        time.Time       `json:"createdAt"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
	ZitopayRef       string          `json:"zitopayRef,omitempty"`
	ReloadlyResponse json.RawMessage `json:"reloadlyResponse,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// OrderStats aggregates stored orders for the admin dashboard.
type OrderStats struct {
	Total            int64            `json:"total"`
	ByStatus         map[string]int64 `json:"byStatus"`
	CompletedRevenue int64            `json:"completedRevenue"`
}
