package zitopay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreatePaymentSuccess(t *testing.T) {
	t.Parallel()

	var gotReq CreatePaymentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/create" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer api-key" {
			t.Fatalf("unexpected authorization: %s", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"payment_url": "https://pay.zitopay.africa/s/abc",
			"reference":   "zp_ref_1",
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "api-key"}, server.Client(), nil)
	created, _, err := client.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount:      100,
		Currency:    "XAF",
		Description: "MTN 100MB",
		CallbackURL: "http://localhost:8080/api/webhooks/zitopay",
		Metadata:    PaymentMetadata{OrderID: "order_1", BundleID: "mtn-100mb"},
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if created.URL() != "https://pay.zitopay.africa/s/abc" {
		t.Fatalf("unexpected payment url: %q", created.URL())
	}
	if created.Reference != "zp_ref_1" {
		t.Fatalf("unexpected reference: %q", created.Reference)
	}
	if gotReq.Amount != 100 || gotReq.Metadata.OrderID != "order_1" {
		t.Fatalf("unexpected request payload: %+v", gotReq)
	}
}

func TestCreatePaymentRedirectFallback(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"redirect": "https://pay.example/r/1"})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "api-key"}, server.Client(), nil)
	created, _, err := client.CreatePayment(context.Background(), CreatePaymentRequest{Amount: 100})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if created.URL() != "https://pay.example/r/1" {
		t.Fatalf("expected redirect fallback, got %q", created.URL())
	}
}

func TestCreatePaymentAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "api-key"}, server.Client(), nil)
	_, _, err := client.CreatePayment(context.Background(), CreatePaymentRequest{Amount: 100})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", apiErr.StatusCode)
	}
}
