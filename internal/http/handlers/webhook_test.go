package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"easytopup/backend/internal/catalog"
	"easytopup/backend/internal/config"
	authmw "easytopup/backend/internal/http/middleware"
	"easytopup/backend/internal/integrations/reloadly"
	"easytopup/backend/internal/integrations/zitopay"
	"easytopup/backend/internal/models"
	"easytopup/backend/internal/orders"
	"easytopup/backend/internal/store"

	"github.com/go-chi/chi/v5"
)

const testWebhookSecret = "whsec"

type handlerEnv struct {
	router     *chi.Mux
	store      *store.FileStore
	cfg        *config.Config
	topupCalls *atomic.Int64
}

// newHandlerEnv stands up the API router against httptest fakes for the
// payment gateway and the topup provider.
func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	gatewaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payment_url":"https://pay.example/session","reference":"zp_ref_1"}`))
	}))
	t.Cleanup(gatewaySrv.Close)

	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	}))
	t.Cleanup(authSrv.Close)

	topupCalls := &atomic.Int64{}
	topupSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		topupCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transactionId":42,"status":"SUCCESSFUL"}`))
	}))
	t.Cleanup(topupSrv.Close)

	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	cat, err := catalog.New([]models.Bundle{
		{ID: "mtn-100mb", Network: "MTN", Title: "100MB", Price: 100, Validity: "24h", Popular: 1},
		{ID: "orange-500mb", Network: "Orange", Title: "500MB", Price: 450, Validity: "7d"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm := reloadly.NewTokenManager(reloadly.TokenManagerConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURL:      authSrv.URL,
	}, authSrv.Client())
	topups := reloadly.NewClient(reloadly.Config{TopupURL: topupSrv.URL}, tm, topupSrv.Client(), logger)
	gw := zitopay.NewClient(zitopay.Config{BaseURL: gatewaySrv.URL, APIKey: "key"}, gatewaySrv.Client(), logger)
	svc := orders.NewService(orders.ServiceConfig{
		BaseURL:  "https://shop.example",
		Currency: "XAF",
	}, st, cat, gw, topups, logger)

	cfg := &config.Config{
		BaseURL:   "https://shop.example",
		Currency:  "XAF",
		JWTSecret: "jwt-secret",
		Zitopay:   config.ZitopayConfig{WebhookSecret: testWebhookSecret},
		Admin:     config.AdminConfig{Login: "admin", Password: "pass"},
	}

	h := New(st, cat, svc, nil, cfg, logger)
	r := chi.NewRouter()
	r.Get("/api/bundles", h.ListBundles)
	r.Post("/api/purchase", h.Purchase)
	r.Post("/api/webhooks/zitopay", h.ZitopayWebhook)
	r.Get("/api/orders/{id}", h.GetOrder)
	r.Post("/auth/admin", h.AuthAdmin)
	r.Group(func(r chi.Router) {
		r.Use(authmw.AdminAuthMiddleware(cfg.JWTSecret))
		r.Get("/admin/orders", h.ListAdminOrders)
		r.Get("/admin/orders/{id}", h.GetAdminOrder)
		r.Get("/admin/stats", h.AdminStats)
	})

	return &handlerEnv{router: r, store: st, cfg: cfg, topupCalls: topupCalls}
}

func (e *handlerEnv) do(t *testing.T, method, target string, body []byte, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func signedHeader(body []byte) http.Header {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return http.Header{signatureHeader: []string{hex.EncodeToString(mac.Sum(nil))}}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func purchaseOrder(t *testing.T, env *handlerEnv, payer string) string {
	t.Helper()
	body := []byte(`{"bundleId":"mtn-100mb","receiver":"+237670000000","payer":"` + payer + `"}`)
	rec := env.do(t, http.MethodPost, "/api/purchase", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("purchase status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OrderID    string `json:"orderId"`
		PaymentURL string `json:"paymentUrl"`
	}
	decodeBody(t, rec, &resp)
	if resp.OrderID == "" || resp.PaymentURL == "" {
		t.Fatalf("incomplete purchase response: %+v", resp)
	}
	return resp.OrderID
}

func TestPurchaseCreatesPendingOrder(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	orderID := purchaseOrder(t, env, "+237699999999")

	rec := env.do(t, http.MethodGet, "/api/orders/"+orderID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get order status = %d", rec.Code)
	}
	var order models.Order
	decodeBody(t, rec, &order)
	if order.Status != models.OrderStatusPending {
		t.Fatalf("status = %q, want pending", order.Status)
	}
	if order.Amount != 100 {
		t.Fatalf("amount = %d, want catalog price 100", order.Amount)
	}
}

func TestPurchaseValidation(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	rec := env.do(t, http.MethodPost, "/api/purchase", []byte(`{"bundleId":"mtn-100mb"}`), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/purchase", []byte(`not json`), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPurchaseUnknownBundle(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	body := []byte(`{"bundleId":"no-such","receiver":"670000000","payer":"699999999"}`)
	rec := env.do(t, http.MethodPost, "/api/purchase", body, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestPurchaseRateLimited(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	body := []byte(`{"bundleId":"mtn-100mb","receiver":"670000000","payer":"+237655555555"}`)
	var last int
	for i := 0; i < 4; i++ {
		last = env.do(t, http.MethodPost, "/api/purchase", body, nil).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("fourth purchase status = %d, want 429", last)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	orderID := purchaseOrder(t, env, "+237690000001")

	body := []byte(`{"status":"SUCCESS","metadata":{"orderId":"` + orderID + `"}}`)
	rec := env.do(t, http.MethodPost, "/api/webhooks/zitopay", body, http.Header{
		signatureHeader: []string{"deadbeef"},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/webhooks/zitopay", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header status = %d, want 401", rec.Code)
	}

	order, err := env.store.Get(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if order.Status != models.OrderStatusPending {
		t.Fatalf("order mutated by rejected webhook: status %q", order.Status)
	}
	if got := env.topupCalls.Load(); got != 0 {
		t.Fatalf("topup dispatched %d times, want 0", got)
	}
}

func TestWebhookCompletesOrder(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	orderID := purchaseOrder(t, env, "+237690000002")

	body := []byte(`{"status":"SUCCESS","metadata":{"orderId":"` + orderID + `"}}`)
	rec := env.do(t, http.MethodPost, "/api/webhooks/zitopay", body, signedHeader(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["result"] != "ok" {
		t.Fatalf("result = %q, want ok", resp["result"])
	}

	order, err := env.store.Get(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if order.Status != models.OrderStatusCompleted {
		t.Fatalf("status = %q, want completed", order.Status)
	}
	if got := env.topupCalls.Load(); got != 1 {
		t.Fatalf("topup dispatched %d times, want 1", got)
	}
}

func TestWebhookRedeliveryAcknowledged(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	orderID := purchaseOrder(t, env, "+237690000003")

	body := []byte(`{"status":"SUCCESS","metadata":{"orderId":"` + orderID + `"}}`)
	header := signedHeader(body)
	if rec := env.do(t, http.MethodPost, "/api/webhooks/zitopay", body, header); rec.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d", rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/api/webhooks/zitopay", body, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d", rec.Code)
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["result"] != "already processed" {
		t.Fatalf("result = %q, want already processed", resp["result"])
	}
	if got := env.topupCalls.Load(); got != 1 {
		t.Fatalf("topup dispatched %d times, want 1", got)
	}
}

func TestWebhookMissingOrderID(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	body := []byte(`{"status":"SUCCESS"}`)
	rec := env.do(t, http.MethodPost, "/api/webhooks/zitopay", body, signedHeader(body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookUnknownOrder(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	body := []byte(`{"status":"SUCCESS","metadata":{"orderId":"order_missing"}}`)
	rec := env.do(t, http.MethodPost, "/api/webhooks/zitopay", body, signedHeader(body))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListBundlesFilters(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	rec := env.do(t, http.MethodGet, "/api/bundles?network=MTN", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Items []models.Bundle `json:"items"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Items) != 1 || resp.Items[0].ID != "mtn-100mb" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
}
