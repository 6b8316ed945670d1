package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"easytopup/backend/internal/catalog"
	"easytopup/backend/internal/integrations/reloadly"
	"easytopup/backend/internal/integrations/zitopay"
	"easytopup/backend/internal/models"
	"easytopup/backend/internal/store"
)

var (
	ErrBundleNotFound            = errors.New("bundle not found")
	ErrMissingOrderID            = errors.New("missing order id")
	ErrInvalidSignature          = errors.New("invalid signature")
	ErrUnexpectedGatewayResponse = errors.New("unexpected zitopay response")
	ErrBundleInfoMissing         = errors.New("bundle info missing")
	ErrOperatorUnmapped          = errors.New("operator id mapping missing")
)

// receiver phones are Cameroonian numbers; the country code is fixed.
const countryCode = "237"

// defaultOperatorIDs maps catalog networks to Reloadly operator ids.
// Overridable per deployment via RELOADLY_OPERATOR_IDS.
var defaultOperatorIDs = map[string]int64{
	"MTN":    123,
	"Orange": 456,
	"CAMTEL": 789,
	"Yoomee": 999,
}

type PurchaseRequest struct {
	BundleID string `json:"bundleId" validate:"required"`
	Receiver string `json:"receiver" validate:"required"`
	Payer    string `json:"payer" validate:"required"`
}

type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeIgnored          Outcome = "ignored"
)

type ReconcileResult struct {
	Outcome Outcome
	Order   models.Order
}

type ServiceConfig struct {
	BaseURL     string
	Currency    string
	OperatorIDs map[string]int64
}

// Service owns the order lifecycle: purchase creation against the payment
// gateway, webhook reconciliation, and topup dispatch.
type Service struct {
	cfg     ServiceConfig
	store   store.Store
	catalog *catalog.Catalog
	gateway *zitopay.Client
	topups  *reloadly.Client
	logger  *slog.Logger
	locks   *orderLocks
	now     func() time.Time
}

func NewService(cfg ServiceConfig, st store.Store, cat *catalog.Catalog, gateway *zitopay.Client, topups *reloadly.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Currency == "" {
		cfg.Currency = "XAF"
	}
	operators := make(map[string]int64, len(defaultOperatorIDs))
	for network, id := range defaultOperatorIDs {
		operators[network] = id
	}
	for network, id := range cfg.OperatorIDs {
		operators[network] = id
	}
	cfg.OperatorIDs = operators

	return &Service{
		cfg:     cfg,
		store:   st,
		catalog: cat,
		gateway: gateway,
		topups:  topups,
		logger:  logger,
		locks:   newOrderLocks(),
		now:     time.Now,
	}
}

// CreatePurchase validates the bundle, creates a payment session with the
// gateway, and only then persists the pending order, so a failed session
// never leaves an orphaned record. The amount always comes from the
// catalog, never from the caller.
func (s *Service) CreatePurchase(ctx context.Context, req PurchaseRequest) (models.Order, string, error) {
	bundle, ok := s.catalog.Get(strings.TrimSpace(req.BundleID))
	if !ok {
		return models.Order{}, "", ErrBundleNotFound
	}

	orderID := newOrderID(s.now())
	created, _, err := s.gateway.CreatePayment(ctx, zitopay.CreatePaymentRequest{
		Amount:      bundle.Price,
		Currency:    s.cfg.Currency,
		Description: fmt.Sprintf("%s %s", bundle.Network, bundle.Title),
		CallbackURL: strings.TrimRight(s.cfg.BaseURL, "/") + "/api/webhooks/zitopay",
		Metadata: zitopay.PaymentMetadata{
			OrderID:  orderID,
			BundleID: bundle.ID,
			Receiver: strings.TrimSpace(req.Receiver),
			Payer:    strings.TrimSpace(req.Payer),
		},
	})
	if err != nil {
		return models.Order{}, "", fmt.Errorf("create payment session: %w", err)
	}
	paymentURL := created.URL()
	if paymentURL == "" {
		return models.Order{}, "", ErrUnexpectedGatewayResponse
	}

	order := models.Order{
		ID:         orderID,
		Status:     models.OrderStatusPending,
		BundleID:   bundle.ID,
		Receiver:   strings.TrimSpace(req.Receiver),
		Payer:      strings.TrimSpace(req.Payer),
		Amount:     bundle.Price,
		CreatedAt:  s.now().UTC(),
		ZitopayRef: created.Reference,
	}
	if err := s.store.Put(ctx, order); err != nil {
		return models.Order{}, "", fmt.Errorf("persist order: %w", err)
	}

	s.logger.Info("order_created", "order_id", orderID, "bundle_id", bundle.ID, "amount", bundle.Price)
	return order, paymentURL, nil
}

// Reconcile drives an order toward a terminal state from one gateway
// notification. The per-order lock makes the sequence safe against the
// gateway redelivering the same notification concurrently; a completed
// order is acknowledged without dispatching again.
func (s *Service) Reconcile(ctx context.Context, n Notification) (ReconcileResult, error) {
	orderID := n.OrderID()
	if orderID == "" {
		return ReconcileResult{}, ErrMissingOrderID
	}

	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return ReconcileResult{}, err
	}
	if order.Status == models.OrderStatusCompleted {
		return ReconcileResult{Outcome: OutcomeAlreadyProcessed, Order: order}, nil
	}

	status := n.StatusValue()
	if !isSuccessStatus(status) {
		updated, err := s.store.Update(ctx, orderID, func(o *models.Order) error {
			o.Status = strings.ToLower(status)
			return nil
		})
		if err != nil {
			return ReconcileResult{}, err
		}
		s.logger.Info("order_status_recorded", "order_id", orderID, "status", updated.Status)
		return ReconcileResult{Outcome: OutcomeIgnored, Order: updated}, nil
	}

	if _, err := s.dispatchTopup(ctx, order); err != nil {
		failed, uerr := s.store.Update(ctx, orderID, func(o *models.Order) error {
			o.Status = models.OrderStatusFailed
			o.Error = err.Error()
			return nil
		})
		if uerr != nil {
			s.logger.Error("order_failure_record", "order_id", orderID, "error", uerr)
		}
		s.logger.Error("topup_failed", "order_id", orderID, "error", err)
		return ReconcileResult{Order: failed}, fmt.Errorf("topup: %w", err)
	}

	completedAt := s.now().UTC()
	updated, err := s.store.Update(ctx, orderID, func(o *models.Order) error {
		o.Status = models.OrderStatusCompleted
		o.CompletedAt = &completedAt
		return nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	s.logger.Info("order_completed", "order_id", orderID)
	return ReconcileResult{Outcome: OutcomeCompleted, Order: updated}, nil
}

// dispatchTopup translates an order into a Reloadly topup and records the
// provider response on the stored order before reporting success.
func (s *Service) dispatchTopup(ctx context.Context, order models.Order) (json.RawMessage, error) {
	bundle, ok := s.catalog.Get(order.BundleID)
	if !ok {
		return nil, ErrBundleInfoMissing
	}
	operatorID, ok := s.cfg.OperatorIDs[bundle.Network]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrOperatorUnmapped, bundle.Network)
	}

	raw, err := s.topups.Topup(ctx, reloadly.TopupRequest{
		OperatorID: operatorID,
		RecipientPhone: reloadly.RecipientPhone{
			CountryCode: countryCode,
			Number:      nationalNumber(order.Receiver),
		},
		Amount: strconv.FormatInt(order.Amount, 10),
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Update(ctx, order.ID, func(o *models.Order) error {
		o.ReloadlyResponse = raw
		return nil
	}); err != nil {
		return nil, fmt.Errorf("record provider response: %w", err)
	}
	return raw, nil
}

// nationalNumber strips an optional leading +237/237 prefix and every
// non-digit character from a receiver phone string.
func nationalNumber(receiver string) string {
	s := strings.TrimSpace(receiver)
	s = strings.TrimPrefix(s, "+")
	s = strings.TrimPrefix(s, countryCode)
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// newOrderID is time-based like the original order numbering, with a
// random suffix so concurrent purchases in the same millisecond stay
// unique.
func newOrderID(now time.Time) string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return "order_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + hex.EncodeToString(suffix)
}
