package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"easytopup/backend/internal/models"
)

func TestFileStorePutGet(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	order := models.Order{
		ID:        "order_1",
		Status:    models.OrderStatusPending,
		BundleID:  "mtn-100mb",
		Receiver:  "+237670000000",
		Payer:     "+237680000000",
		Amount:    100,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Put(context.Background(), order); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(context.Background(), "order_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount != 100 || got.Status != models.OrderStatusPending {
		t.Fatalf("unexpected order: %+v", got)
	}

	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestFileStoreUpdate(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := s.Put(context.Background(), models.Order{ID: "order_1", Status: models.OrderStatusPending}); err != nil {
		t.Fatalf("put: %v", err)
	}

	updated, err := s.Update(context.Background(), "order_1", func(o *models.Order) error {
		o.Status = models.OrderStatusFailed
		o.Error = "topup failed"
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != models.OrderStatusFailed || updated.Error != "topup failed" {
		t.Fatalf("unexpected updated order: %+v", updated)
	}

	if _, err := s.Update(context.Background(), "missing", func(o *models.Order) error { return nil }); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := s.Put(context.Background(), models.Order{ID: "order_1", Status: models.OrderStatusCompleted, Amount: 250}); err != nil {
		t.Fatalf("put: %v", err)
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen file store: %v", err)
	}
	got, err := reopened.Get(context.Background(), "order_1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Amount != 250 || got.Status != models.OrderStatusCompleted {
		t.Fatalf("unexpected order after reopen: %+v", got)
	}
}

func TestFileStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"order_a", "order_b", "order_c"} {
		order := models.Order{ID: id, Status: models.OrderStatusPending, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.Put(context.Background(), order); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}

	items, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(items))
	}
	if items[0].ID != "order_c" || items[2].ID != "order_a" {
		t.Fatalf("expected newest-first order, got %s first", items[0].ID)
	}
}
