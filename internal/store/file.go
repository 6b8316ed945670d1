package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"easytopup/backend/internal/models"
)

const ordersFileName = "orders.json"

// FileStore keeps every order in memory and rewrites a single JSON file on
// each mutation. Writes go through a temp file plus rename so a crash can
// not leave a half-written orders file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	orders map[string]models.Order
}

// NewFileStore loads the order file from dir, creating dir if needed. A
// missing file is an empty store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &FileStore{
		path:   filepath.Join(dir, ordersFileName),
		orders: make(map[string]models.Order),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read orders file: %w", err)
	}
	if err := json.Unmarshal(data, &s.orders); err != nil {
		return nil, fmt.Errorf("decode orders file: %w", err)
	}
	return s, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *FileStore) Put(ctx context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
	return s.flushLocked()
}

func (s *FileStore) Update(ctx context.Context, id string, mutate func(*models.Order) error) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	if err := mutate(&order); err != nil {
		return models.Order{}, err
	}
	order.ID = id
	s.orders[id] = order
	if err := s.flushLocked(); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *FileStore) List(ctx context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.orders, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write orders file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace orders file: %w", err)
	}
	return nil
}
