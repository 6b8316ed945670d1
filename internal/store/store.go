package store

import (
	"context"
	"errors"

	"easytopup/backend/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

// Store is keyed order storage. Update applies mutate to the current
// record and persists the result in one step; implementations serialize
// concurrent updates to the same order so a read-modify-write cannot lose
// a concurrent transition.
type Store interface {
	Get(ctx context.Context, id string) (models.Order, error)
	Put(ctx context.Context, order models.Order) error
	Update(ctx context.Context, id string, mutate func(*models.Order) error) (models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
}
