package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"easytopup/backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the database-backed order store. Update runs the
// read-modify-write inside a transaction holding a row lock, so two
// webhook deliveries for the same order serialize at the database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 25
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	bundle_id TEXT NOT NULL,
	receiver TEXT NOT NULL,
	payer TEXT NOT NULL,
	amount BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	zitopay_ref TEXT NOT NULL DEFAULT '',
	reloadly_response JSONB,
	error_detail TEXT NOT NULL DEFAULT ''
);`)
	if err != nil {
		return fmt.Errorf("migrate orders table: %w", err)
	}
	return nil
}

const orderColumns = `id, status, bundle_id, receiver, payer, amount, created_at, completed_at, zitopay_ref, reloadly_response, error_detail`

func (s *PostgresStore) Get(ctx context.Context, id string) (models.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (s *PostgresStore) Put(ctx context.Context, order models.Order) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO orders (`+orderColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	completed_at = EXCLUDED.completed_at,
	zitopay_ref = EXCLUDED.zitopay_ref,
	reloadly_response = EXCLUDED.reloadly_response,
	error_detail = EXCLUDED.error_detail;`,
		order.ID, order.Status, order.BundleID, order.Receiver, order.Payer,
		order.Amount, order.CreatedAt, order.CompletedAt, order.ZitopayRef,
		nullJSON(order.ReloadlyResponse), order.Error)
	return err
}

func (s *PostgresStore) Update(ctx context.Context, id string, mutate func(*models.Order) error) (models.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	order, err := scanOrder(row)
	if err != nil {
		return models.Order{}, err
	}
	if err := mutate(&order); err != nil {
		return models.Order{}, err
	}
	order.ID = id

	if _, err := tx.Exec(ctx, `
UPDATE orders
SET status = $2,
	completed_at = $3,
	zitopay_ref = $4,
	reloadly_response = $5,
	error_detail = $6
WHERE id = $1;`,
		id, order.Status, order.CompletedAt, order.ZitopayRef,
		nullJSON(order.ReloadlyResponse), order.Error); err != nil {
		return models.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var out models.Order
	var completedAt sql.NullTime
	var response []byte
	err := row.Scan(&out.ID, &out.Status, &out.BundleID, &out.Receiver, &out.Payer,
		&out.Amount, &out.CreatedAt, &completedAt, &out.ZitopayRef, &response, &out.Error)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		out.CompletedAt = &t
	}
	if len(response) > 0 {
		out.ReloadlyResponse = json.RawMessage(response)
	}
	return out, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
