package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresArchive persists completed orders in PostgreSQL.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresArchive(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresArchive{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS completed_orders (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			customer_email TEXT NOT NULL DEFAULT '',
			amount_total BIGINT NOT NULL,
			currency TEXT NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_completed_orders_completed_at ON completed_orders (completed_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (a *PostgresArchive) SaveOrder(ctx context.Context, order Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CompletedAt.IsZero() {
		order.CompletedAt = time.Now().UTC()
	}

	// ON CONFLICT keeps webhook redelivery from duplicating an order.
	_, err := a.pool.Exec(ctx,
		`INSERT INTO completed_orders (id, session_id, customer_email, amount_total, currency, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id) DO NOTHING`,
		order.ID, order.SessionID, order.CustomerEmail, order.AmountTotal, order.Currency, order.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (a *PostgresArchive) RecentOrders(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := a.pool.Query(ctx,
		`SELECT id, session_id, customer_email, amount_total, currency, completed_at
		 FROM completed_orders
		 ORDER BY completed_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.SessionID, &o.CustomerEmail, &o.AmountTotal, &o.Currency, &o.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

func (a *PostgresArchive) Close() error {
	a.pool.Close()
	return nil
}
