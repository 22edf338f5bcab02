package modelcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool the Postgres backend uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresBackend stores the snapshot as a single JSONB row.
//
// Schema:
//
//	CREATE TABLE model_snapshots (
//	  id TEXT PRIMARY KEY,
//	  model JSONB NOT NULL,
//	  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresBackend struct {
	db Querier
	id string
}

// NewPostgresBackend uses db for the row identified by id.
func NewPostgresBackend(db Querier, id string) *PostgresBackend {
	if id == "" {
		id = "current"
	}
	return &PostgresBackend{db: db, id: id}
}

// EnsureSchema creates the snapshot table when missing.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	_, err := b.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS model_snapshots (
			id TEXT PRIMARY KEY,
			model JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create model_snapshots: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context) ([]byte, error) {
	var data []byte
	err := b.db.QueryRow(ctx, `SELECT model FROM model_snapshots WHERE id = $1`, b.id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}
	return data, nil
}

func (b *PostgresBackend) Put(ctx context.Context, data []byte) error {
	_, err := b.db.Exec(ctx, `
		INSERT INTO model_snapshots (id, model, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET model = EXCLUDED.model, updated_at = EXCLUDED.updated_at
	`, b.id, data)
	if err != nil {
		return fmt.Errorf("postgres upsert failed: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (b *PostgresBackend) Close() error {
	return nil
}
