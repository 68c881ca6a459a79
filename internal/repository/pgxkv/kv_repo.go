package pgxkv

import (
	"context"
	"errors"
	"fmt"

	"cartsession-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// kvRepository implements domain.KVStorage over a single session_kv table:
//
//	CREATE TABLE session_kv (
//	    key        TEXT PRIMARY KEY,
//	    value      BYTEA NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type kvRepository struct {
	db *pgxpool.Pool
}

func NewKVRepository(db *pgxpool.Pool) domain.KVStorage {
	return &kvRepository{db: db}
}

func (r *kvRepository) Get(ctx context.Context, key string) ([]byte, error) {
	q := queryerFromContext(ctx, r.db)

	var value []byte
	err := q.QueryRow(ctx, `SELECT value FROM session_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, nil
}

func (r *kvRepository) Set(ctx context.Context, key string, value []byte) error {
	q := queryerFromContext(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO session_kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (r *kvRepository) Remove(ctx context.Context, key string) error {
	q := queryerFromContext(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM session_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("kv remove %q: %w", key, err)
	}
	return nil
}
