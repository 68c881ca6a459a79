package pgxkv

import (
	"context"

	"cartsession-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionManager implements domain.TransactionManager using pgx
type TransactionManager struct {
	db *pgxpool.Pool
}

func NewTransactionManager(db *pgxpool.Pool) domain.TransactionManager {
	return &TransactionManager{db: db}
}

func (tm *TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := tm.db.Begin(ctx)
	if err != nil {
		return err
	}

	// Create a new context with the transaction
	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx); err != nil {
		tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txKey struct{}

// queryer is the subset of pgx shared by pool and transaction handles.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queryerFromContext returns the transaction handle when the call runs
// inside TransactionManager.Do, otherwise the pool.
func queryerFromContext(ctx context.Context, pool *pgxpool.Pool) queryer {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}
