package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// WithTx runs fn inside a repeatable-read transaction. Any error rolls the
// whole unit back; serialization aborts come back as shared.ErrConflict so
// callers can retry.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return MapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: commit tx: %w", MapError(err))
	}

	return nil
}

// MapError rewraps PostgreSQL serialization aborts (SQLSTATE 40001) and
// deadlocks (40P01) as shared.ErrConflict. Repeatable-read transactions
// racing on the same rows fail with these codes and should surface as a
// retriable conflict, not a persistence failure. Other errors pass through
// unchanged.
func MapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.Message)
		}
	}
	return err
}
