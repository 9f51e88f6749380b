package stock

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-oms/meridian-oms/internal/platform/db"
)

// Repository persists stock movements in PostgreSQL.
type Repository struct {
	pool     *pgxpool.Pool
	allowNeg bool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, allowNegative bool) *Repository {
	return &Repository{pool: pool, allowNeg: allowNegative}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	Apply(ctx context.Context, m Movement) (int64, error)
}

type txRepo struct {
	tx       pgx.Tx
	allowNeg bool
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepo{tx: tx, allowNeg: r.allowNeg}); err != nil {
		return db.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return db.MapError(err)
	}
	return nil
}

func (t *txRepo) Apply(ctx context.Context, m Movement) (int64, error) {
	return Apply(ctx, t.tx, m, t.allowNeg)
}

// ListMovements returns ledger entries for a product, newest first.
func (r *Repository) ListMovements(ctx context.Context, tenantID, productID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, tenant_id, product_id, order_id, qty_delta, movement_type, reason, created_by, created_at
		 FROM stock_movements
		 WHERE tenant_id = $1 AND product_id = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`, tenantID, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.Code, &m.TenantID, &m.ProductID, &m.OrderID, &m.QtyDelta, &m.Type, &m.Reason, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
