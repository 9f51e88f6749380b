package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// DBTX is the subset of pgx operations the ledger needs. Both pgxpool.Pool
// and pgx.Tx satisfy it, so callers that already hold a transaction can make
// the ledger entry part of their atomic unit.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Apply inserts a ledger entry and advances the product's stock counter in a
// single conditional UPDATE. The counter moves as an in-database increment,
// never an application-level read-modify-write, so concurrent movements on
// the same product cannot lose updates. Returns the counter after the move.
func Apply(ctx context.Context, q DBTX, m Movement, allowNegative bool) (int64, error) {
	if m.QtyDelta == 0 {
		return 0, fmt.Errorf("stock: quantity delta must be non zero: %w", shared.ErrValidation)
	}
	if m.TenantID == 0 || m.ProductID == 0 {
		return 0, fmt.Errorf("stock: tenant and product required: %w", shared.ErrValidation)
	}

	var newQty int64
	err := q.QueryRow(ctx,
		`UPDATE products
		 SET stock_qty = stock_qty + $1, updated_at = NOW()
		 WHERE id = $2 AND tenant_id = $3 AND ($4 OR stock_qty + $1 >= 0)
		 RETURNING stock_qty`,
		m.QtyDelta, m.ProductID, m.TenantID, allowNegative).Scan(&newQty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the product does not exist for the tenant or the
			// guard refused to go negative; distinguish the two.
			var one int
			probe := q.QueryRow(ctx,
				`SELECT 1 FROM products WHERE id = $1 AND tenant_id = $2`, m.ProductID, m.TenantID).Scan(&one)
			if errors.Is(probe, pgx.ErrNoRows) {
				return 0, fmt.Errorf("stock: product %d: %w", m.ProductID, shared.ErrNotFound)
			}
			if probe != nil {
				return 0, probe
			}
			return 0, fmt.Errorf("product %d: %w", m.ProductID, ErrInsufficientStock)
		}
		return 0, err
	}

	code := m.Code
	if code == "" {
		code = uuid.NewString()
	}
	var movementID int64
	err = q.QueryRow(ctx,
		`INSERT INTO stock_movements (code, tenant_id, product_id, order_id, qty_delta, movement_type, reason, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 RETURNING id`,
		code, m.TenantID, m.ProductID, m.OrderID, m.QtyDelta, string(m.Type), m.Reason, m.CreatedBy).Scan(&movementID)
	if err != nil {
		return 0, fmt.Errorf("stock: insert movement: %w", err)
	}
	return newQty, nil
}
