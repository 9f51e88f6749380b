package invoicing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Queryer is the subset of pgx needed to advance the counter. Both
// pgxpool.Pool and pgx.Tx satisfy it, so the order engine can draw a number
// inside the same transaction that persists the order.
type Queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NextNumber issues the next invoice number for the tenant. The advance is a
// single upsert executed by the database, so concurrent callers for the same
// tenant are serialized on the counter row and can never receive the same
// number. Numbers are strictly increasing and gap-tolerant: a number drawn in
// a transaction that later rolls back is simply skipped.
func NextNumber(ctx context.Context, q Queryer, tenantID int64) (int64, error) {
	var number int64
	err := q.QueryRow(ctx,
		`INSERT INTO invoice_counters (tenant_id, last_number)
		 VALUES ($1, 1)
		 ON CONFLICT (tenant_id)
		 DO UPDATE SET last_number = invoice_counters.last_number + 1
		 RETURNING last_number`, tenantID).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("invoicing: next number: %w", err)
	}
	return number, nil
}
