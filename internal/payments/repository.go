package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-oms/meridian-oms/internal/platform/db"
	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// Repository persists payments and keeps the invoice balance and order
// payment status in step with them.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations available inside a payment transaction.
type TxRepository interface {
	GetOrderGrandTotal(ctx context.Context, tenantID, orderID int64) (float64, error)
	InsertPayment(ctx context.Context, p *Payment) error
	SumPayments(ctx context.Context, orderID int64) (float64, error)
	UpdateInvoiceBalance(ctx context.Context, tenantID, orderID int64, balance float64) error
	SetOrderPaymentStatus(ctx context.Context, tenantID, orderID int64, status string) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("payments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		return db.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("payments: commit tx: %w", db.MapError(err))
	}
	return nil
}

// ListByOrder returns a tenant's payments for one order, oldest first.
func (r *Repository) ListByOrder(ctx context.Context, tenantID, orderID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, order_id, amount, method, reference, notes, created_by, created_at
		 FROM payments WHERE tenant_id = $1 AND order_id = $2 ORDER BY created_at, id`, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.TenantID, &p.OrderID, &p.Amount, &p.Method, &p.Reference, &p.Notes, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetOrderGrandTotal locks the order row for the rest of the transaction.
func (t *txRepo) GetOrderGrandTotal(ctx context.Context, tenantID, orderID int64) (float64, error) {
	var grandTotal float64
	err := t.tx.QueryRow(ctx,
		`SELECT grand_total FROM orders WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, orderID, tenantID).Scan(&grandTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("payments: order %d: %w", orderID, shared.ErrNotFound)
		}
		return 0, err
	}
	return grandTotal, nil
}

func (t *txRepo) InsertPayment(ctx context.Context, p *Payment) error {
	return t.tx.QueryRow(ctx,
		`INSERT INTO payments (tenant_id, order_id, amount, method, reference, notes, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 RETURNING id, created_at`,
		p.TenantID, p.OrderID, p.Amount, p.Method, p.Reference, p.Notes, p.CreatedBy).Scan(&p.ID, &p.CreatedAt)
}

func (t *txRepo) SumPayments(ctx context.Context, orderID int64) (float64, error) {
	var total float64
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1`, orderID).Scan(&total)
	return total, err
}

func (t *txRepo) UpdateInvoiceBalance(ctx context.Context, tenantID, orderID int64, balance float64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE invoices SET balance_due = $1, updated_at = NOW() WHERE order_id = $2 AND tenant_id = $3`,
		balance, orderID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payments: invoice for order %d: %w", orderID, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) SetOrderPaymentStatus(ctx context.Context, tenantID, orderID int64, status string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2 AND tenant_id = $3`,
		status, orderID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payments: order %d: %w", orderID, shared.ErrNotFound)
	}
	return nil
}
