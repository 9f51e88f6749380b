package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// Repository provides read access to persisted invoices. Writes happen
// through the order lifecycle engine and the payment ledger, which own the
// transactions invoices participate in.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = "id, tenant_id, order_id, customer_id, invoice_number, subtotal, grand_total, balance_due, notes, created_at, updated_at"

// Get returns an invoice with its line items.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	inv, err := r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoicing: invoice %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	if err := r.attachLines(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetByOrder returns the invoice paired with an order.
func (r *Repository) GetByOrder(ctx context.Context, tenantID, orderID int64) (*Invoice, error) {
	inv, err := r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1 AND tenant_id = $2`, orderID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoicing: invoice for order %d: %w", orderID, shared.ErrNotFound)
		}
		return nil, err
	}
	if err := r.attachLines(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns invoices for the tenant, newest first.
func (r *Repository) List(ctx context.Context, tenantID int64, limit, offset int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE tenant_id = $1
		 ORDER BY invoice_number DESC
		 LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.TenantID, &inv.OrderID, &inv.CustomerID, &inv.InvoiceNumber,
			&inv.Subtotal, &inv.GrandTotal, &inv.BalanceDue, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *Repository) scanOne(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.OrderID, &inv.CustomerID, &inv.InvoiceNumber,
		&inv.Subtotal, &inv.GrandTotal, &inv.BalanceDue, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) attachLines(ctx context.Context, inv *Invoice) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, invoice_id, tenant_id, product_id, qty, unit_price, line_total
		 FROM invoice_line_items WHERE invoice_id = $1 ORDER BY id`, inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var line InvoiceLineItem
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.TenantID, &line.ProductID, &line.Qty, &line.UnitPrice, &line.LineTotal); err != nil {
			return err
		}
		inv.Lines = append(inv.Lines, line)
	}
	return rows.Err()
}
