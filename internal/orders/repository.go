package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-oms/meridian-oms/internal/invoicing"
	"github.com/meridian-oms/meridian-oms/internal/platform/db"
	"github.com/meridian-oms/meridian-oms/internal/shared"
	"github.com/meridian-oms/meridian-oms/internal/stock"
)

// Repository persists orders and everything an order lifecycle operation
// touches: line items, invoices, courier links, stock movements and payments.
// Owning all of that SQL lets every lifecycle operation run as one
// transaction.
type Repository struct {
	pool     *pgxpool.Pool
	allowNeg bool
}

// NewRepository constructs Repository. allowNegative controls whether stock
// counters may be driven below zero.
func NewRepository(pool *pgxpool.Pool, allowNegative bool) *Repository {
	return &Repository{pool: pool, allowNeg: allowNegative}
}

// TxRepository exposes the operations available inside a lifecycle transaction.
type TxRepository interface {
	GetOrderForUpdate(ctx context.Context, tenantID, orderID int64) (*Order, error)
	NextInvoiceNumber(ctx context.Context, tenantID int64) (int64, error)
	InsertOrder(ctx context.Context, o *Order) error
	UpdateOrderHeader(ctx context.Context, o *Order) error
	SetOrderStatus(ctx context.Context, tenantID, orderID int64, status OrderStatus) error
	ReplaceCourierLinks(ctx context.Context, tenantID, orderID int64, courierIDs []int64) error
	InsertInvoice(ctx context.Context, inv *invoicing.Invoice) error
	UpdateInvoiceForOrder(ctx context.Context, tenantID, orderID int64, subtotal, grandTotal float64, notes string) error
	ReplaceOrderLines(ctx context.Context, tenantID, orderID int64, lines []LineItem) error
	ReplaceInvoiceLines(ctx context.Context, tenantID, orderID int64, lines []LineItem) error
	ApplyMovement(ctx context.Context, m stock.Movement) (int64, error)
	PurgeOrder(ctx context.Context, tenantID, orderID int64) error
}

type txRepo struct {
	tx       pgx.Tx
	allowNeg bool
}

// WithTx runs fn inside a repeatable-read transaction. Any error rolls the
// whole unit back, so a failure mid-operation leaves no residue.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("orders: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepo{tx: tx, allowNeg: r.allowNeg}); err != nil {
		return db.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("orders: commit tx: %w", db.MapError(err))
	}
	return nil
}

const orderColumns = `id, tenant_id, customer_id, planned_date, notes, creator_id, status, payment_status,
	invoice_number, subtotal, grand_total, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.TenantID, &o.CustomerID, &o.PlannedDate, &o.Notes, &o.CreatorID,
		&o.Status, &o.PaymentStatus, &o.InvoiceNumber, &o.Subtotal, &o.GrandTotal, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLines(ctx context.Context, q queryer, orderID int64) ([]LineItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, order_id, tenant_id, product_id, qty, unit_price, line_total, item_type
		 FROM order_line_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []LineItem
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.OrderID, &li.TenantID, &li.ProductID, &li.Qty, &li.UnitPrice, &li.LineTotal, &li.ItemType); err != nil {
			return nil, err
		}
		lines = append(lines, li)
	}
	return lines, rows.Err()
}

func loadCourierIDs(ctx context.Context, q queryer, orderID int64) ([]int64, error) {
	rows, err := q.Query(ctx,
		`SELECT courier_id FROM order_couriers WHERE order_id = $1 ORDER BY courier_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Get returns one order with its line items and courier links.
func (r *Repository) Get(ctx context.Context, tenantID, orderID int64) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND tenant_id = $2`, orderID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("orders: order %d: %w", orderID, shared.ErrNotFound)
		}
		return nil, err
	}
	if o.Lines, err = loadLines(ctx, r.pool, orderID); err != nil {
		return nil, err
	}
	if o.CourierIDs, err = loadCourierIDs(ctx, r.pool, orderID); err != nil {
		return nil, err
	}
	return o, nil
}

// List returns the tenant's orders, newest first, optionally filtered by
// status and payment status.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant_id = $1`
	args := []any{f.TenantID}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.PaymentStatus != "" {
		args = append(args, string(f.PaymentStatus))
		query += fmt.Sprintf(" AND payment_status = $%d", len(args))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (t *txRepo) GetOrderForUpdate(ctx context.Context, tenantID, orderID int64) (*Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, orderID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("orders: order %d: %w", orderID, shared.ErrNotFound)
		}
		return nil, err
	}
	if o.Lines, err = loadLines(ctx, t.tx, orderID); err != nil {
		return nil, err
	}
	if o.CourierIDs, err = loadCourierIDs(ctx, t.tx, orderID); err != nil {
		return nil, err
	}
	return o, nil
}

func (t *txRepo) NextInvoiceNumber(ctx context.Context, tenantID int64) (int64, error) {
	return invoicing.NextNumber(ctx, t.tx, tenantID)
}

func (t *txRepo) InsertOrder(ctx context.Context, o *Order) error {
	return t.tx.QueryRow(ctx,
		`INSERT INTO orders (tenant_id, customer_id, planned_date, notes, creator_id, status, payment_status,
			invoice_number, subtotal, grand_total, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		o.TenantID, o.CustomerID, o.PlannedDate, o.Notes, o.CreatorID, string(o.Status), string(o.PaymentStatus),
		o.InvoiceNumber, o.Subtotal, o.GrandTotal).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (t *txRepo) UpdateOrderHeader(ctx context.Context, o *Order) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE orders
		 SET planned_date = $1, notes = $2, subtotal = $3, grand_total = $4, updated_at = NOW()
		 WHERE id = $5 AND tenant_id = $6`,
		o.PlannedDate, o.Notes, o.Subtotal, o.GrandTotal, o.ID, o.TenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("orders: order %d: %w", o.ID, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) SetOrderStatus(ctx context.Context, tenantID, orderID int64, status OrderStatus) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND tenant_id = $3`,
		string(status), orderID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("orders: order %d: %w", orderID, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) ReplaceCourierLinks(ctx context.Context, tenantID, orderID int64, courierIDs []int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_couriers WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	for _, courierID := range courierIDs {
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO order_couriers (order_id, courier_id, tenant_id) VALUES ($1, $2, $3)`,
			orderID, courierID, tenantID); err != nil {
			return fmt.Errorf("orders: link courier %d: %w", courierID, err)
		}
	}
	return nil
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv *invoicing.Invoice) error {
	return t.tx.QueryRow(ctx,
		`INSERT INTO invoices (tenant_id, order_id, customer_id, invoice_number, subtotal, grand_total, balance_due, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		 RETURNING id`,
		inv.TenantID, inv.OrderID, inv.CustomerID, inv.InvoiceNumber, inv.Subtotal, inv.GrandTotal,
		inv.BalanceDue, inv.Notes).Scan(&inv.ID)
}

// UpdateInvoiceForOrder recomputes the invoice's monetary fields after line
// items changed. balance_due is grand_total minus payments already recorded.
func (t *txRepo) UpdateInvoiceForOrder(ctx context.Context, tenantID, orderID int64, subtotal, grandTotal float64, notes string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE invoices
		 SET subtotal = $1, grand_total = $2, notes = $3, updated_at = NOW(),
		     balance_due = $2 - COALESCE((SELECT SUM(amount) FROM payments WHERE order_id = $4), 0)
		 WHERE order_id = $4 AND tenant_id = $5`,
		subtotal, grandTotal, notes, orderID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("orders: invoice for order %d: %w", orderID, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) ReplaceOrderLines(ctx context.Context, tenantID, orderID int64, lines []LineItem) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_line_items WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	for _, li := range lines {
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO order_line_items (order_id, tenant_id, product_id, qty, unit_price, line_total, item_type)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			orderID, tenantID, li.ProductID, li.Qty, li.UnitPrice, li.LineTotal, string(li.ItemType)); err != nil {
			return fmt.Errorf("orders: insert line for product %d: %w", li.ProductID, err)
		}
	}
	return nil
}

func (t *txRepo) ReplaceInvoiceLines(ctx context.Context, tenantID, orderID int64, lines []LineItem) error {
	var invoiceID int64
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM invoices WHERE order_id = $1 AND tenant_id = $2`, orderID, tenantID).Scan(&invoiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("orders: invoice for order %d: %w", orderID, shared.ErrNotFound)
		}
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM invoice_line_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return err
	}
	for _, li := range lines {
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO invoice_line_items (invoice_id, tenant_id, product_id, qty, unit_price, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			invoiceID, tenantID, li.ProductID, li.Qty, li.UnitPrice, li.LineTotal); err != nil {
			return fmt.Errorf("orders: insert invoice line for product %d: %w", li.ProductID, err)
		}
	}
	return nil
}

func (t *txRepo) ApplyMovement(ctx context.Context, m stock.Movement) (int64, error) {
	return stock.Apply(ctx, t.tx, m, t.allowNeg)
}

// PurgeOrder removes the order and every dependent row. Deletion order keeps
// foreign keys satisfied at every step.
func (t *txRepo) PurgeOrder(ctx context.Context, tenantID, orderID int64) error {
	steps := []string{
		`DELETE FROM order_couriers WHERE order_id = $1`,
		`DELETE FROM payments WHERE order_id = $1`,
		`DELETE FROM order_line_items WHERE order_id = $1`,
		`DELETE FROM invoice_line_items WHERE invoice_id IN (SELECT id FROM invoices WHERE order_id = $1)`,
		`DELETE FROM invoices WHERE order_id = $1`,
		`DELETE FROM stock_movements WHERE order_id = $1`,
	}
	for _, q := range steps {
		if _, err := t.tx.Exec(ctx, q, orderID); err != nil {
			return fmt.Errorf("orders: purge order %d: %w", orderID, err)
		}
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND tenant_id = $2`, orderID, tenantID)
	if err != nil {
		return fmt.Errorf("orders: purge order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("orders: order %d: %w", orderID, shared.ErrNotFound)
	}
	return nil
}
