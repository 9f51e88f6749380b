package invoicing

import "time"

// Invoice is the billing record paired 1:1 with an order. BalanceDue is
// grand_total minus the sum of recorded payments and is maintained by the
// payment ledger; the order engine recomputes the monetary fields whenever
// line items change.
type Invoice struct {
	ID            int64             `json:"id"`
	TenantID      int64             `json:"tenant_id"`
	OrderID       int64             `json:"order_id"`
	CustomerID    int64             `json:"customer_id"`
	InvoiceNumber int64             `json:"invoice_number"`
	Subtotal      float64           `json:"subtotal"`
	GrandTotal    float64           `json:"grand_total"`
	BalanceDue    float64           `json:"balance_due"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Lines         []InvoiceLineItem `json:"lines,omitempty"`
}

// InvoiceLineItem mirrors an order line for billing purposes.
type InvoiceLineItem struct {
	ID        int64   `json:"id"`
	InvoiceID int64   `json:"invoice_id"`
	TenantID  int64   `json:"tenant_id"`
	ProductID int64   `json:"product_id"`
	Qty       int64   `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}
