package payments

import "time"

// Payment is one recorded payment against an order's invoice. Payments are
// append-only; the invoice balance and the order's payment status are derived
// from their sum.
type Payment struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	OrderID   int64     `json:"order_id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method,omitempty"`
	Reference string    `json:"reference,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedBy int64     `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordPaymentRequest is the payload for recording a payment.
type RecordPaymentRequest struct {
	TenantID  int64   `json:"tenant_id" validate:"required,gt=0"`
	OrderID   int64   `json:"order_id" validate:"required,gt=0"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
	CreatedBy int64   `json:"created_by"`
}

// RecordPaymentResult reports the ledger position after the payment.
type RecordPaymentResult struct {
	PaymentID     int64   `json:"payment_id"`
	TotalPaid     float64 `json:"total_paid"`
	BalanceDue    float64 `json:"balance_due"`
	PaymentStatus string  `json:"payment_status"`
}
