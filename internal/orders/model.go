package orders

import "time"

// OrderStatus tracks the delivery lifecycle of an order.
type OrderStatus string

const (
	// StatusDraft means the order exists but stock has not moved yet.
	StatusDraft OrderStatus = "draft"
	// StatusSent means the order was dispatched and stock was decremented.
	StatusSent OrderStatus = "sent"
	// StatusCompleted means the order was delivered.
	StatusCompleted OrderStatus = "completed"
)

// PaymentStatus is derived by the payment ledger from recorded payments.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// ItemType tags a line item. Only sale lines move stock.
type ItemType string

const ItemTypeSale ItemType = "sale"

// LineItem is one product line on an order. UnitPrice is snapshotted at
// write time and never re-derived from the current price list.
type LineItem struct {
	ID        int64    `json:"id"`
	OrderID   int64    `json:"order_id"`
	TenantID  int64    `json:"tenant_id"`
	ProductID int64    `json:"product_id"`
	Qty       int64    `json:"qty"`
	UnitPrice float64  `json:"unit_price"`
	LineTotal float64  `json:"line_total"`
	ItemType  ItemType `json:"item_type"`
}

// Order is a customer request for delivery. GrandTotal always equals the sum
// of its line items' qty multiplied by unit price at last write.
type Order struct {
	ID            int64         `json:"id"`
	TenantID      int64         `json:"tenant_id"`
	CustomerID    int64         `json:"customer_id"`
	PlannedDate   time.Time     `json:"planned_date"`
	Notes         string        `json:"notes,omitempty"`
	CreatorID     int64         `json:"creator_id"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	InvoiceNumber int64         `json:"invoice_number"`
	Subtotal      float64       `json:"subtotal"`
	GrandTotal    float64       `json:"grand_total"`
	CourierIDs    []int64       `json:"courier_ids,omitempty"`
	Lines         []LineItem    `json:"lines,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
