package orders

import "time"

// CreateOrderLineReq carries product and quantity only; the unit price is
// resolved server-side from the customer's pricing tier.
type CreateOrderLineReq struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Qty       int64  `json:"qty" validate:"required,gt=0"`
	ItemType  string `json:"item_type" validate:"omitempty,oneof=sale"`
}

// CreateOrderRequest is the payload for creating an order.
type CreateOrderRequest struct {
	TenantID    int64                `json:"tenant_id" validate:"required,gt=0"`
	CustomerID  int64                `json:"customer_id" validate:"required,gt=0"`
	PlannedDate time.Time            `json:"planned_date" validate:"required"`
	Notes       string               `json:"notes"`
	CreatorID   int64                `json:"creator_id"`
	CourierIDs  []int64              `json:"courier_ids" validate:"dive,gt=0"`
	Lines       []CreateOrderLineReq `json:"lines" validate:"required,min=1,dive"`
}

// UpdateOrderLineReq is a full replacement line. Unlike creation, the unit
// price is caller-supplied and trusted; it is validated non-negative only.
type UpdateOrderLineReq struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       int64   `json:"qty" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	ItemType  string  `json:"item_type" validate:"omitempty,oneof=sale"`
}

// UpdateOrderRequest replaces the order's header fields, courier links and
// line items wholesale.
type UpdateOrderRequest struct {
	TenantID    int64                `json:"tenant_id" validate:"required,gt=0"`
	PlannedDate time.Time            `json:"planned_date" validate:"required"`
	Notes       string               `json:"notes"`
	CourierIDs  []int64              `json:"courier_ids" validate:"dive,gt=0"`
	Lines       []UpdateOrderLineReq `json:"lines" validate:"required,min=1,dive"`
}

// CreateOrderResult identifies the records created by a successful submission.
type CreateOrderResult struct {
	OrderID       int64   `json:"order_id"`
	InvoiceID     int64   `json:"invoice_id"`
	InvoiceNumber int64   `json:"invoice_number"`
	GrandTotal    float64 `json:"grand_total"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	TenantID      int64
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Limit         int
}
