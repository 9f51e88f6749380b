package products

import "time"

// Product carries the denormalized stock counter for a tenant's catalog item.
// StockQty is only ever advanced through stock ledger movements so the counter
// and the ledger cannot diverge.
type Product struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	StockQty  int64     `json:"stock_qty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateProductRequest is the payload for creating a product.
type CreateProductRequest struct {
	TenantID        int64  `json:"tenant_id" validate:"required,gt=0"`
	Name            string `json:"name" validate:"required"`
	SKU             string `json:"sku"`
	Unit            string `json:"unit"`
	InitialStockQty int64  `json:"initial_stock_qty" validate:"gte=0"`
}

// UpdateProductRequest carries optional field updates. Stock is deliberately
// absent: the counter moves only through the stock ledger.
type UpdateProductRequest struct {
	TenantID int64   `json:"tenant_id" validate:"required,gt=0"`
	Name     *string `json:"name,omitempty"`
	SKU      *string `json:"sku,omitempty"`
	Unit     *string `json:"unit,omitempty"`
}
