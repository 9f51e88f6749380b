package customers

import "time"

// Customer is a buyer scoped to a tenant. PricingTier selects which price
// list row applies when an order is created.
type Customer struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	Name        string    `json:"name"`
	PricingTier string    `json:"pricing_tier"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCustomerRequest is the payload for creating a customer.
type CreateCustomerRequest struct {
	TenantID    int64  `json:"tenant_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required"`
	PricingTier string `json:"pricing_tier" validate:"required"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

// UpdateCustomerRequest carries optional field updates.
type UpdateCustomerRequest struct {
	TenantID    int64   `json:"tenant_id" validate:"required,gt=0"`
	Name        *string `json:"name,omitempty"`
	PricingTier *string `json:"pricing_tier,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}
