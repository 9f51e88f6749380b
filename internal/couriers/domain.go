package couriers

import "time"

// Courier is a delivery person assignable to orders.
type Courier struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCourierRequest is the payload for creating a courier.
type CreateCourierRequest struct {
	TenantID int64  `json:"tenant_id" validate:"required,gt=0"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone"`
}

// UpdateCourierRequest carries optional field updates.
type UpdateCourierRequest struct {
	TenantID int64   `json:"tenant_id" validate:"required,gt=0"`
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}
