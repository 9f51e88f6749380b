package expenses

import "time"

// ExpenseReport is a spending record scoped to a tenant and its creator.
type ExpenseReport struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	CreatorID   int64     `json:"creator_id"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount"`
	SpentAt     time.Time `json:"spent_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateExpenseRequest is the payload for recording an expense.
type CreateExpenseRequest struct {
	TenantID    int64     `json:"tenant_id" validate:"required,gt=0"`
	CreatorID   int64     `json:"creator_id"`
	Category    string    `json:"category" validate:"required"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	SpentAt     time.Time `json:"spent_at" validate:"required"`
}

// UpdateExpenseRequest carries optional field updates.
type UpdateExpenseRequest struct {
	TenantID    int64      `json:"tenant_id" validate:"required,gt=0"`
	Category    *string    `json:"category,omitempty"`
	Description *string    `json:"description,omitempty"`
	Amount      *float64   `json:"amount,omitempty" validate:"omitempty,gt=0"`
	SpentAt     *time.Time `json:"spent_at,omitempty"`
}
