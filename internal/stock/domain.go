package stock

import (
	"fmt"
	"time"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// MovementType tags why a ledger entry exists.
type MovementType string

const (
	// MovementDispatchOut records stock leaving when an order is dispatched.
	MovementDispatchOut MovementType = "stock-out-from-dispatch"
	// MovementDeletionIn restores stock when a dispatched order is deleted.
	MovementDeletionIn MovementType = "stock-in-from-deletion"
	// MovementEditOut records stock leaving after an order edit increased
	// a quantity or introduced a new line item.
	MovementEditOut MovementType = "stock-out-from-edit"
	// MovementEditIn restores stock after an order edit reduced a quantity
	// or removed a line item.
	MovementEditIn MovementType = "stock-in-from-edit"
	// MovementAdjustIn is a manual positive correction.
	MovementAdjustIn MovementType = "stock-in-adjustment"
	// MovementAdjustOut is a manual negative correction.
	MovementAdjustOut MovementType = "stock-out-adjustment"
)

// Movement is one immutable ledger entry. QtyDelta is signed: positive for
// stock-in, negative for stock-out. The product's denormalized counter is
// advanced in the same transaction as the insert, so ledger and counter
// cannot diverge.
type Movement struct {
	ID        int64        `json:"id"`
	Code      string       `json:"code"`
	TenantID  int64        `json:"tenant_id"`
	ProductID int64        `json:"product_id"`
	OrderID   *int64       `json:"order_id,omitempty"`
	QtyDelta  int64        `json:"qty_delta"`
	Type      MovementType `json:"type"`
	Reason    string       `json:"reason,omitempty"`
	CreatedBy int64        `json:"created_by,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// AdjustmentRequest is a manual stock correction.
type AdjustmentRequest struct {
	TenantID  int64  `json:"tenant_id" validate:"required,gt=0"`
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	QtyDelta  int64  `json:"qty_delta" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
	ActorID   int64  `json:"actor_id"`
}

// ErrInsufficientStock is returned when a movement would drive a product's
// counter below zero and negative stock is not allowed.
var ErrInsufficientStock = fmt.Errorf("stock: insufficient stock: %w", shared.ErrConflict)
