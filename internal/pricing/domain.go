package pricing

import (
	"fmt"
	"time"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// PriceEntry is one row of the tenant's price list, keyed by product and
// pricing tier.
type PriceEntry struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	ProductID int64     `json:"product_id"`
	Tier      string    `json:"tier"`
	UnitPrice float64   `json:"unit_price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertPriceRequest sets the unit price for a (product, tier) pair.
type UpsertPriceRequest struct {
	TenantID  int64   `json:"tenant_id" validate:"required,gt=0"`
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Tier      string  `json:"tier" validate:"required"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

// PriceNotFoundError names the offending product/tier combination. There is
// no fallback tier and no default price: absence fails the whole operation.
type PriceNotFoundError struct {
	ProductID int64
	Tier      string
}

func (e *PriceNotFoundError) Error() string {
	return fmt.Sprintf("pricing: no price for product %d in tier %q", e.ProductID, e.Tier)
}

func (e *PriceNotFoundError) Unwrap() error {
	return shared.ErrNotFound
}
