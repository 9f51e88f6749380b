package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// Repository persists the price list in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Lookup returns the unit price for (product, tier) within the tenant.
func (r *Repository) Lookup(ctx context.Context, tenantID, productID int64, tier string) (float64, error) {
	var price float64
	err := r.pool.QueryRow(ctx,
		`SELECT unit_price FROM price_list WHERE tenant_id = $1 AND product_id = $2 AND tier = $3`,
		tenantID, productID, tier).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &PriceNotFoundError{ProductID: productID, Tier: tier}
		}
		return 0, err
	}
	return price, nil
}

// Upsert inserts or replaces the price for a (product, tier) pair.
func (r *Repository) Upsert(ctx context.Context, req UpsertPriceRequest) (*PriceEntry, error) {
	var entry PriceEntry
	err := r.pool.QueryRow(ctx,
		`INSERT INTO price_list (tenant_id, product_id, tier, unit_price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 ON CONFLICT (tenant_id, product_id, tier)
		 DO UPDATE SET unit_price = EXCLUDED.unit_price, updated_at = NOW()
		 RETURNING id, tenant_id, product_id, tier, unit_price, created_at, updated_at`,
		req.TenantID, req.ProductID, req.Tier, req.UnitPrice).
		Scan(&entry.ID, &entry.TenantID, &entry.ProductID, &entry.Tier, &entry.UnitPrice, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns the tenant's price list, optionally filtered by product.
func (r *Repository) List(ctx context.Context, tenantID int64, productID *int64) ([]PriceEntry, error) {
	query := `SELECT id, tenant_id, product_id, tier, unit_price, created_at, updated_at
		FROM price_list WHERE tenant_id = $1`
	args := []any{tenantID}
	if productID != nil {
		query += ` AND product_id = $2`
		args = append(args, *productID)
	}
	query += ` ORDER BY product_id, tier`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []PriceEntry
	for rows.Next() {
		var e PriceEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ProductID, &e.Tier, &e.UnitPrice, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes a price list entry.
func (r *Repository) Delete(ctx context.Context, tenantID, productID int64, tier string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM price_list WHERE tenant_id = $1 AND product_id = $2 AND tier = $3`,
		tenantID, productID, tier)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pricing: entry for product %d tier %q: %w", productID, tier, shared.ErrNotFound)
	}
	return nil
}
