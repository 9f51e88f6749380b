package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns a customer scoped by tenant.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, pricing_tier, phone, address, is_active, created_at, updated_at
		 FROM customers WHERE id = $1 AND tenant_id = $2`, id, tenantID).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.PricingTier, &c.Phone, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

// List returns all customers for the tenant.
func (r *Repository) List(ctx context.Context, tenantID int64) ([]Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, name, pricing_tier, phone, address, is_active, created_at, updated_at
		 FROM customers WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.PricingTier, &c.Phone, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// Create inserts a new customer.
func (r *Repository) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customers (tenant_id, name, pricing_tier, phone, address, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		 RETURNING id, tenant_id, name, pricing_tier, phone, address, is_active, created_at, updated_at`,
		req.TenantID, req.Name, req.PricingTier, req.Phone, req.Address).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.PricingTier, &c.Phone, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Update applies the supplied field updates.
func (r *Repository) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	existing, err := r.Get(ctx, req.TenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.PricingTier != nil {
		existing.PricingTier = *req.PricingTier
	}
	if req.Phone != nil {
		existing.Phone = *req.Phone
	}
	if req.Address != nil {
		existing.Address = *req.Address
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE customers SET name = $1, pricing_tier = $2, phone = $3, address = $4, is_active = $5, updated_at = NOW()
		 WHERE id = $6 AND tenant_id = $7`,
		existing.Name, existing.PricingTier, existing.Phone, existing.Address, existing.IsActive, id, req.TenantID)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a customer.
func (r *Repository) Delete(ctx context.Context, tenantID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
