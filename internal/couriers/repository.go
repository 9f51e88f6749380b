package couriers

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

// Get returns a courier scoped by tenant.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*Courier, error) {
	var c Courier
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, phone, is_active, created_at, updated_at
		 FROM couriers WHERE id = $1 AND tenant_id = $2`, id, tenantID).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("couriers: courier %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

// List returns all couriers for the tenant.
func (r *Repository) List(ctx context.Context, tenantID int64) ([]Courier, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, name, phone, is_active, created_at, updated_at
		 FROM couriers WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var couriers []Courier
	for rows.Next() {
		var c Courier
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		couriers = append(couriers, c)
	}
	return couriers, rows.Err()
}

// Create inserts a new courier.
func (r *Repository) Create(ctx context.Context, req CreateCourierRequest) (*Courier, error) {
	var c Courier
	err := r.pool.QueryRow(ctx,
		`INSERT INTO couriers (tenant_id, name, phone, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		 RETURNING id, tenant_id, name, phone, is_active, created_at, updated_at`,
		req.TenantID, req.Name, req.Phone).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Update applies the supplied field updates.
func (r *Repository) Update(ctx context.Context, id int64, req UpdateCourierRequest) (*Courier, error) {
	existing, err := r.Get(ctx, req.TenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Phone != nil {
		existing.Phone = *req.Phone
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE couriers SET name = $1, phone = $2, is_active = $3, updated_at = NOW()
		 WHERE id = $4 AND tenant_id = $5`,
		existing.Name, existing.Phone, existing.IsActive, id, req.TenantID)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a courier.
func (r *Repository) Delete(ctx context.Context, tenantID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM couriers WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("couriers: courier %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
