package products

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

const productColumns = "id, tenant_id, name, sku, unit, stock_qty, created_at, updated_at"

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.SKU, &p.Unit, &p.StockQty, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get returns a product scoped by tenant.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("products: product %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// List returns all products for the tenant.
func (r *Repository) List(ctx context.Context, tenantID int64) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.SKU, &p.Unit, &p.StockQty, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Create inserts a new product with its opening stock quantity.
func (r *Repository) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`INSERT INTO products (tenant_id, name, sku, unit, stock_qty, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING `+productColumns,
		req.TenantID, req.Name, req.SKU, req.Unit, req.InitialStockQty))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies the supplied field updates.
func (r *Repository) Update(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	existing, err := r.Get(ctx, req.TenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.SKU != nil {
		existing.SKU = *req.SKU
	}
	if req.Unit != nil {
		existing.Unit = *req.Unit
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE products SET name = $1, sku = $2, unit = $3, updated_at = NOW()
		 WHERE id = $4 AND tenant_id = $5`,
		existing.Name, existing.SKU, existing.Unit, id, req.TenantID)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes a product.
func (r *Repository) Delete(ctx context.Context, tenantID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("products: product %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
