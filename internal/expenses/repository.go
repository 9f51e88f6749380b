package expenses

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

const expenseColumns = `id, tenant_id, creator_id, category, description, amount, spent_at, created_at, updated_at`

func scanExpense(row pgx.Row) (*ExpenseReport, error) {
	var e ExpenseReport
	err := row.Scan(&e.ID, &e.TenantID, &e.CreatorID, &e.Category, &e.Description, &e.Amount, &e.SpentAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Get returns an expense report scoped by tenant.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*ExpenseReport, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx,
		`SELECT `+expenseColumns+` FROM expense_reports WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expenses: report %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return e, nil
}

// List returns the tenant's expense reports, optionally limited to one
// creator, newest spend first.
func (r *Repository) List(ctx context.Context, tenantID, creatorID int64) ([]ExpenseReport, error) {
	query := `SELECT ` + expenseColumns + ` FROM expense_reports WHERE tenant_id = $1`
	args := []any{tenantID}
	if creatorID > 0 {
		args = append(args, creatorID)
		query += fmt.Sprintf(" AND creator_id = $%d", len(args))
	}
	query += " ORDER BY spent_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reports []ExpenseReport
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *e)
	}
	return reports, rows.Err()
}

// Create inserts a new expense report.
func (r *Repository) Create(ctx context.Context, req CreateExpenseRequest) (*ExpenseReport, error) {
	e, err := scanExpense(r.pool.QueryRow(ctx,
		`INSERT INTO expense_reports (tenant_id, creator_id, category, description, amount, spent_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING `+expenseColumns,
		req.TenantID, req.CreatorID, req.Category, req.Description, req.Amount, req.SpentAt))
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Update applies the supplied field updates.
func (r *Repository) Update(ctx context.Context, id int64, req UpdateExpenseRequest) (*ExpenseReport, error) {
	existing, err := r.Get(ctx, req.TenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Category != nil {
		existing.Category = *req.Category
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.Amount != nil {
		existing.Amount = *req.Amount
	}
	if req.SpentAt != nil {
		existing.SpentAt = *req.SpentAt
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE expense_reports SET category = $1, description = $2, amount = $3, spent_at = $4, updated_at = NOW()
		 WHERE id = $5 AND tenant_id = $6`,
		existing.Category, existing.Description, existing.Amount, existing.SpentAt, id, req.TenantID)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes an expense report.
func (r *Repository) Delete(ctx context.Context, tenantID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expense_reports WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expenses: report %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
