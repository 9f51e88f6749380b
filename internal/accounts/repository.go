package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-oms/meridian-oms/internal/platform/db"
	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// Repository persists tenants and users.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const userColumns = `id, tenant_id, name, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// RegisterTenant creates the tenant and its first admin user in one
// transaction. A duplicate admin email surfaces as a conflict.
func (r *Repository) RegisterTenant(ctx context.Context, name string, admin *User) (*Tenant, error) {
	var tenant Tenant
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO tenants (name, created_at, updated_at) VALUES ($1, NOW(), NOW())
			 RETURNING id, name, created_at, updated_at`, name).
			Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt, &tenant.UpdatedAt)
		if err != nil {
			return fmt.Errorf("accounts: insert tenant: %w", err)
		}
		admin.TenantID = tenant.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO users (tenant_id, name, email, password_hash, role, is_active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
			 RETURNING id, created_at, updated_at`,
			admin.TenantID, admin.Name, admin.Email, admin.PasswordHash, admin.Role).
			Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("accounts: email %s already registered: %w", admin.Email, shared.ErrConflict)
			}
			return fmt.Errorf("accounts: insert admin: %w", err)
		}
		admin.IsActive = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// CreateUser adds a user to a tenant.
func (r *Repository) CreateUser(ctx context.Context, u *User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (tenant_id, name, email, password_hash, role, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		u.TenantID, u.Name, u.Email, u.PasswordHash, u.Role).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("accounts: email %s already registered: %w", u.Email, shared.ErrConflict)
		}
		return fmt.Errorf("accounts: insert user: %w", err)
	}
	u.IsActive = true
	return nil
}

// GetUserByEmail looks a user up across tenants for login.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("accounts: user %s: %w", email, shared.ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

// GetUser returns one tenant-scoped user.
func (r *Repository) GetUser(ctx context.Context, tenantID, id int64) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("accounts: user %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

// ListUsers returns the tenant's users.
func (r *Repository) ListUsers(ctx context.Context, tenantID int64) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetUserActive enables or disables a user.
func (r *Repository) SetUserActive(ctx context.Context, tenantID, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2 AND tenant_id = $3`,
		active, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("accounts: user %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
