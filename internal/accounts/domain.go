package accounts

import "time"

// User roles.
const (
	RoleSuperAdmin = "super-admin"
	RoleAdmin      = "admin"
	RoleDelivery   = "delivery"
)

// Tenant is a company whose records are isolated from every other tenant.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is an account scoped to a tenant.
type User struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenant_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterTenantRequest creates a tenant together with its first admin user.
type RegisterTenantRequest struct {
	Name       string `json:"name" validate:"required"`
	AdminName  string `json:"admin_name" validate:"required"`
	AdminEmail string `json:"admin_email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
}

// CreateUserRequest adds a user to an existing tenant.
type CreateUserRequest struct {
	TenantID int64  `json:"tenant_id" validate:"required,gt=0"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=super-admin admin delivery"`
}

// LoginRequest authenticates a user by email and password.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token the client presents on later calls.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
