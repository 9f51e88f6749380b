package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	RegisterTenant(ctx context.Context, name string, admin *User) (*Tenant, error)
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, tenantID, id int64) (*User, error)
	ListUsers(ctx context.Context, tenantID int64) ([]User, error)
	SetUserActive(ctx context.Context, tenantID, id int64, active bool) error
}

// SessionPort issues and revokes bearer tokens.
type SessionPort interface {
	Issue(ctx context.Context, actor shared.Actor) (string, error)
	Revoke(ctx context.Context, token string) error
}

// Service manages tenants, users and authentication.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	sessions SessionPort
}

// NewService builds a Service.
func NewService(logger *slog.Logger, repo RepositoryPort, sessions SessionPort) *Service {
	return &Service{logger: logger, repo: repo, sessions: sessions}
}

// RegisterTenant creates a tenant and its first admin user.
func (s *Service) RegisterTenant(ctx context.Context, req RegisterTenantRequest) (*Tenant, *User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("accounts: hash password: %w", err)
	}
	admin := &User{
		Name:         req.AdminName,
		Email:        req.AdminEmail,
		PasswordHash: string(hash),
		Role:         RoleAdmin,
	}
	tenant, err := s.repo.RegisterTenant(ctx, req.Name, admin)
	if err != nil {
		return nil, nil, err
	}
	return tenant, admin, nil
}

// CreateUser adds a user to the tenant.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("accounts: hash password: %w", err)
	}
	user := &User{
		TenantID:     req.TenantID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, shared.ErrInvalidCredentials
	}
	token, err := s.sessions.Issue(ctx, shared.Actor{UserID: user.ID, TenantID: user.TenantID, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("accounts: issue session: %w", err)
	}
	return &LoginResponse{Token: token, User: *user}, nil
}

// Logout revokes the presented token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// GetUser returns one tenant-scoped user.
func (s *Service) GetUser(ctx context.Context, tenantID, id int64) (*User, error) {
	return s.repo.GetUser(ctx, tenantID, id)
}

// ListUsers returns the tenant's users.
func (s *Service) ListUsers(ctx context.Context, tenantID int64) ([]User, error) {
	return s.repo.ListUsers(ctx, tenantID)
}

// SetUserActive enables or disables a user.
func (s *Service) SetUserActive(ctx context.Context, tenantID, id int64, active bool) error {
	return s.repo.SetUserActive(ctx, tenantID, id, active)
}
