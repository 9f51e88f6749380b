package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

type memoryAccounts struct {
	nextID  int64
	byEmail map[string]*User
}

func (m *memoryAccounts) RegisterTenant(ctx context.Context, name string, admin *User) (*Tenant, error) {
	m.nextID++
	tenant := &Tenant{ID: m.nextID, Name: name}
	admin.TenantID = tenant.ID
	if err := m.CreateUser(ctx, admin); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (m *memoryAccounts) CreateUser(ctx context.Context, u *User) error {
	if _, exists := m.byEmail[u.Email]; exists {
		return fmt.Errorf("accounts: email %s already registered: %w", u.Email, shared.ErrConflict)
	}
	m.nextID++
	u.ID = m.nextID
	u.IsActive = true
	cp := *u
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memoryAccounts) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("accounts: user %s: %w", email, shared.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memoryAccounts) GetUser(ctx context.Context, tenantID, id int64) (*User, error) {
	for _, u := range m.byEmail {
		if u.ID == id && u.TenantID == tenantID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("accounts: user %d: %w", id, shared.ErrNotFound)
}

func (m *memoryAccounts) ListUsers(ctx context.Context, tenantID int64) ([]User, error) {
	var out []User
	for _, u := range m.byEmail {
		if u.TenantID == tenantID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memoryAccounts) SetUserActive(ctx context.Context, tenantID, id int64, active bool) error {
	for _, u := range m.byEmail {
		if u.ID == id && u.TenantID == tenantID {
			u.IsActive = active
			return nil
		}
	}
	return fmt.Errorf("accounts: user %d: %w", id, shared.ErrNotFound)
}

type memorySessions struct {
	issued  []shared.Actor
	revoked []string
}

func (m *memorySessions) Issue(ctx context.Context, actor shared.Actor) (string, error) {
	m.issued = append(m.issued, actor)
	return fmt.Sprintf("token-%d", len(m.issued)), nil
}

func (m *memorySessions) Revoke(ctx context.Context, token string) error {
	m.revoked = append(m.revoked, token)
	return nil
}

func newAccountsFixture(t *testing.T) (*memoryAccounts, *memorySessions, *Service) {
	t.Helper()
	repo := &memoryAccounts{byEmail: make(map[string]*User)}
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.byEmail["owner@acme.test"] = &User{
		ID: 1, TenantID: 1, Name: "Owner", Email: "owner@acme.test",
		PasswordHash: string(hash), Role: RoleAdmin, IsActive: true,
	}
	repo.nextID = 1
	sessions := &memorySessions{}
	return repo, sessions, NewService(slog.Default(), repo, sessions)
}

func TestLoginIssuesSessionToken(t *testing.T) {
	_, sessions, svc := newAccountsFixture(t)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "owner@acme.test", Password: "correct horse"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, int64(1), resp.User.TenantID)
	require.Len(t, sessions.issued, 1)
	require.Equal(t, RoleAdmin, sessions.issued[0].Role)
}

func TestLoginWrongPassword(t *testing.T) {
	_, sessions, svc := newAccountsFixture(t)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "owner@acme.test", Password: "wrong"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.Empty(t, sessions.issued)
}

func TestLoginUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	_, _, svc := newAccountsFixture(t)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@acme.test", Password: "whatever"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginInactiveUserRejected(t *testing.T) {
	repo, _, svc := newAccountsFixture(t)
	repo.byEmail["owner@acme.test"].IsActive = false

	_, err := svc.Login(context.Background(), LoginRequest{Email: "owner@acme.test", Password: "correct horse"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterTenantCreatesAdmin(t *testing.T) {
	repo, _, svc := newAccountsFixture(t)

	tenant, admin, err := svc.RegisterTenant(context.Background(), RegisterTenantRequest{
		Name: "Globex", AdminName: "Hank", AdminEmail: "hank@globex.test", Password: "long enough",
	})
	require.NoError(t, err)
	require.NotZero(t, tenant.ID)
	require.Equal(t, tenant.ID, admin.TenantID)
	require.Equal(t, RoleAdmin, admin.Role)
	require.NotEqual(t, "long enough", admin.PasswordHash)

	stored := repo.byEmail["hank@globex.test"]
	require.NotNil(t, stored)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("long enough")))
}

func TestCreateUserDuplicateEmailConflicts(t *testing.T) {
	_, _, svc := newAccountsFixture(t)

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{
		TenantID: 1, Name: "Dup", Email: "owner@acme.test", Password: "long enough", Role: RoleDelivery,
	})
	require.ErrorIs(t, err, shared.ErrConflict)
}
