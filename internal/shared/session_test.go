package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, time.Hour), mr
}

func TestSessionRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, Actor{UserID: 7, TenantID: 3, Role: "admin"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	actor, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, int64(7), actor.UserID)
	require.Equal(t, int64(3), actor.TenantID)
	require.Equal(t, "admin", actor.Role)
}

func TestSessionRevoke(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, Actor{UserID: 1, TenantID: 1, Role: "delivery"})
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, token))

	_, err = store.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, Actor{UserID: 2, TenantID: 1, Role: "admin"})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = store.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionUnknownToken(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Resolve(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
