package shared

import "context"

type contextKey string

const actorContextKey contextKey = "meridian.actor"

// Actor identifies the authenticated caller attached to a request context.
type Actor struct {
	UserID   int64
	TenantID int64
	Role     string
}

// ContextWithActor attaches the actor to the context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext returns the actor stored in the context, or nil.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey).(*Actor)
	return actor
}
