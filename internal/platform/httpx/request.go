package httpx

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// TenantID resolves the tenant scope from the tenant_id query parameter,
// falling back to the authenticated actor.
func TenantID(r *http.Request) (int64, error) {
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid tenant_id: %w", shared.ErrValidation)
		}
		return id, nil
	}
	if actor := shared.ActorFromContext(r.Context()); actor != nil && actor.TenantID > 0 {
		return actor.TenantID, nil
	}
	return 0, fmt.Errorf("tenant_id is required: %w", shared.ErrValidation)
}

// PathID parses a positive integer URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %w", name, shared.ErrValidation)
	}
	return id, nil
}
