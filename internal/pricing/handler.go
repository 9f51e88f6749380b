package pricing

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-oms/meridian-oms/internal/platform/httpx"
	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// Handler exposes price list management endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers pricing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Put("/", h.upsert)
	r.Delete("/{productID}/{tier}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var productID *int64
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("invalid product_id: %w", shared.ErrValidation))
			return
		}
		productID = &id
	}
	entries, err := h.repo.List(r.Context(), tenantID, productID)
	if err != nil {
		h.logger.Error("list prices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"prices": entries})
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertPriceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("decode body: %w", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.repo.Upsert(r.Context(), req)
	if err != nil {
		h.logger.Error("upsert price", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	productID, err := httpx.PathID(r, "productID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tier := chi.URLParam(r, "tier")
	if tier == "" {
		httpx.RespondError(w, fmt.Errorf("tier is required: %w", shared.ErrValidation))
		return
	}
	if err := h.repo.Delete(r.Context(), tenantID, productID, tier); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "price entry deleted"})
}
