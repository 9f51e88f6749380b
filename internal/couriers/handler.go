package couriers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-oms/meridian-oms/internal/platform/httpx"
	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// Handler exposes courier endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers courier routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	couriers, err := h.repo.List(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("list couriers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"couriers": couriers})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	courier, err := h.repo.Get(r.Context(), tenantID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, courier)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateCourierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("decode body: %w", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	courier, err := h.repo.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create courier", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, courier)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateCourierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("decode body: %w", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	courier, err := h.repo.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update courier", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, courier)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.repo.Delete(r.Context(), tenantID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "courier deleted"})
}
