package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*chi.Mux, *fixture) {
	t.Helper()
	fx := newFixture(t)
	h := NewHandler(slog.Default(), fx.service)
	r := chi.NewRouter()
	r.Route("/orders", h.MountRoutes)
	return r, fx
}

func TestHandlerCreateOrder(t *testing.T) {
	router, fx := newTestRouter(t)

	body, err := json.Marshal(createReq())
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var result CreateOrderResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotZero(t, result.OrderID)
	require.Equal(t, float64(2000), result.GrandTotal)
	require.Len(t, fx.repo.state.orders, 1)
}

func TestHandlerCreateOrderRejectsMissingLines(t *testing.T) {
	router, fx := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"tenant_id":1,"customer_id":7,"planned_date":"2025-06-01T00:00:00Z","lines":[]}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope["error"])
	require.Empty(t, fx.repo.state.orders)
}

func TestHandlerCreateOrderRejectsMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{not json`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetOrderNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/99?tenant_id=1", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerDeleteRequiresTenant(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/orders/1", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerDispatchConflict(t *testing.T) {
	router, fx := newTestRouter(t)

	body, err := json.Marshal(createReq())
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var result CreateOrderResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	path := fmt.Sprintf("/orders/%d/dispatch?tenant_id=1", result.OrderID)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, StatusSent, fx.repo.state.orders[result.OrderID].Status)
}
