package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-oms/meridian-oms/internal/accounts"
	"github.com/meridian-oms/meridian-oms/internal/couriers"
	"github.com/meridian-oms/meridian-oms/internal/customers"
	"github.com/meridian-oms/meridian-oms/internal/expenses"
	"github.com/meridian-oms/meridian-oms/internal/invoicing"
	"github.com/meridian-oms/meridian-oms/internal/orders"
	"github.com/meridian-oms/meridian-oms/internal/payments"
	"github.com/meridian-oms/meridian-oms/internal/platform/httpx"
	"github.com/meridian-oms/meridian-oms/internal/pricing"
	"github.com/meridian-oms/meridian-oms/internal/products"
	"github.com/meridian-oms/meridian-oms/internal/shared"
	"github.com/meridian-oms/meridian-oms/internal/stock"
)

// RouterParams aggregates the handlers mounted on the HTTP surface.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Sessions *shared.SessionStore

	Accounts  *accounts.Handler
	Customers *customers.Handler
	Products  *products.Handler
	Couriers  *couriers.Handler
	Pricing   *pricing.Handler
	Stock     *stock.Handler
	Orders    *orders.Handler
	Invoices  *invoicing.Handler
	Payments  *payments.Handler
	Expenses  *expenses.Handler
}

// NewRouter assembles the chi router with the full middleware stack and all
// mounted modules.
func NewRouter(p RouterParams) *chi.Mux {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config, Sessions: p.Sessions}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", p.Accounts.MountAuthRoutes)
	r.Route("/users", p.Accounts.MountUserRoutes)
	r.Route("/customers", p.Customers.MountRoutes)
	r.Route("/products", p.Products.MountRoutes)
	r.Route("/couriers", p.Couriers.MountRoutes)
	r.Route("/pricing", p.Pricing.MountRoutes)
	r.Route("/stock", p.Stock.MountRoutes)
	r.Route("/orders", p.Orders.MountRoutes)
	r.Route("/invoices", p.Invoices.MountRoutes)
	r.Route("/payments", p.Payments.MountRoutes)
	r.Route("/expenses", p.Expenses.MountRoutes)

	return r
}
