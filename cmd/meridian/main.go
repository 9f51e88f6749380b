package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-oms/meridian-oms/internal/accounts"
	"github.com/meridian-oms/meridian-oms/internal/app"
	"github.com/meridian-oms/meridian-oms/internal/couriers"
	"github.com/meridian-oms/meridian-oms/internal/customers"
	"github.com/meridian-oms/meridian-oms/internal/expenses"
	"github.com/meridian-oms/meridian-oms/internal/invoicing"
	"github.com/meridian-oms/meridian-oms/internal/orders"
	"github.com/meridian-oms/meridian-oms/internal/payments"
	"github.com/meridian-oms/meridian-oms/internal/platform/cache"
	"github.com/meridian-oms/meridian-oms/internal/platform/db"
	"github.com/meridian-oms/meridian-oms/internal/pricing"
	"github.com/meridian-oms/meridian-oms/internal/products"
	"github.com/meridian-oms/meridian-oms/internal/shared"
	"github.com/meridian-oms/meridian-oms/internal/stock"
	"github.com/meridian-oms/meridian-oms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessions := shared.NewSessionStore(redisClient, cfg.SessionTTL)
	auditLogger := shared.NewAuditLogger(pool)

	notifier, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(logger, accountsRepo, sessions)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	customersRepo := customers.NewRepository(pool)
	customersHandler := customers.NewHandler(logger, customersRepo)

	productsRepo := products.NewRepository(pool)
	productsHandler := products.NewHandler(logger, productsRepo)

	couriersRepo := couriers.NewRepository(pool)
	couriersHandler := couriers.NewHandler(logger, couriersRepo)

	pricingRepo := pricing.NewRepository(pool)
	pricingHandler := pricing.NewHandler(logger, pricingRepo)
	priceResolver := pricing.NewResolver(pricingRepo)

	stockRepo := stock.NewRepository(pool, cfg.AllowNegativeStock)
	stockService := stock.NewService(stockRepo, auditLogger)
	stockHandler := stock.NewHandler(logger, stockService)

	invoicesRepo := invoicing.NewRepository(pool)
	invoicesHandler := invoicing.NewHandler(logger, invoicesRepo)

	ordersRepo := orders.NewRepository(pool, cfg.AllowNegativeStock)
	ordersService := orders.NewService(logger, ordersRepo, customersRepo, priceResolver, auditLogger, notifier)
	ordersHandler := orders.NewHandler(logger, ordersService)

	paymentsRepo := payments.NewRepository(pool)
	paymentsService := payments.NewService(logger, paymentsRepo, auditLogger)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	expensesRepo := expenses.NewRepository(pool)
	expensesHandler := expenses.NewHandler(logger, expensesRepo)

	router := app.NewRouter(app.RouterParams{
		Logger:    logger,
		Config:    cfg,
		Sessions:  sessions,
		Accounts:  accountsHandler,
		Customers: customersHandler,
		Products:  productsHandler,
		Couriers:  couriersHandler,
		Pricing:   pricingHandler,
		Stock:     stockHandler,
		Orders:    ordersHandler,
		Invoices:  invoicesHandler,
		Payments:  paymentsHandler,
		Expenses:  expensesHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
