// Package app wires the service graph: stores over the pgx pool, the redis
// limiter, blob storage and the domain services the HTTP layer consumes.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/nusacloud/billing-api/internal/auth"
	"github.com/nusacloud/billing-api/internal/config"
	"github.com/nusacloud/billing-api/internal/format"
	"github.com/nusacloud/billing-api/internal/limits"
	"github.com/nusacloud/billing-api/internal/observability"
	"github.com/nusacloud/billing-api/internal/render"
	contractsvc "github.com/nusacloud/billing-api/internal/services/contracts"
	directorysvc "github.com/nusacloud/billing-api/internal/services/directory"
	gatewaysvc "github.com/nusacloud/billing-api/internal/services/gateway"
	invoicesvc "github.com/nusacloud/billing-api/internal/services/invoices"
	notificationsvc "github.com/nusacloud/billing-api/internal/services/notifications"
	reportingsvc "github.com/nusacloud/billing-api/internal/services/reporting"
	settingssvc "github.com/nusacloud/billing-api/internal/services/settings"
	"github.com/nusacloud/billing-api/internal/storage/blob"
	"github.com/nusacloud/billing-api/internal/store"
)

// Container aggregates runtime dependencies for handlers and services.
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	DBPool *pgxpool.Pool
	Redis  *redis.Client

	Tokens        *auth.TokenManager
	Auth          *auth.Service
	Reporting     *reportingsvc.Service
	Invoices      *invoicesvc.Service
	Contracts     *contractsvc.Service
	Notifications *notificationsvc.Service
	Directory     *directorysvc.Service
	Settings      *settingssvc.Service
	Gateway       *gatewaysvc.Service
	Documents     blob.Store
	Observability *observability.Provider
}

// NewContainer builds a dependency container from the provided primitives.
func NewContainer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, obs *observability.Provider, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("db pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	locName := strings.TrimSpace(cfg.Reporting.Timezone)
	if locName == "" {
		locName = "UTC"
	}
	reportingLoc, err := time.LoadLocation(locName)
	if err != nil {
		return nil, fmt.Errorf("load reporting timezone: %w", err)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, "billing-api")
	if err != nil {
		return nil, fmt.Errorf("build token manager: %w", err)
	}

	var loginLimiter auth.LoginLimiter
	if redisClient != nil {
		loginLimiter = limits.NewAttemptLimiter(redisClient, "login", cfg.Auth.LoginAttemptsPerMin, time.Minute)
	}

	documents, err := blob.New(ctx, cfg.Documents)
	if err != nil {
		return nil, fmt.Errorf("build document store: %w", err)
	}

	billingStore := store.NewBillingStore(pool)
	dailyStore := store.NewDailyStore(pool)
	skuStore := store.NewSkuStore(pool)
	userStore := store.NewUserStore(pool)
	clientStore := store.NewClientStore(pool)
	invoiceStore := store.NewInvoiceStore(pool)
	contractStore := store.NewContractStore(pool)
	notificationStore := store.NewNotificationStore(pool)
	settingsStore := store.NewSettingsStore(pool)
	gatewayStore := store.NewGatewayStore(pool)

	locale := format.Indonesian
	if cfg.Reporting.CurrencyPrefix != "" {
		locale.CurrencyPrefix = cfg.Reporting.CurrencyPrefix
	}
	formatter := format.NewFormatter(locale)

	var reportMetrics reportingsvc.MetricsRecorder
	if obs != nil {
		reportMetrics = obs
	}
	reporting := reportingsvc.NewService(billingStore, dailyStore, skuStore, formatter, reportMetrics, reportingsvc.Options{
		Timezone:        reportingLoc,
		MaxRangeDays:    cfg.Reporting.MaxRangeDays,
		BudgetDefault:   decimal.NewFromFloat(cfg.Reporting.BudgetDefault),
		BudgetThreshold: cfg.Reporting.BudgetThreshold,
		TrendTopN:       cfg.Reporting.TrendTopN,
	})

	renderer := render.NewHTTPRenderer(cfg.Renderer)
	directory := directorysvc.NewService(userStore, clientStore)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		DBPool:        pool,
		Redis:         redisClient,
		Tokens:        tokens,
		Auth:          auth.NewService(userStore, tokens, loginLimiter, logger),
		Reporting:     reporting,
		Invoices:      invoicesvc.NewService(invoiceStore, documents, renderer, formatter, directory, cfg.Documents.SignedURLTTL, logger),
		Contracts:     contractsvc.NewService(contractStore, documents, cfg.Documents.SignedURLTTL, logger),
		Notifications: notificationsvc.NewService(notificationStore),
		Directory:     directory,
		Settings:      settingssvc.NewService(settingsStore),
		Gateway:       gatewaysvc.NewService(gatewayStore, documents, cfg.Documents.SignedURLTTL, logger),
		Documents:     documents,
		Observability: obs,
	}, nil
}
