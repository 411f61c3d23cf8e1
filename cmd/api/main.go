package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vaulttrove/labels-backend/api/routes"
	"github.com/vaulttrove/labels-backend/internal/admin"
	"github.com/vaulttrove/labels-backend/internal/batches"
	"github.com/vaulttrove/labels-backend/internal/labelmerge"
	"github.com/vaulttrove/labels-backend/internal/labels"
	"github.com/vaulttrove/labels-backend/internal/orders"
	"github.com/vaulttrove/labels-backend/internal/settings"
	"github.com/vaulttrove/labels-backend/internal/usage"
	"github.com/vaulttrove/labels-backend/pkg/config"
	"github.com/vaulttrove/labels-backend/pkg/db"
	"github.com/vaulttrove/labels-backend/pkg/easypost"
	"github.com/vaulttrove/labels-backend/pkg/env"
	"github.com/vaulttrove/labels-backend/pkg/instance"
	"github.com/vaulttrove/labels-backend/pkg/logger"
	"github.com/vaulttrove/labels-backend/pkg/metrics"
	"github.com/vaulttrove/labels-backend/pkg/migrate"
	"github.com/vaulttrove/labels-backend/pkg/outbox"
	"github.com/vaulttrove/labels-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server stopped")
	}
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg *prometheus.Registry) (routes.Dependencies, error) {
	conn := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(conn), logg)

	carrierHTTP := &http.Client{Timeout: cfg.Carrier.Timeout}
	newCarrier := func(apiKey string) (*easypost.Client, error) {
		return easypost.NewClient(apiKey,
			easypost.WithBaseURL(cfg.Carrier.BaseURL),
			easypost.WithHTTPClient(carrierHTTP),
		)
	}

	settingsService, err := settings.NewService(settings.ServiceParams{
		Repository: settings.NewRepository(conn),
		Tx:         dbClient,
		Outbox:     events,
		Verifier: func(apiKey string) (settings.CredentialVerifier, error) {
			return newCarrier(apiKey)
		},
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	usageService, err := usage.NewService(usage.ServiceParams{
		Repository: usage.NewRepository(conn),
		FreeQuota:  cfg.Labels.FreeMonthlyQuota,
		Redirect:   cfg.Labels.BillingRedirect,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	batchRepo := batches.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	labelService, err := labels.NewService(labels.ServiceParams{
		Settings: settingsService,
		Usage:    usageService,
		Batches:  batchRepo,
		Orders:   orderRepo,
		Tx:       dbClient,
		Outbox:   events,
		Carriers: func(apiKey string) (labels.Carrier, error) {
			return newCarrier(apiKey)
		},
		Locker:        redisClient,
		Metrics:       metrics.NewLabelMetrics(reg),
		Logger:        logg,
		FallbackPrice: cfg.Labels.FallbackPrice(),
		MaxBatchSize:  cfg.Labels.MaxBatchSize,
		BatchTimeout:  cfg.Labels.BatchTimeout,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	ordersService, err := orders.NewService(orderRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}
	batchService, err := batches.NewService(batchRepo, orderRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}
	adminService, err := admin.NewService(admin.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}

	merger := labelmerge.NewService(labelmerge.ServiceParams{
		HTTPClient:  &http.Client{Timeout: cfg.Merge.FetchTimeout},
		Logger:      logg,
		Concurrency: cfg.Merge.FetchConcurrency,
		Timeout:     cfg.Merge.FetchTimeout,
		MaxLabels:   cfg.Merge.MaxLabels,
		Merge:       labelmerge.PDFCPUMerge,
	})

	return routes.Dependencies{
		DB:       dbClient,
		Redis:    redisClient,
		Gatherer: reg,
		Metrics:  metrics.NewHTTPMetrics(reg),
		Labels:   labelService,
		Merger:   merger,
		Orders:   ordersService,
		Batches:  batchService,
		Settings: settingsService,
		Usage:    usageService,
		Admin:    adminService,
	}, nil
}
