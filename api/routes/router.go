package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaulttrove/labels-backend/api/controllers"
	admincontrollers "github.com/vaulttrove/labels-backend/api/controllers/admin"
	batchcontrollers "github.com/vaulttrove/labels-backend/api/controllers/batches"
	labelcontrollers "github.com/vaulttrove/labels-backend/api/controllers/labels"
	ordercontrollers "github.com/vaulttrove/labels-backend/api/controllers/orders"
	settingscontrollers "github.com/vaulttrove/labels-backend/api/controllers/settings"
	"github.com/vaulttrove/labels-backend/api/middleware"
	"github.com/vaulttrove/labels-backend/internal/admin"
	"github.com/vaulttrove/labels-backend/internal/batches"
	"github.com/vaulttrove/labels-backend/internal/labels"
	"github.com/vaulttrove/labels-backend/internal/orders"
	"github.com/vaulttrove/labels-backend/internal/settings"
	"github.com/vaulttrove/labels-backend/internal/usage"
	"github.com/vaulttrove/labels-backend/pkg/config"
	"github.com/vaulttrove/labels-backend/pkg/enums"
	"github.com/vaulttrove/labels-backend/pkg/logger"
	"github.com/vaulttrove/labels-backend/pkg/metrics"
	pkgredis "github.com/vaulttrove/labels-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	Ping(context.Context) error
}

// Dependencies are the services the router wires into controllers. Nil
// services answer with an internal error instead of panicking.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    RedisStore
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics

	Labels   labels.Service
	Merger   labelcontrollers.Merger
	Orders   orders.Service
	Batches  batches.Service
	Settings settings.Service
	Usage    *usage.Service
	Admin    admin.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// keep interface values nil when redis is absent
	var idemStore pkgredis.IdempotencyStore
	var rateStore interface {
		IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	}
	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["database"] = deps.DB
	}
	if deps.Redis != nil {
		idemStore = deps.Redis
		rateStore = deps.Redis
		readiness["redis"] = deps.Redis
	}

	labelPolicy := middleware.NewRateLimitPolicy("labels", cfg.Labels.RateLimitWindow, cfg.Labels.RateLimitPerUser)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	var usageSvc usageSnapshotter
	if deps.Usage != nil {
		usageSvc = deps.Usage
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/parse", ordercontrollers.Parse(deps.Settings, logg))
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
		})
		r.Get("/dashboard", ordercontrollers.Dashboard(deps.Orders, logg))

		r.Route("/labels", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(labelPolicy, rateStore, logg))
				r.Post("/batches", labelcontrollers.CreateBatch(deps.Labels, logg))
				r.Post("/single", labelcontrollers.CreateSingle(deps.Labels, logg))
			})
			r.Post("/merge", labelcontrollers.Merge(deps.Merger, deps.Orders, logg))
		})

		r.Route("/batches", func(r chi.Router) {
			r.Get("/", batchcontrollers.List(deps.Batches, logg))
			r.Get("/export.csv", batchcontrollers.ExportReport(deps.Batches, logg))
			r.Route("/{batchId}", func(r chi.Router) {
				r.Get("/", batchcontrollers.Detail(deps.Batches, logg))
				r.Patch("/notes", batchcontrollers.UpdateNotes(deps.Batches, logg))
				r.Post("/archive", batchcontrollers.Archive(deps.Batches, logg))
				r.Get("/tracking.csv", batchcontrollers.TrackingCSV(deps.Batches, logg))
				r.Get("/labels.pdf", batchcontrollers.LabelsPDF(deps.Batches, deps.Merger, logg))
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", settingscontrollers.Get(deps.Settings, logg))
			r.Put("/", settingscontrollers.Update(deps.Settings, logg))
			r.Post("/carrier/verify", settingscontrollers.VerifyCarrier(deps.Settings, logg))
		})

		r.Get("/usage", controllers.Usage(deps.Settings, usageSvc, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/stats", admincontrollers.Stats(deps.Admin, logg))
		r.Put("/users/{userId}/plan", admincontrollers.SetPlan(deps.Settings, logg))
	})

	return r
}

type usageSnapshotter interface {
	Snapshot(ctx context.Context, userID string, plan enums.PlanTier) (usage.Snapshot, error)
}
