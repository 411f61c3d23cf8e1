package controllers

import (
	"context"
	"net/http"

	"github.com/vaulttrove/labels-backend/api/middleware"
	"github.com/vaulttrove/labels-backend/api/responses"
	"github.com/vaulttrove/labels-backend/internal/settings"
	"github.com/vaulttrove/labels-backend/internal/usage"
	"github.com/vaulttrove/labels-backend/pkg/enums"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
	"github.com/vaulttrove/labels-backend/pkg/logger"
)

type settingsLoader interface {
	Load(ctx context.Context, userID string) (settings.Settings, error)
}

type usageSnapshotter interface {
	Snapshot(ctx context.Context, userID string, plan enums.PlanTier) (usage.Snapshot, error)
}

// Usage returns the caller's label count for the current month.
func Usage(loader settingsLoader, svc usageSnapshotter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if loader == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "usage service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg, err := loader.Load(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snap, err := svc.Snapshot(r.Context(), userID, cfg.Plan)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}
