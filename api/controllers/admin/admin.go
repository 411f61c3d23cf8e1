package admin

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vaulttrove/labels-backend/api/middleware"
	"github.com/vaulttrove/labels-backend/api/responses"
	"github.com/vaulttrove/labels-backend/api/validators"
	internaladmin "github.com/vaulttrove/labels-backend/internal/admin"
	internalsettings "github.com/vaulttrove/labels-backend/internal/settings"
	"github.com/vaulttrove/labels-backend/pkg/enums"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
	"github.com/vaulttrove/labels-backend/pkg/logger"
)

type planRequest struct {
	Plan string `json:"plan" validate:"required"`
}

// Stats returns platform-wide counts and the heaviest users.
func Stats(svc internaladmin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// SetPlan moves a user between plan tiers.
func SetPlan(svc internalsettings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		actorID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := strings.TrimSpace(chi.URLParam(r, "userId"))
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user id is required"))
			return
		}

		var req planRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := enums.ParsePlanTier(req.Plan)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan").
				WithDetails(map[string]string{"plan": "must be one of free, pro"}))
			return
		}

		dto, err := svc.SetPlan(r.Context(), actorID, userID, plan)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
