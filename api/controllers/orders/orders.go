package orders

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vaulttrove/labels-backend/api/middleware"
	"github.com/vaulttrove/labels-backend/api/responses"
	"github.com/vaulttrove/labels-backend/api/validators"
	"github.com/vaulttrove/labels-backend/internal/orderimport"
	internalorders "github.com/vaulttrove/labels-backend/internal/orders"
	"github.com/vaulttrove/labels-backend/internal/settings"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
	"github.com/vaulttrove/labels-backend/pkg/logger"
	"github.com/vaulttrove/labels-backend/pkg/pagination"
)

const (
	maxUploadBytes  = 10 << 20
	uploadFormField = "file"
)

type settingsLoader interface {
	Load(ctx context.Context, userID string) (settings.Settings, error)
}

// ParseResponse is the parsed marketplace export.
type ParseResponse struct {
	Orders []orderimport.Order `json:"orders"`
	Count  int                 `json:"count"`
}

// Parse reads a marketplace CSV export, either as the raw body or as the
// multipart field "file", and applies the caller's thresholds.
func Parse(loader settingsLoader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if loader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body, closeBody, err := csvReader(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer closeBody()

		cfg, err := loader.Load(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parsed, err := orderimport.Parse(body, cfg.Thresholds)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read csv"))
			return
		}
		responses.WriteSuccess(w, ParseResponse{Orders: parsed, Count: len(parsed)})
	}
}

func csvReader(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart upload")
	}
	file, _, err := r.FormFile(uploadFormField)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "csv file required").
			WithDetails(map[string]string{"field": uploadFormField})
	}
	return file, func() { file.Close() }, nil
}

// List returns the caller's purchased labels, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.History(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Dashboard returns lifetime totals plus the most recent batches.
func Dashboard(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dash, err := svc.Dashboard(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dash)
	}
}
