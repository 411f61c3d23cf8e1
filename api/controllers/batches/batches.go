package batches

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vaulttrove/labels-backend/api/controllers/labels"
	"github.com/vaulttrove/labels-backend/api/middleware"
	"github.com/vaulttrove/labels-backend/api/responses"
	"github.com/vaulttrove/labels-backend/api/validators"
	internalbatches "github.com/vaulttrove/labels-backend/internal/batches"
	"github.com/vaulttrove/labels-backend/internal/exports"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
	"github.com/vaulttrove/labels-backend/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	csvContentType   = "text/csv; charset=utf-8"
)

type notesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type archiveRequest struct {
	Archived *bool `json:"archived"`
}

// List returns the caller's batches with order aggregates.
func List(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), userID, q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func parseListQuery(r *http.Request) (internalbatches.ListQuery, error) {
	var q internalbatches.ListQuery
	var err error
	if q.IncludeArchived, err = validators.ParseQueryBool(r, "includeArchived", false); err != nil {
		return q, err
	}
	if q.From, err = validators.ParseQueryTime(r, "from", false); err != nil {
		return q, err
	}
	if q.To, err = validators.ParseQueryTime(r, "to", true); err != nil {
		return q, err
	}
	if q.Limit, err = validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit); err != nil {
		return q, err
	}
	return q, nil
}

// ExportReport streams the batch report CSV. Archived batches are left out
// unless includeArchived is set.
func ExportReport(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if r.URL.Query().Get("limit") == "" {
			q.Limit = maxListLimit
		}

		rows, err := svc.List(r.Context(), userID, q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := responses.WriteAttachment(w, csvContentType, "batches.csv", func(out io.Writer) error {
			return exports.WriteBatchReport(out, rows)
		}); err != nil && logg != nil {
			logg.Error(r.Context(), "write batch report", err)
		}
	}
}

// Detail returns one batch with its orders.
func Detail(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Detail(r.Context(), userID, batchIDParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// UpdateNotes replaces the batch notes.
func UpdateNotes(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req notesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.UpdateNotes(r.Context(), userID, batchIDParam(r), strings.TrimSpace(req.Notes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

// Archive archives a batch, or restores it with {"archived": false}.
func Archive(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		archived := true
		if r.ContentLength != 0 {
			var req archiveRequest
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if req.Archived != nil {
				archived = *req.Archived
			}
		}

		batch, err := svc.SetArchived(r.Context(), userID, batchIDParam(r), archived)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

// TrackingCSV exports the batch in the marketplace tracking-upload format.
func TrackingCSV(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batchID := batchIDParam(r)

		rows, err := svc.Orders(r.Context(), userID, batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := responses.WriteAttachment(w, csvContentType, "tracking-"+batchID+".csv", func(out io.Writer) error {
			return exports.WriteTrackingCSV(out, rows)
		}); err != nil && logg != nil {
			logg.Error(r.Context(), "write tracking csv", err)
		}
	}
}

// LabelsPDF merges every label of the batch into one PDF.
func LabelsPDF(svc internalbatches.Service, merger labels.Merger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || merger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batchID := batchIDParam(r)

		rows, err := svc.Orders(r.Context(), userID, batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		urls := make([]string, 0, len(rows))
		for _, row := range rows {
			if row.LabelURL != "" {
				urls = append(urls, row.LabelURL)
			}
		}
		if len(urls) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "batch has no labels"))
			return
		}
		labels.WriteMergedPDF(r.Context(), w, merger, urls, "labels-"+batchID+".pdf", logg)
	}
}

func batchIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "batchId"))
}
