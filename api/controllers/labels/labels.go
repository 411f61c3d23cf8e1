package labels

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vaulttrove/labels-backend/api/middleware"
	"github.com/vaulttrove/labels-backend/api/responses"
	"github.com/vaulttrove/labels-backend/api/validators"
	"github.com/vaulttrove/labels-backend/internal/labelmerge"
	internallabels "github.com/vaulttrove/labels-backend/internal/labels"
	"github.com/vaulttrove/labels-backend/internal/orderimport"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
	"github.com/vaulttrove/labels-backend/pkg/logger"
)

const mergedFilename = "labels.pdf"

// UploadOrder is one row of the upload trigger body. Batch fields are
// repeated on every row by the client; userId is accepted for compatibility
// but must match the token.
type UploadOrder struct {
	orderimport.Order
	// UseEnvelope overrides the embedded flag so an omitted value can be told
	// apart from an explicit false. Only false marks a high-value order.
	UseEnvelope *bool  `json:"useEnvelope,omitempty"`
	BatchID     string `json:"batchId"`
	BatchName   string `json:"batchName"`
	BatchNotes  string `json:"batchNotes,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

type mergeRequest struct {
	URLs []string `json:"urls" validate:"required,min=1,dive,required"`
}

// LabelOwnership reports which urls are not labels of the user's orders.
type LabelOwnership interface {
	ForeignLabelURLs(ctx context.Context, userID string, urls []string) ([]string, error)
}

// Merger writes the label PDFs at urls as one document.
type Merger interface {
	Merge(ctx context.Context, urls []string, w io.Writer) (labelmerge.MergeReport, error)
}

// CreateBatch buys labels for a JSON array of orders. Per-order problems are
// reported in the result's failures; only admission and configuration errors
// fail the request.
func CreateBatch(svc internallabels.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "label service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var rows []UploadOrder
		if err := validators.DecodeJSON(r, &rows); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := buildRequest(userID, rows)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Process(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func buildRequest(userID string, rows []UploadOrder) (internallabels.Request, error) {
	req := internallabels.Request{UserID: userID, Source: internallabels.SourceUpload}
	if len(rows) == 0 {
		return req, pkgerrors.New(pkgerrors.CodeValidation, "at least one order is required")
	}
	req.Orders = make([]orderimport.Order, 0, len(rows))
	for i, row := range rows {
		if row.UserID != "" && row.UserID != userID {
			return req, pkgerrors.New(pkgerrors.CodeForbidden, "orders belong to another account")
		}
		batchID := strings.TrimSpace(row.BatchID)
		switch {
		case batchID == "":
		case req.BatchID == "":
			req.BatchID = batchID
		case req.BatchID != batchID:
			return req, pkgerrors.New(pkgerrors.CodeValidation, "all orders must share one batchId").
				WithDetails(map[string]any{"index": i, "batchId": batchID})
		}
		if req.BatchName == "" {
			req.BatchName = validators.SanitizeString(row.BatchName, 200)
		}
		if req.BatchNotes == "" {
			req.BatchNotes = validators.SanitizeString(row.BatchNotes, 2000)
		}
		order := row.Order
		order.UseEnvelope = row.UseEnvelope == nil || *row.UseEnvelope
		req.Orders = append(req.Orders, order)
	}
	return req, nil
}

// CreateSingle buys one label for a hand-entered address.
func CreateSingle(svc internallabels.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "label service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req internallabels.SingleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req.UserID = userID

		result, err := svc.ProcessSingle(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Merge combines label PDFs into one download. Only labels recorded on the
// caller's own orders are fetched.
func Merge(merger Merger, owners LabelOwnership, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if merger == nil || owners == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "merge service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req mergeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		foreign, err := owners.ForeignLabelURLs(r.Context(), userID, req.URLs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(foreign) > 0 {
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "foreign_urls", len(foreign)), "merge rejected for labels outside the caller's orders")
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "labels do not belong to your orders"))
			return
		}
		WriteMergedPDF(r.Context(), w, merger, req.URLs, mergedFilename, logg)
	}
}

// WriteMergedPDF merges urls into memory first so a failed merge still gets a
// JSON error envelope.
func WriteMergedPDF(ctx context.Context, w http.ResponseWriter, merger Merger, urls []string, filename string, logg *logger.Logger) {
	var buf bytes.Buffer
	report, err := merger.Merge(ctx, urls, &buf)
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	w.Header().Set("X-Labels-Merged", strconv.Itoa(report.Merged))
	w.Header().Set("X-Labels-Skipped", strconv.Itoa(len(report.Skipped)))
	if err := responses.WriteAttachment(w, "application/pdf", filename, func(out io.Writer) error {
		_, err := buf.WriteTo(out)
		return err
	}); err != nil && logg != nil {
		logg.Error(ctx, "write merged labels", err)
	}
}
