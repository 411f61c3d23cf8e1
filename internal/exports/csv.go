// Package exports renders batch and tracking reports as CSV.
package exports

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/vaulttrove/labels-backend/internal/batches"
	"github.com/vaulttrove/labels-backend/pkg/db/models"
)

const trackingCarrier = "USPS"

var (
	batchReportHeader = []string{"Batch ID", "Batch Name", "Created", "Order Count", "Notes"}
	trackingHeader    = []string{"Tracking #", "Order #", "Carrier"}
)

// WriteBatchReport writes unarchived batches; archived rows are skipped.
func WriteBatchReport(w io.Writer, rows []batches.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(batchReportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if row.Archived {
			continue
		}
		record := []string{
			row.ID,
			row.Name,
			row.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(row.OrderCount, 10),
			row.Notes,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrackingCSV writes the marketplace tracking upload format.
func WriteTrackingCSV(w io.Writer, orders []models.LabelOrder) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trackingHeader); err != nil {
		return err
	}
	for _, o := range orders {
		if o.TrackingCode == "" {
			continue
		}
		if err := cw.Write([]string{o.TrackingCode, o.OrderNumber, trackingCarrier}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
