package exports

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaulttrove/labels-backend/internal/batches"
	"github.com/vaulttrove/labels-backend/pkg/db/models"
)

func TestWriteBatchReport(t *testing.T) {
	created := time.Date(2026, 10, 2, 15, 4, 5, 0, time.UTC)
	rows := []batches.Summary{
		{ID: "b1", Name: "October, week 1", CreatedAt: created, OrderCount: 12, Notes: "said \"rush\""},
		{ID: "b2", Name: "Old", CreatedAt: created, Archived: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBatchReport(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Batch ID", "Batch Name", "Created", "Order Count", "Notes"}, records[0])
	assert.Equal(t, []string{"b1", "October, week 1", "2026-10-02T15:04:05Z", "12", "said \"rush\""}, records[1])
}

func TestWriteTrackingCSV(t *testing.T) {
	orders := []models.LabelOrder{
		{TrackingCode: "9400100000000000000001", OrderNumber: "1001"},
		{TrackingCode: "", OrderNumber: "1002"},
		{TrackingCode: "9400100000000000000003", OrderNumber: "1003"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTrackingCSV(&buf, orders))
	assert.Equal(t,
		"Tracking #,Order #,Carrier\n9400100000000000000001,1001,USPS\n9400100000000000000003,1003,USPS\n",
		buf.String())
}

func TestWriteTrackingCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrackingCSV(&buf, nil))
	assert.Equal(t, "Tracking #,Order #,Carrier\n", buf.String())
}
