package batches

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vaulttrove/labels-backend/internal/orders"
	"github.com/vaulttrove/labels-backend/pkg/db/dbtest"
	"github.com/vaulttrove/labels-backend/pkg/db/models"
	"github.com/vaulttrove/labels-backend/pkg/enums"
	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
)

func strPtr(s string) *string { return &s }

func addOrder(t *testing.T, conn *gorm.DB, userID, batchID, number, total string) {
	t.Helper()
	cost := decimal.RequireFromString(total)
	err := orders.NewRepository(conn).Create(context.Background(), &models.LabelOrder{
		UserID: userID, BatchID: batchID, BatchName: batchID, OrderNumber: number,
		TrackingCode: "T" + number, LabelURL: "https://l/" + number, ToName: "x",
		Carrier: "USPS", Service: "First", LabelClass: enums.LabelClassOther,
		LabelCost: cost, EnvelopeCost: decimal.Zero, ShieldCost: decimal.Zero,
		PennySleeveCost: decimal.Zero, TopLoaderCost: decimal.Zero, TotalCost: cost,
	})
	require.NoError(t, err)
}

func TestUpsertInsertsWithDefaults(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, BatchUpsert{ID: "b1", UserID: "user-1"}))

	row, err := repo.Find(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, DefaultName, row.Name)
	assert.Equal(t, "", row.Notes)
	assert.False(t, row.Archived)
	assert.False(t, row.CreatedAt.IsZero())
}

func TestUpsertMergesOnlySuppliedFields(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, BatchUpsert{ID: "b1", UserID: "user-1", Name: strPtr("October"), Notes: strPtr("first")}))
	before, err := repo.Find(ctx, "b1")
	require.NoError(t, err)

	archived := true
	require.NoError(t, repo.Upsert(ctx, BatchUpsert{ID: "b1", UserID: "user-1", Archived: &archived}))

	after, err := repo.Find(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "October", after.Name)
	assert.Equal(t, "first", after.Notes)
	assert.True(t, after.Archived)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
}

func TestUpsertIgnoresOtherUsersBatch(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, BatchUpsert{ID: "shared", UserID: "user-1", Name: strPtr("Mine")}))
	require.NoError(t, repo.Upsert(ctx, BatchUpsert{ID: "shared", UserID: "user-2", Name: strPtr("Theirs")}))

	row, err := repo.Find(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "user-1", row.UserID)
	assert.Equal(t, "Mine", row.Name)
}

func TestListAggregatesAndFilters(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, BatchUpsert{ID: "old", UserID: "user-1"}))
	require.NoError(t, conn.Model(&models.Batch{}).Where("id = ?", "old").
		Update("created_at", time.Now().UTC().Add(-72*time.Hour)).Error)
	require.NoError(t, repo.Upsert(ctx, BatchUpsert{ID: "new", UserID: "user-1"}))
	archived := true
	require.NoError(t, repo.Upsert(ctx, BatchUpsert{ID: "gone", UserID: "user-1", Archived: &archived}))
	require.NoError(t, repo.Upsert(ctx, BatchUpsert{ID: "theirs", UserID: "user-2"}))

	addOrder(t, conn, "user-1", "new", "1", "4.20")
	addOrder(t, conn, "user-1", "new", "2", "0.75")

	rows, err := repo.List(ctx, "user-1", ListQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "new", rows[0].ID)
	assert.Equal(t, int64(2), rows[0].OrderCount)
	assert.Equal(t, "4.95", rows[0].TotalCost.StringFixed(2))
	assert.Equal(t, int64(0), rows[1].OrderCount)

	rows, err = repo.List(ctx, "user-1", ListQuery{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	from := time.Now().UTC().Add(-24 * time.Hour)
	rows, err = repo.List(ctx, "user-1", ListQuery{From: &from})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "new", rows[0].ID)

	rows, err = repo.List(ctx, "user-1", ListQuery{IncludeArchived: true, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestServiceOwnershipAndMutations(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, orders.NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, BatchUpsert{ID: "b1", UserID: "user-1", Name: strPtr("Weekend")}))
	addOrder(t, conn, "user-1", "b1", "1", "4.20")

	detail, err := svc.Detail(ctx, "user-1", "b1")
	require.NoError(t, err)
	assert.Equal(t, "Weekend", detail.Batch.Name)
	require.Len(t, detail.Orders, 1)

	_, err = svc.Detail(ctx, "user-2", "b1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	updated, err := svc.UpdateNotes(ctx, "user-1", "b1", "ship monday")
	require.NoError(t, err)
	assert.Equal(t, "ship monday", updated.Notes)
	assert.Equal(t, "Weekend", updated.Name)

	updated, err = svc.SetArchived(ctx, "user-1", "b1", true)
	require.NoError(t, err)
	assert.True(t, updated.Archived)
	assert.Equal(t, "ship monday", updated.Notes)

	_, err = svc.SetArchived(ctx, "user-2", "b1", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	rows, err := svc.Orders(ctx, "user-1", "b1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	from := time.Now()
	to := from.Add(-time.Hour)
	_, err = svc.List(ctx, "user-1", ListQuery{From: &from, To: &to})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
