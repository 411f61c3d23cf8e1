package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vaulttrove/labels-backend/pkg/db/models"
	"github.com/vaulttrove/labels-backend/pkg/enums"
	"github.com/vaulttrove/labels-backend/pkg/outbox/payloads"
)

func openOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.Exec(`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`).Error
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return conn
}

func TestEmitStoresEnvelope(t *testing.T) {
	conn := openOutboxDB(t)
	svc := NewService(NewRepository(conn), nil)

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventLabelBatchProcessed,
			AggregateType: enums.AggregateBatch,
			AggregateID:   "batch-1",
			Actor:         &ActorRef{UserID: "user-1", Role: "user"},
			Data:          payloads.LabelBatchProcessedEvent{BatchID: "batch-1", Purchased: 2},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var rows []models.OutboxEvent
	if err := conn.Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	var envelope PayloadEnvelope
	if err := json.Unmarshal(rows[0].Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != 1 || envelope.EventID == "" || envelope.Actor == nil || envelope.Actor.UserID != "user-1" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	var data payloads.LabelBatchProcessedEvent
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Purchased != 2 {
		t.Fatalf("unexpected data %+v", data)
	}
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := openOutboxDB(t)
	svc := NewService(NewRepository(conn), nil)
	boom := errors.New("boom")

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPlanChanged,
			AggregateType: enums.AggregateUser,
			AggregateID:   "user-1",
			Data:          payloads.PlanChangedEvent{UserID: "user-1"},
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var count int64
	conn.Model(&models.OutboxEvent{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected rollback to discard event, got %d rows", count)
	}
}

func TestEmitValidatesEvent(t *testing.T) {
	conn := openOutboxDB(t)
	svc := NewService(NewRepository(conn), nil)

	cases := []DomainEvent{
		{EventType: "bogus", AggregateType: enums.AggregateBatch, AggregateID: "b"},
		{EventType: enums.EventPlanChanged, AggregateType: "bogus", AggregateID: "u"},
		{EventType: enums.EventPlanChanged, AggregateType: enums.AggregateUser},
	}
	for _, ev := range cases {
		if err := svc.Emit(context.Background(), conn, ev); err == nil {
			t.Fatalf("expected validation error for %+v", ev)
		}
	}
	if err := svc.Emit(context.Background(), nil, cases[0]); err == nil {
		t.Fatal("expected error without transaction")
	}
}

func TestFetchAndMarkLifecycle(t *testing.T) {
	conn := openOutboxDB(t)
	repo := NewRepository(conn)

	first := seedEvent(t, conn, time.Now().Add(-2*time.Minute))
	second := seedEvent(t, conn, time.Now().Add(-time.Minute))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != first {
		t.Fatalf("expected oldest first, got %+v", rows)
	}

	if err := repo.MarkPublishedTx(conn, first); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if err := repo.MarkFailedTx(conn, second, errors.New("sink down")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	var failed models.OutboxEvent
	if err := conn.First(&failed, "id = ?", second).Error; err != nil {
		t.Fatalf("load failed row: %v", err)
	}
	if failed.AttemptCount != 1 || failed.LastError == nil || *failed.LastError != "sink down" {
		t.Fatalf("unexpected failed row %+v", failed)
	}

	if err := repo.MarkTerminalTx(conn, second, errors.New("bad payload"), 3); err != nil {
		t.Fatalf("mark terminal: %v", err)
	}
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected nothing left to publish, got %d", len(rows))
	}
}

func TestDeletePublishedBefore(t *testing.T) {
	conn := openOutboxDB(t)
	repo := NewRepository(conn)
	old := time.Now().UTC().Add(-48 * time.Hour)

	published := seedEvent(t, conn, old)
	conn.Model(&models.OutboxEvent{}).Where("id = ?", published).Update("published_at", old)
	dead := seedEvent(t, conn, old)
	conn.Model(&models.OutboxEvent{}).Where("id = ?", dead).Update("attempt_count", 5)
	pending := seedEvent(t, conn, old)

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, time.Now().UTC().Add(-24*time.Hour), 5)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	var remaining models.OutboxEvent
	if err := conn.First(&remaining).Error; err != nil {
		t.Fatalf("load remaining: %v", err)
	}
	if remaining.ID != pending {
		t.Fatalf("expected pending row to survive, got %s", remaining.ID)
	}
}

func TestTruncateError(t *testing.T) {
	if truncateError(nil) != nil {
		t.Fatal("nil error should map to nil")
	}
	long := make([]byte, maxErrorLen+10)
	for i := range long {
		long[i] = 'x'
	}
	got := truncateError(errors.New(string(long)))
	if len(*got) != maxErrorLen {
		t.Fatalf("expected truncation to %d, got %d", maxErrorLen, len(*got))
	}
}

func seedEvent(t *testing.T, conn *gorm.DB, createdAt time.Time) uuid.UUID {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventLabelBatchProcessed,
		AggregateType: enums.AggregateBatch,
		AggregateID:   "batch-1",
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
		CreatedAt:     createdAt.UTC(),
	}
	if err := conn.Create(&row).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return row.ID
}
