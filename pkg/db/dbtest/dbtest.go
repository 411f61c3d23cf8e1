// Package dbtest opens isolated in-memory SQLite databases with the label schema.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Table DDL mirrors the goose migrations with SQLite-friendly column types so
// the mattn driver scans timestamps into time.Time.
const (
	UserSettingsTable = `CREATE TABLE IF NOT EXISTS user_settings (
  user_id TEXT PRIMARY KEY,
  email TEXT,
  carrier_api_key TEXT NOT NULL DEFAULT '',
  from_address TEXT,
  envelope_cost NUMERIC,
  shield_cost NUMERIC,
  penny_sleeve_cost NUMERIC,
  top_loader_cost NUMERIC,
  value_threshold NUMERIC,
  card_count_threshold INTEGER,
  plan TEXT NOT NULL DEFAULT 'free',
  package_presets TEXT NOT NULL DEFAULT '[]',
  logo_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`

	BatchesTable = `CREATE TABLE IF NOT EXISTS batches (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT 'Unnamed Batch',
  notes TEXT NOT NULL DEFAULT '',
  archived INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`

	OrdersTable = `CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  batch_id TEXT NOT NULL REFERENCES batches(id),
  batch_name TEXT NOT NULL,
  order_number TEXT NOT NULL,
  tracking_code TEXT NOT NULL,
  tracking_url TEXT NOT NULL,
  label_url TEXT NOT NULL,
  to_name TEXT NOT NULL,
  carrier TEXT NOT NULL,
  service TEXT NOT NULL,
  label_class TEXT NOT NULL,
  label_cost NUMERIC NOT NULL,
  envelope_cost NUMERIC NOT NULL,
  shield_cost NUMERIC NOT NULL,
  penny_sleeve_cost NUMERIC NOT NULL,
  top_loader_cost NUMERIC NOT NULL,
  total_cost NUMERIC NOT NULL,
  use_envelope INTEGER NOT NULL,
  shipping_shield INTEGER NOT NULL,
  use_penny_sleeve INTEGER NOT NULL,
  use_top_loader INTEGER NOT NULL,
  non_machinable INTEGER NOT NULL,
  package_name TEXT,
  notes TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`

	UsageTable = `CREATE TABLE IF NOT EXISTS usage (
  user_id TEXT NOT NULL,
  month TEXT NOT NULL,
  count INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
  updated_at DATETIME,
  PRIMARY KEY (user_id, month)
);`

	OutboxEventsTable = `CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
)

// AllTables lists every table in dependency order.
var AllTables = []string{UserSettingsTable, BatchesTable, OrdersTable, UsageTable, OutboxEventsTable}

// Open returns a fresh shared-cache in-memory database unique to the test.
// With no statements the full schema is created.
func Open(t testing.TB, statements ...string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(statements) == 0 {
		statements = AllTables
	}
	for _, stmt := range statements {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	sqlDB, err := conn.DB()
	if err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	return conn
}
