// Package dbtest opens isolated in-memory SQLite databases carrying the
// service schema, for repository and engine tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/pkg/db"
)

var seq atomic.Int64

// Schema mirrors pkg/migrate/migrations using SQLite types. DATE and DATETIME
// declarations let the driver hand back time.Time values.
var Schema = []string{
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		stock_min INTEGER NOT NULL DEFAULT 0,
		stock_max INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT,
		order_number TEXT NOT NULL,
		total_amount NUMERIC NOT NULL DEFAULT 0,
		payment_status TEXT NOT NULL DEFAULT 'pendente',
		delivery_status TEXT NOT NULL DEFAULT 'aguardando',
		delivery_date DATE,
		delivery_time_slot TEXT,
		payment_method TEXT,
		payment_confirmed_at DATETIME,
		pix_transaction_id TEXT,
		stripe_payment_intent_id TEXT,
		cancellation_reason TEXT,
		cancelled_at DATETIME,
		notes TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE subscriptions (
		id TEXT PRIMARY KEY,
		customer_id TEXT,
		subscription_number TEXT NOT NULL,
		delivery_weekday TEXT,
		delivery_weekdays TEXT,
		delivery_time_slot TEXT,
		frequency TEXT NOT NULL DEFAULT 'semanal',
		status TEXT NOT NULL DEFAULT 'pausada',
		is_emergency BOOLEAN NOT NULL DEFAULT 0,
		total_amount NUMERIC NOT NULL DEFAULT 0,
		next_delivery_date DATE,
		pix_transaction_id TEXT,
		pix_autorizacao_id TEXT,
		pix_recorrencia_autorizada BOOLEAN NOT NULL DEFAULT 0,
		pix_recorrencia_status TEXT,
		pix_recorrencia_data_inicio DATETIME,
		pix_recorrencia_valor_mensal NUMERIC,
		stripe_subscription_id TEXT,
		notes TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE subscription_items (
		id TEXT PRIMARY KEY,
		subscription_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		reserved_stock INTEGER NOT NULL DEFAULT 0,
		unit_price NUMERIC NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE subscription_deliveries (
		id TEXT PRIMARY KEY,
		subscription_id TEXT NOT NULL,
		delivery_date DATE NOT NULL,
		payment_status TEXT NOT NULL,
		delivery_status TEXT NOT NULL,
		total_amount NUMERIC NOT NULL DEFAULT 0,
		notes TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE system_settings (
		key TEXT PRIMARY KEY,
		value TEXT,
		description TEXT,
		updated_at DATETIME
	)`,
	`CREATE TABLE system_audit_logs (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT,
		payload_json TEXT,
		status TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE webhook_events (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		processed_at DATETIME NOT NULL,
		CONSTRAINT webhook_events_event_provider_key UNIQUE (event_id, provider)
	)`,
	`CREATE TABLE api_tokens (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		token_preview TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ativo',
		scopes TEXT,
		ip_allowlist TEXT,
		expires_at DATETIME,
		revoked_at DATETIME,
		last_used_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a fresh database private to the calling test. A single
// connection is kept so the in-memory database survives between statements.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range Schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}
