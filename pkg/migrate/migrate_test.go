package migrate

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateFS(Migrations, EmbeddedDir); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestValidateFSRejectsBadNames(t *testing.T) {
	fsys := fstest.MapFS{
		"m/1_bad.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	if err := ValidateFS(fsys, "m"); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestValidateFSRequiresGooseHeaders(t *testing.T) {
	fsys := fstest.MapFS{
		"m/20260101000000_missing_down.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
	}
	if err := ValidateFS(fsys, "m"); err == nil {
		t.Fatal("expected missing down header error")
	}
}

func TestWebhookEventsMigrationHasUniqueKey(t *testing.T) {
	content := readMigration(t, "*_create_system_tables.sql")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS webhook_events",
		"CONSTRAINT webhook_events_event_provider_key UNIQUE (event_id, provider)",
		"'hora_limite_entrega_dia', '\"12:00\"'",
		"DROP TABLE IF EXISTS webhook_events",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 19, 13, 5, 0, 0, time.UTC)
	created, err := CreateSQLMigration(dir, "Add Route Zones!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(created) != "20261019130500_add_route_zones.sql" {
		t.Fatalf("unexpected filename %s", created)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationSortsAfterExisting(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "20301231235959_future.sql")
	if err := os.WriteFile(existing, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	created, err := CreateSQLMigration(dir, "feriados index", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(created) != "20301231236000_feriados_index.sql" {
		t.Fatalf("expected version after the newest migration, got %s", created)
	}

	if _, err := CreateSQLMigration(dir, " !! ", time.Now()); err == nil {
		t.Fatalf("expected error for a name without usable characters")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := fs.Glob(Migrations, path.Join(EmbeddedDir, pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := fs.ReadFile(Migrations, matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	return string(data)
}
