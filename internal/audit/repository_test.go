package audit

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "audit-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			username TEXT,
			source TEXT NOT NULL,
			details TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating audit schema: %v", err)
	}

	return db
}

func TestCreate_GeneratesIDAndTimestamp(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	log := &AuditLog{
		Action:     "create",
		EntityType: "project",
		EntityID:   "prj-12345678",
		Username:   "admin",
		Source:     "api",
		Details:    map[string]any{"title": "Water Quality Sensors"},
	}

	if err := repo.Create(ctx, log); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if log.ID == "" {
		t.Error("expected generated ID")
	}
	if log.CreatedAt.IsZero() {
		t.Error("expected generated CreatedAt")
	}
}

func TestList_FiltersAndPaginates(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	entries := []AuditLog{
		{Action: "create", EntityType: "project", EntityID: "prj-1", Source: "api"},
		{Action: "update", EntityType: "project", EntityID: "prj-1", Source: "api"},
		{Action: "create", EntityType: "author", EntityID: "aut-1", Source: "api"},
		{Action: "login", EntityType: "credential", Username: "admin", Source: "api"},
	}
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	result, err := repo.List(ctx, Filter{EntityType: "project"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 2 {
		t.Errorf("Total = %d, want 2", result.Total)
	}
	for _, l := range result.Logs {
		if l.EntityType != "project" {
			t.Errorf("unexpected entity type %q in filtered results", l.EntityType)
		}
	}

	result, err = repo.List(ctx, Filter{Action: "create", Limit: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 2 {
		t.Errorf("Total = %d, want 2", result.Total)
	}
	if len(result.Logs) != 1 {
		t.Errorf("len(Logs) = %d, want 1 (limit)", len(result.Logs))
	}
}

func TestList_EmptyReturnsEmptySlice(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	result, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Logs == nil {
		t.Error("Logs should be an empty slice, not nil")
	}
	if result.Total != 0 {
		t.Errorf("Total = %d, want 0", result.Total)
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	result, err := repo.List(context.Background(), Filter{Limit: 10000})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Limit != 200 {
		t.Errorf("Limit = %d, want clamped to 200", result.Limit)
	}
}
