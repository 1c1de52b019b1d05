package people

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "people-test-*.db")
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
		CREATE TABLE authors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			cpf TEXT NOT NULL UNIQUE,
			phone TEXT,
			email TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE evaluators (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			cpf TEXT NOT NULL UNIQUE,
			phone TEXT,
			email TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating people schema: %v", err)
	}

	return db
}

func TestAuthorRepository_CRUD(t *testing.T) {
	repo := NewAuthorRepository(testDB(t))
	ctx := context.Background()

	author := &Person{
		Name:  "Maria Silva",
		CPF:   "123.456.789-00",
		Email: "maria@example.com",
	}

	if err := repo.Create(ctx, author); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(author.ID, "aut-") {
		t.Errorf("ID = %q, want aut- prefix", author.ID)
	}

	got, err := repo.GetByID(ctx, author.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Maria Silva" {
		t.Errorf("Name = %q, want %q", got.Name, "Maria Silva")
	}
	if got.Phone != "" {
		t.Errorf("Phone = %q, want empty", got.Phone)
	}

	got.Phone = "+55 11 99999-0000"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	updated, err := repo.GetByID(ctx, author.ID)
	if err != nil {
		t.Fatalf("GetByID() after update error = %v", err)
	}
	if updated.Phone != "+55 11 99999-0000" {
		t.Errorf("Phone = %q, want updated value", updated.Phone)
	}

	if err := repo.Delete(ctx, author.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, author.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestEvaluatorRepository_SeparateTable(t *testing.T) {
	db := testDB(t)
	authors := NewAuthorRepository(db)
	evaluators := NewEvaluatorRepository(db)
	ctx := context.Background()

	ev := &Person{Name: "Carlos Souza", CPF: "987.654.321-00"}
	if err := evaluators.Create(ctx, ev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(ev.ID, "avl-") {
		t.Errorf("ID = %q, want avl- prefix", ev.ID)
	}

	// Evaluators do not appear in the authors table.
	if _, err := authors.GetByID(ctx, ev.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("author lookup of evaluator ID error = %v, want ErrNotFound", err)
	}
}

func TestRepository_DuplicateCPF(t *testing.T) {
	repo := NewAuthorRepository(testDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &Person{Name: "A", CPF: "111"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repo.Create(ctx, &Person{Name: "B", CPF: "111"})
	if !errors.Is(err, ErrCPFExists) {
		t.Errorf("Create(duplicate cpf) error = %v, want ErrCPFExists", err)
	}
}

func TestRepository_ValidationErrors(t *testing.T) {
	repo := NewAuthorRepository(testDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &Person{CPF: "111"}); err == nil {
		t.Error("Create() without name should fail")
	}
	if err := repo.Create(ctx, &Person{Name: "A"}); err == nil {
		t.Error("Create() without cpf should fail")
	}
}

func TestRepository_ListOrdersByName(t *testing.T) {
	repo := NewAuthorRepository(testDB(t))
	ctx := context.Background()

	for _, p := range []Person{
		{Name: "Zeca", CPF: "3"},
		{Name: "Ana", CPF: "1"},
		{Name: "Bruno", CPF: "2"},
	} {
		p := p
		if err := repo.Create(ctx, &p); err != nil {
			t.Fatalf("Create(%s) error = %v", p.Name, err)
		}
	}

	people, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(people) != 3 {
		t.Fatalf("len = %d, want 3", len(people))
	}
	if people[0].Name != "Ana" || people[2].Name != "Zeca" {
		t.Errorf("unexpected order: %s, %s, %s", people[0].Name, people[1].Name, people[2].Name)
	}
}

func TestRepository_ListEmpty(t *testing.T) {
	repo := NewAuthorRepository(testDB(t))

	people, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if people == nil {
		t.Error("List() should return empty slice, not nil")
	}
}
