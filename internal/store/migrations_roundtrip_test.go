package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"
)

// openTestDB connects to BUGOMATTIC_TEST_DATABASE_URL on a clean public schema.
func openTestDB(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("BUGOMATTIC_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("BUGOMATTIC_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	return db, ctx
}

func TestMigrationsRoundTripPostgres(t *testing.T) {
	db, ctx := openTestDB(t)

	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply up migrations (pass 1): %v", err)
	}
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("re-applying migrations should be a no-op: %v", err)
	}
	if err := applyDownMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply down migrations: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		t.Fatalf("clear schema_migrations: %v", err)
	}
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply up migrations (pass 2): %v", err)
	}
}

func TestPostgresStoreIssuesPostgres(t *testing.T) {
	db, ctx := openTestDB(t)
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	s := NewPostgresStore(db)

	if err := s.UpsertRepositories(ctx, []string{"acme/widgets"}); err != nil {
		t.Fatalf("UpsertRepositories: %v", err)
	}
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	issue := Issue{
		ID: "acme/gadgets#7", Repo: "acme/gadgets", Number: 7, Title: "Sprocket jams",
		URL: "https://github.com/acme/gadgets/issues/7", State: "open", CreatedAt: created, UpdatedAt: created,
	}
	if err := s.UpsertIssues(ctx, []Issue{issue}); err != nil {
		t.Fatalf("UpsertIssues: %v", err)
	}
	issue.State = "closed"
	if err := s.UpsertIssues(ctx, []Issue{issue}); err != nil {
		t.Fatalf("UpsertIssues (update): %v", err)
	}

	repos, err := s.ListRepositories(ctx)
	if err != nil || strings.Join(repos, ",") != "acme/gadgets,acme/widgets" {
		t.Fatalf("ListRepositories = %v, %v", repos, err)
	}
	got, err := s.GetIssue(ctx, issue.ID)
	if err != nil || got.State != "closed" || !got.CreatedAt.Equal(created) {
		t.Fatalf("GetIssue = %+v, %v", got, err)
	}
	if _, err := s.GetIssue(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	all, err := s.ListIssues(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListIssues = %v, %v", all, err)
	}
}

func applyDownMigrations(ctx context.Context, db *sql.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.down\.sql$`)
	var downs []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		downs = append(downs, Migration{Version: match[1], Path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(downs, func(i, j int) bool { return downs[i].Version > downs[j].Version })

	for _, down := range downs {
		sqlBytes, err := os.ReadFile(down.Path)
		if err != nil {
			return err
		}
		sqlText := strings.TrimSpace(string(sqlBytes))
		if sqlText == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			return err
		}
	}
	return nil
}
