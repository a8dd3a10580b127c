package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/roach88/clafer/internal/ir"
	"github.com/roach88/clafer/internal/script"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM fixtures").Scan(&count); err != nil {
		t.Errorf("fixtures table unusable after idempotent opens: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	if _, err := Open("/nonexistent/dir/catalog.db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := openTemp(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pragma(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("PRAGMA %s = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestSchema_FixturesTable(t *testing.T) {
	s := openTemp(t)

	columns := getTableColumns(t, s.db, "fixtures")
	for _, col := range []string{
		"id", "digest", "name", "source", "canonical",
		"clafers", "constraints", "ir_version", "seq",
	} {
		if !slices.Contains(columns, col) {
			t.Errorf("fixtures table missing column %q", col)
		}
	}

	indexes := getTableIndexes(t, s.db, "fixtures")
	for _, idx := range []string{"idx_fixtures_seq", "idx_fixtures_name"} {
		if !slices.Contains(indexes, idx) {
			t.Errorf("fixtures table missing index %q, got %v", idx, indexes)
		}
	}
}

func TestConstraint_DigestUnique(t *testing.T) {
	s := openTemp(t)

	insert := `
		INSERT INTO fixtures (id, digest, name, source, canonical, clafers, constraints, ir_version, seq)
		VALUES (?, 'd1', 'car', '', '{}', 0, 0, '1', ?)
	`
	if _, err := s.db.Exec(insert, "a", 1); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := s.db.Exec(insert, "b", 2); err == nil {
		t.Error("expected UNIQUE violation for duplicate digest")
	}
}

func TestMigration_SchemaVersion(t *testing.T) {
	s := openTemp(t)

	got, err := s.pragma("user_version")
	if err != nil {
		t.Fatal(err)
	}
	if want := fmt.Sprint(len(migrations)); got != want {
		t.Errorf("user_version = %s, want %s", got, want)
	}
}

const staleSource = `defaultScope(2);

c0_Car = Clafer("c0_Car").withCard(1, 1);
`

func TestMigration_RedigestsStoredFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	// A revision 0 catalog holding an entry under an outdated digest.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO fixtures (id, digest, name, source, canonical, clafers, constraints, ir_version, seq)
		VALUES ('id-1', 'stale', 'car', ?, '{}', 1, 0, '1', 1)
	`, staleSource); err != nil {
		t.Fatalf("failed to insert entry: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	f, errs := script.LoadString("car", staleSource, script.LoadModeCollectAll)
	if len(errs) > 0 {
		t.Fatalf("LoadString() failed: %v", errs)
	}
	want := ir.MustFixtureDigest(f)

	e, err := s.Get(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if e.Digest != want {
		t.Errorf("digest = %s, want %s", e.Digest, want)
	}
	if !strings.Contains(e.Canonical, `"declared":["default"]`) {
		t.Errorf("canonical not rewritten: %s", e.Canonical)
	}
	if _, err := s.Get(context.Background(), "stale"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(stale) = %v, want ErrNotFound", err)
	}
}

func TestMigration_UnloadableEntryFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO fixtures (id, digest, name, source, canonical, clafers, constraints, ir_version, seq)
		VALUES ('id-1', 'stale', 'broken', 'x.refTo(y);', '{}', 0, 0, '1', 1)
	`); err != nil {
		t.Fatalf("failed to insert entry: %v", err)
	}
	db.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("expected Open() to fail on an entry that no longer loads")
	}

	// The failed migration leaves the catalog at revision 0.
	db, err = sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db.Close()
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != 0 {
		t.Errorf("user_version = %d, want 0", version)
	}
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}
