package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/clafer/internal/ir"
	"github.com/roach88/clafer/internal/script"
)

//go:embed schema.sql
var schemaSQL string

// catalogPragmas are applied once per Open. The store keeps a single
// connection, so they hold for every later statement.
var catalogPragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// migrations[i] upgrades a catalog from user_version i to i+1. Each runs in
// its own transaction together with the version bump.
var migrations = []func(context.Context, *sql.Tx) error{
	redigestEntries, // 1: declared scope header statements are part of the digest
}

// Store is a catalog of validated fixtures kept in one SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens the catalog at path, creating it when missing, and brings its
// schema up to date. ":memory:" gives a private in-memory catalog.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	// One writer at a time; a second connection would only meet SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initCatalog(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the catalog. It is safe on a zero Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initCatalog(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, p := range catalogPragmas {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return migrate(ctx, db)
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for ; version < len(migrations); version++ {
		if err := runMigration(ctx, db, version); err != nil {
			return fmt.Errorf("migrate to v%d: %w", version+1, err)
		}
	}
	return nil
}

func runMigration(ctx context.Context, db *sql.DB, from int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := migrations[from](ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", from+1)); err != nil {
		return err
	}
	return tx.Commit()
}

// redigestEntries reloads every stored script and rewrites its digest and
// canonical JSON with the current ir.FixtureDigest.
func redigestEntries(ctx context.Context, tx *sql.Tx) error {
	type stored struct{ id, name, source string }

	rows, err := tx.QueryContext(ctx, `SELECT id, name, source FROM fixtures ORDER BY seq`)
	if err != nil {
		return err
	}
	var all []stored
	for rows.Next() {
		var e stored
		if err := rows.Scan(&e.id, &e.name, &e.source); err != nil {
			rows.Close()
			return err
		}
		all = append(all, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range all {
		f, errs := script.LoadString(e.name, e.source, script.LoadModeCollectAll)
		if len(errs) > 0 {
			return fmt.Errorf("reload %s: %w", e.id, errors.Join(errs...))
		}
		digest, err := ir.FixtureDigest(f)
		if err != nil {
			return fmt.Errorf("reload %s: %w", e.id, err)
		}
		canonical, err := marshalFixture(f)
		if err != nil {
			return fmt.Errorf("reload %s: %w", e.id, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE fixtures SET digest = ?, canonical = ? WHERE id = ?`,
			digest, canonical, e.id); err != nil {
			return fmt.Errorf("reload %s: %w", e.id, err)
		}
	}
	return nil
}

// pragma reads the current value of a pragma.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
