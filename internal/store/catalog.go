package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/clafer/internal/ir"
	"github.com/roach88/clafer/internal/script"
)

// ErrNotFound is returned when no catalog entry matches a key.
var ErrNotFound = errors.New("fixture not found")

// Entry is one catalogued fixture.
type Entry struct {
	ID          string
	Digest      string
	Name        string
	Source      string
	Canonical   string
	Clafers     int
	Constraints int
	IRVersion   string
	Seq         int64
}

// Document returns the canonical JSON of the entry as plain maps.
func (e Entry) Document() (map[string]any, error) {
	return unmarshalDocument(e.Canonical)
}

// Fixture rebuilds the fixture from the stored script.
func (e Entry) Fixture() (*ir.Fixture, error) {
	f, errs := script.LoadString(e.Name, e.Source, script.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, fmt.Errorf("load %s: %w", e.Digest, errors.Join(errs...))
	}
	return f, nil
}

// Put adds a fixture to the catalog.
// Uses ON CONFLICT(digest) DO NOTHING for idempotency: a fixture that is
// already catalogued is returned unchanged with created == false.
//
// The fixture must be formattable; callers are expected to validate it first.
func (s *Store) Put(ctx context.Context, f *ir.Fixture) (entry Entry, created bool, err error) {
	digest, err := ir.FixtureDigest(f)
	if err != nil {
		return Entry{}, false, fmt.Errorf("put fixture: %w", err)
	}
	source, err := script.Format(f)
	if err != nil {
		return Entry{}, false, fmt.Errorf("put fixture: %w", err)
	}
	canonical, err := marshalFixture(f)
	if err != nil {
		return Entry{}, false, fmt.Errorf("put fixture: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Entry{}, false, fmt.Errorf("put fixture: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, false, fmt.Errorf("put fixture: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM fixtures`).Scan(&seq); err != nil {
		return Entry{}, false, fmt.Errorf("put fixture: next seq: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO fixtures
		(id, digest, name, source, canonical, clafers, constraints, ir_version, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO NOTHING
	`,
		id.String(),
		digest,
		f.Name,
		string(source),
		canonical,
		len(f.Order),
		f.ConstraintCount(),
		ir.IRVersion,
		seq,
	)
	if err != nil {
		return Entry{}, false, fmt.Errorf("put fixture: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Entry{}, false, fmt.Errorf("put fixture: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, false, fmt.Errorf("put fixture: %w", err)
	}

	entry, err = s.Get(ctx, digest)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, n == 1, nil
}

const selectEntry = `
	SELECT id, digest, name, source, canonical, clafers, constraints, ir_version, seq
	FROM fixtures
`

// Get returns the entry whose digest or id equals key.
func (s *Store) Get(ctx context.Context, key string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectEntry+`WHERE digest = ? OR id = ?`, key, key)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get %q: %w", key, err)
	}
	return e, nil
}

// List returns every entry in insertion order.
// ORDER BY seq ASC, digest ASC COLLATE BINARY for deterministic output.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, selectEntry+`ORDER BY seq ASC, digest ASC COLLATE BINARY`)
}

// FindByName returns the entries catalogued under name, oldest first.
// Several revisions of the same fixture share a name but not a digest.
func (s *Store) FindByName(ctx context.Context, name string) ([]Entry, error) {
	return s.query(ctx, selectEntry+`WHERE name = ? ORDER BY seq ASC, digest ASC COLLATE BINARY`, name)
}

// Resolve looks a key up as a digest or id first and falls back to the
// newest entry with that name.
func (s *Store) Resolve(ctx context.Context, key string) (Entry, error) {
	e, err := s.Get(ctx, key)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return e, err
	}
	named, err := s.FindByName(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	if len(named) == 0 {
		return Entry{}, fmt.Errorf("resolve %q: %w", key, ErrNotFound)
	}
	return named[len(named)-1], nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fixtures: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fixture: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixtures: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Digest, &e.Name, &e.Source, &e.Canonical,
		&e.Clafers, &e.Constraints, &e.IRVersion, &e.Seq)
	return e, err
}
