// Package store provides a SQLite-backed catalog of validated fixtures.
//
// Fixtures are content-addressed: the key is ir.FixtureDigest, SHA-256 with
// domain separation over the RFC 8785 canonical JSON of the fixture. Adding
// the same fixture twice is a no-op that returns the existing entry.
//
// Each entry keeps the formatted script, so a catalog entry can be loaded
// back into a fixture with script.LoadString.
//
// # Ordering
//
// Entries carry a logical seq assigned at insert time. List returns
// ORDER BY seq ASC, digest ASC COLLATE BINARY, never by wall-clock time.
//
// # Storage
//
// The catalog is a single SQLite file in WAL mode with one open connection.
// Writers wait up to five seconds for a lock. PRAGMA user_version records
// the schema revision and Open runs whatever migrations are missing, each in
// one transaction. Revision 1 reloads stored scripts and recomputes their
// digests.
package store
