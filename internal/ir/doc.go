// Package ir provides the in-memory model of a clafer fixture.
//
// This package contains type definitions and pure analyses only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Clafers reference each other by name, never by pointer
//   - The Fixture owns every Clafer and Constraint it holds
//   - Statement order is declaration order and is preserved on round-trip
//   - Canonical JSON has no floats and no nulls
package ir
