package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFixture = "clafer/fixture/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FixtureDigest computes the content-addressed digest of a fixture.
// Two fixtures that format identically have the same digest; the fixture
// name is not part of it.
func FixtureDigest(f *Fixture) (string, error) {
	canonical, err := MarshalCanonical(CanonicalMap(f))
	if err != nil {
		return "", fmt.Errorf("FixtureDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFixture, canonical), nil
}

// MustFixtureDigest is like FixtureDigest but panics on error.
// Use only in tests or when the fixture is known to be well-formed.
func MustFixtureDigest(f *Fixture) string {
	d, err := FixtureDigest(f)
	if err != nil {
		panic(err)
	}
	return d
}
