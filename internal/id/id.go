// Package id generates identifiers for persisted records.
package id

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"
)

// Prefixes for the records this service creates.
const (
	PrefixInvitation = "inv"
	PrefixContract   = "ctr"
	PrefixGrant      = "grant"
	PrefixAgency     = "agency"
	PrefixProfile    = "prof"
	PrefixToken      = "tok"
)

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "inv-V1StGXR8_Z5jdHi6B-myT")
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
// Use this only when failure should crash the program (e.g., seeding).
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewULID returns a lexicographically sortable id stamped with t.
// Ids generated for the same millisecond stay ordered within the process.
func NewULID(t time.Time) (string, error) {
	u, err := ulid.New(ulid.Timestamp(t), ulid.DefaultEntropy())
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return u.String(), nil
}
