package service

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// invitationTokenSize is the number of random bytes in an invitation token (256 bits).
const invitationTokenSize = 32

// generateInvitationToken returns a URL-safe bearer token and the fingerprint stored in its place.
func generateInvitationToken() (token, fingerprint string, err error) {
	b := make([]byte, invitationTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate random bytes: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	return token, fingerprintToken(token), nil
}

// fingerprintToken hashes a bearer token for lookup. Only fingerprints are persisted.
func fingerprintToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
