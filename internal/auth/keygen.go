package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// KeyPrefixLen is the number of leading characters of a raw key stored in
// plaintext for lookup and operator identification.
const KeyPrefixLen = 8

const rawKeyBytes = 32

// GenerateKey returns a new raw API key, its bcrypt hash, and its prefix.
// The raw key is shown to the operator exactly once; only the hash and
// prefix are persisted.
func GenerateKey() (raw, hash, prefix string, err error) {
	buf := make([]byte, rawKeyBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("generate key material: %w", err)
	}
	raw = "dm_" + base64.RawURLEncoding.EncodeToString(buf)

	h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hash key: %w", err)
	}
	return raw, string(h), raw[:KeyPrefixLen], nil
}

// VerifyKey reports whether raw matches the stored bcrypt hash.
func VerifyKey(raw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// Digest returns the hex SHA-256 digest of a raw key. Used as the identity
// cache key so the credential itself is never stored.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
