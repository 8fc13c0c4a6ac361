package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// IdentityKey is the cache key for a resolved identity, keyed by the SHA-256
// digest of the raw credential so the credential itself never reaches Redis.
func IdentityKey(credentialDigest string) string {
	return fmt.Sprintf("identity:%s", credentialDigest)
}

// KeyDigestsKey tracks which credential digests map to an API key ID, so
// deactivation can evict the corresponding identity entries.
func KeyDigestsKey(keyID uuid.UUID) string {
	return fmt.Sprintf("keydigest:%s", keyID)
}
