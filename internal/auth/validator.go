package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/docmark/docmark/internal/cache"
	"github.com/docmark/docmark/internal/store"
	"github.com/docmark/docmark/pkg/models"
)

var (
	// ErrMissingKey means authentication is required and no credential was presented.
	ErrMissingKey = errors.New("missing api key")
	// ErrInvalidKey means the presented credential matched no usable key.
	ErrInvalidKey = errors.New("invalid api key")
)

// Validator resolves a presented credential to an Identity. It never mutates
// key or user status; its only side effect is the best-effort last-used
// timestamp update on a successful match.
type Validator struct {
	store    store.Store
	cache    cache.Cache
	enabled  bool
	cacheTTL time.Duration
}

// NewValidator creates a Validator. When enabled is false every request
// resolves to an anonymous identity carrying the caller's network origin.
// cacheTTL bounds how long a deactivated key may keep resolving from cache.
func NewValidator(s store.Store, c cache.Cache, enabled bool, cacheTTL time.Duration) *Validator {
	return &Validator{store: s, cache: c, enabled: enabled, cacheTTL: cacheTTL}
}

// Enabled reports whether authentication is enforced.
func (v *Validator) Enabled() bool {
	return v.enabled
}

// Validate resolves rawKey (possibly empty) and the caller's remote address
// to an Identity. Returns ErrMissingKey or ErrInvalidKey on rejection.
func (v *Validator) Validate(ctx context.Context, rawKey, remoteAddr string) (*models.Identity, error) {
	if !v.enabled {
		return &models.Identity{Origin: normalizeOrigin(remoteAddr)}, nil
	}

	if rawKey == "" {
		return nil, ErrMissingKey
	}
	if len(rawKey) < KeyPrefixLen {
		return nil, ErrInvalidKey
	}

	digest := Digest(rawKey)
	if id, ok := v.cached(ctx, digest); ok {
		go v.touch(id.KeyID)
		return id, nil
	}

	keys, err := v.store.GetAPIKeysByPrefix(ctx, rawKey[:KeyPrefixLen])
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if !VerifyKey(rawKey, key.KeyHash) {
			continue
		}
		id := &models.Identity{KeyID: key.ID, UserID: key.UserID, Role: key.Role}
		v.remember(ctx, digest, id)
		go v.touch(key.ID)
		return id, nil
	}

	return nil, ErrInvalidKey
}

// InvalidateKey evicts any cached identity resolved from the given key.
// Best effort: a miss here only extends staleness up to the cache TTL.
func (v *Validator) InvalidateKey(ctx context.Context, keyID uuid.UUID) {
	val, found, err := v.cache.Get(ctx, cache.KeyDigestsKey(keyID))
	if err != nil || !found {
		return
	}
	_ = v.cache.Delete(ctx, cache.IdentityKey(string(val)))
	_ = v.cache.Delete(ctx, cache.KeyDigestsKey(keyID))
}

// cached looks up the identity cache. Cache errors fail open to the store.
func (v *Validator) cached(ctx context.Context, digest string) (*models.Identity, bool) {
	val, found, err := v.cache.Get(ctx, cache.IdentityKey(digest))
	if err != nil || !found {
		return nil, false
	}
	var id models.Identity
	if err := json.Unmarshal(val, &id); err != nil {
		return nil, false
	}
	return &id, true
}

func (v *Validator) remember(ctx context.Context, digest string, id *models.Identity) {
	val, err := json.Marshal(id)
	if err != nil {
		return
	}
	_ = v.cache.Set(ctx, cache.IdentityKey(digest), val, v.cacheTTL)
	_ = v.cache.Set(ctx, cache.KeyDigestsKey(id.KeyID), []byte(digest), v.cacheTTL)
}

// touch updates last_used_at off the request path.
func (v *Validator) touch(keyID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := v.store.UpdateAPIKeyLastUsed(ctx, keyID); err != nil {
		slog.Debug("update last used failed", "key_id", keyID, "error", err)
	}
}

// normalizeOrigin strips the port from a remote address so all connections
// from one host share a rate-limit bucket.
func normalizeOrigin(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
