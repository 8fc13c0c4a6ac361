package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Identity is the resolved caller of a governed request: either an API key
// and its owning user, or an anonymous network origin when authentication
// is disabled. It is the subject of admission checks and audit events.
type Identity struct {
	KeyID  uuid.UUID `json:"key_id,omitempty"`
	UserID uuid.UUID `json:"user_id,omitempty"`
	Role   Role      `json:"role,omitempty"`
	Origin string    `json:"origin,omitempty"`
}

// Anonymous reports whether the identity was resolved without a credential.
func (i Identity) Anonymous() bool {
	return i.KeyID == uuid.Nil
}

// Token returns the rate-limit bucket key for this identity: the key ID for
// authenticated callers, or the normalized origin for anonymous ones.
func (i Identity) Token() string {
	if i.Anonymous() {
		return fmt.Sprintf("ip_%s", i.Origin)
	}
	return fmt.Sprintf("key_%s", i.KeyID)
}

// Actor returns the identity string recorded in audit events.
func (i Identity) Actor() string {
	return i.Token()
}
