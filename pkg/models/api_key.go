package models

import (
	"time"

	"github.com/google/uuid"
)

// Role controls access to the administrative endpoints.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// APIKey authenticates requests against the conversion endpoints.
// Raw keys are shown once at creation; only the bcrypt hash is stored.
type APIKey struct {
	ID         uuid.UUID    `db:"id"           json:"id"`
	UserID     uuid.UUID    `db:"user_id"      json:"user_id"`
	Name       string       `db:"name"         json:"name"`
	KeyHash    string       `db:"key_hash"     json:"-"`
	KeyPrefix  string       `db:"key_prefix"   json:"key_prefix"`
	Role       Role         `db:"role"         json:"role"`
	Status     EntityStatus `db:"status"       json:"status"`
	LastUsedAt *time.Time   `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time    `db:"created_at"   json:"created_at"`
}

// Usable reports whether the key itself may authenticate. The owning
// user's status is checked separately by the validator.
func (k *APIKey) Usable() bool {
	return k.Status == StatusActive
}
