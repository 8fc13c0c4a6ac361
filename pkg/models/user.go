package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityStatus is the lifecycle state shared by users and API keys.
// Deactivation is a soft-disable; rows are never deleted.
type EntityStatus string

const (
	StatusActive      EntityStatus = "active"
	StatusDeactivated EntityStatus = "deactivated"
)

// User owns zero or more API keys. Deactivating a user makes every key
// it owns unusable without touching the key rows themselves.
type User struct {
	ID        uuid.UUID    `db:"id"         json:"id"`
	Name      string       `db:"name"       json:"name"`
	Email     string       `db:"email"      json:"email"`
	Status    EntityStatus `db:"status"     json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Usable reports whether the user may authenticate.
func (u *User) Usable() bool {
	return u.Status == StatusActive
}
