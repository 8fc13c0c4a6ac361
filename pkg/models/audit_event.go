package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction enumerates the governance and administrative actions that
// produce audit events.
type AuditAction string

const (
	ActionServiceStart        AuditAction = "service-start"
	ActionServiceStop         AuditAction = "service-stop"
	ActionHealthCheck         AuditAction = "health-check"
	ActionAdmissionGranted    AuditAction = "admission-granted"
	ActionAdmissionDenied     AuditAction = "admission-denied"
	ActionConversionSucceeded AuditAction = "conversion-succeeded"
	ActionConversionFailed    AuditAction = "conversion-failed"
	ActionKeyCreated          AuditAction = "key-created"
	ActionKeyDeactivated      AuditAction = "key-deactivated"
	ActionUserCreated         AuditAction = "user-created"
	ActionUserDeactivated     AuditAction = "user-deactivated"
)

// AuditStatus is the outcome recorded with an event.
type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditFailure AuditStatus = "failure"
)

// AuditEvent is an immutable record of a governance or administrative
// action. Events are append-only; the runtime never updates or deletes them.
type AuditEvent struct {
	ID        uuid.UUID      `db:"id"         json:"id"`
	Timestamp time.Time      `db:"ts"         json:"timestamp"`
	Actor     string         `db:"actor"      json:"actor"`
	Action    AuditAction    `db:"action"     json:"action"`
	Status    AuditStatus    `db:"status"     json:"status"`
	Metadata  map[string]any `db:"metadata"   json:"metadata,omitempty"`
}
