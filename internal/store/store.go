package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/docmark/docmark/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	SetUserStatus(ctx context.Context, id uuid.UUID, status models.EntityStatus) error

	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	SetAPIKeyStatus(ctx context.Context, id uuid.UUID, status models.EntityStatus) error
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error

	InsertAuditEvent(ctx context.Context, event *models.AuditEvent) error
}
