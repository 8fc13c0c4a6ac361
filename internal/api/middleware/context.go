package middleware

import (
	"context"
	"net/http"

	"github.com/docmark/docmark/internal/ratelimit"
	"github.com/docmark/docmark/pkg/models"
)

type contextKey string

const (
	identityKey  contextKey = "identity"
	admissionKey contextKey = "admission"
)

func setIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the resolved caller set by the auth middleware.
func GetIdentity(r *http.Request) (*models.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(*models.Identity)
	return id, ok
}

func setAdmission(ctx context.Context, d ratelimit.Decision) context.Context {
	return context.WithValue(ctx, admissionKey, d)
}

// GetAdmission returns the admission decision set by the rate-limit middleware.
func GetAdmission(r *http.Request) (ratelimit.Decision, bool) {
	d, ok := r.Context().Value(admissionKey).(ratelimit.Decision)
	return d, ok
}

// WithIdentity returns a shallow copy of r carrying id. For tests.
func WithIdentity(r *http.Request, id *models.Identity) *http.Request {
	return r.WithContext(setIdentity(r.Context(), id))
}

// WithAdmission returns a shallow copy of r carrying d. For tests.
func WithAdmission(r *http.Request, d ratelimit.Decision) *http.Request {
	return r.WithContext(setAdmission(r.Context(), d))
}
