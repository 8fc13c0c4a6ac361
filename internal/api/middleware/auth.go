package middleware

import (
	"errors"
	"net/http"

	"github.com/docmark/docmark/internal/api/response"
	"github.com/docmark/docmark/internal/auth"
	"github.com/docmark/docmark/pkg/models"
)

// Auth resolves the caller's identity before admission runs.
type Auth struct {
	validator *auth.Validator
	header    string
}

// NewAuth creates the auth middleware. header is the request header
// carrying the API key.
func NewAuth(v *auth.Validator, header string) *Auth {
	return &Auth{validator: v, header: header}
}

// Authenticate resolves the presented credential (or the caller's origin
// when authentication is disabled) and stores the Identity in the request
// context. Missing and invalid credentials both answer 401, with distinct
// codes.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := r.Header.Get(a.header)

		id, err := a.validator.Validate(r.Context(), rawKey, r.RemoteAddr)
		switch {
		case errors.Is(err, auth.ErrMissingKey):
			response.Error(w, http.StatusUnauthorized,
				"MISSING_API_KEY", "API key required", nil)
			return
		case errors.Is(err, auth.ErrInvalidKey):
			response.Error(w, http.StatusUnauthorized,
				"INVALID_API_KEY", "Invalid API key", nil)
			return
		case err != nil:
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate API key", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(setIdentity(r.Context(), id)))
	})
}

// RequireAdmin guards the administrative routes. Must run after Authenticate.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r)
		if !ok || id.Role != models.RoleAdmin {
			response.Error(w, http.StatusForbidden,
				"FORBIDDEN", "Admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
