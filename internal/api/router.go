package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/docmark/docmark/internal/api/middleware"
	"github.com/docmark/docmark/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	ConvertFileHandler http.HandlerFunc
	ConvertTextHandler http.HandlerFunc
	ConvertURLHandler  http.HandlerFunc

	CreateUserHandler    http.HandlerFunc
	ListUsersHandler     http.HandlerFunc
	SetUserStatusHandler http.HandlerFunc
	CreateKeyHandler     http.HandlerFunc
	ListKeysHandler      http.HandlerFunc
	DeactivateKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/health", orNotImplemented(deps.HealthHandler))

	// Governed conversion routes: identity resolution, then admission
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/convert/file", orNotImplemented(deps.ConvertFileHandler))
		r.Post("/api/v1/convert/text", orNotImplemented(deps.ConvertTextHandler))
		r.Post("/api/v1/convert/url", orNotImplemented(deps.ConvertURLHandler))
	})

	// Admin routes: authenticated but not rate limited
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.Auth.RequireAdmin)

		r.Post("/api/v1/admin/users", orNotImplemented(deps.CreateUserHandler))
		r.Get("/api/v1/admin/users", orNotImplemented(deps.ListUsersHandler))
		r.Patch("/api/v1/admin/users/{userID}/status", orNotImplemented(deps.SetUserStatusHandler))

		r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
		r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
		r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.DeactivateKeyHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
