package handler

import (
	"net/http"
	"time"

	"github.com/docmark/docmark/internal/api/response"
	"github.com/docmark/docmark/internal/audit"
	"github.com/docmark/docmark/internal/cache"
	"github.com/docmark/docmark/internal/store"
	"github.com/docmark/docmark/pkg/models"
)

// HealthConfig is the static configuration reported by the health endpoint.
type HealthConfig struct {
	Version         string
	AuthEnabled     bool
	RateLimitHits   int
	RateLimitPeriod time.Duration
}

// NewHealth returns the GET /health handler. A reachable-but-degraded
// dependency still answers 200; the body carries the per-dependency status.
func NewHealth(s store.Store, c cache.Cache, rec audit.Recorder, cfg HealthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			services["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			services["cache"] = "degraded"
		}

		status := "healthy"
		for _, v := range services {
			if v != "ok" {
				status = "degraded"
			}
		}

		rec.Record(models.AuditEvent{
			Actor:  "system",
			Action: models.ActionHealthCheck,
			Status: models.AuditSuccess,
			Metadata: map[string]any{
				"status": status,
			},
		})

		response.JSON(w, map[string]any{
			"status":       status,
			"services":     services,
			"auth_enabled": cfg.AuthEnabled,
			"rate_limit": map[string]any{
				"requests": cfg.RateLimitHits,
				"period":   cfg.RateLimitPeriod.String(),
			},
			"version":   cfg.Version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
