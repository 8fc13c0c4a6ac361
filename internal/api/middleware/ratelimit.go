package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/docmark/docmark/internal/api/response"
	"github.com/docmark/docmark/internal/audit"
	"github.com/docmark/docmark/internal/ratelimit"
	"github.com/docmark/docmark/pkg/models"
)

// RateLimit applies fixed-window admission control per identity and records
// the admission decision.
type RateLimit struct {
	limiter  *ratelimit.Limiter
	recorder audit.Recorder
}

// NewRateLimit creates the rate-limit middleware.
func NewRateLimit(l *ratelimit.Limiter, rec audit.Recorder) *RateLimit {
	return &RateLimit{limiter: l, recorder: rec}
}

// Limit admits or denies the request against the identity's quota. Every
// governed response carries the X-RateLimit-* headers; denials add
// Retry-After and stop the chain with 429.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r)
		if !ok {
			// Auth middleware didn't run; nothing to meter against.
			next.ServeHTTP(w, r)
			return
		}

		decision := rl.limiter.Admit(id.Token())
		setRateLimitHeaders(w, decision)

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			rl.recorder.Record(models.AuditEvent{
				Actor:  id.Actor(),
				Action: models.ActionAdmissionDenied,
				Status: models.AuditFailure,
				Metadata: map[string]any{
					"path":        r.URL.Path,
					"limit":       decision.Limit,
					"retry_after": retryAfter,
				},
			})

			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMITED", "Rate limit exceeded", map[string]any{
					"retry_after": retryAfter,
				})
			return
		}

		rl.recorder.Record(models.AuditEvent{
			Actor:  id.Actor(),
			Action: models.ActionAdmissionGranted,
			Status: models.AuditSuccess,
			Metadata: map[string]any{
				"path":      r.URL.Path,
				"limit":     decision.Limit,
				"remaining": decision.Remaining,
			},
		})

		next.ServeHTTP(w, r.WithContext(setAdmission(r.Context(), decision)))
	})
}

func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}
