package middleware

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/countries-api-service/internal/model"
	"github.com/countries-api-service/internal/service"
	"github.com/countries-api-service/internal/store"
)

const apiKeyContextKey contextKey = "api_key"

// GetAPIKey extracts the authenticated API key from the request context.
func GetAPIKey(ctx context.Context) *model.APIKey {
	key, _ := ctx.Value(apiKeyContextKey).(*model.APIKey)
	return key
}

// KeyValidator resolves a raw API key to its record.
type KeyValidator interface {
	Validate(ctx context.Context, rawKey string) (*model.APIKey, error)
}

// APIKeyAuth returns middleware that authenticates requests via API key and
// records a usage event per authenticated request.
//
// The usage row is written before the handler runs, with a provisional 200
// status, then patched to the handler's final status. A failed write is
// logged and never blocks the request. Failed authentication leaves no row.
func APIKeyAuth(keys KeyValidator, usage store.UsageStore, limiter *AuthAttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			attemptKey := clientIPKey(r, "api_key")
			if limiter != nil && !limiter.allow(attemptKey) {
				respondError(w, http.StatusTooManyRequests, "rate_limited", "Too many authentication failures")
				return
			}

			raw := extractAPIKey(r)
			if raw == "" {
				if limiter != nil {
					limiter.registerFailure(attemptKey)
				}
				respondError(w, http.StatusUnauthorized, "api_key_required", "API key is required")
				return
			}

			key, err := keys.Validate(r.Context(), raw)
			if err != nil {
				if limiter != nil {
					limiter.registerFailure(attemptKey)
				}
				service.RespondError(w, err)
				return
			}
			if limiter != nil {
				limiter.registerSuccess(attemptKey)
			}

			event := &model.UsageEvent{
				APIKeyID:       key.ID,
				Endpoint:       r.URL.Path,
				Method:         r.Method,
				StatusCode:     http.StatusOK,
				ResponseTimeMs: time.Since(start).Milliseconds(),
				IPAddress:      clientIP(r),
				UserAgent:      r.UserAgent(),
			}
			recorded := true
			if err := usage.CreateUsageEvent(r.Context(), event); err != nil {
				recorded = false
				log.Error().Err(err).Str("key_id", key.ID.String()).Msg("failed to record usage event")
			}

			rec := newStatusRecorder(w)
			ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
			next.ServeHTTP(rec, r.WithContext(ctx))

			if recorded && rec.status != http.StatusOK {
				if err := usage.UpdateUsageEventStatus(r.Context(), event.ID, rec.status); err != nil {
					log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to patch usage event status")
				}
			}
		})
	}
}

// extractAPIKey reads the key from the X-API-Key header, falling back to
// the api_key query parameter.
func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if parsedHost, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = parsedHost
	}
	return host
}
