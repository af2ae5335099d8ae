package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/countries-api-service/internal/token"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// GetUserID extracts the authenticated user id from the request context.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDContextKey).(uuid.UUID)
	return id, ok
}

// SessionAuth returns middleware that authenticates requests via a Bearer
// access token.
func SessionAuth(tokens *token.Manager, limiter *AuthAttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attemptKey := clientIPKey(r, "session")
			if limiter != nil && !limiter.allow(attemptKey) {
				respondError(w, http.StatusTooManyRequests, "rate_limited", "Too many authentication failures")
				return
			}

			raw := extractBearerToken(r)
			if raw == "" {
				if limiter != nil {
					limiter.registerFailure(attemptKey)
				}
				respondError(w, http.StatusUnauthorized, "authorization_required", "Request does not contain an access token")
				return
			}

			subject, err := tokens.Verify(raw, token.KindAccess)
			if err != nil {
				if limiter != nil {
					limiter.registerFailure(attemptKey)
				}
				if errors.Is(err, token.ErrTokenExpired) {
					respondError(w, http.StatusUnauthorized, "token_expired", "The token has expired")
					return
				}
				respondError(w, http.StatusUnauthorized, "invalid_token", "Signature verification failed")
				return
			}

			userID, err := uuid.Parse(subject)
			if err != nil {
				if limiter != nil {
					limiter.registerFailure(attemptKey)
				}
				respondError(w, http.StatusUnauthorized, "invalid_token", "Signature verification failed")
				return
			}

			if limiter != nil {
				limiter.registerSuccess(attemptKey)
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
