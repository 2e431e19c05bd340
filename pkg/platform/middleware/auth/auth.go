// Package auth binds an explicit per-request session to the context.
//
// A session is derived from the bearer token on every request; nothing is
// cached between requests, so "disconnect" is simply not sending the token.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"civicledger/pkg/domain"
	"civicledger/pkg/requestcontext"
)

// Session is the validated identity of one request.
type Session struct {
	ID        string
	Caller    domain.Address
	ExpiresAt time.Time
}

// SessionValidator turns a bearer token into a Session.
type SessionValidator interface {
	ValidateSession(token string) (*Session, error)
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// bearer extracts the token from an Authorization header.
func bearer(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// RequireCaller rejects requests without a valid session token and binds the
// caller address for downstream handlers.
func RequireCaller(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := bearer(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			session, err := validator.ValidateSession(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithCaller(ctx, session.Caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
