package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"civicledger/pkg/platform/httputil"
	"civicledger/pkg/requestcontext"
)

// exceededResponse is the shared error envelope plus the retry hint.
type exceededResponse struct {
	httputil.ErrorResponse
	RetryAfter int `json:"retry_after"`
}

// PerCaller limits each authenticated caller to limit requests per window.
// Requests without a caller are keyed by client IP. Store errors fail open.
func PerCaller(store Store, scope string, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := scope + ":ip:" + requestcontext.ClientIP(ctx)
			if caller, ok := requestcontext.Caller(ctx); ok {
				key = scope + ":caller:" + caller.String()
			}

			result, err := store.Allow(ctx, key, limit, window)
			if err != nil {
				logger.ErrorContext(ctx, "failed to check rate limit",
					"request_id", requestcontext.RequestID(ctx),
					"scope", scope,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"scope", scope,
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
					ErrorResponse: httputil.ErrorResponse{
						Error:            "rate_limit_exceeded",
						ErrorDescription: "Too many requests. Please try again later.",
					},
					RetryAfter: result.RetryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
