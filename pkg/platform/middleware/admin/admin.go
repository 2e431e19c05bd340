package admin

import (
	"context"
	"log/slog"
	"net/http"

	"civicledger/pkg/domain"
	"civicledger/pkg/requestcontext"
)

// Authorizer is satisfied by the complaint authority allow-list.
type Authorizer interface {
	Authorize(ctx context.Context, caller domain.Address) bool
}

// RequireAuthority rejects requests whose session caller is not an authority.
// It must run after auth.RequireCaller.
func RequireAuthority(authz Authorizer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller, ok := requestcontext.Caller(ctx)
			if !ok || !authz.Authorize(ctx, caller) {
				logger.WarnContext(ctx, "authority check failed",
					"request_id", requestcontext.RequestID(ctx),
					"caller", caller.String(),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"caller is not a registry authority"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
