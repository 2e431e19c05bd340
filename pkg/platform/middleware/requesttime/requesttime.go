// Package requesttime pins a single "now" per HTTP request so the complaint's
// CreatedAt, its settlement time and its audit entry all agree.
package requesttime

import (
	"net/http"
	"time"

	"civicledger/pkg/requestcontext"
)

// Middleware captures the time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
