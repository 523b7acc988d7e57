// Package requestid assigns each request a correlation ID, honoring an
// inbound X-Request-ID header when a proxy already set one.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"unify/pkg/requestcontext"
)

const Header = "X-Request-ID"

// Middleware ensures every request carries a request ID in its context and
// echoes it back on the response for client-side correlation.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(Header)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(Header, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
