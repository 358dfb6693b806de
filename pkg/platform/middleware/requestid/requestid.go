// Package requestid assigns a correlation ID to every request.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"cruce/pkg/requestcontext"
)

// Header carries the request ID on both requests and responses.
const Header = "X-Request-ID"

// Middleware reuses the caller's X-Request-ID when present, otherwise
// generates one, and stores it in the context and the response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
