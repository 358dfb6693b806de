// Package recovery converts handler panics into 500 responses so one bad
// request cannot take the process down.
package recovery

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	dErrors "cruce/pkg/domain-errors"
	"cruce/pkg/platform/httputil"
	"cruce/pkg/requestcontext"
)

// Middleware catches panics from downstream handlers, logs them with a stack
// trace, and renders the shared internal error envelope.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.ErrorContext(r.Context(), "handler panic recovered",
						"request_id", requestcontext.RequestID(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
						"panic", rec,
						"stack", string(debug.Stack()),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
