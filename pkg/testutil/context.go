package testutil

import (
	"net/http"
	"time"

	"cruce/pkg/requestcontext"
)

// WithRequestTime pins the request-scoped clock on a request.
// This simulates what the requesttime middleware would do, letting
// date-sensitive handler tests run against a fixed "now".
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), t)
	return req.WithContext(ctx)
}

// WithRequestID adds a request ID to the request context.
// This simulates what the requestid middleware would do.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}
