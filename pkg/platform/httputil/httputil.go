// Package httputil centralizes JSON encoding and error rendering for HTTP
// handlers so every endpoint shares one envelope shape.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "cruce/pkg/domain-errors"
)

// errorResponse is the JSON error envelope returned by all endpoints.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Validatable is implemented by request DTOs that normalize and check
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as the shared JSON error envelope. Internal error
// classes omit the description so infrastructure details never leak.
func WriteError(w http.ResponseWriter, err error) {
	dErr := dErrors.From(err)

	resp := errorResponse{Error: string(dErr.Code)}
	if !dErr.Internal() {
		resp.ErrorDescription = dErr.Message
	}
	WriteJSON(w, dErr.HTTPStatus(), resp)
}

// DecodeAndPrepare decodes the request body into T and runs its Validate
// method when implemented. On failure it writes the error response itself and
// returns ok=false; handlers should simply return.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "request decode failed",
				"request_id", requestID,
				"path", r.URL.Path,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return nil, false
	}

	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			if logger != nil {
				logger.WarnContext(r.Context(), "request validation failed",
					"request_id", requestID,
					"path", r.URL.Path,
					"error", err,
				)
			}
			WriteError(w, err)
			return nil, false
		}
	}

	return &req, true
}
