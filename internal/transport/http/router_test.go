package httptransport

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cruce/internal/validation"
	"cruce/internal/validation/handler"
	"cruce/pkg/testutil"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc, err := validation.New(validation.DefaultConfig(), validation.WithLogger(logger))
	require.NoError(t, err)

	return NewRouter(Config{
		Logger:     logger,
		Version:    "1.2.3",
		Validation: handler.New(svc, logger),
	})
}

func TestRouter_Root(t *testing.T) {
	rr := testutil.DoRequest(newTestRouter(t), testutil.NewRequest(t, http.MethodGet, "/"))

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "ok")
	testutil.AssertJSONContains(t, rr, "version", "1.2.3")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRouter_Health(t *testing.T) {
	rr := testutil.DoRequest(newTestRouter(t), testutil.NewRequest(t, http.MethodGet, "/health"))

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "healthy")
	testutil.AssertJSONContains(t, rr, "extraction_configured", false)
}

func TestRouter_Metrics(t *testing.T) {
	rr := testutil.DoRequest(newTestRouter(t), testutil.NewRequest(t, http.MethodGet, "/metrics"))

	testutil.AssertStatusOK(t, rr)
	assert.Contains(t, rr.Body.String(), "# HELP")
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/health")
	req.Header.Set("X-Request-ID", "caller-supplied-id")

	rr := testutil.DoRequest(newTestRouter(t), req)
	assert.Equal(t, "caller-supplied-id", rr.Header().Get("X-Request-ID"))
}

func TestRouter_UnknownRoute(t *testing.T) {
	rr := testutil.DoRequest(newTestRouter(t), testutil.NewRequest(t, http.MethodGet, "/nope"))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestRouter_ValidateDocumentsThroughMiddleware(t *testing.T) {
	// An all-empty submission is well-shaped, so the full chain must still
	// produce a report rather than an error.
	body := `{"driver_data": {"name": "Juan"}, "documents": {"doda": {}, "emanifest": {}, "prefile": {}}}`
	req := testutil.NewRequestWithBody(t, http.MethodPost, "/api/validate/documents", body)

	rr := testutil.DoRequest(newTestRouter(t), req)
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONHasKey(t, rr, "summary")
	testutil.AssertJSONContains(t, rr, "success", false)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRouter_ValidateWithoutExtractor(t *testing.T) {
	body := `{"driver_name": "Juan", "doda_image": "aGk=", "emanifest_image": "aGk=", "prefile_image": "aGk=", "tractor_plate_image": "aGk=", "trailer_plate_image": "aGk="}`
	req := testutil.NewRequestWithBody(t, http.MethodPost, "/api/validate", body)

	rr := testutil.DoRequest(newTestRouter(t), req)
	testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "unavailable")
}
