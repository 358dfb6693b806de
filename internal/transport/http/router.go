// Package httptransport assembles the HTTP surface: middleware chain,
// operational endpoints, and the validation API.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cruce/internal/validation/handler"
	"cruce/pkg/platform/httputil"
	"cruce/pkg/platform/middleware/logging"
	"cruce/pkg/platform/middleware/metadata"
	"cruce/pkg/platform/middleware/recovery"
	"cruce/pkg/platform/middleware/requestid"
	"cruce/pkg/platform/middleware/requesttime"
)

// maxRequestBytes bounds one request body. Five base64 images at the
// per-image cap fit with room to spare.
const maxRequestBytes = 128 << 20

// Config carries everything the router mounts.
type Config struct {
	Logger     *slog.Logger
	Version    string
	Validation *handler.Handler
	// ExtractionConfigured is surfaced on /health so operators can tell a
	// missing API key from an upstream outage.
	ExtractionConfigured bool
}

// NewRouter builds the chi router with the shared middleware chain.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(recovery.Middleware(cfg.Logger))
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(logging.Middleware(cfg.Logger))
	r.Use(chimiddleware.RequestSize(maxRequestBytes))

	r.Get("/", handleRoot(cfg.Version))
	r.Get("/health", handleHealth(cfg))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	cfg.Validation.Register(r)

	return r
}

func handleRoot(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"message": "cruce validation API is running",
			"version": version,
		})
	}
}

func handleHealth(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":                "healthy",
			"service":               "cruce",
			"version":               cfg.Version,
			"extraction_configured": cfg.ExtractionConfigured,
		})
	}
}
