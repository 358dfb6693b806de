package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httptransport "cruce/internal/transport/http"
	"cruce/internal/validation"
	"cruce/internal/validation/handler"
	"cruce/internal/validation/models"
	"cruce/pkg/testutil"
)

// newRouter assembles the API the way cmd/server does, minus the extraction
// upstream.
func newRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := validation.New(validation.DefaultConfig(), validation.WithLogger(logger))
	if err != nil {
		t.Fatalf("building validation service: %v", err)
	}
	return httptransport.NewRouter(httptransport.Config{
		Logger:     logger,
		Version:    "test",
		Validation: handler.New(svc, logger),
	})
}

// submission returns a consistent pre-extracted crossing. The DODA is dated
// relative to the real clock because the full middleware chain stamps the
// request with time.Now.
func submission(issueDate string) string {
	return fmt.Sprintf(`{
		"driver_data": {
			"name": "Juan Pérez García",
			"tractor_plate": {"value": "51-DE-AR", "confidence": 0.96},
			"trailer_plate": {"value": "82 XK 21", "confidence": 0.95}
		},
		"documents": {
			"doda": {
				"issue_date": {"value": "%s", "confidence": 0.98},
				"customs_office": {"value": "NUEVO LAREDO", "confidence": 0.95}
			},
			"emanifest": {
				"tractor_plate": {"value": "51DEAR", "confidence": 0.97},
				"trailer_plate": {"value": "82XK21", "confidence": 0.96},
				"operator_name": {"value": "JUAN PEREZ GARCIA", "confidence": 0.93},
				"customs_office": {"value": "Nuevo Laredo", "confidence": 0.9},
				"entry_number": {"value": "24 01 3420 4002345", "confidence": 0.92},
				"broker_code": {"value": "3420", "confidence": 0.91},
				"description": {"value": "CAJAS DE AGUACATE FRESCO", "confidence": 0.88},
				"quantity": {"value": "120", "confidence": 0.94},
				"weight": {"value": "25.5 TONS", "confidence": 0.9}
			},
			"prefile": {
				"entry_number": {"value": "24 01 3420 4002345", "confidence": 0.9},
				"broker_code": {"value": "3420", "confidence": 0.89},
				"description": {"value": "CAJAS DE AGUACATE FRESCO", "confidence": 0.87},
				"quantity": {"value": "120", "confidence": 0.93},
				"weight": {"value": "25.5", "confidence": 0.92}
			}
		}
	}`, issueDate)
}

func post(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCrossingSubmissionFlow(t *testing.T) {
	testutil.Given(t, "the assembled HTTP API", func(t *testing.T) {
		router := newRouter(t)

		testutil.When(t, "submitting a consistent crossing", func(t *testing.T) {
			fresh := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
			rec := post(t, router, "/api/validate/documents", submission(fresh))

			testutil.Then(t, "every rule passes", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
				}
				var report models.ValidationReport
				if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
					t.Fatalf("decoding report: %v", err)
				}
				if !report.Success {
					t.Fatalf("expected success, got %+v", report.Errors)
				}
				if report.Summary.OverallStatus != models.OverallStatusSuccess {
					t.Fatalf("expected overall success, got %s", report.Summary.OverallStatus)
				}
				if len(report.Rules) != 5 {
					t.Fatalf("expected 5 rule results, got %d", len(report.Rules))
				}
			})
		})

		testutil.When(t, "submitting a crossing with a stale declaration", func(t *testing.T) {
			rec := post(t, router, "/api/validate/documents", submission("2020-01-01"))

			testutil.Then(t, "the report fails on the validity window", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
				var report models.ValidationReport
				if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
					t.Fatalf("decoding report: %v", err)
				}
				if report.Success {
					t.Fatal("expected the submission to be rejected")
				}
				if len(report.Errors) == 0 || report.Errors[0].RuleID != "R1" {
					t.Fatalf("expected R1 in errors, got %+v", report.Errors)
				}
			})
		})

		testutil.When(t, "probing liveness", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			testutil.Then(t, "the service reports healthy", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
			})
		})
	})
}
