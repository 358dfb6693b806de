// Package handler exposes the validation pipeline over HTTP.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"cruce/internal/extraction"
	"cruce/internal/validation/models"
	"cruce/internal/validation/normalizer"
	dErrors "cruce/pkg/domain-errors"
	"cruce/pkg/platform/audit"
	"cruce/pkg/platform/httputil"
	"cruce/pkg/requestcontext"
)

// Service defines the interface for validation operations.
type Service interface {
	Validate(ctx context.Context, sub models.Submission) (models.ValidationReport, error)
}

// Extractor turns document images into typed extracted documents.
type Extractor interface {
	ExtractAll(ctx context.Context, batch extraction.Batch) (extraction.Result, error)
}

// Optimizer shrinks an image before it is sent upstream.
type Optimizer interface {
	Optimize(data []byte) ([]byte, error)
}

// Handler wires validation endpoints to the validation service and, when
// configured, the extraction pipeline.
type Handler struct {
	service   Service
	logger    *slog.Logger
	extractor Extractor
	optimizer Optimizer
	audit     audit.Emitter
}

// Option configures optional handler collaborators.
type Option func(*Handler)

// WithExtractor enables POST /api/validate, the image-submission pipeline.
func WithExtractor(e Extractor) Option {
	return func(h *Handler) { h.extractor = e }
}

// WithOptimizer shrinks images before extraction.
func WithOptimizer(o Optimizer) Option {
	return func(h *Handler) { h.optimizer = o }
}

// WithAuditEmitter records extraction failures on the audit trail.
func WithAuditEmitter(emitter audit.Emitter) Option {
	return func(h *Handler) { h.audit = emitter }
}

// New constructs a validation handler with its dependencies.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts validation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/validate", h.HandleValidate)
	r.Post("/api/validate/documents", h.HandleValidateDocuments)
}

// HandleValidate handles POST /api/validate requests: decode the images,
// extract each document, then run the rule engine over the result.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	if h.extractor == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "document extraction is not configured"))
		return
	}

	// Decode and validate request
	req, ok := httputil.DecodeAndPrepare[ValidateRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	batch := h.optimizeBatch(ctx, req.Batch())

	result, err := h.extractor.ExtractAll(ctx, batch)
	if err != nil {
		h.emitExtractionEvent(ctx, audit.EventExtractionFailed, req.DriverName, "failed", err.Error())
		h.logger.ErrorContext(ctx, "document extraction failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if len(result.Degraded) > 0 {
		reason := fmt.Sprintf("no data extracted for: %s", joinKinds(result.Degraded))
		h.emitExtractionEvent(ctx, audit.EventExtractionDegraded, req.DriverName, "degraded", reason)
		h.logger.WarnContext(ctx, "extraction degraded, validating remaining documents",
			"request_id", requestID,
			"degraded_documents", len(result.Degraded),
		)
	}

	// Call service
	report, err := h.service.Validate(ctx, models.Submission{
		DriverName: req.DriverName,
		Documents:  result.Documents,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "validation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "submission validated",
		"request_id", requestID,
		"overall_status", report.Summary.OverallStatus,
		"degraded_documents", len(result.Degraded),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleValidateDocuments handles POST /api/validate/documents requests:
// the caller already ran extraction and submits typed field values.
func (h *Handler) HandleValidateDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	// Decode and validate request
	req, ok := httputil.DecodeAndPrepare[DocumentsRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	// Call service
	report, err := h.service.Validate(ctx, req.Submission())
	if err != nil {
		h.logger.ErrorContext(ctx, "validation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "submission validated",
		"request_id", requestID,
		"overall_status", report.Summary.OverallStatus,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// optimizeBatch shrinks each image before upload. Optimization is best
// effort: a failure keeps the original bytes so extraction still gets its
// chance.
func (h *Handler) optimizeBatch(ctx context.Context, batch extraction.Batch) extraction.Batch {
	if h.optimizer == nil {
		return batch
	}

	images := []struct {
		kind extraction.ImageKind
		data *[]byte
	}{
		{kind: extraction.ImageDoda, data: &batch.Doda},
		{kind: extraction.ImageManifest, data: &batch.Manifest},
		{kind: extraction.ImagePrefile, data: &batch.Prefile},
		{kind: extraction.ImageTractorPlate, data: &batch.TractorPlate},
		{kind: extraction.ImageTrailerPlate, data: &batch.TrailerPlate},
	}
	for _, img := range images {
		optimized, err := h.optimizer.Optimize(*img.data)
		if err != nil {
			h.logger.WarnContext(ctx, "image optimization failed, keeping original",
				"document", string(img.kind),
				"error", err,
			)
			continue
		}
		h.logger.DebugContext(ctx, "image optimized",
			"document", string(img.kind),
			"original_bytes", len(*img.data),
			"optimized_bytes", len(optimized),
		)
		*img.data = optimized
	}
	return batch
}

func (h *Handler) emitExtractionEvent(ctx context.Context, action audit.AuditEvent, driverName, decision, reason string) {
	if h.audit == nil {
		return
	}

	event := audit.Event{
		Action:      string(action),
		RequestID:   requestcontext.RequestID(ctx),
		SubjectHash: audit.SubjectHash(normalizer.Normalize(driverName, normalizer.KindFreeText)),
		Decision:    decision,
		Reason:      reason,
		ClientIP:    requestcontext.ClientIP(ctx),
		UserAgent:   requestcontext.UserAgent(ctx),
		Device:      requestcontext.Device(ctx),
	}
	if err := h.audit.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "audit emit failed",
			"action", string(action),
			"error", err,
		)
	}
}

func joinKinds(kinds []extraction.ImageKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
