// Package validation runs the cross-document rule engine over one submission
// and assembles the final report.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"cruce/internal/validation/matcher"
	"cruce/internal/validation/metrics"
	"cruce/internal/validation/models"
	"cruce/internal/validation/normalizer"
	"cruce/internal/validation/report"
	"cruce/internal/validation/rules"
	dErrors "cruce/pkg/domain-errors"
	audit "cruce/pkg/platform/audit"
	"cruce/pkg/requestcontext"
)

var tracer = otel.Tracer("cruce/internal/validation")

// ruleCount is fixed by the rule set R1..R5.
const ruleCount = 5

// Config holds the tunables of the rule engine.
type Config struct {
	Thresholds       matcher.Thresholds
	DodaMaxAgeDays   int
	DescriptionFloor float64
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds:       matcher.DefaultThresholds(),
		DodaMaxAgeDays:   3,
		DescriptionFloor: 0.6,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.DodaMaxAgeDays < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "doda max age days must not be negative")
	}
	if c.DescriptionFloor < 0 || c.DescriptionFloor >= c.Thresholds.Lenient {
		return dErrors.New(dErrors.CodeInvalidInput, "description floor must be in [0, lenient)")
	}
	return nil
}

// Service is the validation orchestrator. It is stateless across calls and
// safe for concurrent use.
type Service struct {
	cfg     Config
	matcher *matcher.Matcher
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Emitter
	clock   func() time.Time
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditEmitter attaches the audit trail.
func WithAuditEmitter(emitter audit.Emitter) Option {
	return func(s *Service) { s.audit = emitter }
}

// WithClock overrides the wall clock used for processing time, keeping
// reports deterministic under test.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New builds a Service from a validated config.
func New(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := matcher.New(cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:     cfg,
		matcher: m,
		logger:  slog.Default(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Validate evaluates all five rules and the extraction reports over one
// submission. The reference "today" comes from the request context clock, so
// fixed-clock tests get identical reports on identical input. The only error
// path is context cancellation; rule failures live inside the report.
func (s *Service) Validate(ctx context.Context, sub models.Submission) (models.ValidationReport, error) {
	start := s.clock()
	ref := requestcontext.Now(ctx)

	ctx, span := tracer.Start(ctx, "validation.validate")
	defer span.End()

	docs := sub.Documents
	var (
		results    [ruleCount]models.RuleResult
		extraction []models.DocumentExtractionReport
	)

	g, gctx := errgroup.WithContext(ctx)

	// Each evaluator writes its own slot, so reassembly in R1..R5 order needs
	// no synchronization beyond the join.
	evaluators := []func() models.RuleResult{
		func() models.RuleResult { return rules.EvaluateDodaWindow(docs.Doda, ref, s.cfg.DodaMaxAgeDays) },
		func() models.RuleResult { return rules.EvaluatePlateMatch(docs.Plates, docs.Manifest, s.matcher) },
		func() models.RuleResult {
			return rules.EvaluateCargoCrossCheck(docs.Manifest, docs.Prefile, s.matcher, s.cfg.DescriptionFloor)
		},
		func() models.RuleResult { return rules.EvaluateCustomsOffice(docs.Doda, docs.Manifest, s.matcher) },
		func() models.RuleResult { return rules.EvaluateOperatorName(docs.Manifest, sub.DriverName, s.matcher) },
	}
	for i, evaluate := range evaluators {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ruleStart := time.Now()
			result := evaluate()
			s.metrics.ObserveRuleLatency(result.RuleID, time.Since(ruleStart))
			s.metrics.IncrementRuleOutcome(result.RuleID, string(result.Status))
			results[i] = result
			return nil
		})
	}
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		extraction = report.GenerateAll(docs)
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return models.ValidationReport{}, dErrors.Wrap(err, dErrors.CodeTimeout, "validation cancelled")
	}

	rep := s.assemble(results[:], extraction, ref, s.clock().Sub(start))

	span.SetAttributes(
		attribute.String("validation.overall_status", string(rep.Summary.OverallStatus)),
		attribute.Int("validation.failed_rules", rep.Summary.FailedRules),
		attribute.Int("validation.warning_rules", rep.Summary.WarningRules),
		attribute.Float64("validation.confidence_average", rep.Summary.ConfidenceAverage),
	)
	s.metrics.ObserveValidateLatency(time.Since(start))
	s.metrics.IncrementSubmission(string(rep.Summary.OverallStatus))
	s.metrics.ObserveConfidenceAverage(rep.Summary.ConfidenceAverage)

	s.logger.InfoContext(ctx, "validation completed",
		slog.String("request_id", requestcontext.RequestID(ctx)),
		slog.String("overall_status", string(rep.Summary.OverallStatus)),
		slog.Int("failed_rules", rep.Summary.FailedRules),
		slog.Int("warning_rules", rep.Summary.WarningRules),
		slog.Float64("confidence_average", rep.Summary.ConfidenceAverage),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	s.emitAudit(ctx, sub, rep)
	return rep, nil
}

// assemble folds rule outcomes and extraction reports into the final
// ValidationReport.
func (s *Service) assemble(results []models.RuleResult, extraction []models.DocumentExtractionReport, ref time.Time, elapsed time.Duration) models.ValidationReport {
	var passed, failed, warnings int
	ruleErrors := []models.RuleError{}
	for _, r := range results {
		if r.Status == models.RuleStatusPassed {
			passed++
			continue
		}
		if r.Status == models.RuleStatusWarning {
			warnings++
		} else {
			failed++
		}
		ruleErrors = append(ruleErrors, models.RuleError{
			RuleID:   r.RuleID,
			Message:  r.Summary,
			Severity: models.SeverityFor(r.Status),
		})
	}

	overall := models.OverallStatusFor(failed, warnings)
	summary := models.ValidationSummary{
		TotalRules:            len(results),
		PassedRules:           passed,
		FailedRules:           failed,
		WarningRules:          warnings,
		OverallStatus:         overall,
		ConfidenceAverage:     report.OverallConfidence(extraction),
		ProcessingTimeSeconds: elapsed.Seconds(),
	}

	var message string
	switch overall {
	case models.OverallStatusSuccess:
		message = "All validation rules passed."
	case models.OverallStatusPartial:
		message = fmt.Sprintf("Validation passed with %d warning(s).", warnings)
	default:
		message = fmt.Sprintf("Validation failed: %d of %d rules did not pass.", failed, len(results))
	}

	return models.ValidationReport{
		Success:    overall == models.OverallStatusSuccess,
		Message:    message,
		Errors:     ruleErrors,
		Summary:    summary,
		Rules:      results,
		Extraction: extraction,
		Timestamp:  ref,
	}
}

func (s *Service) emitAudit(ctx context.Context, sub models.Submission, rep models.ValidationReport) {
	if s.audit == nil {
		return
	}

	action := audit.EventValidationCompleted
	if rep.Summary.OverallStatus == models.OverallStatusFailed {
		action = audit.EventValidationRejected
	}

	event := audit.Event{
		Action:      string(action),
		RequestID:   requestcontext.RequestID(ctx),
		SubjectHash: audit.SubjectHash(normalizer.Normalize(sub.DriverName, normalizer.KindFreeText)),
		Decision:    string(rep.Summary.OverallStatus),
		Reason:      rep.Message,
		ClientIP:    requestcontext.ClientIP(ctx),
		UserAgent:   requestcontext.UserAgent(ctx),
		Device:      requestcontext.Device(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
	}
}
