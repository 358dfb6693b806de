package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: crossing authorizations and rejections.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and
	// forensics, such as repeated rejected crossings for one subject.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	// Examples: extraction degradations and upstream failures.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// RequestID correlates the event with one HTTP submission.
	RequestID string
	// SubjectHash is a SHA-256 hash of the driver's name so crossings stay
	// traceable without storing raw PII in the trail.
	SubjectHash string
	// Decision is the overall outcome (success, partial, failed).
	Decision  string
	Reason    string
	ClientIP  string
	UserAgent string
	// Device is the parsed User-Agent summary, e.g. "Chrome 126.0 on Linux".
	Device string
}

type AuditEvent string

const (
	// Validation events
	EventValidationCompleted AuditEvent = "validation_completed"
	EventValidationRejected  AuditEvent = "validation_rejected"

	// Extraction events
	EventExtractionFailed   AuditEvent = "extraction_failed"
	EventExtractionDegraded AuditEvent = "extraction_degraded"
)

// eventCategories maps each audit event to its category.
// Compliance: crossing outcomes carry regulatory weight and keep long retention.
// Operations: extraction pipeline events are diagnostic and can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	EventValidationCompleted: CategoryCompliance,
	EventValidationRejected:  CategoryCompliance,

	EventExtractionFailed:   CategoryOperations,
	EventExtractionDegraded: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// SubjectHash pseudonymizes a subject identifier for the audit trail.
func SubjectHash(subject string) string {
	if subject == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:])
}
