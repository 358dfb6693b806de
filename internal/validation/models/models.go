// Package models defines the value objects exchanged between the extraction
// layer, the rule evaluators, and the validation report. Everything here is
// immutable by convention: one submission produces one set of values and
// nothing outlives the call.
package models

import (
	"time"

	dErrors "cruce/pkg/domain-errors"
)

// FieldStatus classifies how the extraction upstream resolved a field.
type FieldStatus string

const (
	FieldStatusFound    FieldStatus = "found"
	FieldStatusNotFound FieldStatus = "not_found"
	FieldStatusPartial  FieldStatus = "partial"
)

// IsValid reports whether the status is one of the known values.
func (s FieldStatus) IsValid() bool {
	switch s {
	case FieldStatusFound, FieldStatusNotFound, FieldStatusPartial:
		return true
	}
	return false
}

// ParseFieldStatus validates and returns a FieldStatus.
func ParseFieldStatus(s string) (FieldStatus, error) {
	v := FieldStatus(s)
	if !v.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown field status: %s", s)
	}
	return v, nil
}

// Field is one extracted value with its provenance. Invariant: a not_found
// field carries an empty value.
type Field struct {
	Name       string      `json:"name"`
	Label      string      `json:"label"`
	Value      string      `json:"value,omitempty"`
	Status     FieldStatus `json:"status"`
	Confidence *float64    `json:"confidence,omitempty"`
}

// Present reports whether the field carries a usable value. Partial
// extractions count: the rules still compare what was read.
func (f Field) Present() bool {
	return f.Status != FieldStatusNotFound && f.Value != ""
}

// DocumentType identifies a document variant on the wire.
type DocumentType string

const (
	DocumentTypeDoda     DocumentType = "doda"
	DocumentTypeManifest DocumentType = "emanifest"
	DocumentTypePrefile  DocumentType = "prefile"
	DocumentTypePlates   DocumentType = "plates"
)

// Document is the common view the report generator needs: a stable identity
// and the fields of the variant's fixed schema, in presentation order.
type Document interface {
	Type() DocumentType
	Name() string
	Fields() []Field
}

// DodaData holds the fields extracted from the DODA customs declaration.
type DodaData struct {
	IssueDate     Field
	CustomsOffice Field
}

func (d DodaData) Type() DocumentType { return DocumentTypeDoda }
func (d DodaData) Name() string       { return "DODA" }

func (d DodaData) Fields() []Field {
	return []Field{d.IssueDate, d.CustomsOffice}
}

// ManifestData holds the fields extracted from the electronic manifest. The
// manifest is the richest document and feeds four of the five rules.
type ManifestData struct {
	TractorPlate  Field
	TrailerPlate  Field
	OperatorName  Field
	CustomsOffice Field
	EntryNumber   Field
	BrokerCode    Field
	Description   Field
	Quantity      Field
	Weight        Field
}

func (m ManifestData) Type() DocumentType { return DocumentTypeManifest }
func (m ManifestData) Name() string       { return "E-Manifest" }

func (m ManifestData) Fields() []Field {
	return []Field{
		m.TractorPlate,
		m.TrailerPlate,
		m.OperatorName,
		m.CustomsOffice,
		m.EntryNumber,
		m.BrokerCode,
		m.Description,
		m.Quantity,
		m.Weight,
	}
}

// PrefileData holds the fields extracted from the pre-filed customs entry.
type PrefileData struct {
	EntryNumber Field
	BrokerCode  Field
	Description Field
	Quantity    Field
	Weight      Field
}

func (p PrefileData) Type() DocumentType { return DocumentTypePrefile }
func (p PrefileData) Name() string       { return "Prefile" }

func (p PrefileData) Fields() []Field {
	return []Field{p.EntryNumber, p.BrokerCode, p.Description, p.Quantity, p.Weight}
}

// PlatePairData holds the plates read from the photographed vehicle. These
// are ground truth of the physical truck, kept separate from the manifest's
// written plate fields.
type PlatePairData struct {
	Tractor Field
	Trailer Field
}

func (p PlatePairData) Type() DocumentType { return DocumentTypePlates }
func (p PlatePairData) Name() string       { return "Plate photographs" }

func (p PlatePairData) Fields() []Field {
	return []Field{p.Tractor, p.Trailer}
}

// DocumentSet is the immutable snapshot of all extracted documents for one
// submission.
type DocumentSet struct {
	Doda     DodaData
	Manifest ManifestData
	Prefile  PrefileData
	Plates   PlatePairData
}

// All returns the documents in report order.
func (s DocumentSet) All() []Document {
	return []Document{s.Doda, s.Manifest, s.Prefile, s.Plates}
}

// Submission is everything the orchestrator needs for one crossing: the
// driver-entered name plus the extracted documents.
type Submission struct {
	DriverName string
	Documents  DocumentSet
}

// RuleStatus is the outcome of a single rule evaluation.
type RuleStatus string

const (
	RuleStatusPassed  RuleStatus = "passed"
	RuleStatusFailed  RuleStatus = "failed"
	RuleStatusWarning RuleStatus = "warning"
)

// IsValid reports whether the status is one of the known values.
func (s RuleStatus) IsValid() bool {
	switch s {
	case RuleStatusPassed, RuleStatusFailed, RuleStatusWarning:
		return true
	}
	return false
}

// ComparisonDetail records one side-by-side comparison a rule performed.
type ComparisonDetail struct {
	Label       string `json:"label"`
	Source1Name string `json:"source1_name"`
	Value1      string `json:"value1"`
	Source2Name string `json:"source2_name"`
	Value2      string `json:"value2"`
	Matched     bool   `json:"matched"`
}

// RuleResult is the structured verdict of one rule. Invariant: a failed
// result has at least one details entry.
type RuleResult struct {
	RuleID         string             `json:"rule_id"`
	RuleName       string             `json:"rule_name"`
	Description    string             `json:"description"`
	Status         RuleStatus         `json:"status"`
	Summary        string             `json:"summary"`
	Details        []string           `json:"details"`
	Comparisons    []ComparisonDetail `json:"comparisons"`
	Recommendation string             `json:"recommendation,omitempty"`
}

// Severity classifies a flattened rule error for the response envelope.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// SeverityFor maps a non-passing rule status to its severity.
func SeverityFor(status RuleStatus) Severity {
	if status == RuleStatusWarning {
		return SeverityWarning
	}
	return SeverityError
}

// RuleError is one entry of the flattened error list in the response.
type RuleError struct {
	RuleID   string   `json:"rule_id"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// OverallStatus is the aggregate verdict for a submission.
type OverallStatus string

const (
	OverallStatusSuccess OverallStatus = "success"
	OverallStatusPartial OverallStatus = "partial"
	OverallStatusFailed  OverallStatus = "failed"
)

// OverallStatusFor derives the aggregate status from rule outcome counts:
// success with nothing flagged, partial with warnings only, failed otherwise.
func OverallStatusFor(failed, warning int) OverallStatus {
	switch {
	case failed == 0 && warning == 0:
		return OverallStatusSuccess
	case failed == 0:
		return OverallStatusPartial
	default:
		return OverallStatusFailed
	}
}

// ValidationSummary aggregates rule outcomes and extraction confidence.
type ValidationSummary struct {
	TotalRules            int           `json:"total_rules"`
	PassedRules           int           `json:"passed_rules"`
	FailedRules           int           `json:"failed_rules"`
	WarningRules          int           `json:"warning_rules"`
	OverallStatus         OverallStatus `json:"overall_status"`
	ConfidenceAverage     float64       `json:"confidence_average"`
	ProcessingTimeSeconds float64       `json:"processing_time_seconds"`
}

// DocumentExtractionReport describes what the extraction upstream managed to
// read from one document, independent of rule outcomes.
type DocumentExtractionReport struct {
	DocumentType    DocumentType `json:"document_type"`
	DocumentName    string       `json:"document_name"`
	Fields          []Field      `json:"fields"`
	ExtractedFields int          `json:"extracted_fields"`
	TotalFields     int          `json:"total_fields"`
	ConfidenceScore float64      `json:"confidence_score"`
}

// ValidationReport is the root response for one submission.
type ValidationReport struct {
	Success    bool                       `json:"success"`
	Message    string                     `json:"message"`
	Errors     []RuleError                `json:"errors"`
	Summary    ValidationSummary          `json:"summary"`
	Rules      []RuleResult               `json:"rules"`
	Extraction []DocumentExtractionReport `json:"extraction"`
	Timestamp  time.Time                  `json:"timestamp"`
}
