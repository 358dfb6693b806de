// Package report turns extracted documents into per-document extraction
// reports: which fields were read, with what confidence. Rule outcomes play
// no part here.
package report

import (
	"math"

	"cruce/internal/validation/models"
)

// Generate builds the extraction report for one document. The per-document
// confidence is the mean over present fields that carry a confidence value;
// fields without one are left out of the mean rather than counted as zero.
func Generate(doc models.Document) models.DocumentExtractionReport {
	fields := doc.Fields()

	extracted := 0
	var confidenceSum float64
	confidenceCount := 0
	for _, f := range fields {
		if !f.Present() {
			continue
		}
		extracted++
		if f.Confidence != nil {
			confidenceSum += *f.Confidence
			confidenceCount++
		}
	}

	score := 0.0
	if confidenceCount > 0 {
		score = round2(confidenceSum / float64(confidenceCount))
	}

	return models.DocumentExtractionReport{
		DocumentType:    doc.Type(),
		DocumentName:    doc.Name(),
		Fields:          fields,
		ExtractedFields: extracted,
		TotalFields:     len(fields),
		ConfidenceScore: score,
	}
}

// GenerateAll reports on every document of a submission in stable order.
func GenerateAll(docs models.DocumentSet) []models.DocumentExtractionReport {
	all := docs.All()
	reports := make([]models.DocumentExtractionReport, 0, len(all))
	for _, doc := range all {
		reports = append(reports, Generate(doc))
	}
	return reports
}

// OverallConfidence averages the per-document scores for the summary.
func OverallConfidence(reports []models.DocumentExtractionReport) float64 {
	if len(reports) == 0 {
		return 0
	}
	var sum float64
	for _, r := range reports {
		sum += r.ConfidenceScore
	}
	return round2(sum / float64(len(reports)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
