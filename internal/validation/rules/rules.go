// Package rules holds the five border-crossing validation rules. Each rule is
// a free function over the documents it needs, so every rule is testable
// without constructing a full submission. Rules never panic and never return
// errors: malformed or missing data degrades the verdict to failed with an
// explanatory detail line.
package rules

import (
	"fmt"
	"time"

	"cruce/internal/validation/matcher"
	"cruce/internal/validation/models"
	"cruce/internal/validation/normalizer"
)

// Source names shown in comparison rows.
const (
	sourceDoda       = "DODA"
	sourceManifest   = "E-Manifest"
	sourcePrefile    = "Prefile"
	sourcePhotograph = "Plate photograph"
	sourceDriverForm = "Driver form"
)

func newResult(id, name, description string) models.RuleResult {
	return models.RuleResult{
		RuleID:      id,
		RuleName:    name,
		Description: description,
		Details:     []string{},
		Comparisons: []models.ComparisonDetail{},
	}
}

// EvaluateDodaWindow checks that the DODA was issued within maxAgeDays
// calendar days of the reference time. The reference time is injected so the
// rule never touches the system clock.
func EvaluateDodaWindow(doda models.DodaData, ref time.Time, maxAgeDays int) models.RuleResult {
	result := newResult("R1", "DODA validity window",
		fmt.Sprintf("The DODA must have been issued within the last %d days.", maxAgeDays))

	issue := doda.IssueDate
	if !issue.Present() {
		result.Status = models.RuleStatusFailed
		result.Summary = "DODA issue date is missing."
		result.Details = append(result.Details, "The DODA issue date could not be read from the document.")
		result.Recommendation = "Rescan the DODA with the issue date clearly visible."
		return result
	}

	issued, ok := normalizer.ParseDate(issue.Value)
	if !ok {
		result.Status = models.RuleStatusFailed
		result.Summary = "DODA issue date is not a recognizable date."
		result.Details = append(result.Details,
			fmt.Sprintf("The extracted issue date %q matches no accepted date format.", issue.Value))
		result.Recommendation = "Rescan the DODA with the issue date clearly visible."
		return result
	}

	days := calendarDaysBetween(issued, ref)
	issuedText := issued.Format("2006-01-02")

	switch {
	case days < 0:
		result.Status = models.RuleStatusFailed
		result.Summary = "DODA is dated in the future."
		result.Details = append(result.Details,
			fmt.Sprintf("The DODA is dated %s, %d day(s) after the current date.", issuedText, -days))
		result.Recommendation = "Check the document date; future-dated DODAs are not acceptable."
	case days > maxAgeDays:
		result.Status = models.RuleStatusFailed
		result.Summary = fmt.Sprintf("DODA expired %d day(s) ago.", days-maxAgeDays)
		result.Details = append(result.Details,
			fmt.Sprintf("The DODA was issued on %s, %d days ago; the limit is %d days (%d over).",
				issuedText, days, maxAgeDays, days-maxAgeDays))
		result.Recommendation = "Request a freshly issued DODA before the crossing."
	default:
		result.Status = models.RuleStatusPassed
		result.Summary = fmt.Sprintf("DODA issued %d day(s) ago, within the %d-day window.", days, maxAgeDays)
		result.Details = append(result.Details,
			fmt.Sprintf("The DODA was issued on %s; %d of %d allowed days elapsed.", issuedText, days, maxAgeDays))
	}
	return result
}

// calendarDaysBetween counts whole calendar days from one date to another,
// ignoring the time of day on either side.
func calendarDaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// EvaluatePlateMatch compares the photographed tractor and trailer plates
// against the manifest's plate fields under the strict threshold. Both
// comparisons always produce a row; the rule passes only when both match.
func EvaluatePlateMatch(plates models.PlatePairData, manifest models.ManifestData, m *matcher.Matcher) models.RuleResult {
	result := newResult("R2", "Plate match",
		"The photographed plates must match the plates written on the manifest.")

	pairs := []struct {
		label    string
		photo    models.Field
		manifest models.Field
	}{
		{label: "Tractor plate", photo: plates.Tractor, manifest: manifest.TractorPlate},
		{label: "Trailer plate", photo: plates.Trailer, manifest: manifest.TrailerPlate},
	}

	matched := 0
	for _, pair := range pairs {
		row := models.ComparisonDetail{
			Label:       pair.label,
			Source1Name: sourcePhotograph,
			Value1:      pair.photo.Value,
			Source2Name: sourceManifest,
			Value2:      pair.manifest.Value,
		}

		switch {
		case !pair.photo.Present() && !pair.manifest.Present():
			result.Details = append(result.Details,
				fmt.Sprintf("%s is missing from both the photograph and the manifest.", pair.label))
		case !pair.photo.Present():
			result.Details = append(result.Details,
				fmt.Sprintf("%s could not be read from the photograph.", pair.label))
		case !pair.manifest.Present():
			result.Details = append(result.Details,
				fmt.Sprintf("%s is missing from the manifest.", pair.label))
		default:
			res := m.MatchStrict(pair.photo.Value, pair.manifest.Value, normalizer.KindPlateNumber)
			row.Matched = res.IsMatch
			if res.IsMatch {
				matched++
			} else {
				result.Details = append(result.Details,
					fmt.Sprintf("%s mismatch: photographed %q vs manifest %q (similarity %.2f, cutoff %.2f).",
						pair.label, pair.photo.Value, pair.manifest.Value, res.Score, m.Strict()))
			}
		}
		result.Comparisons = append(result.Comparisons, row)
	}

	if matched == len(pairs) {
		result.Status = models.RuleStatusPassed
		result.Summary = "Photographed plates match the manifest."
	} else {
		result.Status = models.RuleStatusFailed
		result.Summary = "Photographed plates do not match the manifest."
		result.Recommendation = "Verify the physical plates against the manifest before authorizing the crossing."
	}
	return result
}

// EvaluateCargoCrossCheck reconciles the manifest against the prefile over a
// fixed field set. Quantity and weight must agree exactly after unit
// stripping; the text fields use the lenient threshold. A lone description
// mismatch scoring at or above descriptionFloor downgrades to a warning,
// everything else fails the rule.
func EvaluateCargoCrossCheck(manifest models.ManifestData, prefile models.PrefileData, m *matcher.Matcher, descriptionFloor float64) models.RuleResult {
	result := newResult("R3", "Manifest and prefile consistency",
		"Entry number, broker code, description, quantity, and weight must agree between the manifest and the prefile.")

	checks := []cargoField{
		{label: "Entry number", manifest: manifest.EntryNumber, prefile: prefile.EntryNumber},
		{label: "Broker code", manifest: manifest.BrokerCode, prefile: prefile.BrokerCode},
		{label: "Cargo description", manifest: manifest.Description, prefile: prefile.Description, minor: true},
		{label: "Quantity", manifest: manifest.Quantity, prefile: prefile.Quantity, numeric: true},
		{label: "Weight", manifest: manifest.Weight, prefile: prefile.Weight, numeric: true},
	}

	var failures, minorFailures int
	for _, check := range checks {
		row := models.ComparisonDetail{
			Label:       check.label,
			Source1Name: sourceManifest,
			Value1:      check.manifest.Value,
			Source2Name: sourcePrefile,
			Value2:      check.prefile.Value,
		}

		if check.numeric {
			row.Matched = compareNumeric(check, &result)
		} else {
			row.Matched = compareText(check, m, descriptionFloor, &result, &minorFailures)
		}
		if !row.Matched {
			failures++
		}
		result.Comparisons = append(result.Comparisons, row)
	}

	switch {
	case failures == 0:
		result.Status = models.RuleStatusPassed
		result.Summary = "Manifest and prefile agree on all checked fields."
	case failures == 1 && minorFailures == 1:
		result.Status = models.RuleStatusWarning
		result.Summary = "Cargo description differs slightly between manifest and prefile."
		result.Recommendation = "Review the cargo description wording; the rest of the documents agree."
	default:
		result.Status = models.RuleStatusFailed
		result.Summary = fmt.Sprintf("Manifest and prefile disagree on %d of %d checked fields.", failures, len(checks))
		result.Recommendation = "Reconcile the manifest and prefile with the customs broker before proceeding."
	}
	return result
}

// cargoField is one manifest/prefile field pairing checked by R3.
type cargoField struct {
	label    string
	manifest models.Field
	prefile  models.Field
	numeric  bool
	minor    bool
}

// compareNumeric applies the exact-after-unit-stripping policy. Both sides
// absent counts as agreement, mirroring the matcher's empty convention.
func compareNumeric(check cargoField, result *models.RuleResult) bool {
	switch {
	case !check.manifest.Present() && !check.prefile.Present():
		return true
	case !check.manifest.Present():
		result.Details = append(result.Details,
			fmt.Sprintf("%s is missing from the manifest.", check.label))
		return false
	case !check.prefile.Present():
		result.Details = append(result.Details,
			fmt.Sprintf("%s is missing from the prefile.", check.label))
		return false
	}

	left, leftOK := normalizer.NormalizeNumber(check.manifest.Value)
	right, rightOK := normalizer.NormalizeNumber(check.prefile.Value)
	if !leftOK || !rightOK {
		result.Details = append(result.Details,
			fmt.Sprintf("%s could not be read as a number (manifest %q, prefile %q).",
				check.label, check.manifest.Value, check.prefile.Value))
		return false
	}
	if left != right {
		result.Details = append(result.Details,
			fmt.Sprintf("%s differs: manifest %q vs prefile %q. Regulatory quantities must match exactly.",
				check.label, check.manifest.Value, check.prefile.Value))
		return false
	}
	return true
}

// compareText applies lenient fuzzy matching. A near-miss on the minor field
// is tallied separately so the caller can downgrade to a warning.
func compareText(check cargoField, m *matcher.Matcher, descriptionFloor float64, result *models.RuleResult, minorFailures *int) bool {
	switch {
	case !check.manifest.Present() && check.prefile.Present():
		result.Details = append(result.Details,
			fmt.Sprintf("%s is missing from the manifest.", check.label))
		return false
	case check.manifest.Present() && !check.prefile.Present():
		result.Details = append(result.Details,
			fmt.Sprintf("%s is missing from the prefile.", check.label))
		return false
	}

	res := m.MatchLenient(check.manifest.Value, check.prefile.Value, normalizer.KindFreeText)
	if res.IsMatch {
		return true
	}

	if check.minor && res.Score >= descriptionFloor {
		*minorFailures++
		result.Details = append(result.Details,
			fmt.Sprintf("%s differs but remains close: manifest %q vs prefile %q (similarity %.2f).",
				check.label, check.manifest.Value, check.prefile.Value, res.Score))
		return false
	}

	result.Details = append(result.Details,
		fmt.Sprintf("%s differs: manifest %q vs prefile %q (similarity %.2f, cutoff %.2f).",
			check.label, check.manifest.Value, check.prefile.Value, res.Score, m.Lenient()))
	return false
}

// EvaluateCustomsOffice compares the customs office named on the DODA with
// the manifest's, lenient threshold, strictly binary.
func EvaluateCustomsOffice(doda models.DodaData, manifest models.ManifestData, m *matcher.Matcher) models.RuleResult {
	result := newResult("R4", "Customs office match",
		"The DODA and the manifest must name the same customs office.")

	row := models.ComparisonDetail{
		Label:       "Customs office",
		Source1Name: sourceDoda,
		Value1:      doda.CustomsOffice.Value,
		Source2Name: sourceManifest,
		Value2:      manifest.CustomsOffice.Value,
	}

	switch {
	case !doda.CustomsOffice.Present() && manifest.CustomsOffice.Present():
		result.Status = models.RuleStatusFailed
		result.Summary = "Customs office is missing from the DODA."
		result.Details = append(result.Details, "The customs office could not be read from the DODA.")
	case doda.CustomsOffice.Present() && !manifest.CustomsOffice.Present():
		result.Status = models.RuleStatusFailed
		result.Summary = "Customs office is missing from the manifest."
		result.Details = append(result.Details, "The customs office could not be read from the manifest.")
	default:
		res := m.MatchLenient(doda.CustomsOffice.Value, manifest.CustomsOffice.Value, normalizer.KindFreeText)
		row.Matched = res.IsMatch
		if res.IsMatch {
			result.Status = models.RuleStatusPassed
			result.Summary = "DODA and manifest name the same customs office."
		} else {
			result.Status = models.RuleStatusFailed
			result.Summary = "DODA and manifest name different customs offices."
			result.Details = append(result.Details,
				fmt.Sprintf("Customs office differs: DODA %q vs manifest %q (similarity %.2f, cutoff %.2f).",
					doda.CustomsOffice.Value, manifest.CustomsOffice.Value, res.Score, m.Lenient()))
			result.Recommendation = "Confirm which customs office the operation is routed through."
		}
	}

	result.Comparisons = append(result.Comparisons, row)
	return result
}

// EvaluateOperatorName compares the manifest's operator against the
// driver-entered name. Unlike the matcher's generic convention, both sides
// missing fails: operator identity must always be establishable.
func EvaluateOperatorName(manifest models.ManifestData, driverName string, m *matcher.Matcher) models.RuleResult {
	result := newResult("R5", "Operator identity",
		"The operator named on the manifest must match the driver-entered name.")

	operator := manifest.OperatorName
	enteredPresent := len(normalizer.Normalize(driverName, normalizer.KindFreeText)) > 0

	row := models.ComparisonDetail{
		Label:       "Operator name",
		Source1Name: sourceManifest,
		Value1:      operator.Value,
		Source2Name: sourceDriverForm,
		Value2:      driverName,
	}

	switch {
	case !operator.Present() && !enteredPresent:
		result.Status = models.RuleStatusFailed
		result.Summary = "No operator name available from any source."
		result.Details = append(result.Details,
			"Neither the manifest nor the driver form provides an operator name.")
		result.Recommendation = "Capture the driver's name in the form and rescan the manifest."
	case !operator.Present():
		result.Status = models.RuleStatusFailed
		result.Summary = "Operator name is missing from the manifest."
		result.Details = append(result.Details, "The operator name could not be read from the manifest.")
	case !enteredPresent:
		result.Status = models.RuleStatusFailed
		result.Summary = "Driver name was not entered in the form."
		result.Details = append(result.Details, "The driver form has no operator name to compare against.")
	default:
		res := m.MatchLenient(operator.Value, driverName, normalizer.KindFreeText)
		row.Matched = res.IsMatch
		if res.IsMatch {
			result.Status = models.RuleStatusPassed
			result.Summary = "Operator name matches the driver form."
		} else {
			result.Status = models.RuleStatusFailed
			result.Summary = "Operator name does not match the driver form."
			result.Details = append(result.Details,
				fmt.Sprintf("Operator differs: manifest %q vs driver form %q (similarity %.2f, cutoff %.2f).",
					operator.Value, driverName, res.Score, m.Lenient()))
			result.Recommendation = "Confirm the driver's identity against the manifest."
		}
	}

	result.Comparisons = append(result.Comparisons, row)
	return result
}
