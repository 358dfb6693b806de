package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cruce/internal/validation/matcher"
	"cruce/internal/validation/models"
)

// =============================================================================
// Rule Evaluator Test Suite
// =============================================================================
// Justification for unit tests: each rule is a pure function with boundary
// behavior (validity windows, similarity cutoffs, missing-data degradation)
// that must be pinned exactly and is awkward to reach through the HTTP layer.

type RulesSuite struct {
	suite.Suite
	matcher *matcher.Matcher
	ref     time.Time
}

func TestRulesSuite(t *testing.T) {
	suite.Run(t, new(RulesSuite))
}

func (s *RulesSuite) SetupTest() {
	m, err := matcher.New(matcher.DefaultThresholds())
	s.Require().NoError(err)
	s.matcher = m
	s.ref = time.Date(2024, time.July, 18, 15, 30, 0, 0, time.UTC)
}

func fieldFound(value string) models.Field {
	return models.Field{Value: value, Status: models.FieldStatusFound}
}

func fieldMissing() models.Field {
	return models.Field{Status: models.FieldStatusNotFound}
}

// requireFailureDetails asserts the invariant that a non-passing result
// explains itself.
func (s *RulesSuite) requireFailureDetails(result models.RuleResult) {
	if result.Status != models.RuleStatusPassed {
		s.Require().NotEmpty(result.Details)
	}
}

// =============================================================================
// R1 DODA Validity Window Tests
// =============================================================================

func (s *RulesSuite) TestEvaluateDodaWindow() {
	dodaIssuedDaysAgo := func(days int) models.DodaData {
		return models.DodaData{IssueDate: fieldFound(s.ref.AddDate(0, 0, -days).Format("2006-01-02"))}
	}

	s.Run("zero through three elapsed days pass", func() {
		for _, days := range []int{0, 1, 2, 3} {
			result := EvaluateDodaWindow(dodaIssuedDaysAgo(days), s.ref, 3)
			s.Equal(models.RuleStatusPassed, result.Status, "days=%d", days)
			s.Equal("R1", result.RuleID)
		}
	})

	s.Run("stale documents fail with the overage", func() {
		for _, days := range []int{4, 987} {
			result := EvaluateDodaWindow(dodaIssuedDaysAgo(days), s.ref, 3)
			s.Equal(models.RuleStatusFailed, result.Status, "days=%d", days)
			s.requireFailureDetails(result)
		}

		result := EvaluateDodaWindow(dodaIssuedDaysAgo(5), s.ref, 3)
		s.Contains(result.Details[0], "5 days ago")
		s.Contains(result.Details[0], "2 over")
	})

	s.Run("future-dated document fails with a dedicated message", func() {
		result := EvaluateDodaWindow(dodaIssuedDaysAgo(-1), s.ref, 3)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Summary, "future")
		s.requireFailureDetails(result)
	})

	s.Run("missing issue date fails", func() {
		result := EvaluateDodaWindow(models.DodaData{IssueDate: fieldMissing()}, s.ref, 3)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Summary, "missing")
		s.requireFailureDetails(result)
	})

	s.Run("unparseable issue date fails", func() {
		result := EvaluateDodaWindow(models.DodaData{IssueDate: fieldFound("pronto")}, s.ref, 3)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Details[0], `"pronto"`)
	})

	s.Run("spanish long form issue date is understood", func() {
		doda := models.DodaData{IssueDate: fieldFound("17 de julio de 2024")}
		result := EvaluateDodaWindow(doda, s.ref, 3)
		s.Equal(models.RuleStatusPassed, result.Status)
		s.Contains(result.Summary, "1 day(s) ago")
	})

	s.Run("time of day does not change the day count", func() {
		lateRef := time.Date(2024, time.July, 18, 23, 59, 59, 0, time.UTC)
		doda := models.DodaData{IssueDate: fieldFound("2024-07-18")}
		result := EvaluateDodaWindow(doda, lateRef, 3)
		s.Equal(models.RuleStatusPassed, result.Status)
		s.Contains(result.Summary, "0 day(s) ago")
	})
}

// =============================================================================
// R2 Plate Match Tests
// =============================================================================

func (s *RulesSuite) TestEvaluatePlateMatch() {
	s.Run("matching plates pass despite formatting noise", func() {
		plates := models.PlatePairData{Tractor: fieldFound("51-DE-AR"), Trailer: fieldFound("82 XK 21")}
		manifest := models.ManifestData{TractorPlate: fieldFound("51DEAR"), TrailerPlate: fieldFound("82xk21")}

		result := EvaluatePlateMatch(plates, manifest, s.matcher)
		s.Equal(models.RuleStatusPassed, result.Status)
		s.Require().Len(result.Comparisons, 2)
		s.True(result.Comparisons[0].Matched)
		s.True(result.Comparisons[1].Matched)
	})

	s.Run("one substituted character fails strict", func() {
		plates := models.PlatePairData{Tractor: fieldFound("51DEAR"), Trailer: fieldFound("82XK21")}
		manifest := models.ManifestData{TractorPlate: fieldFound("51DEAT"), TrailerPlate: fieldFound("82XK21")}

		result := EvaluatePlateMatch(plates, manifest, s.matcher)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Require().Len(result.Comparisons, 2)
		s.False(result.Comparisons[0].Matched)
		s.True(result.Comparisons[1].Matched)
		s.Contains(result.Details[0], "Tractor plate mismatch")
		s.Contains(result.Details[0], "0.83")
	})

	s.Run("comparison rows carry the raw extracted values", func() {
		plates := models.PlatePairData{Tractor: fieldFound("51-DE-AR"), Trailer: fieldFound("82XK21")}
		manifest := models.ManifestData{TractorPlate: fieldFound("51DEAR"), TrailerPlate: fieldFound("82XK21")}

		result := EvaluatePlateMatch(plates, manifest, s.matcher)
		s.Equal("51-DE-AR", result.Comparisons[0].Value1)
		s.Equal("51DEAR", result.Comparisons[0].Value2)
		s.Equal("Plate photograph", result.Comparisons[0].Source1Name)
		s.Equal("E-Manifest", result.Comparisons[0].Source2Name)
	})

	s.Run("missing photographed plate fails with a missing-data reason", func() {
		plates := models.PlatePairData{Tractor: fieldMissing(), Trailer: fieldFound("82XK21")}
		manifest := models.ManifestData{TractorPlate: fieldFound("51DEAR"), TrailerPlate: fieldFound("82XK21")}

		result := EvaluatePlateMatch(plates, manifest, s.matcher)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Require().Len(result.Comparisons, 2)
		s.Contains(result.Details[0], "could not be read from the photograph")
	})

	s.Run("missing manifest plate fails with a missing-data reason", func() {
		plates := models.PlatePairData{Tractor: fieldFound("51DEAR"), Trailer: fieldFound("82XK21")}
		manifest := models.ManifestData{TractorPlate: fieldFound("51DEAR"), TrailerPlate: fieldMissing()}

		result := EvaluatePlateMatch(plates, manifest, s.matcher)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Details[0], "missing from the manifest")
	})
}

// =============================================================================
// R3 Manifest vs Prefile Cross-Check Tests
// =============================================================================

func cargoManifest() models.ManifestData {
	return models.ManifestData{
		EntryNumber: fieldFound("24 01 3420 4002345"),
		BrokerCode:  fieldFound("3420"),
		Description: fieldFound("CAJAS DE AGUACATE FRESCO"),
		Quantity:    fieldFound("120"),
		Weight:      fieldFound("25.5 TONS"),
	}
}

func cargoPrefile() models.PrefileData {
	return models.PrefileData{
		EntryNumber: fieldFound("24 01 3420 4002345"),
		BrokerCode:  fieldFound("3420"),
		Description: fieldFound("CAJAS DE AGUACATE FRESCO"),
		Quantity:    fieldFound("120 "),
		Weight:      fieldFound("25.5"),
	}
}

func (s *RulesSuite) TestEvaluateCargoCrossCheck() {
	s.Run("agreeing documents pass with five matched rows", func() {
		result := EvaluateCargoCrossCheck(cargoManifest(), cargoPrefile(), s.matcher, 0.6)
		s.Equal(models.RuleStatusPassed, result.Status)
		s.Require().Len(result.Comparisons, 5)
		for _, row := range result.Comparisons {
			s.True(row.Matched, row.Label)
		}
	})

	s.Run("quantity difference fails regardless of closeness", func() {
		prefile := cargoPrefile()
		prefile.Quantity = fieldFound("125")

		result := EvaluateCargoCrossCheck(cargoManifest(), prefile, s.matcher, 0.6)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Details[0], "Quantity differs")
	})

	s.Run("weight unit suffixes are stripped before comparing", func() {
		prefile := cargoPrefile()
		prefile.Weight = fieldFound("25.5 kg")

		result := EvaluateCargoCrossCheck(cargoManifest(), prefile, s.matcher, 0.6)
		s.Equal(models.RuleStatusPassed, result.Status)
	})

	s.Run("unreadable weight fails", func() {
		prefile := cargoPrefile()
		prefile.Weight = fieldFound("N/A")

		result := EvaluateCargoCrossCheck(cargoManifest(), prefile, s.matcher, 0.6)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Details[0], "could not be read as a number")
	})

	s.Run("lone near-miss description downgrades to warning", func() {
		manifest := cargoManifest()
		prefile := cargoPrefile()
		// Three substitutions over ten runes scores 0.70: below lenient,
		// above the warning floor.
		manifest.Description = fieldFound("ABCDEFGHIJ")
		prefile.Description = fieldFound("ABCDEFGXYZ")

		result := EvaluateCargoCrossCheck(manifest, prefile, s.matcher, 0.6)
		s.Equal(models.RuleStatusWarning, result.Status)
		s.Contains(result.Summary, "description")
		s.Require().Len(result.Comparisons, 5)
		s.False(result.Comparisons[2].Matched)
	})

	s.Run("description below the warning floor fails", func() {
		manifest := cargoManifest()
		prefile := cargoPrefile()
		manifest.Description = fieldFound("CAJAS DE AGUACATE FRESCO")
		prefile.Description = fieldFound("REFACCIONES INDUSTRIALES")

		result := EvaluateCargoCrossCheck(manifest, prefile, s.matcher, 0.6)
		s.Equal(models.RuleStatusFailed, result.Status)
	})

	s.Run("near-miss description plus another failure stays failed", func() {
		manifest := cargoManifest()
		prefile := cargoPrefile()
		manifest.Description = fieldFound("ABCDEFGHIJ")
		prefile.Description = fieldFound("ABCDEFGXYZ")
		prefile.Quantity = fieldFound("125")

		result := EvaluateCargoCrossCheck(manifest, prefile, s.matcher, 0.6)
		s.Equal(models.RuleStatusFailed, result.Status)
	})

	s.Run("description absent on both sides is not an inconsistency", func() {
		manifest := cargoManifest()
		prefile := cargoPrefile()
		manifest.Description = fieldMissing()
		prefile.Description = fieldMissing()

		result := EvaluateCargoCrossCheck(manifest, prefile, s.matcher, 0.6)
		s.Equal(models.RuleStatusPassed, result.Status)
	})

	s.Run("description absent on one side fails with a missing reason", func() {
		prefile := cargoPrefile()
		prefile.Description = fieldMissing()

		result := EvaluateCargoCrossCheck(cargoManifest(), prefile, s.matcher, 0.6)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Details[0], "missing from the prefile")
	})

	s.Run("quantity absent on one side fails", func() {
		prefile := cargoPrefile()
		prefile.Quantity = fieldMissing()

		result := EvaluateCargoCrossCheck(cargoManifest(), prefile, s.matcher, 0.6)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Details[0], "Quantity is missing from the prefile")
	})

	s.Run("entry number wildly different fails", func() {
		prefile := cargoPrefile()
		prefile.EntryNumber = fieldFound("99 99 0000 0000000")

		result := EvaluateCargoCrossCheck(cargoManifest(), prefile, s.matcher, 0.6)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.False(result.Comparisons[0].Matched)
	})
}

// =============================================================================
// R4 Customs Office Tests
// =============================================================================

func (s *RulesSuite) TestEvaluateCustomsOffice() {
	s.Run("same office with formatting noise passes", func() {
		doda := models.DodaData{CustomsOffice: fieldFound("Nuevo Laredo")}
		manifest := models.ManifestData{CustomsOffice: fieldFound("NUEVO  laredo")}

		result := EvaluateCustomsOffice(doda, manifest, s.matcher)
		s.Equal(models.RuleStatusPassed, result.Status)
		s.Require().Len(result.Comparisons, 1)
		s.True(result.Comparisons[0].Matched)
	})

	s.Run("different offices fail", func() {
		doda := models.DodaData{CustomsOffice: fieldFound("NUEVO LAREDO")}
		manifest := models.ManifestData{CustomsOffice: fieldFound("COLOMBIA")}

		result := EvaluateCustomsOffice(doda, manifest, s.matcher)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.requireFailureDetails(result)
	})

	s.Run("office missing from the doda fails", func() {
		doda := models.DodaData{CustomsOffice: fieldMissing()}
		manifest := models.ManifestData{CustomsOffice: fieldFound("NUEVO LAREDO")}

		result := EvaluateCustomsOffice(doda, manifest, s.matcher)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Summary, "DODA")
	})

	s.Run("office absent on both sides is not an inconsistency", func() {
		result := EvaluateCustomsOffice(models.DodaData{CustomsOffice: fieldMissing()},
			models.ManifestData{CustomsOffice: fieldMissing()}, s.matcher)
		s.Equal(models.RuleStatusPassed, result.Status)
	})
}

// =============================================================================
// R5 Operator Name Tests
// =============================================================================

func (s *RulesSuite) TestEvaluateOperatorName() {
	s.Run("accented manifest name matches plain form entry", func() {
		manifest := models.ManifestData{OperatorName: fieldFound("Juan Pérez García")}

		result := EvaluateOperatorName(manifest, "JUAN PEREZ GARCIA", s.matcher)
		s.Equal(models.RuleStatusPassed, result.Status)
		s.Require().Len(result.Comparisons, 1)
		s.True(result.Comparisons[0].Matched)
	})

	s.Run("different names fail", func() {
		manifest := models.ManifestData{OperatorName: fieldFound("JUAN PEREZ GARCIA")}

		result := EvaluateOperatorName(manifest, "PEDRO MARTINEZ SOTO", s.matcher)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.requireFailureDetails(result)
	})

	s.Run("both sources missing fails rather than vacuously matching", func() {
		result := EvaluateOperatorName(models.ManifestData{OperatorName: fieldMissing()}, "  ", s.matcher)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Details[0], "Neither the manifest nor the driver form")
	})

	s.Run("manifest operator missing fails", func() {
		result := EvaluateOperatorName(models.ManifestData{OperatorName: fieldMissing()}, "JUAN PEREZ", s.matcher)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Summary, "manifest")
	})

	s.Run("empty form entry fails", func() {
		manifest := models.ManifestData{OperatorName: fieldFound("JUAN PEREZ")}

		result := EvaluateOperatorName(manifest, "", s.matcher)
		s.Equal(models.RuleStatusFailed, result.Status)
		s.Contains(result.Summary, "form")
	})
}
