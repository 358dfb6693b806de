// Package matcher scores similarity between two extracted values after
// normalization. Scores live in [0, 1]; the match decision is a threshold
// chosen by the calling rule.
package matcher

import (
	"unicode/utf8"

	"github.com/agext/levenshtein"

	"cruce/internal/validation/normalizer"
	dErrors "cruce/pkg/domain-errors"
)

// Thresholds holds the two named cut-offs the rules use. Strict guards
// regulatory identifiers like plates; lenient tolerates OCR noise on free
// text.
type Thresholds struct {
	Strict  float64
	Lenient float64
}

// DefaultThresholds returns the production cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{Strict: 0.95, Lenient: 0.80}
}

// Validate rejects threshold pairs the rules cannot reason about.
func (t Thresholds) Validate() error {
	if t.Strict <= 0 || t.Strict > 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "strict threshold must be in (0, 1]")
	}
	if t.Lenient <= 0 || t.Lenient > 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "lenient threshold must be in (0, 1]")
	}
	if t.Strict < t.Lenient {
		return dErrors.New(dErrors.CodeInvalidInput, "strict threshold must not be below lenient threshold")
	}
	return nil
}

// MatchResult is one comparison outcome.
type MatchResult struct {
	Score   float64
	IsMatch bool
}

// Matcher compares values under configured thresholds. The zero value is not
// usable; construct with New.
type Matcher struct {
	thresholds Thresholds
}

// New builds a Matcher after validating the thresholds.
func New(thresholds Thresholds) (*Matcher, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{thresholds: thresholds}, nil
}

// Match normalizes both inputs for the given kind and scores their
// similarity as 1 minus the normalized edit distance. Conventions: both
// empty is a perfect match (absence on both sides is not an inconsistency),
// one empty is score zero, equal normalized strings short-circuit to 1.
func (m *Matcher) Match(a, b string, kind normalizer.TextKind, threshold float64) MatchResult {
	na := normalizer.Normalize(a, kind)
	nb := normalizer.Normalize(b, kind)

	if na == "" && nb == "" {
		return MatchResult{Score: 1, IsMatch: true}
	}
	if na == "" || nb == "" {
		return MatchResult{Score: 0, IsMatch: false}
	}
	if na == nb {
		return MatchResult{Score: 1, IsMatch: true}
	}

	distance := levenshtein.Distance(na, nb, levenshtein.NewParams())
	longest := utf8.RuneCountInString(na)
	if l := utf8.RuneCountInString(nb); l > longest {
		longest = l
	}
	if longest < 1 {
		longest = 1
	}

	score := 1 - float64(distance)/float64(longest)
	return MatchResult{Score: score, IsMatch: score >= threshold}
}

// MatchStrict compares under the strict threshold.
func (m *Matcher) MatchStrict(a, b string, kind normalizer.TextKind) MatchResult {
	return m.Match(a, b, kind, m.thresholds.Strict)
}

// MatchLenient compares under the lenient threshold.
func (m *Matcher) MatchLenient(a, b string, kind normalizer.TextKind) MatchResult {
	return m.Match(a, b, kind, m.thresholds.Lenient)
}

// Strict exposes the configured strict cut-off for report text.
func (m *Matcher) Strict() float64 { return m.thresholds.Strict }

// Lenient exposes the configured lenient cut-off for report text.
func (m *Matcher) Lenient() float64 { return m.thresholds.Lenient }
