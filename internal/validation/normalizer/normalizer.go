// Package normalizer canonicalizes extracted text before comparison. All
// functions are pure and total: malformed input degrades to a sentinel or a
// cleaned-up original, never an error.
package normalizer

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// TextKind selects the normalization applied to a value.
type TextKind string

const (
	KindFreeText    TextKind = "free_text"
	KindPlateNumber TextKind = "plate_number"
	KindDate        TextKind = "date"
)

// InvalidDate marks a date value that matched none of the accepted formats.
// It is deliberately not a valid date string so downstream comparisons treat
// it as plain mismatching text.
const InvalidDate = "INVALID_DATE"

// isoDate is the canonical output format for normalized dates.
const isoDate = "2006-01-02"

// dateLayouts are the numeric formats extraction output arrives in, tried in
// order. Slash and dash forms are day-first per the documents' locale.
var dateLayouts = []string{
	isoDate,
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
}

var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// Normalize canonicalizes raw for the given kind. Empty input always maps to
// the empty string so the matcher's absence conventions apply cleanly. Dates
// come back in ISO form, or InvalidDate when unparseable.
func Normalize(raw string, kind TextKind) string {
	collapsed := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	if collapsed == "" {
		return ""
	}

	switch kind {
	case KindPlateNumber:
		var b strings.Builder
		for _, r := range collapsed {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		return b.String()
	case KindDate:
		if t, ok := ParseDate(raw); ok {
			return t.Format(isoDate)
		}
		return InvalidDate
	default:
		return collapsed
	}
}

// ParseDate parses a date in any accepted input format: ISO, the day-first
// numeric forms, and the Spanish long form ("15 de julio de 2024"). A time
// suffix after 'T' is ignored. The boolean is false when nothing matched.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if idx := strings.IndexByte(s, 'T'); idx > 0 {
		s = s[:idx]
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return parseSpanishDate(s)
}

// parseSpanishDate handles "D de MMMM de YYYY" and the "del YYYY" variant.
func parseSpanishDate(s string) (time.Time, bool) {
	tokens := strings.Fields(strings.ToLower(s))
	if len(tokens) != 5 || tokens[1] != "de" || (tokens[3] != "de" && tokens[3] != "del") {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(strings.TrimSuffix(tokens[0], "º"))
	if err != nil {
		return time.Time{}, false
	}
	month, ok := spanishMonths[tokens[2]]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(tokens[4])
	if err != nil || year < 1000 || year > 9999 {
		return time.Time{}, false
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		// time.Date rolls impossible days over into the next month.
		return time.Time{}, false
	}
	return t, true
}

// NormalizeNumber strips units, letters, and thousands separators from a
// numeric field and parses what remains. "25.5 TONS" parses to 25.5; the
// boolean is false when no number survives.
func NormalizeNumber(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
