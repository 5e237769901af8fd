package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Coercion helpers shared by the normalizer and the lookup loaders. Source
// extracts are noisy, so parsing here is permissive: callers decide whether
// a failure defaults the value or drops the row.

// ParseDecimalFromString parses a currency value from extract text.
// Currency symbols, thousand separators and SAP-style trailing minus signs
// ("341,199.00-") are tolerated.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	negative := strings.HasSuffix(s, "-")
	if negative {
		s = strings.TrimSuffix(s, "-")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	if negative {
		d = d.Neg()
	}
	return d, nil
}

// dayFirstFormats are the accepted extract date layouts, most specific first.
// The extracts come from day-first calendars, so 02/01/2006 is 2 January.
var dayFirstFormats = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02 Jan 2006",
}

// ParseDayFirstDate parses a date from extract text using day-first layouts.
// An unparsable date is reported as an error; callers convert that to the
// zero-time sentinel rather than failing the row.
func ParseDayFirstDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, format := range dayFirstFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// FormatDate renders a date for keys and reports; the zero sentinel renders empty
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// NormalizeMatchField upper-cases and collapses whitespace for merge-key
// field comparison
func NormalizeMatchField(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// NormalizeName reduces a person or vendor name to its alphanumeric runes,
// upper-cased, for lookup matching
func NormalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEmployeeID canonicalizes an employee identifier for lookup matching
func NormalizeEmployeeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeAccount canonicalizes an account code: numeric-looking codes
// (including decimal exports like "620100.0") become integer strings,
// everything else is trimmed as-is.
func NormalizeAccount(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d.Round(0).String()
	}
	return s
}

// CompareWithTolerance reports whether two amounts differ by no more than tolerance
func CompareWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
