// Package coerce turns loosely formatted WMS text fields into typed values.
// Every function is total: unparseable input yields a null value, never an
// error.
package coerce

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Text trims surrounding whitespace.
func Text(s string) string {
	return strings.TrimSpace(s)
}

// Blank reports whether s is empty after trimming.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// AnyBlank reports whether any of the values is blank.
func AnyBlank(values ...string) bool {
	for _, v := range values {
		if Blank(v) {
			return true
		}
	}
	return false
}

// Decimal parses decimal text written with either "." or "," as the decimal
// separator, with optional thousands grouping and an optional leading or
// trailing sign ("1.234,56", "1,234.56", "1234.56", "12,5-").
func Decimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}

	neg := false
	switch {
	case strings.HasSuffix(s, "-"):
		neg = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "-"))
	case strings.HasPrefix(s, "-"):
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	case strings.HasPrefix(s, "+"):
		s = strings.TrimSpace(strings.TrimPrefix(s, "+"))
	}

	s = normalizeSeparators(s)
	if s == "" || s == "." || strings.ContainsAny(s, "+-") {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	if neg {
		d = d.Neg()
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// NonZeroDecimal behaves like Decimal but treats zero as absent.
func NonZeroDecimal(s string) decimal.NullDecimal {
	d := Decimal(s)
	if d.Valid && d.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	return d
}

// Int parses a whole number, accepting decimal text with a zero fraction
// ("3", "3,0", "3.00"). Fractions and garbage
// yield nil.
func Int(s string) *int {
	d := Decimal(s)
	if !d.Valid || !d.Decimal.Equal(d.Decimal.Truncate(0)) {
		return nil
	}
	v := int(d.Decimal.IntPart())
	return &v
}

// CompactDate parses a yyyymmdd date from the first eight characters of s,
// which may be a longer numeric string such as a yyyymmddhhmmss timestamp.
func CompactDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return nil
	}
	prefix := s[:8]
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return nil
		}
	}
	t, err := time.Parse("20060102", prefix)
	if err != nil {
		return nil
	}
	return &t
}

// normalizeSeparators rewrites s so that "." is the only decimal separator
// and grouping separators are removed.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}
