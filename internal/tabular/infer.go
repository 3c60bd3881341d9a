package tabular

import (
	"strconv"
	"strings"
	"time"
)

// DefaultDateLayouts are tried, in order, when inferring dates from text
// cells. The mm-dd-yy layout is excelize's default rendering of date cells.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"2006/01/02",
	"01-02-06",
	"20060102",
}

// Infer converts a text cell into a typed Value. Numbers are recognised
// first, then dates using layouts, then anything else is a string.
// Values with leading zeros ("00123") stay strings so identifiers keep
// their padding. Inferred values render as their original text unless a
// typed format is applied.
func Infer(s string, layouts []string) Value {
	t := strings.TrimSpace(s)
	if t == "" {
		return Value{kind: Empty}
	}
	if looksNumeric(t) {
		if n, err := strconv.ParseFloat(t, 64); err == nil {
			return Value{kind: Number, num: n, raw: t}
		}
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	for _, layout := range layouts {
		if d, err := time.Parse(layout, t); err == nil {
			return Value{kind: Date, date: d, raw: t}
		}
	}
	return StringValue(s)
}

// looksNumeric rejects values that ParseFloat would accept but that are
// really identifiers or codes: leading zeros, exponents, hex, inf/nan, and
// 8-digit strings that read better as YYYYMMDD dates.
func looksNumeric(s string) bool {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	if strings.Count(digits, ".") > 1 {
		return false
	}
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return false
	}
	if len(digits) == 8 && !strings.Contains(digits, ".") {
		if _, err := time.Parse("20060102", digits); err == nil {
			return false
		}
	}
	return true
}
