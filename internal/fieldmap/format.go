package fieldmap

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ginjaninja78/excel-to-edi/internal/tabular"
)

// maxExactNumber is the largest magnitude a float64 holds without losing
// integer digits. Larger values would render digits that were never in
// the input.
const maxExactNumber = 1 << 53

// layoutTokens maps EDI layout tokens to Go reference layout pieces,
// longest first so CCYY wins over YY.
var layoutTokens = []struct{ token, layout string }{
	{"CCYY", "2006"},
	{"YYYY", "2006"},
	{"YY", "06"},
	{"DD", "02"},
	{"HH", "15"},
	{"SS", "05"},
}

// GoLayout converts an EDI date or time layout (CCYYMMDD, YYMMDD, HHMM,
// CCYYMMDDHHMM, ...) into a Go time layout. MM is the month unless it
// follows HH or the layout is a time, in which case it is minutes.
func GoLayout(formatType, layout string) string {
	var b strings.Builder
	minutes := formatType == "time"
	for i := 0; i < len(layout); {
		if strings.HasPrefix(layout[i:], "MM") {
			if minutes {
				b.WriteString("04")
			} else {
				b.WriteString("01")
			}
			i += 2
			continue
		}
		matched := false
		for _, t := range layoutTokens {
			if strings.HasPrefix(layout[i:], t.token) {
				b.WriteString(t.layout)
				if t.token == "HH" {
					minutes = true
				}
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(layout[i])
			i++
		}
	}
	return b.String()
}

// FormatValue renders a typed value according to f, without width
// padding. The result never depends on the process locale.
func FormatValue(v tabular.Value, f Format) (string, error) {
	switch strings.ToLower(f.Type) {
	case "", "string":
		return v.String(), nil

	case "integer":
		n, err := asNumber(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(math.Round(n)), 10), nil

	case "decimal":
		n, err := asNumber(v)
		if err != nil {
			return "", err
		}
		if f.Precision < 0 {
			return "", fmt.Errorf("negative precision %d", f.Precision)
		}
		return strconv.FormatFloat(n, 'f', f.Precision, 64), nil

	case "date", "time":
		t, err := asTime(v)
		if err != nil {
			return "", err
		}
		layout := f.Layout
		if layout == "" {
			layout = "CCYYMMDD"
			if f.Type == "time" {
				layout = "HHMM"
			}
		}
		return t.Format(GoLayout(strings.ToLower(f.Type), layout)), nil
	}
	return "", fmt.Errorf("unknown format type %q", f.Type)
}

// ApplyWidth pads or checks a rendered value against f.Width, or pads it
// up to f.MinWidth. Numeric formats default to right justification with
// zeros, everything else to left justification with spaces.
func ApplyWidth(s string, f Format) (string, error) {
	width := f.Width
	n := utf8.RuneCountInString(s)
	switch {
	case f.Width > 0 && n > f.Width:
		if !f.Truncate {
			return "", fmt.Errorf("value %q is longer than width %d", s, f.Width)
		}
		return string([]rune(s)[:f.Width]), nil
	case f.Width <= 0:
		width = f.MinWidth
	}
	if width <= 0 || n >= width {
		return s, nil
	}

	numeric := f.Type == "integer" || f.Type == "decimal"
	justify := f.Justify
	if justify == "" {
		justify = "left"
		if numeric {
			justify = "right"
		}
	}
	pad := f.Pad
	if pad == "" {
		pad = " "
		if numeric {
			pad = "0"
		}
	}
	padding := strings.Repeat(pad, width-n)
	if justify == "right" {
		// Zero padding goes after the sign: -0042, not 00-42.
		if numeric && pad == "0" && strings.HasPrefix(s, "-") {
			return "-" + padding + s[1:], nil
		}
		return padding + s, nil
	}
	return s + padding, nil
}

// asNumber interprets a value as a number. Text is parsed with
// strconv, so "1,234.50" is rejected rather than guessed at. NaN,
// infinities and magnitudes beyond maxExactNumber are rejected too.
func asNumber(v tabular.Value) (float64, error) {
	n, ok := v.Number()
	s := strings.TrimSpace(v.String())
	if !ok {
		var err error
		n, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", s)
		}
	}
	switch {
	case math.IsNaN(n) || math.IsInf(n, 0):
		return 0, fmt.Errorf("value %q is not a finite number", s)
	case math.Abs(n) > maxExactNumber:
		return 0, fmt.Errorf("value %q is out of range", s)
	}
	return n, nil
}

// asTime interprets a value as a date/time.
func asTime(v tabular.Value) (time.Time, error) {
	if t, ok := v.Date(); ok {
		return t, nil
	}
	s := strings.TrimSpace(v.String())
	for _, layout := range tabular.DefaultDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("value %q is not a date", s)
}
