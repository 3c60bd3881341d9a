package fieldmap

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DataTypes lists the data types accepted by Rule.DataType.
//
//   - AN, string: any printable text
//   - ID: a code value, no spaces
//   - N, N0..N9, numeric: digits with an optional leading minus
//   - R, decimal: a decimal number
//   - DT: CCYYMMDD or YYMMDD digits
//   - TM: HHMM, HHMMSS or HHMMSSdd digits
//   - alphanumeric, alpha: letters and digits / letters only
var DataTypes = []string{"AN", "ID", "N", "R", "DT", "TM", "string", "numeric", "decimal", "alphanumeric", "alpha"}

// KnownDataType reports whether dataType is one of DataTypes (N0..N9
// included).
func KnownDataType(dataType string) bool {
	if dataType == "" {
		return true
	}
	if len(dataType) == 2 && dataType[0] == 'N' && dataType[1] >= '0' && dataType[1] <= '9' {
		return true
	}
	for _, t := range DataTypes {
		if t == dataType {
			return true
		}
	}
	return false
}

// CheckConstraints checks a rendered value against the rule's MinLength,
// MaxLength and DataType. Empty values pass: absence is handled by
// Required.
func CheckConstraints(value string, r Rule) error {
	if value == "" {
		return nil
	}
	n := utf8.RuneCountInString(value)
	if r.MaxLength > 0 && n > r.MaxLength {
		return fmt.Errorf("value %q exceeds maximum length of %d characters (actual: %d)", value, r.MaxLength, n)
	}
	if r.MinLength > 0 && n < r.MinLength {
		return fmt.Errorf("value %q is shorter than minimum length of %d characters (actual: %d)", value, r.MinLength, n)
	}
	if msg := checkDataType(value, r.DataType); msg != "" {
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// checkDataType returns a message when value does not match dataType,
// or an empty string when it does.
func checkDataType(value, dataType string) string {
	switch {
	case dataType == "" || dataType == "AN" || dataType == "string":
		for _, r := range value {
			if !unicode.IsPrint(r) {
				return fmt.Sprintf("value %q contains non-printable characters", value)
			}
		}
		return ""

	case dataType == "ID":
		if strings.ContainsAny(value, " \t") {
			return fmt.Sprintf("value %q is not a valid code", value)
		}
		return ""

	case dataType == "numeric" || strings.HasPrefix(dataType, "N"):
		digits := strings.TrimPrefix(value, "-")
		if digits == "" || strings.TrimFunc(digits, isASCIIDigit) != "" {
			return fmt.Sprintf("value %q is not a valid integer", value)
		}
		return ""

	case dataType == "R" || dataType == "decimal":
		if _, err := strconv.ParseFloat(value, 64); err != nil || strings.ContainsAny(value, "eE") {
			return fmt.Sprintf("value %q is not a valid decimal number", value)
		}
		return ""

	case dataType == "DT":
		if (len(value) != 8 && len(value) != 6) || strings.TrimFunc(value, isASCIIDigit) != "" {
			return fmt.Sprintf("value %q is not a CCYYMMDD or YYMMDD date", value)
		}
		return ""

	case dataType == "TM":
		if len(value) < 4 || len(value) > 8 || len(value)%2 != 0 || strings.TrimFunc(value, isASCIIDigit) != "" {
			return fmt.Sprintf("value %q is not an HHMM[SS[dd]] time", value)
		}
		return ""

	case dataType == "alphanumeric":
		for _, r := range value {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
				return fmt.Sprintf("value %q contains non-alphanumeric characters", value)
			}
		}
		return ""

	case dataType == "alpha":
		for _, r := range value {
			if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
				return fmt.Sprintf("value %q contains non-alphabetic characters", value)
			}
		}
		return ""
	}
	return fmt.Sprintf("unknown data type %q", dataType)
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
