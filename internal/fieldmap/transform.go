// =============================================================================
// Excel to EDI Generator - Transformation Actions
// =============================================================================
//
// Transformation actions are string rewrites applied to an element value
// after typed formatting and before width padding. They let a partner
// profile clean up spreadsheet values without new code.
//
// TRANSFORMATION TYPES:
//   - String manipulations (prepend, append, trim, case conversion)
//   - Numeric clean-up (padding, leading zeros)
//   - Lookup table replacements
//   - Regular expression replacements
//   - Character set folding (ascii_fold) for X12/EDIFACT character sets
//
// Actions are applied in order. An unknown action is an error, never a
// silent no-op.
//
// =============================================================================

package fieldmap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Pre-compiled expressions used by the extraction actions.
var (
	digitsRe       = regexp.MustCompile(`\d+`)
	lettersRe      = regexp.MustCompile(`[a-zA-Z]+`)
	specialCharsRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// ApplyTransforms applies each action in sequence.
func ApplyTransforms(value string, actions []Transform) (string, error) {
	result := value
	for _, action := range actions {
		var err error
		result, err = ApplyTransformation(result, action)
		if err != nil {
			return "", fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
		}
	}
	return result, nil
}

// ApplyTransformation applies a single transformation action.
//
// PARAMETERS:
//   - value: The current value.
//   - action: The transformation action to apply.
//
// RETURNS:
//   - The transformed value.
//   - An error for unknown actions or invalid parameters.
func ApplyTransformation(value string, action Transform) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "prepend_string":
		// EXAMPLE: "123456" with value "PO" becomes "PO123456"
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "trim":
		return strings.TrimSpace(value), nil

	case "trim_left":
		if action.Value != "" {
			return strings.TrimLeft(value, action.Value), nil
		}
		return strings.TrimLeft(value, " \t\n\r"), nil

	case "trim_right":
		if action.Value != "" {
			return strings.TrimRight(value, action.Value), nil
		}
		return strings.TrimRight(value, " \t\n\r"), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return value, nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	case "substring":
		// VALUE FORMAT: "start,end" (0-indexed, end is exclusive)
		// EXAMPLE: "PO" from "POS" with value "0,2"
		parts := strings.Split(action.Value, ",")
		if len(parts) != 2 {
			return "", fmt.Errorf("substring expects \"start,end\", got %q", action.Value)
		}
		start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return "", fmt.Errorf("substring expects integers, got %q", action.Value)
		}
		runes := []rune(value)
		if start < 0 {
			start = 0
		}
		if end > len(runes) {
			end = len(runes)
		}
		if start >= end {
			return "", nil
		}
		return string(runes[start:end]), nil

	// =========================================================================
	// NUMERIC CLEAN-UP
	// =========================================================================

	case "pad_zeros_to_length":
		// EXAMPLE: "123" with value "6" becomes "000123"
		n, err := strconv.Atoi(action.Value)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("pad_zeros_to_length expects a positive length, got %q", action.Value)
		}
		return PadLeft(value, n, '0'), nil

	case "pad_spaces_to_length":
		n, err := strconv.Atoi(action.Value)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("pad_spaces_to_length expects a positive length, got %q", action.Value)
		}
		return PadRight(value, n, ' '), nil

	case "ensure_length":
		// Truncate from the right, or pad with leading zeros.
		n, err := strconv.Atoi(action.Value)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("ensure_length expects a positive length, got %q", action.Value)
		}
		runes := []rune(value)
		if len(runes) > n {
			return string(runes[:n]), nil
		}
		return PadLeft(value, n, '0'), nil

	case "remove_leading_zeros":
		result := strings.TrimLeft(value, "0")
		if result == "" {
			return "0", nil
		}
		return result, nil

	// =========================================================================
	// LOOKUP TABLE REPLACEMENTS
	// =========================================================================

	case "lookup":
		// Unknown values pass through unchanged.
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	case "lookup_with_default":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return action.Value, nil

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	// =========================================================================
	// CHARACTER CLEAN-UP
	// =========================================================================

	case "extract_digits":
		return strings.Join(digitsRe.FindAllString(value, -1), ""), nil

	case "extract_letters":
		return strings.Join(lettersRe.FindAllString(value, -1), ""), nil

	case "remove_special_chars":
		return specialCharsRe.ReplaceAllString(value, ""), nil

	case "normalize_whitespace":
		return strings.TrimSpace(whitespaceRe.ReplaceAllString(value, " ")), nil

	case "ascii_fold":
		// "Müller Straße" becomes "Muller Strae": diacritics are stripped,
		// anything still outside ASCII is dropped.
		return foldASCII(value), nil
	}

	return "", fmt.Errorf("unknown transformation type: %s", action.Type)
}

// foldASCII decomposes value (NFD), drops combining marks and then drops
// any remaining non-ASCII rune.
func foldASCII(value string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(value) {
		if unicode.Is(unicode.Mn, r) || r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// PadLeft pads a string with a character on the left to reach the target length.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}

// PadRight pads a string with a character on the right to reach the target length.
func PadRight(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return s + strings.Repeat(string(padChar), length-n)
}
