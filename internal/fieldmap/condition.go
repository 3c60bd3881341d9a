package fieldmap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/excel-to-edi/internal/tabular"
)

// Condition decides whether a conditional segment is emitted for a row.
//
// SUPPORTED SYNTAX (column names may contain spaces):
//   - "Column"                       (same as is_not_empty)
//   - "Column is_empty" / "Column is_not_empty"
//   - "Column == 'value'" / "Column != 'value'"
//   - "Column > 100", "<", ">=", "<="
//   - "Column starts_with 'x'", "ends_with", "contains"
type Condition struct {
	Column   string
	Operator string
	Operand  string
	number   float64
}

var (
	unaryCondRe   = regexp.MustCompile(`^(.+?)\s+(is_empty|is_not_empty)$`)
	stringCondRe  = regexp.MustCompile(`^(.+?)\s+(starts_with|ends_with|contains)\s+'([^']*)'$`)
	compareCondRe = regexp.MustCompile(`^(.+?)\s*(==|!=|>=|<=|>|<)\s*(.+)$`)
)

// ParseCondition parses a condition expression.
func ParseCondition(expr string) (Condition, error) {
	expr = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(expr), "if "))
	if expr == "" {
		return Condition{}, fmt.Errorf("empty condition")
	}

	if m := unaryCondRe.FindStringSubmatch(expr); m != nil {
		return Condition{Column: strings.TrimSpace(m[1]), Operator: m[2]}, nil
	}
	if m := stringCondRe.FindStringSubmatch(expr); m != nil {
		return Condition{Column: strings.TrimSpace(m[1]), Operator: m[2], Operand: m[3]}, nil
	}
	if m := compareCondRe.FindStringSubmatch(expr); m != nil {
		operand := strings.TrimSpace(m[3])
		if strings.HasPrefix(operand, "'") && (len(operand) < 2 || !strings.HasSuffix(operand, "'")) {
			return Condition{}, fmt.Errorf("condition %q: unterminated quote", expr)
		}
		c := Condition{Column: strings.TrimSpace(m[1]), Operator: m[2], Operand: unquote(operand)}
		switch c.Operator {
		case ">", "<", ">=", "<=":
			n, err := strconv.ParseFloat(c.Operand, 64)
			if err != nil {
				return Condition{}, fmt.Errorf("condition %q: %q is not a number", expr, c.Operand)
			}
			c.number = n
		}
		return c, nil
	}
	if strings.ContainsAny(expr, "'=<>!") {
		return Condition{}, fmt.Errorf("cannot parse condition %q", expr)
	}
	return Condition{Column: expr, Operator: "is_not_empty"}, nil
}

// Eval evaluates the condition against a row. A missing column behaves
// like an empty value.
func (c Condition) Eval(row tabular.Row) bool {
	v, _ := row.Get(c.Column)
	actual := v.String()

	switch c.Operator {
	case "is_empty":
		return v.IsEmpty()
	case "is_not_empty":
		return !v.IsEmpty()
	case "==":
		return actual == c.Operand
	case "!=":
		return actual != c.Operand
	case "starts_with":
		return strings.HasPrefix(actual, c.Operand)
	case "ends_with":
		return strings.HasSuffix(actual, c.Operand)
	case "contains":
		return strings.Contains(actual, c.Operand)
	}

	n, ok := v.Number()
	if !ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(actual), 64)
		if err != nil {
			return false
		}
		n = f
	}
	switch c.Operator {
	case ">":
		return n > c.number
	case "<":
		return n < c.number
	case ">=":
		return n >= c.number
	case "<=":
		return n <= c.number
	}
	return false
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' && s[len(s)-1] == '\'' || s[0] == '"' && s[len(s)-1] == '"') {
		return s[1 : len(s)-1]
	}
	return s
}
