// =============================================================================
// Excel to EDI Generator - Field Map Rules
// =============================================================================
//
// A field rule describes how ONE positional element of a segment template
// is produced. Each rule has exactly one source:
//
//   | Key            | Source                                              |
//   |----------------|-----------------------------------------------------|
//   | value          | a literal (a bare YAML scalar is shorthand for it)  |
//   | field          | a column of the current row                         |
//   | context        | generation context (timestamp, row_count, ...)      |
//   | count          | a derived count (trailers and summaries only)       |
//   | control_number | the envelope control number of a level              |
//   | delimiter      | a syntax character, e.g. ISA16                      |
//   | components     | a composite element, one rule per sub-element       |
//
// EXAMPLE (YAML):
//   elements:
//     - "00"
//     - field: PO Number
//       required: true
//       transforms: [{type: trim}, {type: uppercase}]
//     - context: timestamp
//       format: {type: date, layout: CCYYMMDD}
//
// =============================================================================

package fieldmap

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Source identifies where a rule takes its value from.
type Source string

const (
	SourceNone      Source = ""
	SourceLiteral   Source = "value"
	SourceField     Source = "field"
	SourceContext   Source = "context"
	SourceCount     Source = "count"
	SourceControl   Source = "control_number"
	SourceDelimiter Source = "delimiter"
	SourceComposite Source = "components"
)

// Rule is the mapping rule for one element.
type Rule struct {
	// Value is a literal. A pointer so that an explicit "" is a literal.
	Value *string `yaml:"value,omitempty"`

	// Field is the column to read from the current row.
	Field string `yaml:"field,omitempty"`

	// Context names a generation context value (see ContextKeys).
	Context string `yaml:"context,omitempty"`

	// Count names a derived count (see CountSegments and friends).
	Count string `yaml:"count,omitempty"`

	// ControlNumber names an envelope level: interchange, group, transaction.
	ControlNumber string `yaml:"control_number,omitempty"`

	// Delimiter names a syntax character: element, sub_element, repetition,
	// segment.
	Delimiter string `yaml:"delimiter,omitempty"`

	// Components makes the element a composite.
	Components []Rule `yaml:"components,omitempty"`

	// Required fails the build with a MissingFieldError when a field
	// source is absent or blank and no default/fallback applies.
	Required bool `yaml:"required,omitempty"`

	// Default is used when a field source is absent or blank.
	Default string `yaml:"default,omitempty"`

	// Fallback is evaluated when a field source is absent or blank.
	Fallback *Rule `yaml:"fallback,omitempty"`

	// Format controls typed rendering (dates, zero padded integers, ...).
	Format Format `yaml:"format,omitempty"`

	// Transforms are string actions applied after typed formatting and
	// before width padding.
	Transforms []Transform `yaml:"transforms,omitempty"`

	// MinLength, MaxLength and DataType are checked at render time.
	MinLength int    `yaml:"min_length,omitempty"`
	MaxLength int    `yaml:"max_length,omitempty"`
	DataType  string `yaml:"data_type,omitempty"`
}

// Literal is a convenience constructor for literal rules.
func Literal(s string) Rule {
	return Rule{Value: &s}
}

// Source returns the rule's single source. Rules with zero or several
// sources return SourceNone together with the number of sources found.
func (r Rule) Source() (Source, int) {
	var found []Source
	if r.Value != nil {
		found = append(found, SourceLiteral)
	}
	if r.Field != "" {
		found = append(found, SourceField)
	}
	if r.Context != "" {
		found = append(found, SourceContext)
	}
	if r.Count != "" {
		found = append(found, SourceCount)
	}
	if r.ControlNumber != "" {
		found = append(found, SourceControl)
	}
	if r.Delimiter != "" {
		found = append(found, SourceDelimiter)
	}
	if len(r.Components) > 0 {
		found = append(found, SourceComposite)
	}
	if len(found) != 1 {
		return SourceNone, len(found)
	}
	return found[0], 1
}

// Walk calls fn for the rule, its components and its fallback, depth first.
func (r Rule) Walk(fn func(Rule)) {
	fn(r)
	for _, c := range r.Components {
		c.Walk(fn)
	}
	if r.Fallback != nil {
		r.Fallback.Walk(fn)
	}
}

// UnmarshalYAML accepts either a mapping or a bare scalar literal.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if node.Tag == "!!null" {
			*r = Rule{}
			return nil
		}
		s := node.Value
		*r = Rule{Value: &s}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: field rule must be a scalar or a mapping", node.Line)
	}
	// plain avoids recursing into this method.
	type plain Rule
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = Rule(p)
	return nil
}

// =============================================================================
// FORMAT
// =============================================================================

// Format describes locale-independent typed rendering of a value.
type Format struct {
	// Type is one of: string (default), integer, decimal, date, time.
	Type string `yaml:"type,omitempty"`

	// Layout uses EDI tokens: CCYY/YYYY/YY/MM/DD for dates, HH/MM/SS for
	// times. Example: CCYYMMDD, YYMMDD, HHMM, CCYYMMDDHHMMSS.
	Layout string `yaml:"layout,omitempty"`

	// Width pads the rendered value to a fixed width. Numbers are padded
	// on the left with zeros, strings on the right with spaces, unless
	// Justify/Pad say otherwise.
	Width int `yaml:"width,omitempty"`

	// MinWidth pads shorter values like Width but lets longer values
	// through (ST02: at least four digits).
	MinWidth int `yaml:"min_width,omitempty"`

	// Precision is the number of decimal places for decimals.
	Precision int `yaml:"precision,omitempty"`

	// Justify is "left" or "right".
	Justify string `yaml:"justify,omitempty"`

	// Pad is the padding character.
	Pad string `yaml:"pad,omitempty"`

	// Truncate cuts values longer than Width instead of failing.
	Truncate bool `yaml:"truncate,omitempty"`
}

// =============================================================================
// TRANSFORM
// =============================================================================

// Transform is a single string transformation action applied to a value.
type Transform struct {
	// Type is the action name, e.g. "trim", "pad_zeros_to_length".
	Type string `yaml:"type"`

	// Value is the action parameter; its meaning depends on Type.
	Value string `yaml:"value,omitempty"`

	// Find is the substring or pattern for replace/regex_replace.
	Find string `yaml:"find,omitempty"`

	// LookupTable maps input values to output values.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// UnmarshalYAML accepts "trim" as shorthand for {type: trim}.
func (t *Transform) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*t = Transform{Type: node.Value}
		return nil
	}
	type plain Transform
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = Transform(p)
	return nil
}
