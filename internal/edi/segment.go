// =============================================================================
// Excel to EDI Generator - EDI Value Types
// =============================================================================
//
// This package holds the small value types shared by every stage of the
// generation pipeline:
//   - Segment    : a tag plus an ordered list of elements
//   - Element    : one data element, optionally split into sub-elements
//   - Origin     : where an element value came from (row/field), for errors
//   - Delimiters : the literal separator characters of a partner's syntax
//
// Segments are immutable once built. All accessors return copies.
//
// =============================================================================

package edi

import "strings"

// =============================================================================
// ORIGIN
// =============================================================================

// NoRow is the row index used for values that do not come from a data row
// (literals, envelope values, generation context).
const NoRow = -1

// Origin records where an element value came from.
type Origin struct {
	// Row is the 0-based dataset row index, or NoRow.
	Row int

	// Field is the source column name, if the value came from a column.
	Field string

	// Syntax marks elements that intentionally carry a delimiter character
	// (for example ISA16, the sub-element separator itself).
	Syntax bool
}

// Unsourced returns the origin of a value with no row or field.
func Unsourced() Origin {
	return Origin{Row: NoRow}
}

// =============================================================================
// ELEMENT
// =============================================================================

// Element is a single data element. A simple element has one component;
// a composite element has several, rendered with the sub-element separator.
type Element struct {
	components []string
	origin     Origin
}

// NewElement creates a simple element.
func NewElement(value string, origin Origin) Element {
	return Element{components: []string{value}, origin: origin}
}

// NewComposite creates a composite element from its sub-element values.
func NewComposite(origin Origin, components ...string) Element {
	c := make([]string, len(components))
	copy(c, components)
	if len(c) == 0 {
		c = []string{""}
	}
	return Element{components: c, origin: origin}
}

// Components returns a copy of the element's sub-element values.
func (e Element) Components() []string {
	c := make([]string, len(e.components))
	copy(c, e.components)
	return c
}

// Value returns the first component, which for simple elements is the
// whole value.
func (e Element) Value() string {
	if len(e.components) == 0 {
		return ""
	}
	return e.components[0]
}

// IsComposite reports whether the element has more than one component.
func (e Element) IsComposite() bool {
	return len(e.components) > 1
}

// IsEmpty reports whether every component is empty.
func (e Element) IsEmpty() bool {
	for _, c := range e.components {
		if c != "" {
			return false
		}
	}
	return true
}

// Origin returns the provenance of the element value.
func (e Element) Origin() Origin {
	return e.origin
}

// String joins the components with ":" for diagnostics.
func (e Element) String() string {
	return strings.Join(e.components, ":")
}

// =============================================================================
// SEGMENT
// =============================================================================

// Segment is a tagged, ordered group of data elements.
type Segment struct {
	tag      string
	elements []Element
}

// NewSegment creates a segment. The element slice is copied.
func NewSegment(tag string, elements ...Element) Segment {
	e := make([]Element, len(elements))
	copy(e, elements)
	return Segment{tag: tag, elements: e}
}

// Tag returns the segment identifier, e.g. "ISA", "PO1" or "UNH".
func (s Segment) Tag() string {
	return s.tag
}

// Elements returns a copy of the segment's elements.
func (s Segment) Elements() []Element {
	e := make([]Element, len(s.elements))
	copy(e, s.elements)
	return e
}

// Len returns the number of elements, not counting the tag.
func (s Segment) Len() int {
	return len(s.elements)
}

// Element returns the element at the 1-based X12-style position (PO101 is
// position 1). The second return value is false when out of range.
func (s Segment) Element(position int) (Element, bool) {
	if position < 1 || position > len(s.elements) {
		return Element{}, false
	}
	return s.elements[position-1], true
}

// Value is shorthand for the first component of the element at position.
func (s Segment) Value(position int) string {
	e, ok := s.Element(position)
	if !ok {
		return ""
	}
	return e.Value()
}

// Values returns the first component of every element, for diagnostics
// and tests.
func (s Segment) Values() []string {
	v := make([]string, len(s.elements))
	for i, e := range s.elements {
		v[i] = e.Value()
	}
	return v
}
