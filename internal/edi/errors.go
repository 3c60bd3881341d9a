// =============================================================================
// Excel to EDI Generator - Error Taxonomy
// =============================================================================
//
// Every failure of a generation attempt is one of these types. Each carries
// enough context (row index, field name, segment, partner) to diagnose the
// problem without inspecting engine state. None of them is retried inside
// the engine.
//
//   ProfileNotFoundError       : no profile for (partner, document type)
//   MissingFieldError          : a required mapped column is absent or blank
//   DelimiterCollisionError    : a data value contains a delimiter character
//   ControlNumberOverflowError : the next control number does not fit its field
//   SerializationError         : template/format inconsistency at render time
//
// =============================================================================

package edi

import (
	"fmt"
	"strings"
)

// ProfileNotFoundError is returned when no encoding profile matches the
// requested partner and document type.
type ProfileNotFoundError struct {
	PartnerID    string
	DocumentType string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("no encoding profile for partner %q, document type %q", e.PartnerID, e.DocumentType)
}

// MissingFieldError is returned when a row lacks a field that a field
// rule marks as required. Row is the 0-based dataset index, or NoRow when
// the transaction has no rows to read from. Messages number rows from 1,
// the way a spreadsheet does.
type MissingFieldError struct {
	Row      int
	Field    string
	Segment  string
	Position int
}

func (e *MissingFieldError) Error() string {
	loc := describeLocation(e.Segment, e.Position)
	if e.Row == NoRow {
		return fmt.Sprintf("required field %q has no row to read from%s", e.Field, loc)
	}
	return fmt.Sprintf("row %d: missing required field %q%s", e.Row+1, e.Field, loc)
}

// DelimiterCollisionError is returned under the "reject" policy when a data
// value contains one of the profile's delimiter characters.
type DelimiterCollisionError struct {
	Row       int
	Field     string
	Segment   string
	Position  int
	Value     string
	Delimiter string
}

func (e *DelimiterCollisionError) Error() string {
	var b strings.Builder
	if e.Row != NoRow {
		fmt.Fprintf(&b, "row %d: ", e.Row+1)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "field %q ", e.Field)
	}
	fmt.Fprintf(&b, "value %q contains delimiter %q%s", e.Value, e.Delimiter, describeLocation(e.Segment, e.Position))
	return b.String()
}

// ControlNumberOverflowError is returned when the next control number for
// an envelope level would not fit the field width defined by the profile.
type ControlNumberOverflowError struct {
	Level string
	Width int
	Last  uint64
}

func (e *ControlNumberOverflowError) Error() string {
	return fmt.Sprintf("%s control number overflow: %d is the last value that fits %d digits", e.Level, e.Last, e.Width)
}

// SerializationError is the catch-all for template and format
// inconsistencies detected while rendering.
type SerializationError struct {
	Segment  string
	Position int
	Row      int
	Field    string
	Reason   string
	Err      error
}

func (e *SerializationError) Error() string {
	var b strings.Builder
	b.WriteString("serialization error")
	if e.Segment != "" {
		b.WriteString(describeLocation(e.Segment, e.Position))
	}
	if e.Row != NoRow {
		fmt.Fprintf(&b, " row %d", e.Row+1)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// describeLocation renders " in PO103" style locations.
func describeLocation(segment string, position int) string {
	if segment == "" {
		return ""
	}
	if position <= 0 {
		return fmt.Sprintf(" in %s", segment)
	}
	return fmt.Sprintf(" in %s%02d", segment, position)
}
