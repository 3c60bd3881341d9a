package fieldmap

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/tabular"
)

// Evaluate produces the element for rule r at the 1-based position within
// the segment s.Segment.
//
// RETURNS:
//   - The element, with its origin set for error reporting.
//   - *edi.MissingFieldError when a required field is absent or blank.
//   - *edi.SerializationError for any template inconsistency (unknown
//     context key, count not available, bad format, ...).
func Evaluate(r Rule, s *Scope, position int) (edi.Element, error) {
	if len(r.Components) > 0 {
		if src, n := r.Source(); src != SourceComposite {
			return edi.Element{}, s.serializationError(position, r.Field, fmt.Sprintf("composite rule has %d sources", n), nil)
		}
		values := make([]string, len(r.Components))
		origin := edi.Unsourced()
		for i, c := range r.Components {
			v, o, err := resolve(c, s, position)
			if err != nil {
				return edi.Element{}, err
			}
			values[i] = v
			if origin.Field == "" && o.Field != "" {
				origin = o
			}
		}
		return edi.NewComposite(origin, values...), nil
	}

	v, origin, err := resolve(r, s, position)
	if err != nil {
		return edi.Element{}, err
	}
	return edi.NewElement(v, origin), nil
}

// resolve renders a non-composite rule to its final string.
func resolve(r Rule, s *Scope, position int) (string, edi.Origin, error) {
	origin := edi.Unsourced()
	var value tabular.Value

	src, n := r.Source()
	switch src {
	case SourceNone:
		if n > 1 {
			return "", origin, s.serializationError(position, r.Field, fmt.Sprintf("rule has %d sources, expected one", n), nil)
		}
		return finish("", r, s, position, origin)

	case SourceLiteral:
		if r.Format.Type == "" {
			return finish(*r.Value, r, s, position, origin)
		}
		value = tabular.StringValue(*r.Value)

	case SourceField:
		origin = edi.Origin{Row: s.RowIndex, Field: r.Field}
		if !s.HasRow {
			origin.Row = edi.NoRow
		}
		var ok bool
		if s.HasRow {
			value, ok = s.Row.Get(r.Field)
		}
		if !ok || value.IsEmpty() {
			switch {
			case r.Fallback != nil:
				v, _, err := resolve(*r.Fallback, s, position)
				if err != nil {
					return "", origin, err
				}
				return finish(v, Rule{MinLength: r.MinLength, MaxLength: r.MaxLength, DataType: r.DataType}, s, position, origin)
			case r.Default != "":
				value = tabular.StringValue(r.Default)
			case r.Required:
				return "", origin, &edi.MissingFieldError{
					Row:      origin.Row,
					Field:    r.Field,
					Segment:  s.Segment,
					Position: position,
				}
			default:
				value = tabular.Value{}
			}
		}

	case SourceContext:
		v, ok := s.lookupContext(r.Context)
		if !ok {
			return "", origin, s.serializationError(position, "", fmt.Sprintf("context value %q is not available", r.Context), nil)
		}
		value = v
		if value.IsEmpty() && r.Default != "" {
			value = tabular.StringValue(r.Default)
		}

	case SourceCount:
		if s.Counts == nil {
			return "", origin, s.serializationError(position, "", fmt.Sprintf("count %q is not available in this segment", r.Count), nil)
		}
		c, ok := s.Counts[strings.ToLower(r.Count)]
		if !ok {
			return "", origin, s.serializationError(position, "", fmt.Sprintf("count %q is not available in this segment", r.Count), nil)
		}
		value = tabular.NumberValue(float64(c))

	case SourceControl:
		c, ok := s.Controls[strings.ToLower(r.ControlNumber)]
		if !ok {
			return "", origin, s.serializationError(position, "", fmt.Sprintf("control number %q is not available in this segment", r.ControlNumber), nil)
		}
		value = tabular.NumberValue(float64(c))

	case SourceDelimiter:
		d, ok := s.Delimiters.ByName(r.Delimiter)
		if !ok || d == "" {
			return "", origin, s.serializationError(position, "", fmt.Sprintf("delimiter %q is not defined", r.Delimiter), nil)
		}
		origin.Syntax = true
		return d, origin, nil

	case SourceComposite:
		return "", origin, s.serializationError(position, "", "nested composite elements are not supported", nil)
	}

	str := ""
	if !value.IsEmpty() {
		var err error
		str, err = FormatValue(value, r.Format)
		if err != nil {
			return "", origin, s.serializationError(position, origin.Field, "format", err)
		}
	}
	return finish(str, r, s, position, origin)
}

// finish applies transforms, width and the render-time length/type
// constraints to a rendered value.
func finish(str string, r Rule, s *Scope, position int, origin edi.Origin) (string, edi.Origin, error) {
	out, err := ApplyTransforms(str, r.Transforms)
	if err != nil {
		return "", origin, s.serializationErrorAt(position, origin, "transform", err)
	}
	out, err = ApplyWidth(out, r.Format)
	if err != nil {
		return "", origin, s.serializationErrorAt(position, origin, "width", err)
	}
	if err := CheckConstraints(out, r); err != nil {
		return "", origin, s.serializationErrorAt(position, origin, "constraint", err)
	}
	return out, origin, nil
}

func (s *Scope) serializationError(position int, field, reason string, err error) error {
	row := edi.NoRow
	if field != "" && s.HasRow {
		row = s.RowIndex
	}
	return &edi.SerializationError{
		Segment:  s.Segment,
		Position: position,
		Row:      row,
		Field:    field,
		Reason:   reason,
		Err:      err,
	}
}

func (s *Scope) serializationErrorAt(position int, origin edi.Origin, reason string, err error) error {
	return &edi.SerializationError{
		Segment:  s.Segment,
		Position: position,
		Row:      origin.Row,
		Field:    origin.Field,
		Reason:   reason,
		Err:      err,
	}
}
