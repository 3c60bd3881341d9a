// =============================================================================
// Excel to EDI Generator - Serializer
// =============================================================================
//
// The serializer writes enveloped segments using a profile's delimiters:
//
//   TAG <element> value <element> comp <sub_element> comp ... <segment> <suffix>
//
// DELIMITER COLLISIONS:
//   A data value containing a delimiter character is either rejected
//   (policy "reject", the default) or escaped with the release character
//   (policy "escape", EDIFACT "?+" style). Elements marked as syntax
//   (ISA16, the sub-element separator itself) are written verbatim.
//
// TRAILING EMPTY ELEMENTS:
//   Trailing empty elements, and trailing empty components of a composite,
//   are dropped unless the profile sets keep_trailing_empty.
//
// =============================================================================

package serializer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/profile"
)

// Options controls how segments are written.
type Options struct {
	Delimiters edi.Delimiters

	// Policy is profile.PolicyReject or profile.PolicyEscape.
	Policy string

	KeepTrailingEmpty bool

	// ServiceStringAdvice writes an EDIFACT UNA segment first.
	ServiceStringAdvice bool
}

// ProfileOptions returns the serialization options of p.
func ProfileOptions(p *profile.EncodingProfile) Options {
	return Options{
		Delimiters:          p.Delimiters,
		Policy:              p.Policy(),
		KeepTrailingEmpty:   p.KeepTrailingEmpty,
		ServiceStringAdvice: p.ServiceStringAdvice,
	}
}

// Serialize renders segments to bytes.
//
// RETURNS:
//   - The serialized document.
//   - *edi.DelimiterCollisionError under the reject policy, or
//     *edi.SerializationError when the options are unusable.
func Serialize(segments []edi.Segment, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, segments, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders segments to w. Nothing is written when a collision is
// detected: the whole document is rendered before the first write.
func Write(w io.Writer, segments []edi.Segment, opts Options) error {
	d := opts.Delimiters
	if err := d.Validate(); err != nil {
		return &edi.SerializationError{Row: edi.NoRow, Reason: "delimiters", Err: err}
	}
	escape := opts.Policy == profile.PolicyEscape
	if escape && d.Release == "" {
		return &edi.SerializationError{Row: edi.NoRow, Reason: "the escape policy needs a release character"}
	}

	var b strings.Builder
	if opts.ServiceStringAdvice {
		b.WriteString(ServiceStringAdvice(d))
		b.WriteString(d.SegmentSuffix)
	}

	for _, seg := range segments {
		elements := seg.Elements()
		if !opts.KeepTrailingEmpty {
			elements = trimTrailingElements(elements)
		}

		b.WriteString(seg.Tag())
		for i, el := range elements {
			b.WriteString(d.Element)
			if el.Origin().Syntax {
				b.WriteString(el.Value())
				continue
			}
			components := el.Components()
			if !opts.KeepTrailingEmpty {
				components = trimTrailingComponents(components)
			}
			for j, c := range components {
				if j > 0 {
					b.WriteString(d.SubElement)
				}
				if hit := d.Collision(c); hit != "" {
					if !escape {
						origin := el.Origin()
						return &edi.DelimiterCollisionError{
							Row:       origin.Row,
							Field:     origin.Field,
							Segment:   seg.Tag(),
							Position:  i + 1,
							Value:     c,
							Delimiter: hit,
						}
					}
					c = Escape(c, d)
				}
				b.WriteString(c)
			}
		}
		b.WriteString(d.Segment)
		b.WriteString(d.SegmentSuffix)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Escape prefixes every delimiter and release character in value with the
// release character.
func Escape(value string, d edi.Delimiters) string {
	var b strings.Builder
	for _, r := range value {
		s := string(r)
		for _, c := range d.Set() {
			if s == c {
				b.WriteString(d.Release)
				break
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ServiceStringAdvice returns the EDIFACT UNA segment for d: component
// separator, element separator, decimal mark, release character,
// repetition separator (space when unused) and segment terminator.
func ServiceStringAdvice(d edi.Delimiters) string {
	release := d.Release
	if release == "" {
		release = " "
	}
	repetition := d.Repetition
	if repetition == "" {
		repetition = " "
	}
	return fmt.Sprintf("UNA%s%s.%s%s%s", d.SubElement, d.Element, release, repetition, d.Segment)
}

func trimTrailingElements(elements []edi.Element) []edi.Element {
	n := len(elements)
	for n > 0 && elements[n-1].IsEmpty() && !elements[n-1].Origin().Syntax {
		n--
	}
	return elements[:n]
}

func trimTrailingComponents(components []string) []string {
	n := len(components)
	for n > 1 && components[n-1] == "" {
		n--
	}
	return components[:n]
}
