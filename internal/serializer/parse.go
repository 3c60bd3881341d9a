package serializer

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
)

// isaLength is the fixed length of an X12 ISA segment, terminator included.
const isaLength = 106

// DetectDelimiters reads the delimiters from the start of a document: the
// UNA service string advice of an EDIFACT interchange, or the fixed-width
// ISA segment of an X12 interchange.
func DetectDelimiters(data []byte) (edi.Delimiters, bool) {
	switch {
	case bytes.HasPrefix(data, []byte("UNA")) && utf8.RuneCount(data) >= 9:
		r := []rune(string(data[:min(len(data), 64)]))
		d := edi.Delimiters{
			SubElement: string(r[3]),
			Element:    string(r[4]),
			Segment:    string(r[8]),
		}
		if r[6] != ' ' {
			d.Release = string(r[6])
		}
		if r[7] != ' ' {
			d.Repetition = string(r[7])
		}
		return d, true

	case bytes.HasPrefix(data, []byte("ISA")) && len(data) >= isaLength:
		d := edi.Delimiters{
			Element:    string(data[3]),
			SubElement: string(data[104]),
			Segment:    string(data[105]),
		}
		if rep := string(data[82]); rep != "U" && rep != d.Element {
			d.Repetition = rep
		}
		return d, true
	}
	return edi.Delimiters{}, false
}

// Parse splits a serialized document back into segments. Release
// characters are honoured, line breaks between segments are skipped, a
// leading UNA segment is consumed, and ISA elements are never split into
// components.
func Parse(data []byte, d edi.Delimiters) ([]edi.Segment, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	text := string(data)
	if strings.HasPrefix(text, "UNA") {
		if utf8.RuneCountInString(text) < 9 {
			return nil, fmt.Errorf("truncated UNA segment")
		}
		text = string([]rune(text)[9:])
	}

	var (
		segments []edi.Segment
		fields   []string
		cur      strings.Builder
		escaped  bool
	)
	// Raw element text keeps release characters so components can still
	// be told apart from escaped separators.
	flushField := func() {
		fields = append(fields, cur.String())
		cur.Reset()
	}
	for _, r := range text {
		s := string(r)
		switch {
		case escaped:
			cur.WriteString(d.Release)
			cur.WriteRune(r)
			escaped = false
		case d.Release != "" && s == d.Release:
			escaped = true
		case s == d.Element:
			flushField()
		case s == d.Segment:
			flushField()
			seg, err := buildSegment(fields, d)
			if err != nil {
				return nil, err
			}
			segments = append(segments, seg)
			fields = fields[:0]
		case len(fields) == 0 && cur.Len() == 0 && (r == '\n' || r == '\r'):
			// Line breaks after a terminator.
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		return nil, fmt.Errorf("document ends with a dangling release character")
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" || len(fields) > 0 {
		return nil, fmt.Errorf("unterminated segment at end of document")
	}
	return segments, nil
}

func buildSegment(fields []string, d edi.Delimiters) (edi.Segment, error) {
	tag := strings.TrimSpace(fields[0])
	if tag == "" {
		return edi.Segment{}, fmt.Errorf("segment without a tag")
	}
	elements := make([]edi.Element, 0, len(fields)-1)
	for _, raw := range fields[1:] {
		if tag == "ISA" {
			elements = append(elements, edi.NewElement(unescape(raw, d), edi.Unsourced()))
			continue
		}
		parts := splitUnescaped(raw, d)
		if len(parts) == 1 {
			elements = append(elements, edi.NewElement(parts[0], edi.Unsourced()))
		} else {
			elements = append(elements, edi.NewComposite(edi.Unsourced(), parts...))
		}
	}
	return edi.NewSegment(tag, elements...), nil
}

// splitUnescaped splits raw on unescaped sub-element separators and
// removes release characters.
func splitUnescaped(raw string, d edi.Delimiters) []string {
	var (
		parts   []string
		cur     strings.Builder
		escaped bool
	)
	for _, r := range raw {
		s := string(r)
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case d.Release != "" && s == d.Release:
			escaped = true
		case s == d.SubElement:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(parts, cur.String())
}

func unescape(raw string, d edi.Delimiters) string {
	if d.Release == "" {
		return raw
	}
	parts := splitUnescaped(raw, edi.Delimiters{Release: d.Release})
	return strings.Join(parts, "")
}
