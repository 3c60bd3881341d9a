package edi

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Delimiters is the set of literal characters that make up a partner's
// wire syntax.
type Delimiters struct {
	// Element separates data elements ("*" for X12, "+" for EDIFACT).
	Element string `yaml:"element"`

	// Segment terminates every segment ("~" for X12, "'" for EDIFACT).
	Segment string `yaml:"segment"`

	// SubElement separates the components of a composite element.
	SubElement string `yaml:"sub_element"`

	// Repetition separates repeated occurrences of an element. Optional.
	Repetition string `yaml:"repetition,omitempty"`

	// Release is the escape character used by the "escape" collision
	// policy (EDIFACT uses "?"). Optional.
	Release string `yaml:"release,omitempty"`

	// SegmentSuffix is written after every terminator, typically "\n" or
	// "\r\n" for human-readable output. It is not a delimiter.
	SegmentSuffix string `yaml:"segment_suffix,omitempty"`
}

// X12Delimiters returns the customary X12 delimiters.
func X12Delimiters() Delimiters {
	return Delimiters{Element: "*", Segment: "~", SubElement: ">", Repetition: "^"}
}

// EDIFACTDelimiters returns the UNOA/UNOC default service characters.
func EDIFACTDelimiters() Delimiters {
	return Delimiters{Element: "+", Segment: "'", SubElement: ":", Release: "?"}
}

// Set returns every configured delimiter character, including the release
// character, in a fixed order.
func (d Delimiters) Set() []string {
	set := []string{d.Element, d.Segment, d.SubElement}
	if d.Repetition != "" {
		set = append(set, d.Repetition)
	}
	if d.Release != "" {
		set = append(set, d.Release)
	}
	return set
}

// Collision returns the first delimiter character found in value, or "".
func (d Delimiters) Collision(value string) string {
	for _, r := range value {
		for _, c := range d.Set() {
			if c != "" && string(r) == c {
				return c
			}
		}
	}
	return ""
}

// ByName returns the delimiter named by a field rule ("element",
// "sub_element", "repetition", "segment", "release").
func (d Delimiters) ByName(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "element":
		return d.Element, true
	case "segment":
		return d.Segment, true
	case "sub_element":
		return d.SubElement, true
	case "repetition":
		return d.Repetition, true
	case "release":
		return d.Release, true
	}
	return "", false
}

// Validate checks that every delimiter is a single character and that no
// two delimiters share a character.
func (d Delimiters) Validate() error {
	required := map[string]string{
		"element":     d.Element,
		"segment":     d.Segment,
		"sub_element": d.SubElement,
	}
	for _, name := range []string{"element", "segment", "sub_element"} {
		if utf8.RuneCountInString(required[name]) != 1 {
			return fmt.Errorf("%s delimiter must be a single character, got %q", name, required[name])
		}
	}
	if d.Repetition != "" && utf8.RuneCountInString(d.Repetition) != 1 {
		return fmt.Errorf("repetition delimiter must be a single character, got %q", d.Repetition)
	}
	if d.Release != "" && utf8.RuneCountInString(d.Release) != 1 {
		return fmt.Errorf("release character must be a single character, got %q", d.Release)
	}

	seen := make(map[string]bool)
	for _, c := range d.Set() {
		if seen[c] {
			return fmt.Errorf("delimiters must be unique, %q is used twice", c)
		}
		seen[c] = true
	}
	return nil
}
