package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"gopkg.in/yaml.v3"
)

// Decode parses a single profile document. Unknown keys are rejected so
// that a typo in a partner file fails at load time instead of silently
// producing a different document.
//
// PARAMETERS:
//   - data: The YAML document.
//   - source: Where the document came from, recorded on the profile.
//
// RETURNS:
//   - The profile with defaults applied. It is not validated; see the
//     validation package.
func Decode(data []byte, source string) (*EncodingProfile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p EncodingProfile
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty profile", source)
		}
		return nil, fmt.Errorf("%s: failed to parse profile: %w", source, err)
	}
	p.Source = source
	applyProfileDefaults(&p)
	return &p, nil
}

// applyProfileDefaults sets default values for unset profile options.
func applyProfileDefaults(p *EncodingProfile) {
	p.PartnerID = strings.ToUpper(strings.TrimSpace(p.PartnerID))
	p.DocumentType = strings.ToUpper(strings.TrimSpace(p.DocumentType))
	p.Standard = strings.ToLower(strings.TrimSpace(p.Standard))
	if p.Standard == "" {
		p.Standard = StandardX12
	}

	// Delimiters default per standard, field by field, so a profile can
	// override just the terminator.
	def := edi.X12Delimiters()
	if p.Standard == StandardEDIFACT {
		def = edi.EDIFACTDelimiters()
	}
	if p.Delimiters.Element == "" {
		p.Delimiters.Element = def.Element
	}
	if p.Delimiters.Segment == "" {
		p.Delimiters.Segment = def.Segment
	}
	if p.Delimiters.SubElement == "" {
		p.Delimiters.SubElement = def.SubElement
	}
	if p.Delimiters.Repetition == "" {
		p.Delimiters.Repetition = def.Repetition
	}
	if p.Delimiters.Release == "" {
		p.Delimiters.Release = def.Release
	}

	if p.CollisionPolicy == "" {
		p.CollisionPolicy = PolicyReject
	}
	if p.FileExtension == "" {
		p.FileExtension = ".edi"
	}
	if !strings.HasPrefix(p.FileExtension, ".") {
		p.FileExtension = "." + p.FileExtension
	}

	p.Templates(func(_ string, t *SegmentTemplate) {
		if t.Usage == "" {
			t.Usage = UsageMandatory
		}
	})
}
