// =============================================================================
// Excel to EDI Generator - Encoding Profiles
// =============================================================================
//
// An encoding profile is everything needed to turn rows into one trading
// partner's document: delimiters, envelope templates, transaction header,
// detail and summary templates, and the field rules inside them. Adding a
// partner is a new profile file, never new code.
//
// PROFILE STRUCTURE (YAML):
//
//   partner_id: RENESAS
//   document_type: PO
//   standard: x12
//   delimiters: {element: "*", segment: "~", sub_element: ">"}
//   envelope:
//     interchange: {header: {tag: ISA, ...}, trailer: {tag: IEA, ...}}
//     group:       {header: {tag: GS, ...},  trailer: {tag: GE, ...}}
//     transaction: {header: {tag: ST, ...},  trailer: {tag: SE, ...}}
//   header:        [BEG, REF, N1 ...]   once per transaction
//   detail:        {tag: PO1, ...}      once per row
//   detail_extras: [...]                after each detail, same row
//   summary:       [CTT]                once per transaction
//
// =============================================================================

package profile

import (
	"strings"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/fieldmap"
)

// Standards understood by the generator.
const (
	StandardX12     = "x12"
	StandardEDIFACT = "edifact"
)

// Delimiter collision policies.
const (
	PolicyReject = "reject"
	PolicyEscape = "escape"
)

// Segment usages.
const (
	UsageMandatory   = "mandatory"
	UsageConditional = "conditional"
)

// AnyDocumentType is the document type of a partner-wide profile.
const AnyDocumentType = "*"

// GenericPartnerID is the partner id of the explicit opt-in fallback
// profile.
const GenericPartnerID = "GENERIC"

// DefaultControlWidth is the control number width used when a level does
// not set one (ISA13 is nine digits).
const DefaultControlWidth = 9

// =============================================================================
// KEY
// =============================================================================

// Key identifies a profile. Both parts are upper-cased and trimmed.
type Key struct {
	PartnerID    string
	DocumentType string
}

// NewKey builds a normalised key.
func NewKey(partnerID, documentType string) Key {
	return Key{
		PartnerID:    strings.ToUpper(strings.TrimSpace(partnerID)),
		DocumentType: strings.ToUpper(strings.TrimSpace(documentType)),
	}
}

func (k Key) String() string {
	return k.PartnerID + "/" + k.DocumentType
}

// =============================================================================
// PROFILE
// =============================================================================

// EncodingProfile is one partner's rule set for one document type.
type EncodingProfile struct {
	// PartnerID and DocumentType identify the profile. DocumentType "*"
	// matches any document type for the partner.
	PartnerID    string `yaml:"partner_id"`
	DocumentType string `yaml:"document_type"`

	// Description is free text shown by "profiles list".
	Description string `yaml:"description,omitempty"`

	// Standard is "x12" or "edifact". It selects default delimiters.
	Standard string `yaml:"standard"`

	// Delimiters are the literal separator characters.
	Delimiters edi.Delimiters `yaml:"delimiters"`

	// CollisionPolicy is "reject" (default) or "escape".
	CollisionPolicy string `yaml:"collision_policy,omitempty"`

	// KeepTrailingEmpty keeps empty trailing elements instead of trimming
	// them (PO1*1*3*EA** instead of PO1*1*3*EA).
	KeepTrailingEmpty bool `yaml:"keep_trailing_empty,omitempty"`

	// ServiceStringAdvice prefixes the document with a UNA segment.
	ServiceStringAdvice bool `yaml:"service_string_advice,omitempty"`

	// FileExtension of generated documents. Default ".edi".
	FileExtension string `yaml:"file_extension,omitempty"`

	// Envelope holds the header/trailer pair of every level.
	Envelope Envelope `yaml:"envelope"`

	// Header segments open every transaction, after the transaction
	// header (BEG, REF, N1 ...).
	Header []SegmentTemplate `yaml:"header,omitempty"`

	// Detail is applied once per row.
	Detail SegmentTemplate `yaml:"detail"`

	// DetailExtras follow each detail segment for the same row.
	DetailExtras []SegmentTemplate `yaml:"detail_extras,omitempty"`

	// Summary segments close every transaction, before the transaction
	// trailer (CTT, UNS/CNT ...).
	Summary []SegmentTemplate `yaml:"summary,omitempty"`

	// Grouping splits rows into several transactions.
	Grouping Grouping `yaml:"transaction_grouping,omitempty"`

	// Source is the file the profile was loaded from, or "builtin".
	Source string `yaml:"-"`
}

// Envelope is the set of envelope levels. Group is optional: EDIFACT
// interchanges usually carry messages directly.
type Envelope struct {
	Interchange Level  `yaml:"interchange"`
	Group       *Level `yaml:"group,omitempty"`
	Transaction Level  `yaml:"transaction"`
}

// Level is one envelope level: a header, its matching trailer and the
// width of its control number.
type Level struct {
	Header       SegmentTemplate `yaml:"header"`
	Trailer      SegmentTemplate `yaml:"trailer"`
	ControlWidth int             `yaml:"control_width,omitempty"`
}

// SegmentTemplate is a tag plus one rule per element position.
type SegmentTemplate struct {
	Tag string `yaml:"tag"`

	// Usage is "mandatory" (default) or "conditional".
	Usage string `yaml:"usage,omitempty"`

	// When is the condition of a conditional segment, see
	// fieldmap.ParseCondition. Empty means "any field-sourced element is
	// non-empty".
	When string `yaml:"when,omitempty"`

	Elements []fieldmap.Rule `yaml:"elements"`
}

// Conditional reports whether the segment may be omitted.
func (t SegmentTemplate) Conditional() bool {
	return strings.EqualFold(t.Usage, UsageConditional)
}

// Grouping configures transaction grouping.
type Grouping struct {
	// GroupBy is the column whose distinct values start new transactions.
	GroupBy string `yaml:"group_by,omitempty"`
}

// Key returns the profile's registry key.
func (p *EncodingProfile) Key() Key {
	return NewKey(p.PartnerID, p.DocumentType)
}

// Levels returns the configured envelope levels, outermost first, keyed by
// fieldmap level name.
func (p *EncodingProfile) Levels() []NamedLevel {
	levels := []NamedLevel{{Name: fieldmap.LevelInterchange, Level: &p.Envelope.Interchange}}
	if p.Envelope.Group != nil {
		levels = append(levels, NamedLevel{Name: fieldmap.LevelGroup, Level: p.Envelope.Group})
	}
	return append(levels, NamedLevel{Name: fieldmap.LevelTransaction, Level: &p.Envelope.Transaction})
}

// NamedLevel pairs a level with its name.
type NamedLevel struct {
	Name  string
	Level *Level
}

// Width returns the control number width, applying the default.
func (l *Level) Width() int {
	if l.ControlWidth <= 0 {
		return DefaultControlWidth
	}
	return l.ControlWidth
}

// Policy returns the collision policy, applying the default.
func (p *EncodingProfile) Policy() string {
	if p.CollisionPolicy == "" {
		return PolicyReject
	}
	return strings.ToLower(p.CollisionPolicy)
}

// Templates calls fn for every segment template of the profile with a
// short description of where it sits ("interchange header", "detail" ...).
func (p *EncodingProfile) Templates(fn func(where string, t *SegmentTemplate)) {
	for _, l := range p.Levels() {
		fn(l.Name+" header", &l.Level.Header)
		fn(l.Name+" trailer", &l.Level.Trailer)
	}
	for i := range p.Header {
		fn("header", &p.Header[i])
	}
	fn("detail", &p.Detail)
	for i := range p.DetailExtras {
		fn("detail extra", &p.DetailExtras[i])
	}
	for i := range p.Summary {
		fn("summary", &p.Summary[i])
	}
}
