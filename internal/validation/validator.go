// =============================================================================
// Excel to EDI Generator - Profile Validation
// =============================================================================
//
// This module checks encoding profiles before they are registered, so that
// template mistakes are reported once at startup instead of on the first
// request that happens to reach them.
//
// VALIDATION STRATEGY:
//   Validation is performed at three levels:
//   1. Profile-level: identity, standard, delimiters, collision policy
//   2. Envelope-level: every level has a header AND a matching trailer,
//      both carrying that level's control number
//   3. Rule-level: every element rule has one known source, and counts
//      and control numbers are only used where they are already known
//      (no forward references)
//
// ERROR HANDLING:
//   - Errors are collected, not returned one at a time
//   - Each error names the profile, the template and the element position
//   - Warnings do not prevent registration
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/excel-to-edi/internal/fieldmap"
	"github.com/ginjaninja78/excel-to-edi/internal/profile"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError is a single problem found in a profile.
type ValidationError struct {
	// Severity is "error" (the profile cannot be used) or "warning".
	Severity string

	// Profile is the profile key, e.g. "RENESAS/PO".
	Profile string

	// Location is where the template sits: "interchange header",
	// "detail", "summary" ...
	Location string

	// Segment is the segment tag, if known.
	Segment string

	// Position is the 1-based element position, or 0 for the segment.
	Position int

	// Rule is the check that failed.
	Rule string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(e.Severity), e.Profile)
	if e.Location != "" {
		fmt.Fprintf(&b, " %s", e.Location)
	}
	if e.Segment != "" {
		fmt.Fprintf(&b, " %s", e.Segment)
		if e.Position > 0 {
			fmt.Fprintf(&b, "%02d", e.Position)
		}
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	return b.String()
}

// HasErrors reports whether any entry has error severity.
func HasErrors(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// segmentKind describes which values a template may reference.
type segmentKind struct {
	where string

	// level is the envelope level of an envelope segment, "" otherwise.
	level string

	// counts allowed in this template.
	counts map[string]bool

	// envelope segments have no row to read from.
	envelope bool

	// conditional usage is allowed.
	conditional bool
}

// ValidateProfile checks a profile and returns every problem found.
//
// PARAMETERS:
//   - p: The profile, with defaults applied (see profile.Decode).
//
// RETURNS:
//   - A slice of ValidationError pointers, empty when the profile is valid.
func ValidateProfile(p *profile.EncodingProfile) []*ValidationError {
	v := &validator{p: p, key: p.Key().String()}
	v.validateIdentity()
	v.validateEnvelope()
	v.validateBody()
	return v.errors
}

type validator struct {
	p      *profile.EncodingProfile
	key    string
	errors []*ValidationError
}

func (v *validator) add(severity, location, segment string, position int, rule, format string, args ...any) {
	v.errors = append(v.errors, &ValidationError{
		Severity: severity,
		Profile:  v.key,
		Location: location,
		Segment:  segment,
		Position: position,
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (v *validator) validateIdentity() {
	p := v.p
	if p.PartnerID == "" {
		v.add(SeverityError, "", "", 0, "required", "partner_id is required")
	}
	if p.DocumentType == "" {
		v.add(SeverityError, "", "", 0, "required", "document_type is required")
	}
	if p.Standard != profile.StandardX12 && p.Standard != profile.StandardEDIFACT {
		v.add(SeverityError, "", "", 0, "standard", "unknown standard %q (expected x12 or edifact)", p.Standard)
	}
	if err := p.Delimiters.Validate(); err != nil {
		v.add(SeverityError, "delimiters", "", 0, "delimiters", "%v", err)
	}
	switch p.Policy() {
	case profile.PolicyReject:
	case profile.PolicyEscape:
		if p.Delimiters.Release == "" {
			v.add(SeverityError, "delimiters", "", 0, "collision_policy", "escape policy requires a release character")
		}
	default:
		v.add(SeverityError, "", "", 0, "collision_policy", "unknown collision policy %q (expected reject or escape)", p.CollisionPolicy)
	}
	if p.ServiceStringAdvice && p.Standard != profile.StandardEDIFACT {
		v.add(SeverityWarning, "", "", 0, "service_string_advice", "service string advice (UNA) is an EDIFACT feature")
	}
}

func (v *validator) validateEnvelope() {
	for _, l := range v.p.Levels() {
		if w := l.Level.Width(); w > 19 {
			v.add(SeverityError, l.Name, "", 0, "control_width", "control width %d does not fit a 64-bit counter (max 19)", w)
		}

		outer := levelsUpTo(v.p, l.Name)
		header := segmentKind{where: l.Name + " header", level: l.Name, counts: map[string]bool{}, envelope: true}
		trailer := segmentKind{where: l.Name + " trailer", level: l.Name, counts: trailerCounts(l.Name), envelope: true}

		// Header and trailer must both exist and both carry the level's
		// control number; that pairing is what receivers check.
		for _, pair := range []struct {
			kind segmentKind
			t    *profile.SegmentTemplate
		}{{header, &l.Level.Header}, {trailer, &l.Level.Trailer}} {
			if pair.t.Tag == "" {
				v.add(SeverityError, pair.kind.where, "", 0, "envelope", "%s segment is required", pair.kind.where)
				continue
			}
			if !referencesControl(pair.t, l.Name) {
				v.add(SeverityError, pair.kind.where, pair.t.Tag, 0, "control_number",
					"%s must carry the %s control number", pair.t.Tag, l.Name)
			}
			v.validateTemplate(pair.kind, pair.t, outer)
		}
	}
}

func (v *validator) validateBody() {
	p := v.p
	none := map[string]bool{}

	// Control numbers are allocated after the body is built, so body
	// segments cannot reference them.
	body := map[string]bool{}

	for i := range p.Header {
		v.validateTemplate(segmentKind{where: "header", counts: none, conditional: true}, &p.Header[i], body)
	}

	if p.Detail.Tag == "" {
		v.add(SeverityError, "detail", "", 0, "required", "detail segment is required")
	} else {
		v.validateTemplate(segmentKind{where: "detail", counts: none}, &p.Detail, body)
	}

	for i := range p.DetailExtras {
		v.validateTemplate(segmentKind{where: "detail extra", counts: none, conditional: true}, &p.DetailExtras[i], body)
	}

	summary := map[string]bool{fieldmap.CountDetailSegments: true, fieldmap.CountRows: true}
	for i := range p.Summary {
		v.validateTemplate(segmentKind{where: "summary", counts: summary, conditional: true}, &p.Summary[i], body)
	}
}

// validateTemplate checks one segment template.
func (v *validator) validateTemplate(kind segmentKind, t *profile.SegmentTemplate, controls map[string]bool) {
	if t.Tag == "" {
		v.add(SeverityError, kind.where, "", 0, "tag", "segment tag is required")
		return
	}
	if strings.ContainsAny(t.Tag, v.p.Delimiters.Element+v.p.Delimiters.Segment+v.p.Delimiters.SubElement) {
		v.add(SeverityError, kind.where, t.Tag, 0, "tag", "segment tag contains a delimiter")
	}

	switch strings.ToLower(t.Usage) {
	case profile.UsageMandatory:
		if t.When != "" {
			v.add(SeverityWarning, kind.where, t.Tag, 0, "when", "condition on a mandatory segment is ignored")
		}
	case profile.UsageConditional:
		if !kind.conditional {
			v.add(SeverityError, kind.where, t.Tag, 0, "usage", "%s segments cannot be conditional", kind.where)
		}
		if t.When != "" {
			if _, err := fieldmap.ParseCondition(t.When); err != nil {
				v.add(SeverityError, kind.where, t.Tag, 0, "when", "%v", err)
			}
		} else if !hasFieldSource(t) {
			v.add(SeverityWarning, kind.where, t.Tag, 0, "when", "conditional segment has no condition and no field elements; it is never emitted")
		}
	default:
		v.add(SeverityError, kind.where, t.Tag, 0, "usage", "unknown usage %q (expected mandatory or conditional)", t.Usage)
	}

	if len(t.Elements) == 0 {
		v.add(SeverityWarning, kind.where, t.Tag, 0, "elements", "segment has no elements")
	}
	for i, r := range t.Elements {
		v.validateRule(kind, t.Tag, i+1, r, controls)
	}
}

// validateRule checks one element rule and everything nested in it.
func (v *validator) validateRule(kind segmentKind, tag string, position int, r fieldmap.Rule, controls map[string]bool) {
	r.Walk(func(r fieldmap.Rule) {
		src, n := r.Source()
		if n > 1 {
			v.add(SeverityError, kind.where, tag, position, "source", "rule has %d sources, expected one", n)
			return
		}

		switch src {
		case fieldmap.SourceField:
			if kind.envelope {
				v.add(SeverityError, kind.where, tag, position, "field", "envelope segments have no row; field %q cannot be read", r.Field)
			}
		case fieldmap.SourceContext:
			if !contains(fieldmap.ContextKeys, strings.ToLower(r.Context)) {
				v.add(SeverityError, kind.where, tag, position, "context", "unknown context key %q", r.Context)
			}
			key := strings.ToLower(r.Context)
			if (key == fieldmap.ContextLineNumber || key == fieldmap.ContextRowIndex) && kind.where != "detail" && kind.where != "detail extra" {
				v.add(SeverityError, kind.where, tag, position, "context", "%s is only available in detail segments", r.Context)
			}
		case fieldmap.SourceCount:
			name := strings.ToLower(r.Count)
			switch {
			case !contains(fieldmap.CountKeys, name):
				v.add(SeverityError, kind.where, tag, position, "count", "unknown count %q", r.Count)
			case !kind.counts[name]:
				v.add(SeverityError, kind.where, tag, position, "count",
					"count %q is not known yet in %s segments (counts are only available in trailers and summaries)", r.Count, kind.where)
			}
		case fieldmap.SourceControl:
			level := strings.ToLower(r.ControlNumber)
			switch {
			case !contains(fieldmap.Levels, level):
				v.add(SeverityError, kind.where, tag, position, "control_number", "unknown envelope level %q", r.ControlNumber)
			case !controls[level]:
				v.add(SeverityError, kind.where, tag, position, "control_number",
					"%s control number is not available in %s segments", level, kind.where)
			}
		case fieldmap.SourceDelimiter:
			if _, ok := v.p.Delimiters.ByName(r.Delimiter); !ok {
				v.add(SeverityError, kind.where, tag, position, "delimiter", "unknown delimiter %q", r.Delimiter)
			} else if d, _ := v.p.Delimiters.ByName(r.Delimiter); d == "" {
				v.add(SeverityError, kind.where, tag, position, "delimiter", "delimiter %q is not defined by this profile", r.Delimiter)
			}
		}

		if len(r.Components) > 0 && hasNestedComposite(r) {
			v.add(SeverityError, kind.where, tag, position, "components", "nested composite elements are not supported")
		}
		if r.Required && src != fieldmap.SourceField {
			v.add(SeverityWarning, kind.where, tag, position, "required", "required only applies to field rules")
		}

		v.validateFormat(kind, tag, position, r.Format)
		for _, tr := range r.Transforms {
			if !contains(TransformTypes, tr.Type) {
				v.add(SeverityError, kind.where, tag, position, "transforms", "unknown transformation type %q", tr.Type)
			}
		}
		if r.MinLength < 0 || r.MaxLength < 0 || (r.MaxLength > 0 && r.MinLength > r.MaxLength) {
			v.add(SeverityError, kind.where, tag, position, "length", "invalid length bounds min=%d max=%d", r.MinLength, r.MaxLength)
		}
		if !fieldmap.KnownDataType(r.DataType) {
			v.add(SeverityError, kind.where, tag, position, "data_type", "unknown data type %q", r.DataType)
		}
	})
}

func (v *validator) validateFormat(kind segmentKind, tag string, position int, f fieldmap.Format) {
	switch strings.ToLower(f.Type) {
	case "", "string", "integer", "decimal", "date", "time":
	default:
		v.add(SeverityError, kind.where, tag, position, "format", "unknown format type %q", f.Type)
	}
	if f.Width < 0 || f.MinWidth < 0 || f.Precision < 0 {
		v.add(SeverityError, kind.where, tag, position, "format", "width, min_width and precision must not be negative")
	}
	if f.Width > 0 && f.MinWidth > 0 {
		v.add(SeverityWarning, kind.where, tag, position, "format", "min_width is ignored when width is set")
	}
	if f.Justify != "" && f.Justify != "left" && f.Justify != "right" {
		v.add(SeverityError, kind.where, tag, position, "format", "justify must be left or right, got %q", f.Justify)
	}
	if len([]rune(f.Pad)) > 1 {
		v.add(SeverityError, kind.where, tag, position, "format", "pad must be a single character, got %q", f.Pad)
	}
	if f.Layout != "" && f.Type != "date" && f.Type != "time" {
		v.add(SeverityWarning, kind.where, tag, position, "format", "layout only applies to date and time formats")
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// TransformTypes lists the transformation actions understood by
// fieldmap.ApplyTransformation.
var TransformTypes = []string{
	"prepend_string", "append_string", "trim", "trim_left", "trim_right",
	"uppercase", "lowercase", "replace", "regex_replace", "substring",
	"pad_zeros_to_length", "pad_spaces_to_length", "ensure_length",
	"remove_leading_zeros", "lookup", "lookup_with_default",
	"if_empty_use_default", "extract_digits", "extract_letters",
	"remove_special_chars", "normalize_whitespace", "ascii_fold",
}

// levelsUpTo returns the control-number levels visible from an envelope
// segment at level: that level and every outer one.
func levelsUpTo(p *profile.EncodingProfile, level string) map[string]bool {
	visible := make(map[string]bool)
	for _, l := range p.Levels() {
		visible[l.Name] = true
		if l.Name == level {
			break
		}
	}
	return visible
}

// trailerCounts returns the counts known when a level's trailer is
// rendered.
func trailerCounts(level string) map[string]bool {
	switch level {
	case fieldmap.LevelInterchange:
		return map[string]bool{fieldmap.CountGroups: true, fieldmap.CountTransactions: true}
	case fieldmap.LevelGroup:
		return map[string]bool{fieldmap.CountTransactions: true}
	}
	return map[string]bool{
		fieldmap.CountSegments:       true,
		fieldmap.CountDetailSegments: true,
		fieldmap.CountRows:           true,
	}
}

func referencesControl(t *profile.SegmentTemplate, level string) bool {
	found := false
	for _, r := range t.Elements {
		r.Walk(func(r fieldmap.Rule) {
			if strings.EqualFold(r.ControlNumber, level) {
				found = true
			}
		})
	}
	return found
}

func hasFieldSource(t *profile.SegmentTemplate) bool {
	found := false
	for _, r := range t.Elements {
		r.Walk(func(r fieldmap.Rule) {
			if r.Field != "" {
				found = true
			}
		})
	}
	return found
}

func hasNestedComposite(r fieldmap.Rule) bool {
	for _, c := range r.Components {
		if len(c.Components) > 0 {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
//
// PARAMETERS:
//   - errors: The validation errors to format.
//
// RETURNS:
//   - A formatted string containing all errors.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d issue(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
