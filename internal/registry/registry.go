// =============================================================================
// Excel to EDI Generator - Partner Profile Registry
// =============================================================================
//
// The registry maps (partner, document type) to an encoding profile. It is
// filled once at startup and never modified afterwards, so concurrent
// readers need no locking.
//
// RESOLUTION ORDER:
//   1. Exact (partner, document type) match
//   2. Partner-wide profile (partner, "*")
//   3. ProfileNotFoundError
//
// The generic profile is only used when the caller explicitly asks for it
// (ResolveWithFallback); an unknown partner never silently gets a generic
// document.
//
// =============================================================================

package registry

import (
	"fmt"
	"sort"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/profile"
	"github.com/ginjaninja78/excel-to-edi/internal/validation"
)

// Registry is an immutable set of validated profiles.
type Registry struct {
	profiles map[profile.Key]*profile.EncodingProfile

	// Warnings collected while validating the registered profiles.
	warnings []*validation.ValidationError
}

// New validates and registers profiles. Later profiles replace earlier
// ones with the same key, so user profiles listed after the built-in ones
// override them.
//
// RETURNS:
//   - An error listing every validation error when any profile is invalid.
func New(profiles ...*profile.EncodingProfile) (*Registry, error) {
	r := &Registry{profiles: make(map[profile.Key]*profile.EncodingProfile, len(profiles))}

	var invalid []*validation.ValidationError
	for _, p := range profiles {
		if p == nil {
			continue
		}
		for _, e := range validation.ValidateProfile(p) {
			if e.Severity == validation.SeverityError {
				invalid = append(invalid, e)
			} else {
				r.warnings = append(r.warnings, e)
			}
		}
		r.profiles[p.Key()] = p
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid encoding profiles:\n%s", validation.FormatErrors(invalid))
	}
	return r, nil
}

// Resolve returns the profile for (partnerID, documentType).
//
// RETURNS:
//   - *edi.ProfileNotFoundError when neither an exact nor a partner-wide
//     profile exists.
func (r *Registry) Resolve(partnerID, documentType string) (*profile.EncodingProfile, error) {
	key := profile.NewKey(partnerID, documentType)
	if p, ok := r.profiles[key]; ok {
		return p, nil
	}
	if p, ok := r.profiles[profile.NewKey(partnerID, profile.AnyDocumentType)]; ok {
		return p, nil
	}
	return nil, &edi.ProfileNotFoundError{PartnerID: key.PartnerID, DocumentType: key.DocumentType}
}

// ResolveWithFallback behaves like Resolve, but when allowGeneric is set
// and nothing matches it returns the generic profile instead of failing.
// The second result reports whether the generic profile was used.
func (r *Registry) ResolveWithFallback(partnerID, documentType string, allowGeneric bool) (*profile.EncodingProfile, bool, error) {
	p, err := r.Resolve(partnerID, documentType)
	if err == nil || !allowGeneric {
		return p, false, err
	}
	if g, ok := r.profiles[profile.NewKey(profile.GenericPartnerID, profile.AnyDocumentType)]; ok {
		return g, true, nil
	}
	return nil, false, err
}

// List returns every registered profile sorted by partner and document
// type.
func (r *Registry) List() []*profile.EncodingProfile {
	list := make([]*profile.EncodingProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].Key(), list[j].Key()
		if a.PartnerID != b.PartnerID {
			return a.PartnerID < b.PartnerID
		}
		return a.DocumentType < b.DocumentType
	})
	return list
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	return len(r.profiles)
}

// Warnings returns the non-fatal validation findings.
func (r *Registry) Warnings() []*validation.ValidationError {
	w := make([]*validation.ValidationError, len(r.warnings))
	copy(w, r.warnings)
	return w
}
