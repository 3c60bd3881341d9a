package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/profile"
)

func builtinRegistry(t *testing.T) *Registry {
	t.Helper()
	profiles, err := profile.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(profiles...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestResolveExactMatch(t *testing.T) {
	r := builtinRegistry(t)

	p, err := r.Resolve("renesas", " po ")
	if err != nil {
		t.Fatal(err)
	}
	if p.Key() != profile.NewKey("RENESAS", "PO") {
		t.Errorf("unexpected profile %v", p.Key())
	}

	p, err = r.Resolve("OSRAM", "POS")
	if err != nil {
		t.Fatal(err)
	}
	if p.Standard != profile.StandardEDIFACT {
		t.Errorf("expected the OSRAM POS profile to be EDIFACT, got %q", p.Standard)
	}
}

func TestResolveUnknownFailsHard(t *testing.T) {
	r := builtinRegistry(t)

	_, err := r.Resolve("ACME", "PO")
	var notFound *edi.ProfileNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ProfileNotFoundError, got %v", err)
	}
	if notFound.PartnerID != "ACME" || notFound.DocumentType != "PO" {
		t.Errorf("unexpected error context %+v", notFound)
	}

	// A known partner with an unknown document type fails too.
	if _, err := r.Resolve("RENESAS", "ASN"); !errors.As(err, &notFound) {
		t.Fatalf("expected ProfileNotFoundError, got %v", err)
	}

	// Without opt-in the generic profile is never used.
	if _, used, err := r.ResolveWithFallback("ACME", "PO", false); err == nil || used {
		t.Errorf("expected failure without opt-in, got used=%v err=%v", used, err)
	}
}

func TestResolveWithExplicitGenericFallback(t *testing.T) {
	r := builtinRegistry(t)

	p, used, err := r.ResolveWithFallback("ACME", "PO", true)
	if err != nil {
		t.Fatal(err)
	}
	if !used || p.PartnerID != profile.GenericPartnerID {
		t.Errorf("expected the generic profile, got %v (used=%v)", p.Key(), used)
	}

	p, used, err = r.ResolveWithFallback("RENESAS", "PO", true)
	if err != nil {
		t.Fatal(err)
	}
	if used || p.PartnerID != "RENESAS" {
		t.Errorf("an exact match must win over the generic profile")
	}
}

func TestPartnerWideProfile(t *testing.T) {
	profiles, err := profile.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	var generic *profile.EncodingProfile
	for _, p := range profiles {
		if p.PartnerID == profile.GenericPartnerID {
			clone := *p
			clone.PartnerID = "ACME"
			generic = &clone
		}
	}
	r, err := New(append(profiles, generic)...)
	if err != nil {
		t.Fatal(err)
	}
	p, err := r.Resolve("ACME", "ANYTHING")
	if err != nil {
		t.Fatal(err)
	}
	if p.PartnerID != "ACME" {
		t.Errorf("expected the partner-wide profile, got %v", p.Key())
	}
}

func TestLaterProfileReplacesEarlier(t *testing.T) {
	profiles, err := profile.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	var override *profile.EncodingProfile
	for _, p := range profiles {
		if p.Key() == profile.NewKey("RENESAS", "PO") {
			clone := *p
			clone.Description = "site override"
			clone.Source = "profiles/renesas_po.yaml"
			override = &clone
		}
	}
	r, err := New(append(profiles, override)...)
	if err != nil {
		t.Fatal(err)
	}
	p, err := r.Resolve("RENESAS", "PO")
	if err != nil {
		t.Fatal(err)
	}
	if p.Description != "site override" {
		t.Errorf("expected the later profile to win, got %q", p.Description)
	}
	if r.Len() != len(profiles) {
		t.Errorf("expected %d profiles, got %d", len(profiles), r.Len())
	}
}

func TestNewRejectsInvalidProfile(t *testing.T) {
	bad := &profile.EncodingProfile{PartnerID: "BAD", DocumentType: "PO", Standard: "x12"}
	if _, err := New(bad); err == nil {
		t.Error("expected an invalid profile to be rejected")
	}
}

func TestListIsSorted(t *testing.T) {
	r := builtinRegistry(t)
	list := r.List()
	for i := 1; i < len(list); i++ {
		a, b := list[i-1].Key(), list[i].Key()
		if a.PartnerID > b.PartnerID || (a.PartnerID == b.PartnerID && a.DocumentType > b.DocumentType) {
			t.Errorf("list not sorted at %d: %v before %v", i, a, b)
		}
	}
}

func TestConcurrentResolve(t *testing.T) {
	r := builtinRegistry(t)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve("RENESAS", "CLAIM"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}
