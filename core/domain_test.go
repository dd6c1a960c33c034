package core

import "testing"

func TestDomain_IsDefaultAndURL(t *testing.T) {
	var global Domain
	if !global.IsDefault() {
		t.Fatalf("expected nil-name domain to be default")
	}
	if global.URL() != "_" {
		t.Fatalf("expected global domain URL segment to be _, got %q", global.URL())
	}

	name := "payments team"
	named := Domain{Name: &name}
	if named.IsDefault() {
		t.Fatalf("expected named domain to not be default")
	}
	if named.DomainName() != name {
		t.Fatalf("expected domain name to round-trip, got %q", named.DomainName())
	}
	if named.URL() == name {
		t.Fatalf("expected URL segment to be percent-encoded")
	}
}

func TestDomain_MatchesRequiresEverySpecification(t *testing.T) {
	hostSpec, err := NewHostnameSpec("*.internal")
	if err != nil {
		t.Fatalf("new hostname spec: %v", err)
	}
	schemeSpec, err := NewSchemeSpec("https")
	if err != nil {
		t.Fatalf("new scheme spec: %v", err)
	}
	d := Domain{Specifications: []Specification{hostSpec, schemeSpec}}

	if !d.Matches([]Requirement{
		{Kind: RequirementHostname, Value: "build.internal"},
		{Kind: RequirementScheme, Value: "https"},
	}) {
		t.Fatalf("expected domain to match when every specification is satisfied")
	}
	if d.Matches([]Requirement{{Kind: RequirementHostname, Value: "build.internal"}}) {
		t.Fatalf("expected domain to reject a request missing a required dimension")
	}
	if d.Matches([]Requirement{
		{Kind: RequirementHostname, Value: "build.internal"},
		{Kind: RequirementScheme, Value: "http"},
	}) {
		t.Fatalf("expected domain to reject a non-matching specification")
	}
}

func TestDomain_MatchesSatisfiedByAnyRequirementOfKind(t *testing.T) {
	hostSpec, err := NewHostnameSpec("*.internal")
	if err != nil {
		t.Fatalf("new hostname spec: %v", err)
	}
	d := Domain{Specifications: []Specification{hostSpec}}

	if !d.Matches([]Requirement{
		{Kind: RequirementHostname, Value: "external.example.com"},
		{Kind: RequirementHostname, Value: "build.internal"},
	}) {
		t.Fatalf("expected domain to match when any requirement of the kind satisfies its specification")
	}
	if d.Matches([]Requirement{
		{Kind: RequirementHostname, Value: "external.example.com"},
		{Kind: RequirementHostname, Value: "other.example.com"},
	}) {
		t.Fatalf("expected domain to reject when no requirement of the kind satisfies its specification")
	}
}

func TestDomain_NoSpecificationsMatchesUnconditionally(t *testing.T) {
	var d Domain
	if !d.Matches(nil) {
		t.Fatalf("expected a specification-less domain to match any request")
	}
}
