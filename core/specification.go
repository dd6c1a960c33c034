package core

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// RequirementKind tags the dimension a Specification constrains. A Domain
// matches a credential request only when every Specification it carries
// matches the corresponding requirement value (§4.3).
type RequirementKind string

const (
	RequirementHostname RequirementKind = "hostname"
	RequirementScheme   RequirementKind = "scheme"
	RequirementPath     RequirementKind = "path"
	RequirementURI      RequirementKind = "uri"
)

// Specification is a single predicate over one dimension of a requested
// resource URI. Implementations are immutable once constructed.
type Specification interface {
	Kind() RequirementKind
	Matches(value string) bool
	Describe() string
}

// Requirement pairs a RequirementKind with the candidate value extracted
// from the resource URI a caller is requesting credentials for.
type Requirement struct {
	Kind  RequirementKind
	Value string
}

// SpecificationParams is implemented by the four built-in specification
// types to expose the raw construction arguments a persisted store needs
// to round-trip a specification through the §6 document format
// (`{kind, params...}`). Host-added specification types need not implement
// it; a store falls back to storing Describe()'s rendering as a single
// unparseable param for those.
type SpecificationParams interface {
	Params() []string
}

// HostnameSpec matches a hostname against a dotted sequence of per-segment
// regular expressions, with an optional port restriction. "*.example.com"
// becomes the three segments [".*", "example", "com"].
type HostnameSpec struct {
	raw      string
	segments []*regexp.Regexp
	port     string
}

// NewHostnameSpec compiles a dotted hostname pattern such as
// "*.example.com" or "build-[0-9]+.internal:8443". Each dot-delimited
// segment is compiled as an independent anchored regular expression so a
// wildcard segment cannot accidentally span a dot boundary.
func NewHostnameSpec(pattern string) (*HostnameSpec, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, fmt.Errorf("%w: hostname pattern must not be empty", ErrInvalidSpecification)
	}

	host, port := pattern, ""
	if idx := strings.LastIndex(pattern, ":"); idx >= 0 {
		host, port = pattern[:idx], pattern[idx+1:]
		if _, err := strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("%w: invalid port in hostname pattern %q", ErrInvalidSpecification, pattern)
		}
	}

	rawSegments := strings.Split(host, ".")
	compiled := make([]*regexp.Regexp, 0, len(rawSegments))
	for _, seg := range rawSegments {
		if seg == "*" {
			seg = ".*"
		}
		expr, err := regexp.Compile("^(?i:" + seg + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w: invalid hostname segment %q: %v", ErrInvalidSpecification, seg, err)
		}
		compiled = append(compiled, expr)
	}

	return &HostnameSpec{raw: pattern, segments: compiled, port: port}, nil
}

func (h *HostnameSpec) Kind() RequirementKind { return RequirementHostname }

// Matches accepts "host" or "host:port" values. When this requirement
// carries a port restriction, the candidate must supply the same port
// explicitly.
func (h *HostnameSpec) Matches(value string) bool {
	host, port := value, ""
	if idx := strings.LastIndex(value, ":"); idx >= 0 {
		host, port = value[:idx], value[idx+1:]
	}
	if h.port != "" && h.port != port {
		return false
	}
	segments := strings.Split(host, ".")
	if len(segments) != len(h.segments) {
		return false
	}
	for i, expr := range h.segments {
		if !expr.MatchString(segments[i]) {
			return false
		}
	}
	return true
}

func (h *HostnameSpec) Describe() string { return fmt.Sprintf("hostname(%s)", h.raw) }

// Params returns the original pattern passed to NewHostnameSpec.
func (h *HostnameSpec) Params() []string { return []string{h.raw} }

// SchemeSpec matches a URI scheme against a fixed allow-list.
type SchemeSpec struct {
	schemes map[string]struct{}
	raw     []string
}

func NewSchemeSpec(schemes ...string) (*SchemeSpec, error) {
	if len(schemes) == 0 {
		return nil, fmt.Errorf("%w: scheme specification must list at least one scheme", ErrInvalidSpecification)
	}
	set := make(map[string]struct{}, len(schemes))
	for _, s := range schemes {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return &SchemeSpec{schemes: set, raw: schemes}, nil
}

func (s *SchemeSpec) Kind() RequirementKind { return RequirementScheme }

func (s *SchemeSpec) Matches(value string) bool {
	_, ok := s.schemes[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

func (s *SchemeSpec) Describe() string {
	return fmt.Sprintf("scheme(%s)", strings.Join(s.raw, "|"))
}

// Params returns the original schemes passed to NewSchemeSpec.
func (s *SchemeSpec) Params() []string { return append([]string(nil), s.raw...) }

// PathSpec matches a URI path against a list of acceptable prefixes.
type PathSpec struct {
	prefixes []string
}

func NewPathSpec(prefixes ...string) (*PathSpec, error) {
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("%w: path specification must list at least one prefix", ErrInvalidSpecification)
	}
	return &PathSpec{prefixes: prefixes}, nil
}

func (p *PathSpec) Kind() RequirementKind { return RequirementPath }

func (p *PathSpec) Matches(value string) bool {
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

func (p *PathSpec) Describe() string {
	return fmt.Sprintf("path(%s)", strings.Join(p.prefixes, "|"))
}

// Params returns the original prefixes passed to NewPathSpec.
func (p *PathSpec) Params() []string { return append([]string(nil), p.prefixes...) }

// URISpec matches a full URI against a list of path.Match-style globs.
type URISpec struct {
	globs []string
}

func NewURISpec(globs ...string) (*URISpec, error) {
	if len(globs) == 0 {
		return nil, fmt.Errorf("%w: uri specification must list at least one glob", ErrInvalidSpecification)
	}
	for _, g := range globs {
		if _, err := path.Match(g, ""); err != nil {
			return nil, fmt.Errorf("%w: invalid uri glob %q: %v", ErrInvalidSpecification, g, err)
		}
	}
	return &URISpec{globs: globs}, nil
}

func (u *URISpec) Kind() RequirementKind { return RequirementURI }

func (u *URISpec) Matches(value string) bool {
	for _, g := range u.globs {
		if ok, _ := path.Match(g, value); ok {
			return true
		}
	}
	return false
}

func (u *URISpec) Describe() string {
	return fmt.Sprintf("uri(%s)", strings.Join(u.globs, "|"))
}

// Params returns the original globs passed to NewURISpec.
func (u *URISpec) Params() []string { return append([]string(nil), u.globs...) }

var (
	_ SpecificationParams = (*HostnameSpec)(nil)
	_ SpecificationParams = (*SchemeSpec)(nil)
	_ SpecificationParams = (*PathSpec)(nil)
	_ SpecificationParams = (*URISpec)(nil)
)
