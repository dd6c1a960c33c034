package core

import "fmt"

// Matcher is a composable predicate over credentials (§4.4), used to filter
// Resolution Engine output and to offload candidate selection to a remote
// store that understands describable matchers.
type Matcher interface {
	Match(c Credential) bool
}

// Describable exposes the short predicate-language form of a matcher used
// for remote store offloading. The bool return is false when the matcher
// (or one of its children, for composites) has no description, e.g. a
// Custom matcher built without one.
type Describable interface {
	Describe() (string, bool)
}

type matcherFunc struct {
	match  func(Credential) bool
	desc   string
	descOK bool
}

func (m matcherFunc) Match(c Credential) bool    { return m.match(c) }
func (m matcherFunc) Describe() (string, bool)   { return m.desc, m.descOK }

var _ Matcher = matcherFunc{}
var _ Describable = matcherFunc{}

func AlwaysMatch() Matcher {
	return matcherFunc{match: func(Credential) bool { return true }, desc: "true", descOK: true}
}

func NeverMatch() Matcher {
	return matcherFunc{match: func(Credential) bool { return false }, desc: "false", descOK: true}
}

func ByID(id string) Matcher {
	return matcherFunc{
		match:  func(c Credential) bool { return c.ID == id },
		desc:   fmt.Sprintf("id == %q", id),
		descOK: true,
	}
}

func ByScope(scope Scope) Matcher {
	return matcherFunc{
		match:  func(c Credential) bool { return c.Scope == scope },
		desc:   fmt.Sprintf("scope == %s", scope),
		descOK: true,
	}
}

func ByType(typeTag CredentialType) Matcher {
	return matcherFunc{
		match:  func(c Credential) bool { return c.TypeTag == typeTag },
		desc:   fmt.Sprintf("type == %q", typeTag),
		descOK: true,
	}
}

// Custom wraps an arbitrary predicate. Without a description it degrades to
// full-candidate-list-then-filter at the Resolution Engine (§4.4).
func Custom(predicate func(Credential) bool, description ...string) Matcher {
	m := matcherFunc{match: predicate}
	if len(description) > 0 && description[0] != "" {
		m.desc, m.descOK = description[0], true
	}
	return m
}

type andMatcher struct{ ms []Matcher }

// And with an empty list is alwaysMatch (§4.4).
func And(ms ...Matcher) Matcher {
	if len(ms) == 0 {
		return AlwaysMatch()
	}
	return andMatcher{ms: ms}
}

func (a andMatcher) Match(c Credential) bool {
	for _, m := range a.ms {
		if !m.Match(c) {
			return false
		}
	}
	return true
}

func (a andMatcher) Describe() (string, bool) {
	return describeAll(a.ms, "&&")
}

var _ Describable = andMatcher{}

type orMatcher struct{ ms []Matcher }

// Or with an empty list is neverMatch (§4.4).
func Or(ms ...Matcher) Matcher {
	if len(ms) == 0 {
		return NeverMatch()
	}
	return orMatcher{ms: ms}
}

func (o orMatcher) Match(c Credential) bool {
	for _, m := range o.ms {
		if m.Match(c) {
			return true
		}
	}
	return false
}

func (o orMatcher) Describe() (string, bool) {
	return describeAll(o.ms, "||")
}

var _ Describable = orMatcher{}

type notMatcher struct{ m Matcher }

func Not(m Matcher) Matcher {
	return notMatcher{m: m}
}

func (n notMatcher) Match(c Credential) bool {
	return !n.m.Match(c)
}

func (n notMatcher) Describe() (string, bool) {
	d, ok := DescribeMatcher(n.m)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("!(%s)", d), true
}

var _ Describable = notMatcher{}

// DescribeMatcher returns a matcher's describable form, if it (and, for a
// composite, every one of its children) has one.
func DescribeMatcher(m Matcher) (string, bool) {
	d, ok := m.(Describable)
	if !ok {
		return "", false
	}
	return d.Describe()
}

func describeAll(ms []Matcher, op string) (string, bool) {
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		d, ok := DescribeMatcher(m)
		if !ok {
			return "", false
		}
		parts = append(parts, d)
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " " + op + " "
		}
		out += p
	}
	return out, true
}
