package core

import (
	"fmt"
	"strings"
)

// Scope governs which contexts may observe a credential. The zero value is
// not a valid scope; always construct one of the three named constants.
type Scope string

const (
	ScopeSystem Scope = "SYSTEM"
	ScopeGlobal Scope = "GLOBAL"
	ScopeUser   Scope = "USER"
)

// scopeRank gives Scope a total visibility ordering, SYSTEM narrowest,
// USER widest-but-principal-bound. Ordering only matters for presentation
// (e.g. sorting a scope selector); matching uses Visible directly.
var scopeRank = map[Scope]int{
	ScopeSystem: 0,
	ScopeGlobal: 1,
	ScopeUser:   2,
}

func (s Scope) Valid() bool {
	_, ok := scopeRank[s]
	return ok
}

func (s Scope) Less(other Scope) bool {
	return scopeRank[s] < scopeRank[other]
}

func ParseScope(value string) (Scope, error) {
	s := Scope(strings.ToUpper(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, value)
	}
	return s, nil
}

// Visible reports whether a credential with this scope, owned by storeCtx,
// is visible to a lookup happening in viewerCtx as principal.
//
//   - SYSTEM is visible only when viewerCtx is the root installation.
//   - GLOBAL is visible to viewerCtx and any descendant of storeCtx.
//   - USER is visible only while principal is the user that owns storeCtx.
func (s Scope) Visible(storeCtx, viewerCtx Context, principal string) bool {
	switch s {
	case ScopeSystem:
		return viewerCtx.Kind == ContextKindRoot
	case ScopeGlobal:
		return viewerCtx.IsDescendantOrSelf(storeCtx)
	case ScopeUser:
		return storeCtx.Kind == ContextKindUser && storeCtx.ID == principal
	default:
		return false
	}
}

// ValidScopes is advertised by a Store (§4.2); a singleton list makes a
// scope selector presented to a UI irrelevant.
type ValidScopes []Scope

func (v ValidScopes) Contains(s Scope) bool {
	for _, candidate := range v {
		if candidate == s {
			return true
		}
	}
	return false
}

func (v ValidScopes) Singleton() bool {
	return len(v) == 1
}
