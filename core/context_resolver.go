package core

import (
	"fmt"
	"strings"
	"sync"
)

// ContextResolver round-trips a Context of one kind to and from an opaque
// token, giving a CLI or external caller addressability without wrapper
// proliferation (§9 DESIGN NOTES). Token need not be reversible by a
// different resolver; FromToken only ever receives tokens this resolver
// itself produced, dispatched by the registry's kind prefix.
type ContextResolver interface {
	Kind() ContextKind
	Token(ctx Context) (string, error)
	FromToken(token string) (Context, error)
}

// ContextResolverRegistry is the tagged-variant registry of known context
// kinds (Root, Folder, Leaf, User), extensible by registration rather than
// by enumerating a closed set of wrapper types.
type ContextResolverRegistry struct {
	mu        sync.RWMutex
	resolvers map[ContextKind]ContextResolver
}

func NewContextResolverRegistry() *ContextResolverRegistry {
	return &ContextResolverRegistry{resolvers: make(map[ContextKind]ContextResolver)}
}

func (r *ContextResolverRegistry) Register(resolver ContextResolver) {
	if resolver == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[resolver.Kind()] = resolver
}

// Resolver looks up the resolver registered for kind by name, letting a
// caller (the resolve-store CLI) dispatch on an explicit resolver name
// rather than a "<kind>:"-prefixed token.
func (r *ContextResolverRegistry) Resolver(kind ContextKind) (ContextResolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resolver, ok := r.resolvers[kind]
	return resolver, ok
}

// Token renders "<kind>:<resolver-token>", dispatching to the resolver
// registered for ctx.Kind.
func (r *ContextResolverRegistry) Token(ctx Context) (string, error) {
	r.mu.RLock()
	resolver, ok := r.resolvers[ctx.Kind]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: no context resolver registered for kind %q", ErrUnsupportedOp, ctx.Kind)
	}
	inner, err := resolver.Token(ctx)
	if err != nil {
		return "", err
	}
	return string(ctx.Kind) + ":" + inner, nil
}

// FromToken reverses Token, looking up the resolver named by the token's
// "<kind>:" prefix.
func (r *ContextResolverRegistry) FromToken(token string) (Context, error) {
	kind, inner, ok := strings.Cut(token, ":")
	if !ok {
		return Context{}, fmt.Errorf("%w: malformed context token %q", ErrInvalidArgument, token)
	}
	r.mu.RLock()
	resolver, ok := r.resolvers[ContextKind(kind)]
	r.mu.RUnlock()
	if !ok {
		return Context{}, fmt.Errorf("%w: no context resolver registered for kind %q", ErrUnsupportedOp, kind)
	}
	return resolver.FromToken(inner)
}
