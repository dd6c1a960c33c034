// Package main implements credstore, the command-line surface over the
// credential service's provider registry and context resolvers.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-credentials-store/core"
)

// resolveStoreErrorKind names the five failure modes §6's resolve-store
// command reports, distinct from a generic wrapped error so callers (tests,
// for instance) can switch on it without string matching. The CLI itself
// exits with status 1 for every kind.
type resolveStoreErrorKind string

const (
	errMalformedID    resolveStoreErrorKind = "malformed id"
	errNoSuchProvider resolveStoreErrorKind = "no such provider"
	errNoSuchResolver resolveStoreErrorKind = "no such resolver"
	errNoSuchContext  resolveStoreErrorKind = "no such context"
	errNoStore        resolveStoreErrorKind = "no store for context"
)

type resolveStoreError struct {
	kind resolveStoreErrorKind
	id   string
}

func (e *resolveStoreError) Error() string {
	return fmt.Sprintf("resolve-store: %s: %q", e.kind, e.id)
}

// resolveStore implements the resolve-store command: split the
// "provider::resolver::token" id, look up the named provider and context
// resolver, recover the context from the token, then ask the provider for
// its store.
func resolveStore(ctx context.Context, registry *core.ProviderRegistry, resolvers *core.ContextResolverRegistry, id string) (core.MutableStore, error) {
	parts := strings.SplitN(id, "::", 3)
	if len(parts) != 3 {
		return nil, &resolveStoreError{kind: errMalformedID, id: id}
	}
	providerName, resolverName, token := parts[0], parts[1], parts[2]
	if providerName == "" || resolverName == "" || token == "" {
		return nil, &resolveStoreError{kind: errMalformedID, id: id}
	}

	provider, ok := registry.Get(providerName)
	if !ok {
		return nil, &resolveStoreError{kind: errNoSuchProvider, id: providerName}
	}

	resolver, ok := resolvers.Resolver(core.ContextKind(resolverName))
	if !ok {
		return nil, &resolveStoreError{kind: errNoSuchResolver, id: resolverName}
	}

	target, err := resolver.FromToken(token)
	if err != nil {
		return nil, &resolveStoreError{kind: errNoSuchContext, id: token}
	}

	store, found, err := provider.StoreFor(ctx, target)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &resolveStoreError{kind: errNoStore, id: target.String()}
	}
	return store, nil
}
