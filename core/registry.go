package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// PolicyMode selects allow-list or deny-list semantics for a filter.
type PolicyMode string

const (
	PolicyModeAllow PolicyMode = "allow"
	PolicyModeDeny  PolicyMode = "deny"
)

// ProviderFilterPolicy gates which providers are admitted by id, persisted
// as an immutable allow-list or deny-list snapshot (§4.6, §5 "immutable
// snapshot read lock-free; updates publish a new snapshot").
type ProviderFilterPolicy struct {
	Mode PolicyMode
	IDs  map[string]struct{}
}

func NewProviderFilterPolicy(mode PolicyMode, ids ...string) ProviderFilterPolicy {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return ProviderFilterPolicy{Mode: mode, IDs: set}
}

// Admits reports whether providerID passes the filter. A zero-value policy
// (no mode set) admits everything.
func (p ProviderFilterPolicy) Admits(providerID string) bool {
	if p.Mode == "" {
		return true
	}
	_, listed := p.IDs[providerID]
	switch p.Mode {
	case PolicyModeDeny:
		return !listed
	case PolicyModeAllow:
		return listed
	default:
		return true
	}
}

// CredentialTypeRestriction is a per-provider allow-list/deny-list of
// credential type tags (§4.6).
type CredentialTypeRestriction struct {
	AllowTypes map[CredentialType]struct{}
	DenyTypes  map[CredentialType]struct{}
}

// Admits implements §4.6's three-clause composition for a single provider:
// a type is admitted iff it is not denied, and, when an allow-list exists,
// the type appears in it.
func (r CredentialTypeRestriction) Admits(t CredentialType) bool {
	if _, denied := r.DenyTypes[t]; denied {
		return false
	}
	if len(r.AllowTypes) == 0 {
		return true
	}
	_, allowed := r.AllowTypes[t]
	return allowed
}

// ProviderRegistry is a sync.RWMutex-guarded map with a sorted List(),
// extended with the provider filter policy, per-provider type
// restrictions, and the legacy-resolver registry.
type ProviderRegistry struct {
	mu            sync.RWMutex
	providers     map[string]Provider
	restrictions  map[string]CredentialTypeRestriction
	legacy        map[CredentialType]LegacyResolver
	filterPolicy  atomic.Pointer[ProviderFilterPolicy]
}

func NewProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{
		providers:    make(map[string]Provider),
		restrictions: make(map[string]CredentialTypeRestriction),
		legacy:       make(map[CredentialType]LegacyResolver),
	}
	defaultPolicy := ProviderFilterPolicy{}
	r.filterPolicy.Store(&defaultPolicy)
	return r
}

func (r *ProviderRegistry) Register(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("%w: provider is nil", ErrInvalidArgument)
	}
	id := strings.TrimSpace(provider.ID())
	if id == "" {
		return fmt.Errorf("%w: provider id is required", ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("%w: provider already registered: %s", ErrConflict, id)
	}
	r.providers[id] = provider
	return nil
}

func (r *ProviderRegistry) Get(providerID string) (Provider, bool) {
	id := strings.TrimSpace(providerID)
	if id == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[id]
	return provider, ok
}

// Providers returns every registered provider sorted by id, exactly as List
// does. Neither applies the filter policy; callers check FilterPolicy
// themselves.
func (r *ProviderRegistry) Providers() []Provider {
	return r.List()
}

func (r *ProviderRegistry) List() []Provider {
	r.mu.RLock()
	keys := make([]string, 0, len(r.providers))
	for id := range r.providers {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	providers := make([]Provider, 0, len(keys))
	for _, id := range keys {
		providers = append(providers, r.providers[id])
	}
	r.mu.RUnlock()
	return providers
}

// SetFilterPolicy publishes a new immutable filter policy snapshot.
func (r *ProviderRegistry) SetFilterPolicy(policy ProviderFilterPolicy) {
	r.filterPolicy.Store(&policy)
}

func (r *ProviderRegistry) FilterPolicy() ProviderFilterPolicy {
	p := r.filterPolicy.Load()
	if p == nil {
		return ProviderFilterPolicy{}
	}
	return *p
}

// SetTypeRestriction publishes the credential-type restriction for a
// single provider id.
func (r *ProviderRegistry) SetTypeRestriction(providerID string, restriction CredentialTypeRestriction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restrictions[providerID] = restriction
}

func (r *ProviderRegistry) TypeRestriction(providerID string) CredentialTypeRestriction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.restrictions[providerID]
}

func (r *ProviderRegistry) RegisterLegacyResolver(resolver LegacyResolver) {
	if resolver == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.legacy[resolver.ToType()] = resolver
}

func (r *ProviderRegistry) LegacyResolverFor(t CredentialType) (LegacyResolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resolver, ok := r.legacy[t]
	return resolver, ok
}

// Admitted reports whether credential type t may be served by providerID
// under this registry's filter policy and that provider's type
// restriction, per §4.6's three-clause rule.
func (r *ProviderRegistry) Admitted(providerID string, t CredentialType) bool {
	if !r.FilterPolicy().Admits(providerID) {
		return false
	}
	return r.TypeRestriction(providerID).Admits(t)
}

var _ Registry = (*ProviderRegistry)(nil)
