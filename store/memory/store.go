// Package memory provides the in-process reference implementation of
// core.MutableDomainsStore, the default store for tests and small
// single-process deployments that do not need bun-backed persistence.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-credentials-store/core"
)

// Store is a single-writer/many-reader MutableDomainsStore (§5). A
// sync.RWMutex guards the domain/credential maps the same way
// core/replay_ledger.go guards its claim map; Save is a no-op since there
// is nothing to flush beyond what's already resident in memory.
type Store struct {
	mu sync.RWMutex

	scopes      core.ValidScopes
	evaluator   core.PermissionEvaluator
	owner       core.Context
	domains     []core.Domain
	credentials map[string][]core.Credential // domain URL -> credentials
}

// Option configures a Store at construction.
type Option func(*Store)

func WithScopes(scopes core.ValidScopes) Option {
	return func(s *Store) { s.scopes = scopes }
}

func WithPermissionEvaluator(evaluator core.PermissionEvaluator) Option {
	return func(s *Store) { s.evaluator = evaluator }
}

func WithOwner(ctx core.Context) Option {
	return func(s *Store) { s.owner = ctx }
}

// New builds an empty store seeded with the global domain, matching the
// teacher's pattern of a store that always has at least one addressable
// domain to attach credentials to.
func New(opts ...Option) *Store {
	s := &Store{
		scopes:      core.ValidScopes{core.ScopeSystem, core.ScopeGlobal, core.ScopeUser},
		evaluator:   core.AllowAllEvaluator(),
		domains:     []core.Domain{{}},
		credentials: map[string][]core.Credential{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	s.credentials[(core.Domain{}).URL()] = nil
	return s
}

func (s *Store) Domains() []core.Domain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Domain, len(s.domains))
	copy(out, s.domains)
	return out
}

func (s *Store) DomainByName(name *string) (core.Domain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.domains {
		if domainNameEqual(d.Name, name) {
			return d, true
		}
	}
	return core.Domain{}, false
}

func domainNameEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Store) Credentials(d core.Domain) []core.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds := s.credentials[d.URL()]
	out := make([]core.Credential, len(creds))
	copy(out, creds)
	return out
}

func (s *Store) HasPermission(principal string, perm core.Permission) bool {
	if s.evaluator == nil {
		return false
	}
	return s.evaluator.HasPermission(s.owner, principal, perm)
}

func (s *Store) Scopes() core.ValidScopes {
	return s.scopes
}

func (s *Store) AddCredentials(d core.Domain, c core.Credential) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findDomainLocked(d); !ok {
		return false, nil
	}
	key := d.URL()
	for _, existing := range s.credentials[key] {
		if existing.ID == c.ID {
			return false, nil
		}
	}
	s.credentials[key] = append(s.credentials[key], c)
	return true, nil
}

func (s *Store) RemoveCredentials(d core.Domain, c core.Credential) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := d.URL()
	creds := s.credentials[key]
	for i, existing := range creds {
		if existing.ID == c.ID {
			s.credentials[key] = append(creds[:i], creds[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateCredentials(d core.Domain, current, replacement core.Credential) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := d.URL()
	creds := s.credentials[key]
	for i, existing := range creds {
		if existing.ID == current.ID {
			creds[i] = replacement
			return true, nil
		}
	}
	return false, nil
}

// Save is a no-op: an in-memory store has nothing to flush. It exists so
// Store satisfies core.MutableStore for callers that persist unconditionally
// after every mutation.
func (s *Store) Save(context.Context) error {
	return nil
}

func (s *Store) AddDomain(d core.Domain, seed []core.Credential) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findDomainLocked(d); ok {
		return false, nil
	}
	s.domains = append(s.domains, d)
	creds := make([]core.Credential, len(seed))
	copy(creds, seed)
	s.credentials[d.URL()] = creds
	return true, nil
}

func (s *Store) RemoveDomain(d core.Domain) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.IsDefault() {
		return false, fmt.Errorf("%w: the global domain cannot be removed", core.ErrUnsupportedOp)
	}
	for i, existing := range s.domains {
		if domainNameEqual(existing.Name, d.Name) {
			s.domains = append(s.domains[:i], s.domains[i+1:]...)
			delete(s.credentials, d.URL())
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateDomain(current, replacement core.Domain) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.domains {
		if domainNameEqual(existing.Name, current.Name) {
			creds := s.credentials[current.URL()]
			s.domains[i] = replacement
			if replacement.URL() != current.URL() {
				delete(s.credentials, current.URL())
				s.credentials[replacement.URL()] = creds
			}
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) findDomainLocked(d core.Domain) (core.Domain, bool) {
	for _, existing := range s.domains {
		if domainNameEqual(existing.Name, d.Name) {
			return existing, true
		}
	}
	return core.Domain{}, false
}

var (
	_ core.MutableDomainsStore = (*Store)(nil)
)
