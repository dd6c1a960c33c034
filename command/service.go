package command

import (
	"context"

	"github.com/goliatone/go-credentials-store/core"
)

// StoreMutationService is the thin orchestration layer every mutation
// command dispatches through: perform the store-level change, persist it,
// then invalidate the engine's storesOf cache for the affected context so
// the next Lookup observes it (§4.7's "InvalidateStoresOf after any store
// mutation reachable from ctx" contract).
type StoreMutationService struct {
	engine *core.Service
}

func NewStoreMutationService(engine *core.Service) *StoreMutationService {
	return &StoreMutationService{engine: engine}
}

func (s *StoreMutationService) AddCredential(ctx context.Context, target core.Context, store core.MutableStore, domain core.Domain, credential core.Credential) (bool, error) {
	added, err := store.AddCredentials(domain, credential)
	if err != nil || !added {
		return added, err
	}
	return added, s.persist(ctx, target, store)
}

func (s *StoreMutationService) RemoveCredential(ctx context.Context, target core.Context, store core.MutableStore, domain core.Domain, credential core.Credential) (bool, error) {
	removed, err := store.RemoveCredentials(domain, credential)
	if err != nil || !removed {
		return removed, err
	}
	return removed, s.persist(ctx, target, store)
}

func (s *StoreMutationService) UpdateCredential(ctx context.Context, target core.Context, store core.MutableStore, domain core.Domain, current, replacement core.Credential) (bool, error) {
	updated, err := store.UpdateCredentials(domain, current, replacement)
	if err != nil || !updated {
		return updated, err
	}
	return updated, s.persist(ctx, target, store)
}

func (s *StoreMutationService) AddDomain(ctx context.Context, target core.Context, store core.MutableDomainsStore, domain core.Domain, seed []core.Credential) (bool, error) {
	added, err := store.AddDomain(domain, seed)
	if err != nil || !added {
		return added, err
	}
	return added, s.persist(ctx, target, store)
}

func (s *StoreMutationService) RemoveDomain(ctx context.Context, target core.Context, store core.MutableDomainsStore, domain core.Domain) (bool, error) {
	removed, err := store.RemoveDomain(domain)
	if err != nil || !removed {
		return removed, err
	}
	return removed, s.persist(ctx, target, store)
}

func (s *StoreMutationService) UpdateDomain(ctx context.Context, target core.Context, store core.MutableDomainsStore, current, replacement core.Domain) (bool, error) {
	updated, err := store.UpdateDomain(current, replacement)
	if err != nil || !updated {
		return updated, err
	}
	return updated, s.persist(ctx, target, store)
}

func (s *StoreMutationService) persist(ctx context.Context, target core.Context, store core.MutableStore) error {
	if err := store.Save(ctx); err != nil {
		return err
	}
	if s.engine != nil {
		_ = s.engine.InvalidateStoresOf(ctx, target)
	}
	return nil
}

func (s *StoreMutationService) Lookup(ctx context.Context, q LookupQuery) ([]core.Credential, error) {
	return s.engine.Lookup(ctx, q.TypeTag, q.Target, q.Principal, q.Requirements, q.Matcher)
}
