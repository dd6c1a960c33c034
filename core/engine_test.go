package core

import (
	"context"
	"testing"
	"time"
)

type fakeEngineStore struct {
	domains     []Domain
	creds       map[string][]Credential // domain name ("" for default) -> credentials
	permissions map[string]map[Permission]bool
}

func newFakeEngineStore() *fakeEngineStore {
	return &fakeEngineStore{
		domains:     []Domain{{Name: nil}},
		creds:       map[string][]Credential{},
		permissions: map[string]map[Permission]bool{},
	}
}

func (s *fakeEngineStore) allow(principal string, perm Permission) {
	if s.permissions[principal] == nil {
		s.permissions[principal] = map[Permission]bool{}
	}
	s.permissions[principal][perm] = true
}

func (s *fakeEngineStore) seed(d Domain, c Credential) {
	s.creds[d.DomainName()] = append(s.creds[d.DomainName()], c)
}

func (s *fakeEngineStore) Domains() []Domain { return s.domains }

func (s *fakeEngineStore) DomainByName(name *string) (Domain, bool) {
	for _, d := range s.domains {
		if d.DomainName() == derefOrEmpty(name) {
			return d, true
		}
	}
	return Domain{}, false
}

func (s *fakeEngineStore) Credentials(d Domain) []Credential { return s.creds[d.DomainName()] }

func (s *fakeEngineStore) HasPermission(principal string, perm Permission) bool {
	if principal == SystemPrincipal {
		return true
	}
	return s.permissions[principal] != nil && s.permissions[principal][perm]
}

func (s *fakeEngineStore) Scopes() ValidScopes { return ValidScopes{ScopeSystem, ScopeGlobal, ScopeUser} }

func (s *fakeEngineStore) AddCredentials(Domain, Credential) (bool, error)              { return false, ErrUnsupportedOp }
func (s *fakeEngineStore) RemoveCredentials(Domain, Credential) (bool, error)           { return false, ErrUnsupportedOp }
func (s *fakeEngineStore) UpdateCredentials(Domain, Credential, Credential) (bool, error) {
	return false, ErrUnsupportedOp
}
func (s *fakeEngineStore) Save(context.Context) error { return nil }

func derefOrEmpty(name *string) string {
	if name == nil {
		return ""
	}
	return *name
}

type fakeEngineProvider struct {
	id     string
	stores map[string]*fakeEngineStore // keyed by target.String()
}

func (p *fakeEngineProvider) ID() string { return p.id }

func (p *fakeEngineProvider) StoreFor(_ context.Context, target Context) (MutableStore, bool, error) {
	store, ok := p.stores[target.String()]
	if !ok {
		return nil, false, nil
	}
	return store, true, nil
}

var _ Provider = (*fakeEngineProvider)(nil)

func plainTextCredential(t *testing.T, scope Scope, id string) Credential {
	t.Helper()
	c, err := NewSecretTextCredential(context.Background(), scope, id, "test secret", "value", plainEncryptor{}, time.Now())
	if err != nil {
		t.Fatalf("new secret text credential: %v", err)
	}
	return c
}

type plainEncryptor struct{}

func (plainEncryptor) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) { return plaintext, nil }
func (plainEncryptor) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}

func newEngineTestService(t *testing.T, registry Registry) *Service {
	t.Helper()
	svc, err := NewService(DefaultConfig(), WithRegistry(registry))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestService_Lookup_FindsGlobalScopedCredentialAtRoot(t *testing.T) {
	root := Context{Kind: ContextKindRoot}
	store := newFakeEngineStore()
	store.allow("alice", PermissionView)
	store.seed(Domain{}, plainTextCredential(t, ScopeGlobal, "global-1"))

	registry := NewProviderRegistry()
	_ = registry.Register(&fakeEngineProvider{id: "p1", stores: map[string]*fakeEngineStore{
		root.String(): store,
	}})

	svc := newEngineTestService(t, registry)
	results, err := svc.Lookup(context.Background(), CredentialTypeSecretText, root, "alice", nil, nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(results) != 1 || results[0].ID != "global-1" {
		t.Fatalf("expected to find the global credential, got %+v", results)
	}
}

func TestService_Lookup_DeniesViewWithoutPermission(t *testing.T) {
	root := Context{Kind: ContextKindRoot}
	store := newFakeEngineStore()
	store.seed(Domain{}, plainTextCredential(t, ScopeGlobal, "global-1"))

	registry := NewProviderRegistry()
	_ = registry.Register(&fakeEngineProvider{id: "p1", stores: map[string]*fakeEngineStore{
		root.String(): store,
	}})

	svc := newEngineTestService(t, registry)
	results, err := svc.Lookup(context.Background(), CredentialTypeSecretText, root, "bob", nil, nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results without view permission, got %+v", results)
	}
}

func TestService_Lookup_SystemScopeOnlyVisibleAtRoot(t *testing.T) {
	folder := Context{Kind: ContextKindFolder, ID: "f1", Parent: &Context{Kind: ContextKindRoot}}
	store := newFakeEngineStore()
	store.allow("alice", PermissionView)
	store.seed(Domain{}, plainTextCredential(t, ScopeSystem, "system-1"))

	registry := NewProviderRegistry()
	_ = registry.Register(&fakeEngineProvider{id: "p1", stores: map[string]*fakeEngineStore{
		folder.String(): store,
	}})

	svc := newEngineTestService(t, registry)
	results, err := svc.Lookup(context.Background(), CredentialTypeSecretText, folder, "alice", nil, nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected SYSTEM scope to be invisible outside root, got %+v", results)
	}
}

func TestService_Lookup_WalksAncestryToFindGlobalCredential(t *testing.T) {
	root := Context{Kind: ContextKindRoot}
	folder := Context{Kind: ContextKindFolder, ID: "f1", Parent: &root}

	rootStore := newFakeEngineStore()
	rootStore.allow("alice", PermissionView)
	rootStore.seed(Domain{}, plainTextCredential(t, ScopeGlobal, "root-global"))

	registry := NewProviderRegistry()
	_ = registry.Register(&fakeEngineProvider{id: "p1", stores: map[string]*fakeEngineStore{
		root.String(): rootStore,
	}})

	svc := newEngineTestService(t, registry)
	results, err := svc.Lookup(context.Background(), CredentialTypeSecretText, folder, "alice", nil, nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(results) != 1 || results[0].ID != "root-global" {
		t.Fatalf("expected ancestry walk to surface the root global credential, got %+v", results)
	}
}

func TestService_Lookup_FilterPolicyExcludesProvider(t *testing.T) {
	root := Context{Kind: ContextKindRoot}
	store := newFakeEngineStore()
	store.allow("alice", PermissionView)
	store.seed(Domain{}, plainTextCredential(t, ScopeGlobal, "global-1"))

	registry := NewProviderRegistry()
	_ = registry.Register(&fakeEngineProvider{id: "blocked", stores: map[string]*fakeEngineStore{
		root.String(): store,
	}})
	registry.SetFilterPolicy(NewProviderFilterPolicy(PolicyModeDeny, "blocked"))

	svc := newEngineTestService(t, registry)
	results, err := svc.Lookup(context.Background(), CredentialTypeSecretText, root, "alice", nil, nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected denied provider to be excluded, got %+v", results)
	}
}

func TestService_Lookup_TypeRestrictionExcludesDeniedCredentialType(t *testing.T) {
	root := Context{Kind: ContextKindRoot}
	store := newFakeEngineStore()
	store.allow("alice", PermissionView)
	store.seed(Domain{}, plainTextCredential(t, ScopeGlobal, "global-1"))

	registry := NewProviderRegistry()
	_ = registry.Register(&fakeEngineProvider{id: "restricted", stores: map[string]*fakeEngineStore{
		root.String(): store,
	}})
	registry.SetTypeRestriction("restricted", CredentialTypeRestriction{
		DenyTypes: map[CredentialType]struct{}{CredentialTypeSecretText: {}},
	})

	svc := newEngineTestService(t, registry)
	results, err := svc.Lookup(context.Background(), CredentialTypeSecretText, root, "alice", nil, nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected provider's denied credential type to be excluded, got %+v", results)
	}
}

func TestService_Lookup_TypeRestrictionAllowListPermitsListedType(t *testing.T) {
	root := Context{Kind: ContextKindRoot}
	store := newFakeEngineStore()
	store.allow("alice", PermissionView)
	store.seed(Domain{}, plainTextCredential(t, ScopeGlobal, "global-1"))

	registry := NewProviderRegistry()
	_ = registry.Register(&fakeEngineProvider{id: "restricted", stores: map[string]*fakeEngineStore{
		root.String(): store,
	}})
	registry.SetTypeRestriction("restricted", CredentialTypeRestriction{
		AllowTypes: map[CredentialType]struct{}{CredentialTypeSecretText: {}},
	})

	svc := newEngineTestService(t, registry)
	results, err := svc.Lookup(context.Background(), CredentialTypeSecretText, root, "alice", nil, nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(results) != 1 || results[0].ID != "global-1" {
		t.Fatalf("expected allow-listed credential type to be returned, got %+v", results)
	}
}

func TestService_Lookup_MatcherFiltersResults(t *testing.T) {
	root := Context{Kind: ContextKindRoot}
	store := newFakeEngineStore()
	store.allow("alice", PermissionView)
	store.seed(Domain{}, plainTextCredential(t, ScopeGlobal, "keep-me"))
	store.seed(Domain{}, plainTextCredential(t, ScopeGlobal, "drop-me"))

	registry := NewProviderRegistry()
	_ = registry.Register(&fakeEngineProvider{id: "p1", stores: map[string]*fakeEngineStore{
		root.String(): store,
	}})

	svc := newEngineTestService(t, registry)
	results, err := svc.Lookup(context.Background(), CredentialTypeSecretText, root, "alice", nil, ByID("keep-me"))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(results) != 1 || results[0].ID != "keep-me" {
		t.Fatalf("expected matcher to filter down to one credential, got %+v", results)
	}
}

func TestService_Lookup_UserScopedCredentialHiddenFromOtherPrincipal(t *testing.T) {
	userCtx := Context{Kind: ContextKindUser, ID: "bob"}
	store := newFakeEngineStore()
	store.allow("alice", PermissionView)
	store.seed(Domain{}, plainTextCredential(t, ScopeUser, "bobs-secret"))

	registry := NewProviderRegistry()
	_ = registry.Register(&fakeEngineProvider{id: "p1", stores: map[string]*fakeEngineStore{
		userCtx.String(): store,
	}})

	svc := newEngineTestService(t, registry)
	results, err := svc.Lookup(context.Background(), CredentialTypeSecretText, userCtx, "alice", nil, nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected alice to not see bob's user-scoped credential, got %+v", results)
	}
}

func TestService_Lookup_LegacyResolverProjectsCredentialType(t *testing.T) {
	root := Context{Kind: ContextKindRoot}
	store := newFakeEngineStore()
	store.allow("alice", PermissionView)
	store.seed(Domain{}, plainTextCredential(t, ScopeGlobal, "legacy-1"))

	registry := NewProviderRegistry()
	_ = registry.Register(&fakeEngineProvider{id: "p1", stores: map[string]*fakeEngineStore{
		root.String(): store,
	}})
	registry.RegisterLegacyResolver(projectingResolver{})

	svc := newEngineTestService(t, registry)
	results, err := svc.Lookup(context.Background(), CredentialTypeUsernamePassword, root, "alice", nil, nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(results) != 1 || results[0].TypeTag != CredentialTypeUsernamePassword {
		t.Fatalf("expected legacy resolver to project the secret-text credential, got %+v", results)
	}
}

type projectingResolver struct{}

func (projectingResolver) FromType() CredentialType { return CredentialTypeSecretText }
func (projectingResolver) ToType() CredentialType   { return CredentialTypeUsernamePassword }
func (projectingResolver) Project(c Credential) (Credential, error) {
	c.TypeTag = CredentialTypeUsernamePassword
	return c, nil
}

func TestService_InvalidateStoresOf_NoopWithoutCache(t *testing.T) {
	svc := newEngineTestService(t, NewProviderRegistry())
	if err := svc.InvalidateStoresOf(context.Background(), Context{Kind: ContextKindRoot}); err != nil {
		t.Fatalf("expected no-op when no stores cache is configured, got %v", err)
	}
}

func TestService_Track_NoopWithoutLedger(t *testing.T) {
	svc := newEngineTestService(t, NewProviderRegistry())
	err := svc.Track(context.Background(), TrackSubject{Kind: TrackSubjectItem, ID: "x"}, Credential{})
	if err != nil {
		t.Fatalf("expected no-op tracking without a ledger, got %v", err)
	}
}
