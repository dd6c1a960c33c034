package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

var (
	ErrProviderNotFound = errors.New("core: provider not found")
)

// SystemPrincipal is the distinguished principal identifier used for the
// re-query in §4.7 step 3. It is a
// principal identity, distinct from ScopeSystem which governs credential
// visibility.
const SystemPrincipal = "SYSTEM"

// Service is the Resolution Engine plus the service-wide dependencies every
// component in this module shares: logging, metrics, the cipher provider,
// the provider registry, the permission evaluator, and the singleton root
// store. Constructed once per process via NewService using a
// functional-options shape.
type Service struct {
	config              Config
	logger              Logger
	loggerProvider      LoggerProvider
	metricsRecorder     MetricsRecorder
	errorFactory        ErrorFactory
	errorMapper         ErrorMapper
	secretProvider      SecretProvider
	registry            Registry
	permissionEvaluator PermissionEvaluator
	rootStore           MutableDomainsStore
	contextResolver     *ContextResolverRegistry
	ledger              FingerprintTracker
	storesCache         repositorycache.CacheService
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewProviderRegistry()
	}
	if builder.permissionEvaluator == nil {
		builder.permissionEvaluator = AllowAllEvaluator()
	}
	if builder.contextResolver == nil {
		builder.contextResolver = NewContextResolverRegistry()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, builder.errorMapper(err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, builder.errorMapper(err)
	}

	return &Service{
		config:              finalConfig,
		logger:              builder.logger,
		loggerProvider:      builder.loggerProvider,
		metricsRecorder:     builder.metricsRecorder,
		errorFactory:        builder.errorFactory,
		errorMapper:         builder.errorMapper,
		secretProvider:      builder.secretProvider,
		registry:            builder.registry,
		permissionEvaluator: builder.permissionEvaluator,
		rootStore:           builder.rootStore,
		contextResolver:     builder.contextResolver,
		ledger:              builder.ledger,
	}, nil
}

func (s *Service) Config() Config                 { return s.config }
func (s *Service) Registry() Registry             { return s.registry }
func (s *Service) SecretProvider() SecretProvider { return s.secretProvider }

// Track records a credential use against the configured fingerprint ledger
// (§4.9). A no-op when no FingerprintTracker was supplied via
// WithFingerprintTracker.
func (s *Service) Track(ctx context.Context, subject TrackSubject, credential Credential) error {
	if s.ledger == nil {
		return nil
	}
	return s.ledger.Track(ctx, subject, credential)
}

// WithStoresCache attaches a go-repository-cache backend keyed by context
// token (component H). Not set by default. storesOf does not read from it;
// its only user is InvalidateStoresOf, which deletes a context's entry.
func (s *Service) WithStoresCache(cache repositorycache.CacheService) {
	s.storesCache = cache
}

// InvalidateStoresOf deletes the cache entry kept under ctx's token, and is a
// no-op when no cache is attached. Hosts call
// this after any store mutation reachable from ctx, since the engine has no
// other way to learn that a provider's answer for ctx has changed.
func (s *Service) InvalidateStoresOf(ctx context.Context, target Context) error {
	if s.storesCache == nil {
		return nil
	}
	key, err := s.contextResolver.Token(target)
	if err != nil {
		key = target.String()
	}
	return s.storesCache.Delete(ctx, "credentials::stores_of::"+key)
}

// Lookup implements §4.7's five-step resolution algorithm.
func (s *Service) Lookup(ctx context.Context, typeTag CredentialType, target Context, principal string, requirements []Requirement, matcher Matcher) ([]Credential, error) {
	startedAt := time.Now()
	target = NullIfRoot(target)

	results, err := s.lookupProjected(ctx, typeTag, target, principal, requirements, matcher)
	s.observeOperation(ctx, startedAt, "lookup", err, map[string]any{
		"credential_type": string(typeTag),
		"context":         target.String(),
		"principal":       principal,
	})
	return results, err
}

// lookupProjected handles step 1 (legacy resolver projection) before
// falling through to the provider-enumeration steps 2-4.
func (s *Service) lookupProjected(ctx context.Context, typeTag CredentialType, target Context, principal string, requirements []Requirement, matcher Matcher) ([]Credential, error) {
	if resolver, ok := s.registry.LegacyResolverFor(typeTag); ok {
		sourceResults, err := s.lookupProjected(ctx, resolver.FromType(), target, principal, requirements, matcher)
		if err != nil {
			return nil, err
		}
		projected := make([]Credential, 0, len(sourceResults))
		for _, c := range sourceResults {
			p, err := resolver.Project(c)
			if err != nil {
				return nil, err
			}
			projected = append(projected, p)
		}
		return projected, nil
	}
	return s.lookupDirect(ctx, typeTag, target, principal, requirements, matcher)
}

func (s *Service) lookupDirect(ctx context.Context, typeTag CredentialType, target Context, principal string, requirements []Requirement, matcher Matcher) ([]Credential, error) {
	results := make([]Credential, 0)
	observed := make(map[string]struct{})

	stores, err := s.storesOf(ctx, target, principal)
	if err != nil {
		return nil, err
	}

	for _, entry := range stores {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w", ErrCancelled)
		}

		if !s.registry.TypeRestriction(entry.providerID).Admits(typeTag) {
			continue
		}

		candidates, err := s.queryStore(ctx, entry.store, typeTag, entry.ctx, target, principal, requirements)
		if err != nil {
			if errors.Is(err, ErrOptionalDepMissing) {
				s.logWarn(ctx, "provider skipped", map[string]any{"provider_id": entry.providerID, "error": err.Error()})
				continue
			}
			if errors.Is(err, ErrCancelled) || errors.Is(err, ErrIO) {
				return nil, err
			}
			s.logWarn(ctx, "provider lookup failed", map[string]any{"provider_id": entry.providerID, "error": err.Error()})
			continue
		}

		if principal != SystemPrincipal &&
			(entry.store.HasPermission(principal, PermissionUseItem) || entry.store.HasPermission(principal, PermissionUseOwn)) {
			extra, err := s.queryStore(ctx, entry.store, typeTag, entry.ctx, target, SystemPrincipal, requirements)
			if err == nil {
				candidates = append(candidates, extra...)
			}
		}

		for _, c := range candidates {
			if c.ID == "" {
				continue
			}
			if _, dup := observed[c.ID]; dup {
				continue
			}
			observed[c.ID] = struct{}{}
			results = append(results, c)
		}
	}

	if matcher != nil {
		filtered := make([]Credential, 0, len(results))
		for _, c := range results {
			if matcher.Match(c) {
				filtered = append(filtered, c)
			}
		}
		results = filtered
	}

	return results, nil
}

// queryStore returns the storeCtx store's credentials of typeTag matching
// requirements and visible to principal viewing from viewerCtx. storeCtx is
// the ancestor context currently being visited by storesOf; viewerCtx is
// always the original lookup target, since scope visibility is judged from
// the requester's point of view, not the ancestor's.
func (s *Service) queryStore(ctx context.Context, store MutableStore, typeTag CredentialType, storeCtx, viewerCtx Context, principal string, requirements []Requirement) ([]Credential, error) {
	if !store.HasPermission(principal, PermissionView) {
		return nil, nil
	}
	var out []Credential
	for _, d := range store.Domains() {
		if !d.Matches(requirements) {
			continue
		}
		for _, c := range store.Credentials(d) {
			if c.TypeTag != typeTag {
				continue
			}
			if !c.Scope.Visible(storeCtx, viewerCtx, principal) {
				continue
			}
			out = append(out, c)
		}
	}
	return out, nil
}

type storeEntry struct {
	providerID string
	ctx        Context
	store      MutableStore
}

// storesOf walks the ancestry starting at target: every enabled provider's
// store for target, then target's parent, and so on to the root. A user
// context only continues past itself when principal is the user it
// represents and that principal holds UseItem at the root (§4.7,
// resolving the DESIGN NOTES "Open question" by rejecting any other
// user's personal store as unreachable).
func (s *Service) storesOf(ctx context.Context, target Context, principal string) ([]storeEntry, error) {
	var entries []storeEntry
	cur := target
	first := true

	for {
		if cur.Kind == ContextKindUser && !first {
			return nil, fmt.Errorf("%w", ErrUserStoreUnreachable)
		}

		policy := s.registry.FilterPolicy()
		for _, provider := range s.registry.Providers() {
			if !policy.Admits(provider.ID()) {
				continue
			}
			store, ok, err := provider.StoreFor(ctx, cur)
			if err != nil {
				if errors.Is(err, ErrOptionalDepMissing) {
					s.logWarn(ctx, "provider skipped", map[string]any{"provider_id": provider.ID(), "error": err.Error()})
					continue
				}
				return nil, err
			}
			if !ok {
				continue
			}
			entries = append(entries, storeEntry{providerID: provider.ID(), ctx: cur, store: store})
		}

		if cur.Kind == ContextKindRoot {
			break
		}

		if cur.Kind == ContextKindUser {
			// A user context only continues to the root, and only when the
			// lookup's own principal owns it and holds UseItem there.
			root := Context{Kind: ContextKindRoot}
			if s.permissionEvaluator != nil && cur.ID == principal && s.permissionEvaluator.HasPermission(root, cur.ID, PermissionUseItem) {
				cur = root
				first = false
				continue
			}
			break
		}

		parent, ok := cur.parentForTraversal()
		if !ok {
			break
		}
		cur = parent
		first = false
	}

	return entries, nil
}

func (s *Service) logWarn(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "warn", message, fields)
}
