package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// SecretProvider is the cipher service contract (§4.1). It satisfies
// secret.Encryptor and secret.Decryptor structurally, so Credential
// constructors and Store implementations can pass a SecretProvider wherever
// the secret package asks for either half.
type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	IsEncrypted(value []byte) bool
}

// MetricsRecorder observes operation outcomes; NopMetricsRecorder is the
// default when a host has no metrics backend wired.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

var _ MetricsRecorder = NopMetricsRecorder{}

// ReadOnlyStore exposes the non-mutating half of §4.5's store surface. It
// is the part of a store the resolution engine calls during a lookup;
// Provider.StoreFor hands back a MutableStore, which embeds it.
type ReadOnlyStore interface {
	Domains() []Domain
	DomainByName(name *string) (Domain, bool)
	Credentials(d Domain) []Credential
	HasPermission(principal string, perm Permission) bool
	Scopes() ValidScopes
}

// MutableStore extends ReadOnlyStore with credential CRUD and persistence.
// Implementations that cannot mutate domains (only credentials) satisfy
// this without satisfying MutableDomainsStore, replacing the source's
// reflective overriding-detection per the DESIGN NOTES "Open question".
type MutableStore interface {
	ReadOnlyStore
	AddCredentials(d Domain, c Credential) (bool, error)
	RemoveCredentials(d Domain, c Credential) (bool, error)
	UpdateCredentials(d Domain, current, replacement Credential) (bool, error)
	Save(ctx context.Context) error
}

// MutableDomainsStore additionally allows domain lifecycle management.
// Stores that declare themselves domainsImmutable (the global-only default
// store, for instance) implement MutableStore but not this interface, or
// implement it with every method returning ErrUnsupportedOp.
type MutableDomainsStore interface {
	MutableStore
	AddDomain(d Domain, seed []Credential) (bool, error)
	RemoveDomain(d Domain) (bool, error)
	UpdateDomain(current, replacement Domain) (bool, error)
}

// BulkChangeScope is a resource-acquired region suspending Save() calls on
// its target until the outermost scope exits (§5). Close is idempotent-safe
// to call via defer; the final Save happens exactly once even when scopes
// nest.
type BulkChangeScope interface {
	Close(ctx context.Context) error
}

// BulkChangeCapable is implemented by stores that support deferred
// persistence under a bulk-change scope.
type BulkChangeCapable interface {
	BulkChange(ctx context.Context) (BulkChangeScope, error)
}

// TrackSubjectKind distinguishes the three facet kinds a fingerprint
// tracking call may target (§4.9).
type TrackSubjectKind string

const (
	TrackSubjectRun  TrackSubjectKind = "run"
	TrackSubjectItem TrackSubjectKind = "item"
	TrackSubjectNode TrackSubjectKind = "node"
)

// TrackSubject identifies what a Track call is recording usage against.
type TrackSubject struct {
	Kind TrackSubjectKind
	ID   string
}

// FingerprintTracker records credential usage by content hash (§4.9). The
// fingerprint package's Ledger is the reference implementation; core keeps
// only this narrow interface so Service can invoke tracking without
// importing the fingerprint package.
type FingerprintTracker interface {
	Track(ctx context.Context, subject TrackSubject, credential Credential) error
}

// Provider answers StoreFor(context) with zero or one store for that
// context (§4.6 / component G).
type Provider interface {
	ID() string
	StoreFor(ctx context.Context, target Context) (MutableStore, bool, error)
}

// LegacyResolver projects a credential of FromType into ToType, consulted
// before provider enumeration (§4.7 step 1 / DESIGN NOTES).
type LegacyResolver interface {
	FromType() CredentialType
	ToType() CredentialType
	Project(c Credential) (Credential, error)
}

// Registry enumerates providers and exposes the policies that gate which
// (provider, credential type) combinations are admitted (§4.6).
type Registry interface {
	Providers() []Provider
	FilterPolicy() ProviderFilterPolicy
	TypeRestriction(providerID string) CredentialTypeRestriction
	RegisterLegacyResolver(r LegacyResolver)
	LegacyResolverFor(t CredentialType) (LegacyResolver, bool)
}
