package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-credentials-store/core"
)

func documentHandlers() repository.ModelHandlers[*documentRecord] {
	return repository.ModelHandlers[*documentRecord]{
		NewRecord: func() *documentRecord { return &documentRecord{} },
		GetID: func(record *documentRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			parsed, err := uuid.Parse(strings.TrimSpace(record.ID))
			if err != nil {
				return uuid.Nil
			}
			return parsed
		},
		SetID: func(record *documentRecord, id uuid.UUID) {
			if record == nil || strings.TrimSpace(record.ID) != "" {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string { return "id" },
		GetIdentifierValue: func(record *documentRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

// Store is a bun-backed core.MutableDomainsStore: one documentRecord row
// per store context (§6), hydrated in full on Open and written back
// atomically in a single transaction on Save. A sync.RWMutex guards the
// in-memory domain/credential cache the same way store/memory.Store does;
// the difference is Save is no longer a no-op.
type Store struct {
	mu sync.RWMutex

	db      *bun.DB
	repo    repository.Repository[*documentRecord]
	storeID string

	scopes      core.ValidScopes
	evaluator   core.PermissionEvaluator
	owner       core.Context
	domains     []core.Domain
	credentials map[string][]core.Credential
	version     int
	dirty       bool

	bulkMu      sync.Mutex
	bulkDepth   int
	enqueuer    core.JobEnqueuer
	targetToken string
}

// Option configures a Store at construction, mirroring store/memory's
// functional-options shape.
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

// WithDeferredFlush arranges for the outermost bulk-change scope to enqueue
// a core.FlushRequest instead of persisting synchronously, so a background
// worker (see FlushHandler) drains the write off the caller's goroutine.
// targetToken is the value a ContextResolverRegistry would hand back for
// this store's owning context, carried for the worker to invalidate the
// engine's storesOf cache once it has flushed.
func WithDeferredFlush(enqueuer core.JobEnqueuer, targetToken string) Option {
	return func(s *Store) {
		s.enqueuer = enqueuer
		s.targetToken = targetToken
	}
}

// Open hydrates a Store for storeID from db, creating an empty document
// seeded with the global domain if none exists yet. Unlike store/memory,
// loading is eager and requires a context since it is backed by I/O.
func Open(ctx context.Context, db *bun.DB, storeID string, opts ...Option) (*Store, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, fmt.Errorf("%w: store id must not be empty", core.ErrInvalidArgument)
	}
	s := &Store{
		db:          db,
		repo:        repository.NewRepository[*documentRecord](db, documentHandlers()),
		storeID:     storeID,
		scopes:      core.ValidScopes{core.ScopeSystem, core.ScopeGlobal, core.ScopeUser},
		evaluator:   core.AllowAllEvaluator(),
		credentials: map[string][]core.Credential{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	record, err := s.repo.GetByID(ctx, storeID)
	switch {
	case err == nil:
		doc, upgraded, decodeErr := parseDocument(record.Payload)
		if decodeErr != nil {
			return nil, decodeErr
		}
		if err := s.hydrate(doc); err != nil {
			return nil, err
		}
		s.version = record.Version
		s.dirty = upgraded
	case errors.Is(err, sql.ErrNoRows):
		s.domains = []core.Domain{{}}
		s.credentials[(core.Domain{}).URL()] = nil
		s.version = 0
		s.dirty = true
	default:
		return nil, fmt.Errorf("sqlstore: load store %q: %w", storeID, err)
	}
	return s, nil
}

func (s *Store) hydrate(doc document) error {
	domains := make([]core.Domain, 0, len(doc.Domains))
	credentials := make(map[string][]core.Credential, len(doc.Domains))
	for _, dd := range doc.Domains {
		d, creds, err := decodeDomain(dd)
		if err != nil {
			return err
		}
		domains = append(domains, d)
		credentials[d.URL()] = creds
	}
	if len(domains) == 0 {
		domains = []core.Domain{{}}
	}
	s.domains = domains
	s.credentials = credentials
	return nil
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
	s.dirty = true
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
			s.dirty = true
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
			s.dirty = true
			return true, nil
		}
	}
	return false, nil
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
	s.dirty = true
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
			s.dirty = true
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
			s.dirty = true
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

// Save persists the store document (§5/§6). Inside a bulk-change scope the
// write is deferred: either parked until the outermost scope closes, or
// handed to the configured JobEnqueuer for a background worker to apply.
func (s *Store) Save(ctx context.Context) error {
	s.bulkMu.Lock()
	deferred := s.bulkDepth > 0
	s.bulkMu.Unlock()
	if deferred {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return nil
	}
	return s.persist(ctx)
}

// persist writes the full document atomically in a single transaction,
// the SQL translation of the format's write-to-temp-then-rename semantics.
// It uses optimistic concurrency via the version column: a concurrent
// writer racing the same row loses with core.ErrConflict.
func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	doc := document{Domains: make([]documentDomain, 0, len(s.domains))}
	for _, d := range s.domains {
		dd, err := encodeDomain(d, s.credentials[d.URL()])
		if err != nil {
			s.mu.Unlock()
			return err
		}
		doc.Domains = append(doc.Domains, dd)
	}
	version := s.version
	s.mu.Unlock()

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sqlstore: encode store document: %w", err)
	}

	now := time.Now().UTC()
	nextVersion := version + 1

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if version == 0 {
			record := &documentRecord{
				ID:        s.storeID,
				Payload:   payload,
				Version:   nextVersion,
				CreatedAt: now,
				UpdatedAt: now,
			}
			_, err := s.repo.CreateTx(ctx, tx, record)
			return err
		}
		res, err := tx.NewUpdate().
			Model((*documentRecord)(nil)).
			Set("payload = ?", payload).
			Set("version = ?", nextVersion).
			Set("updated_at = ?", now).
			Where("id = ?", s.storeID).
			Where("version = ?", version).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: store %q changed since it was loaded", core.ErrConflict, s.storeID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.version = nextVersion
	s.dirty = false
	s.mu.Unlock()
	return nil
}
