package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-credentials-store/core"
)

// StoreRegistry tracks the Store instances a process has open, keyed by
// store id, so a FlushHandler can find the target of a dequeued
// core.FlushRequest.
type StoreRegistry struct {
	mu     sync.RWMutex
	stores map[string]*Store
}

func NewStoreRegistry() *StoreRegistry {
	return &StoreRegistry{stores: make(map[string]*Store)}
}

func (r *StoreRegistry) Register(s *Store) {
	if r == nil || s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.storeID] = s
}

func (r *StoreRegistry) Get(storeID string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[strings.TrimSpace(storeID)]
	return s, ok
}

// FlushHandler is the background worker's unit of work (§5's bulk-change
// flush worker): given a dequeued core.FlushRequest, it looks up the
// store by id, persists it, and invalidates the engine's storesOf cache
// for the context the request's target token resolves to.
type FlushHandler struct {
	stores    *StoreRegistry
	resolvers *core.ContextResolverRegistry
	engine    *core.Service
}

func NewFlushHandler(stores *StoreRegistry, resolvers *core.ContextResolverRegistry, engine *core.Service) *FlushHandler {
	return &FlushHandler{stores: stores, resolvers: resolvers, engine: engine}
}

func (h *FlushHandler) Handle(ctx context.Context, req *core.FlushRequest) error {
	if h == nil || h.stores == nil {
		return fmt.Errorf("sqlstore: flush handler is not configured")
	}
	if req == nil {
		return fmt.Errorf("sqlstore: flush request is required")
	}
	store, ok := h.stores.Get(req.StoreID)
	if !ok {
		return fmt.Errorf("%w: no open store %q to flush", core.ErrNotFound, req.StoreID)
	}
	if err := store.persist(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(req.TargetToken) == "" || h.resolvers == nil || h.engine == nil {
		return nil
	}
	target, err := h.resolvers.FromToken(req.TargetToken)
	if err != nil {
		return err
	}
	return h.engine.InvalidateStoresOf(ctx, target)
}

var _ core.JobWorkerHook = (*noopFlushHook)(nil)

// noopFlushHook exists only to document the expected wiring: a host drives
// FlushHandler.Handle from a core.JobDequeuer loop and may attach a
// core.JobWorkerHook (e.g. gojob.WorkerHookAdapter) for observability.
type noopFlushHook struct{}

func (noopFlushHook) OnStart(context.Context, core.JobWorkerEvent)   {}
func (noopFlushHook) OnSuccess(context.Context, core.JobWorkerEvent) {}
func (noopFlushHook) OnFailure(context.Context, core.JobWorkerEvent) {}
func (noopFlushHook) OnRetry(context.Context, core.JobWorkerEvent)   {}
