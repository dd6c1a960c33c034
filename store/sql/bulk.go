package sqlstore

import (
	"context"
	"sync"

	"github.com/goliatone/go-credentials-store/core"
)

// BulkChange opens a bulk-change scope (§5): Save calls issued while the
// scope (or any scope nested inside it) is open are parked rather than
// written immediately. The outermost Close triggers exactly one flush,
// either synchronous or via the configured JobEnqueuer.
func (s *Store) BulkChange(ctx context.Context) (core.BulkChangeScope, error) {
	s.bulkMu.Lock()
	s.bulkDepth++
	s.bulkMu.Unlock()
	return &bulkChangeScope{store: s}, nil
}

type bulkChangeScope struct {
	store  *Store
	mu     sync.Mutex
	closed bool
}

func (sc *bulkChangeScope) Close(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return nil
	}
	sc.closed = true

	s := sc.store
	s.bulkMu.Lock()
	s.bulkDepth--
	outer := s.bulkDepth == 0
	s.bulkMu.Unlock()
	if !outer {
		return nil
	}

	s.mu.RLock()
	dirty := s.dirty
	s.mu.RUnlock()
	if !dirty {
		return nil
	}

	if s.enqueuer != nil {
		return s.enqueuer.Enqueue(ctx, &core.FlushRequest{
			StoreID:     s.storeID,
			TargetToken: s.targetToken,
		})
	}
	return s.persist(ctx)
}
