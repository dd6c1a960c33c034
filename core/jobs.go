package core

import (
	"context"
	"time"
)

// FlushRequest is the message a bulk-change scope enqueues when its
// outermost Close runs (§5): flush the store named by StoreID, then
// invalidate the storesOf cache for the context named by TargetToken. The
// token round-trips through a ContextResolverRegistry rather than carrying
// a Context directly, since queue transports serialise messages and a
// Context's provider-specific identity is only meaningful once resolved.
type FlushRequest struct {
	StoreID     string
	TargetToken string
}

// JobNackOptions mirrors a queue negative-acknowledgement: retry after
// Delay, or give up and dead-letter.
type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

// JobEnqueuer submits a deferred flush for asynchronous processing.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, req *FlushRequest) error
}

// JobDelivery is a single dequeued flush request awaiting ack/nack.
type JobDelivery interface {
	Message() *FlushRequest
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

// JobDequeuer receives flush requests a worker then drains.
type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

// JobWorkerEvent reports a flush attempt's outcome to an observing hook.
type JobWorkerEvent struct {
	Message   *FlushRequest
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// JobWorkerHook observes the lifecycle of a flush worker's processing loop.
type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
