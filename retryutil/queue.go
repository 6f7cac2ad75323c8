package retryutil

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Queue is a bounded worker queue: at most Concurrency tasks run at once,
// and Abort rejects all queued-but-not-started tasks and cancels the ones
// in flight. It is a semaphore-bounded errgroup rather than a priority
// heap, since shard tasks carry no priority, only a concurrency cap.
type Queue struct {
	sem *semaphore.Weighted
	grp *errgroup.Group
	ctx context.Context

	mu       sync.Mutex
	aborted  bool
	cancel   context.CancelFunc
}

// NewQueue creates a worker queue bounded to concurrency simultaneous
// tasks, derived from parent.
func NewQueue(parent context.Context, concurrency int) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(parent)
	grp, gctx := errgroup.WithContext(ctx)
	return &Queue{
		sem:    semaphore.NewWeighted(int64(concurrency)),
		grp:    grp,
		ctx:    gctx,
		cancel: cancel,
	}
}

// Context returns the queue's context, canceled on Abort or on the first
// task error.
func (q *Queue) Context() context.Context {
	return q.ctx
}

// Go schedules task to run once a worker slot is free. It blocks the
// caller only long enough to acquire the slot; the task itself runs
// asynchronously. Submitting after Abort is a no-op.
func (q *Queue) Go(task func(ctx context.Context) error) {
	q.mu.Lock()
	aborted := q.aborted
	q.mu.Unlock()
	if aborted {
		return
	}
	if err := q.sem.Acquire(q.ctx, 1); err != nil {
		return
	}
	q.grp.Go(func() error {
		defer q.sem.Release(1)
		return task(q.ctx)
	})
}

// Wait blocks until every scheduled task has completed, returning the
// first error any of them reported.
func (q *Queue) Wait() error {
	return q.grp.Wait()
}

// Abort cancels the queue's context, preventing new task bodies from
// making progress and causing Wait to return once in-flight tasks observe
// the cancellation.
func (q *Queue) Abort() {
	q.mu.Lock()
	q.aborted = true
	q.mu.Unlock()
	q.cancel()
}
