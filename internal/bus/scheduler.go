package bus

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTick is the default cadence for network authorities and the
// director.
const DefaultTick = 10 * time.Millisecond

// Task is one supervised unit of work: a network authority's Run loop,
// the director's step loop, or a periodic service (GNSS, host). It
// must return promptly once ctx is cancelled.
type Task func(ctx context.Context) error

// Scheduler supervises a fixed set of tasks under one errgroup,
// cancelling every task and propagating the first fatal error as soon
// as any task returns one, matching the shutdown broadcast observed at
// every suspension point.
type Scheduler struct {
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler constructs a Scheduler whose tasks share parent.
func NewScheduler(parent context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(parent)
	group, ctx := errgroup.WithContext(ctx)
	return &Scheduler{group: group, ctx: ctx, cancel: cancel}
}

// Go adds a supervised task. Call before Wait.
func (s *Scheduler) Go(task Task) {
	s.group.Go(func() error {
		return task(s.ctx)
	})
}

// Context is cancelled the moment any supervised task returns a
// non-nil error, or Shutdown is called.
func (s *Scheduler) Context() context.Context { return s.ctx }

// Shutdown cancels every supervised task's context, triggering the
// teardown order each task observes on its own suspension points.
func (s *Scheduler) Shutdown() { s.cancel() }

// Wait blocks until every supervised task has returned, then returns
// the first non-nil error (if any).
func (s *Scheduler) Wait() error {
	err := s.group.Wait()
	s.cancel()
	return err
}
