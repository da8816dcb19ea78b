// Package workqueue tracks in-flight asynchronous operations and signals when none remain.
package workqueue

import (
	"context"
	"sync"
)

// Operation is any asynchronous unit of work whose completion can be observed.
// Done must be closed once the operation has settled, whether it succeeded or failed.
type Operation interface {
	Done() <-chan struct{}
}

// Queue is an unordered set of outstanding operations.
// onEmpty is invoked once per transition from non-empty to empty, and never
// while an operation is pending. A drain overtaken by new work before its
// callback runs is not reported; the later drain is.
type Queue struct {
	mu      sync.Mutex
	pending int
	idle    chan struct{} // closed while pending == 0
	epoch   uint64        // bumped on every empty -> non-empty transition
	onEmpty func()

	emitMu sync.Mutex // serialises onEmpty calls
}

// New creates an empty queue. onEmpty may be nil.
func New(onEmpty func()) *Queue {
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		idle:    idle,
		onEmpty: onEmpty,
	}
}

// Track registers op and returns it unchanged so callers can still await it.
// The operation is removed from the set when it settles.
func (q *Queue) Track(op Operation) Operation {
	q.mu.Lock()
	if q.pending == 0 {
		q.idle = make(chan struct{})
		q.epoch++
	}
	q.pending++
	q.mu.Unlock()

	go func() {
		<-op.Done()
		q.settle()
	}()

	return op
}

func (q *Queue) settle() {
	if epoch, drained := q.release(); drained {
		q.emit(epoch)
	}
}

// release removes one operation and reports whether the queue drained,
// with the epoch that drain belongs to
func (q *Queue) release() (uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending--
	if q.pending != 0 {
		return 0, false
	}
	close(q.idle)
	return q.epoch, true
}

// emit calls onEmpty unless work was tracked again since the drain at epoch
func (q *Queue) emit(epoch uint64) {
	if q.onEmpty == nil {
		return
	}

	q.emitMu.Lock()
	defer q.emitMu.Unlock()

	q.mu.Lock()
	stale := q.pending != 0 || q.epoch != epoch
	q.mu.Unlock()
	if stale {
		return
	}
	q.onEmpty()
}

// Len returns the number of outstanding operations
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Wait blocks until the queue is empty or ctx is done.
// Work tracked after Wait returns is not accounted for.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
