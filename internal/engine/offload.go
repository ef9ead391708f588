package engine

import (
	"context"
	"sync"
)

// Offload runs CPU-bound segmentation/compositing work on a fixed worker
// pool while the caller waits. It is a pure performance optimization:
// when disabled (zero workers) or saturated, the work runs synchronously on
// the caller with identical results.
type Offload struct {
	tasks chan offloadTask

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

type offloadTask struct {
	fn   func()
	done chan struct{}
}

// NewOffload creates a pool with the given worker count. workers <= 0
// disables offloading entirely.
func NewOffload(workers int) *Offload {
	o := &Offload{done: make(chan struct{})}
	if workers <= 0 {
		return o
	}
	o.tasks = make(chan offloadTask)
	o.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go o.worker()
	}
	return o
}

func (o *Offload) worker() {
	defer o.wg.Done()
	for {
		select {
		case t := <-o.tasks:
			t.fn()
			close(t.done)
		case <-o.done:
			return
		}
	}
}

// Do runs fn, on a pool worker when one is free and on the caller otherwise,
// and waits for completion. Returns the context error if the caller gives up
// waiting; the submitted work still finishes on its worker.
func (o *Offload) Do(ctx context.Context, fn func()) error {
	if o.tasks == nil {
		fn()
		return nil
	}
	t := offloadTask{fn: fn, done: make(chan struct{})}
	select {
	case o.tasks <- t:
	default:
		// No worker free; run in-process rather than queue.
		fn()
		return nil
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the workers. In-flight tasks finish first.
func (o *Offload) Close() {
	o.closeOnce.Do(func() { close(o.done) })
	o.wg.Wait()
}
