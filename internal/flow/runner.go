package flow

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wedding-gate/internal/status"
)

// FailureFunc is the side channel for background persistence failures.
type FailureFunc func(op string, err error)

// Runner issues fire-and-forget persistence calls. Callers never wait on it;
// Wait exists for shutdown and tests.
type Runner struct {
	base      context.Context
	cancel    context.CancelFunc
	timeout   time.Duration
	group     errgroup.Group
	onFailure FailureFunc

	mu     sync.Mutex
	closed bool
}

func NewRunner(timeout time.Duration, onFailure FailureFunc) *Runner {
	if onFailure == nil {
		onFailure = func(string, error) {}
	}
	base, cancel := context.WithCancel(context.Background())
	return &Runner{
		base:      base,
		cancel:    cancel,
		timeout:   timeout,
		onFailure: onFailure,
	}
}

// Go runs fn in the background with its own deadline, detached from any
// request context. A returned error is reported, never propagated. After
// Shutdown, fn is dropped and reported as status.ErrShuttingDown.
func (r *Runner) Go(op string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.onFailure(op, status.ErrShuttingDown)
		return
	}
	defer r.mu.Unlock()

	r.group.Go(func() error {
		ctx := r.base
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(r.base, r.timeout)
			defer cancel()
		}
		if err := fn(ctx); err != nil {
			r.onFailure(op, err)
		}
		return nil
	})
}

func (r *Runner) Report(op string, err error) {
	if err != nil {
		r.onFailure(op, err)
	}
}

// Wait blocks until every call issued so far has finished.
func (r *Runner) Wait() {
	_ = r.group.Wait()
}

// Shutdown waits for in-flight calls until ctx is done, then cancels them.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
