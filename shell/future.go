package shell

import (
	"context"
	"errors"
	"sync"
)

// Future is the settlement of an asynchronous write or action. It settles
// exactly once, either resolved (nil error) or rejected.
type Future struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	err     error
	then    []func(error)
}

// NewFuture returns an unsettled future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future that already succeeded.
func Resolved() *Future {
	f := NewFuture()
	f.Resolve()
	return f
}

// Rejected returns a future that already failed with err.
func Rejected(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// Resolve settles the future successfully. Later calls are ignored.
func (f *Future) Resolve() { f.settle(nil) }

// Reject settles the future with err. Later calls are ignored.
func (f *Future) Reject(err error) {
	if err == nil {
		err = errors.New("rejected")
	}
	f.settle(err)
}

func (f *Future) settle(err error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.err = err
	then := f.then
	f.then = nil
	f.mu.Unlock()

	for _, fn := range then {
		fn(err)
	}
	close(f.done)
}

// OnSettle registers fn to run with the outcome. If the future is already
// settled fn runs immediately on the calling goroutine, otherwise it runs on
// the goroutine that settles the future.
func (f *Future) OnSettle(fn func(err error)) {
	f.mu.Lock()
	if !f.settled {
		f.then = append(f.then, fn)
		f.mu.Unlock()
		return
	}
	err := f.err
	f.mu.Unlock()
	fn(err)
}

// Forward settles dst with the outcome of f.
func (f *Future) Forward(dst *Future) {
	f.OnSettle(dst.settle)
}

// Done is closed once the future settled and its callbacks returned.
func (f *Future) Done() <-chan struct{} { return f.done }

// Settled reports whether the future has settled.
func (f *Future) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Err returns the rejection error, or nil while unsettled or resolved.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Wait blocks until the future settles or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
