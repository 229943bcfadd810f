package fetch

import (
	"context"
	"sync"
)

// Deferred is a result that settles exactly once. Later attempts to settle it
// are ignored.
type Deferred[R any] struct {
	once  sync.Once
	done  chan struct{}
	value R
	err   error
}

func newDeferred[R any]() *Deferred[R] {
	return &Deferred[R]{done: make(chan struct{})}
}

func (d *Deferred[R]) settle(v R, err error) bool {
	settled := false
	d.once.Do(func() {
		d.value, d.err = v, err
		close(d.done)
		settled = true
	})
	return settled
}

// Done is closed once the result is available.
func (d *Deferred[R]) Done() <-chan struct{} { return d.done }

// Wait blocks until the result settles or ctx ends. Giving up on ctx does
// not stop the underlying request.
func (d *Deferred[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Callbacks adapts a resolve/reject style request into an Operation. Only
// the first of resolve or reject counts. reject(nil) becomes
// ErrOperationFailed.
func Callbacks[T any](fn func(resolve func(T), reject func(error))) Operation[T] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) (T, error) {
		d := newDeferred[T]()
		fn(
			func(v T) { d.settle(v, nil) },
			func(err error) {
				if err == nil {
					err = ErrOperationFailed
				}
				var zero T
				d.settle(zero, err)
			},
		)
		return d.Wait(ctx)
	}
}
