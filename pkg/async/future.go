package async

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Future represents the eventual result of an asynchronous computation.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	value     T
	err       error
	rejected  bool
	callbacks []func()
}

// New returns an unsettled future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future already resolved with v.
func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v)
	return f
}

// Rejected returns a future already rejected with err.
func Rejected[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)
	return f
}

// Resolve settles the future with v. It reports false if the future was already settled.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(v, nil, false)
}

// Reject settles the future with err. A nil err is kept as is; consumers decide how to
// interpret a reason-less rejection. It reports false if the future was already settled.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(zero, err, true)
}

func (f *Future[T]) settle(v T, err error, rejected bool) bool {
	f.mu.Lock()
	if f.isDone() {
		f.mu.Unlock()
		return false
	}
	f.value, f.err, f.rejected = v, err, rejected
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
	return true
}

// Then registers callbacks invoked once the future settles. When the future is already
// settled the matching callback runs immediately on the calling goroutine, otherwise on
// the goroutine that settles it. Either callback may be nil.
func (f *Future[T]) Then(onResolve func(T), onReject func(error)) {
	run := func() {
		if f.rejected {
			if onReject != nil {
				onReject(f.err)
			}
			return
		}
		if onResolve != nil {
			onResolve(f.value)
		}
	}

	f.mu.Lock()
	if !f.isDone() {
		f.callbacks = append(f.callbacks, run)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	run()
}

// Await blocks until the future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AwaitWithTimeout waits for the future for at most timeout.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.result()
	case <-timer.C:
		var zero T
		return zero, ErrTimeout
	}
}

// IsComplete reports whether the future has settled, without blocking.
func (f *Future[T]) IsComplete() bool {
	return f.isDone()
}

// Done returns a channel closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

func (f *Future[T]) isDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future[T]) result() (T, error) {
	if f.rejected {
		var zero T
		if f.err == nil {
			return zero, ErrRejected
		}
		return zero, f.err
	}
	return f.value, nil
}

// Async runs fn in a new goroutine and returns a future of its result.
// A pre-canceled ctx rejects the future without calling fn.
// A panic in fn rejects the future.
func Async[U, T any](ctx context.Context, param U, fn func(context.Context, U) (T, error)) *Future[T] {
	f := New[T]()

	go func() {
		defer func() {
			if p := recover(); p != nil {
				f.Reject(fmt.Errorf("async: panic: %v", p))
			}
		}()

		// Early exit prevents goroutine work when context is pre-canceled
		select {
		case <-ctx.Done():
			f.Reject(ctx.Err())
			return
		default:
		}

		v, err := fn(ctx, param)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()

	return f
}

// WaitAll waits for every future and returns their values in order.
// It returns the first error in argument order.
func WaitAll[T any](ctx context.Context, futures ...*Future[T]) ([]T, error) {
	results := make([]T, len(futures))
	for i, future := range futures {
		v, err := future.Await(ctx)
		if err != nil {
			return nil, err
		}
		results[i] = v
	}
	return results, nil
}

// WaitAny returns the index and result of the first future to settle.
func WaitAny[T any](ctx context.Context, futures ...*Future[T]) (int, T, error) {
	var zero T
	if len(futures) == 0 {
		return -1, zero, ErrNoFutures
	}

	type outcome struct {
		index int
		value T
		err   error
	}
	first := make(chan outcome, len(futures))
	for i, future := range futures {
		future.Then(
			func(v T) { first <- outcome{index: i, value: v} },
			func(err error) {
				if err == nil {
					err = ErrRejected
				}
				first <- outcome{index: i, err: err}
			},
		)
	}

	select {
	case res := <-first:
		return res.index, res.value, res.err
	case <-ctx.Done():
		return -1, zero, ctx.Err()
	}
}
