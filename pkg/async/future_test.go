package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrymomot/hookflow/pkg/async"
)

func TestFutureResolveOnce(t *testing.T) {
	t.Parallel()

	f := async.New[int]()
	if !f.Resolve(1) {
		t.Fatal("first Resolve should settle the future")
	}
	if f.Resolve(2) {
		t.Error("second Resolve should be ignored")
	}
	if f.Reject(errors.New("late")) {
		t.Error("Reject after Resolve should be ignored")
	}

	v, err := f.Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Errorf("expected 1, got %d", v)
	}
}

func TestFutureThen(t *testing.T) {
	t.Parallel()

	t.Run("callback registered before settle", func(t *testing.T) {
		t.Parallel()

		f := async.New[string]()
		var got atomic.Value
		f.Then(func(s string) { got.Store(s) }, func(error) { t.Error("unexpected rejection") })

		if got.Load() != nil {
			t.Fatal("callback ran before settle")
		}
		f.Resolve("ok")
		if got.Load() != "ok" {
			t.Errorf("expected ok, got %v", got.Load())
		}
	})

	t.Run("callback registered after settle runs inline", func(t *testing.T) {
		t.Parallel()

		testErr := errors.New("boom")
		f := async.Rejected[int](testErr)
		var got error
		f.Then(func(int) { t.Error("unexpected resolve") }, func(err error) { got = err })
		if !errors.Is(got, testErr) {
			t.Errorf("expected %v, got %v", testErr, got)
		}
	})

	t.Run("nil callbacks are ignored", func(t *testing.T) {
		t.Parallel()

		async.Resolved(1).Then(nil, nil)
		async.Rejected[int](nil).Then(nil, nil)
	})
}

func TestFutureRejectWithoutError(t *testing.T) {
	t.Parallel()

	f := async.Rejected[int](nil)

	var called bool
	var reason error
	f.Then(nil, func(err error) {
		called = true
		reason = err
	})
	if !called {
		t.Fatal("onReject not called")
	}
	if reason != nil {
		t.Errorf("expected nil reason in callback, got %v", reason)
	}

	_, err := f.Await(context.Background())
	if !errors.Is(err, async.ErrRejected) {
		t.Errorf("expected ErrRejected from Await, got %v", err)
	}
}

func TestFutureAwaitWithTimeout(t *testing.T) {
	t.Parallel()

	f := async.New[int]()
	_, err := f.AwaitWithTimeout(10 * time.Millisecond)
	if !errors.Is(err, async.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if f.IsComplete() {
		t.Error("future should still be pending")
	}
}

func TestFutureAwaitContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := async.New[int]().Await(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAsync(t *testing.T) {
	t.Parallel()

	t.Run("successful execution", func(t *testing.T) {
		t.Parallel()

		f := async.Async(context.Background(), 21, func(_ context.Context, n int) (int, error) {
			return n * 2, nil
		})
		v, err := f.Await(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 42 {
			t.Errorf("expected 42, got %d", v)
		}
	})

	t.Run("pre-canceled context skips fn", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var called atomic.Bool
		f := async.Async(ctx, 0, func(context.Context, int) (int, error) {
			called.Store(true)
			return 0, nil
		})
		_, err := f.Await(context.Background())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if called.Load() {
			t.Error("fn should not run with a canceled context")
		}
	})

	t.Run("panic rejects future", func(t *testing.T) {
		t.Parallel()

		f := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
			panic("kaboom")
		})
		_, err := f.Await(context.Background())
		if err == nil {
			t.Fatal("expected error from panicking fn")
		}
	})
}

func TestWaitAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	values, err := async.WaitAll(ctx, async.Resolved(1), async.Resolved(2), async.Resolved(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 3 || values[0] != 1 || values[2] != 3 {
		t.Errorf("unexpected values: %v", values)
	}

	testErr := errors.New("second")
	_, err = async.WaitAll(ctx, async.Resolved(1), async.Rejected[int](testErr))
	if !errors.Is(err, testErr) {
		t.Errorf("expected %v, got %v", testErr, err)
	}
}

func TestWaitAny(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, _, err := async.WaitAny[int](ctx)
	if !errors.Is(err, async.ErrNoFutures) {
		t.Errorf("expected ErrNoFutures, got %v", err)
	}

	idx, v, err := async.WaitAny(ctx, async.New[int](), async.Resolved(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 || v != 7 {
		t.Errorf("expected (1, 7), got (%d, %d)", idx, v)
	}
}
