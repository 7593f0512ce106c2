package hook

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/hookflow/pkg/async"
)

// Application lifecycle shapes: onReady, onListen, preClose, onClose.
type (
	AppFunc      func(ctx context.Context) error
	AppAsyncFunc func(ctx context.Context) *async.Future[struct{}]
	AppNextFunc  func(ctx context.Context, done Done)
)

// RouteInfo describes a route as it is registered.
type RouteInfo struct {
	Method  string
	Path    string
	Prefix  string
	Scope   string
	Timeout time.Duration
}

// ScopeInfo describes a child scope as it is registered.
type ScopeInfo struct {
	Name   string
	Prefix string
	Parent string
}

// Route and register phases only accept synchronous hooks.
type (
	RouteFunc    func(route RouteInfo) error
	RegisterFunc func(scope ScopeInfo) error
)

// AppHook is a classified lifecycle hook.
type AppHook struct {
	phase  Phase
	kind   Kind
	call   func(ctx context.Context, done Done)
	logger *slog.Logger
}

// Phase returns the phase the hook was registered for.
func (h AppHook) Phase() Phase { return h.phase }

// Kind returns the calling convention of the hook.
func (h AppHook) Kind() Kind { return h.kind }

// Call invokes the hook and reports completion through done exactly once.
func (h AppHook) Call(ctx context.Context, done Done) {
	var signalled atomic.Bool
	once := func(err error) {
		if !signalled.CompareAndSwap(false, true) {
			logger := h.logger
			if logger == nil {
				logger = slog.New(slog.NewTextHandler(io.Discard, nil))
			}
			logger.Warn("lifecycle hook signalled completion more than once",
				slog.String("phase", h.phase.String()),
				slog.String("kind", h.kind.String()),
			)
			return
		}
		done(err)
	}

	defer func() {
		if p := recover(); p != nil {
			if signalled.Load() {
				panic(p)
			}
			once(NewPanicError(p))
		}
	}()

	h.call(ctx, once)
}

func newAppHook(phase Phase, fn any, logger *slog.Logger) (AppHook, error) {
	h := AppHook{phase: phase, logger: logger}

	switch f := fn.(type) {
	case AppFunc:
		h.kind, h.call = appSync(f)
	case func(context.Context) error:
		h.kind, h.call = appSync(AppFunc(f))
	case AppAsyncFunc:
		h.kind, h.call = appAsync(f)
	case func(context.Context) *async.Future[struct{}]:
		h.kind, h.call = appAsync(AppAsyncFunc(f))
	case AppNextFunc:
		h.kind, h.call = appNext(f)
	case func(context.Context, Done):
		h.kind, h.call = appNext(AppNextFunc(f))
	case func(context.Context, func(error)):
		if f != nil {
			h.kind, h.call = appNext(func(ctx context.Context, done Done) { f(ctx, done) })
		}
	}

	if h.call == nil {
		return AppHook{}, invalidHandler(phase, fn)
	}
	return h, nil
}

func appSync(f AppFunc) (Kind, func(context.Context, Done)) {
	if f == nil {
		return 0, nil
	}
	return KindSync, func(ctx context.Context, done Done) {
		done(f(ctx))
	}
}

func appAsync(f AppAsyncFunc) (Kind, func(context.Context, Done)) {
	if f == nil {
		return 0, nil
	}
	return KindAsync, func(ctx context.Context, done Done) {
		awaitEmpty(f(ctx), func(err error, _ any) { done(err) })
	}
}

func appNext(f AppNextFunc) (Kind, func(context.Context, Done)) {
	if f == nil {
		return 0, nil
	}
	return KindContinuation, func(ctx context.Context, done Done) {
		f(ctx, done)
	}
}
