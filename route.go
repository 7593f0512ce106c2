package hookflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/pkg/async"
)

// HandlerFunc answers a request by returning a value to send or an error.
// Returning (nil, nil) without sending answers with an empty body.
type HandlerFunc func(ctx *Context) (any, error)

// AsyncHandlerFunc answers a request through a future.
type AsyncHandlerFunc func(ctx *Context) *async.Future[any]

// RawHandlerFunc answers a request by driving ctx.Reply itself.
type RawHandlerFunc func(ctx *Context)

type routeHandler struct {
	sync   HandlerFunc
	future AsyncHandlerFunc
	raw    RawHandlerFunc
}

func newRouteHandler(fn any) (routeHandler, error) {
	var h routeHandler
	switch f := fn.(type) {
	case HandlerFunc:
		h.sync = f
	case func(*Context) (any, error):
		h.sync = f
	case AsyncHandlerFunc:
		h.future = f
	case func(*Context) *async.Future[any]:
		h.future = f
	case RawHandlerFunc:
		h.raw = f
	case func(*Context):
		h.raw = f
	}
	if h.sync == nil && h.future == nil && h.raw == nil {
		return h, fmt.Errorf("%w: unsupported signature %T", ErrInvalidHandler, fn)
	}
	return h, nil
}

type routeHook struct {
	phase hook.Phase
	fn    any
}

type routeOptions struct {
	hooks        []routeHook
	errorHandler any
	validator    func(*Context) error
	timeout      time.Duration
	bodyLimit    int64
}

// route is a registered route. Its hook registry and error handler node are fixed
// on first use: the scope hooks at that moment followed by the route's own hooks.
type route struct {
	method  string
	pattern string
	path    string
	scope   *App
	handler routeHandler
	opts    routeOptions

	freezeOnce   sync.Once
	hooks        *hook.Registry[*Context]
	errorHandler *ErrorHandlerNode
}

func newRoute(scope *App, method, pattern, path string, handler any, opts []RouteOption) (*route, error) {
	h, err := newRouteHandler(handler)
	if err != nil {
		return nil, err
	}

	rt := &route{
		method:  method,
		pattern: pattern,
		path:    path,
		scope:   scope,
		handler: h,
		opts: routeOptions{
			timeout:   scope.requestTimeout,
			bodyLimit: scope.bodyLimit,
		},
	}
	for _, opt := range opts {
		opt(&rt.opts)
	}

	// Validate route-level hooks and the error handler up front so a bad route fails
	// at registration instead of on its first request.
	check := hook.NewRegistry[*Context](scope.logger)
	for _, rh := range rt.opts.hooks {
		if !rh.phase.IsRequest() {
			return nil, fmt.Errorf("%w: %q is not a request phase", hook.ErrUnsupportedPhase, rh.phase)
		}
		if err := check.Add(rh.phase, rh.fn); err != nil {
			return nil, err
		}
	}
	if _, err := BuildErrorHandler(nil, rt.opts.errorHandler); err != nil {
		return nil, err
	}

	return rt, nil
}

func (rt *route) freeze() {
	rt.freezeOnce.Do(func() {
		reg := rt.scope.hooks.Clone()
		for _, rh := range rt.opts.hooks {
			// validated in newRoute
			_ = reg.Add(rh.phase, rh.fn)
		}
		reg.Seal()
		rt.hooks = reg

		rt.errorHandler, _ = BuildErrorHandler(rt.scope.errorHandler, rt.opts.errorHandler)
	})
}

func (rt *route) info() hook.RouteInfo {
	return hook.RouteInfo{
		Method:  rt.method,
		Path:    rt.path,
		Prefix:  rt.scope.prefix,
		Scope:   rt.scope.name,
		Timeout: rt.opts.timeout,
	}
}
