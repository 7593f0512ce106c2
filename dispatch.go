package hookflow

import (
	"io"
	"net/http"
	"time"

	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/core/logger"
)

// ServeHTTP runs the request pipeline for the route and blocks until the reply is
// written, the hijacked reply is ended, or the client goes away. Every step of the
// pipeline runs on this goroutine: completions of async hooks and handlers, the
// timeout and the abort hooks arrive as tasks and run one at a time.
func (rt *route) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.freeze()

	ctx := newContext(rt, w, r)
	defer ctx.Reply.w.close()

	var expired <-chan time.Time
	if rt.opts.timeout > 0 {
		timer := time.NewTimer(rt.opts.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var (
		gone    = r.Context().Done()
		aborted chan struct{}
	)

	guard(ctx, func() { start(ctx) })

	for {
		select {
		case <-ctx.finished:
			return
		case <-aborted:
			return
		case <-ctx.tasks.ready:
			runTasks(ctx)
		case <-expired:
			expired = nil
			guard(ctx, func() { timeout(ctx) })
		case <-gone:
			gone, expired = nil, nil
			if ctx.isFinished() {
				return
			}
			aborted = make(chan struct{})
			guard(ctx, func() { abort(ctx, aborted) })
		}
	}
}

// runTasks drains the task queue until it is empty or the request completed.
func runTasks(ctx *Context) {
	for !ctx.isFinished() {
		task, ok := ctx.tasks.pop()
		if !ok {
			return
		}
		guard(ctx, task)
	}
}

// guard recovers a panic raised outside hooks and handlers and answers with it.
func guard(ctx *Context, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			perr := hook.NewPanicError(p)
			if ctx.Sent() {
				ctx.logger.Error("panic after the reply was sent",
					logger.Component("dispatch"),
					logger.Error(perr),
				)
				return
			}
			ctx.Reply.fail(perr)
		}
	}()
	fn()
}

func start(ctx *Context) {
	hooks := ctx.route.hooks
	hook.RunRequest(hooks.Request(hook.OnRequest), ctx, func(err error) {
		if err != nil {
			ctx.Reply.fail(err)
			return
		}
		hook.RunPayload(hooks.Request(hook.PreParsing), ctx, ctx.Request.Payload(), func(err error, _ io.Reader) {
			handleRequest(ctx, err)
		})
	})
}

// handleRequest decides whether the method carries a body and parses it before
// moving on to validation.
func handleRequest(ctx *Context, err error) {
	if ctx.Sent() {
		return
	}
	if err != nil {
		ctx.Reply.fail(err)
		return
	}

	r := ctx.Request.raw
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodTrace:
		preValidation(ctx)
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if r.Header.Get(headerContentType) == "" && len(r.TransferEncoding) == 0 && r.ContentLength <= 0 {
			preValidation(ctx)
			return
		}
		parse(ctx)
	case http.MethodDelete, http.MethodOptions:
		declared := len(r.TransferEncoding) > 0 || r.ContentLength > 0 || r.Header.Get(headerContentLength) != ""
		if r.Header.Get(headerContentType) != "" && declared {
			parse(ctx)
			return
		}
		preValidation(ctx)
	default:
		preValidation(ctx)
	}
}

func parse(ctx *Context) {
	if err := parseBody(ctx); err != nil {
		ctx.Reply.fail(err)
		return
	}
	preValidation(ctx)
}

func preValidation(ctx *Context) {
	hook.RunRequest(ctx.route.hooks.Request(hook.PreValidation), ctx, func(err error) {
		if ctx.Sent() {
			return
		}
		if err != nil {
			ctx.Reply.fail(err)
			return
		}
		if validate := ctx.route.opts.validator; validate != nil {
			if verr := validate(ctx); verr != nil {
				ctx.Reply.fail(validationError(verr))
				return
			}
		}
		preHandler(ctx)
	})
}

func validationError(err error) error {
	if errorStatus(err) > 0 {
		return err
	}
	return ErrValidation.WithMessage(err.Error()).WithError(err)
}

func preHandler(ctx *Context) {
	hook.RunRequest(ctx.route.hooks.Request(hook.PreHandler), ctx, func(err error) {
		if ctx.Sent() {
			return
		}
		if err != nil {
			ctx.Reply.fail(err)
			return
		}
		invoke(ctx)
	})
}

// invoke calls the route handler and wires its result into the reply.
func invoke(ctx *Context) {
	reply := ctx.Reply
	defer func() {
		if p := recover(); p != nil {
			handlerFailed(ctx, hook.NewPanicError(p))
		}
	}()

	h := ctx.route.handler
	switch {
	case h.future != nil:
		future := h.future(ctx)
		if future == nil {
			if !ctx.Sent() {
				reply.Send(nil)
			}
			return
		}
		future.Then(
			func(v any) {
				ctx.Schedule(func() {
					if v != nil || !ctx.Sent() {
						reply.Send(v)
					}
				})
			},
			func(err error) {
				if err == nil {
					err = hook.ErrUndefined
				}
				ctx.Schedule(func() { handlerFailed(ctx, err) })
			},
		)
	case h.sync != nil:
		v, err := h.sync(ctx)
		if err != nil {
			handlerFailed(ctx, err)
			return
		}
		if v != nil || !ctx.Sent() {
			reply.Send(v)
		}
	default:
		h.raw(ctx)
	}
}

func handlerFailed(ctx *Context, err error) {
	if ctx.Sent() {
		ctx.logger.Error("handler failed after the reply was sent",
			logger.Component("dispatch"),
			logger.Route(ctx.route.method, ctx.route.path),
			logger.Error(err),
		)
		return
	}
	ctx.Reply.fail(err)
}

// timeout runs onTimeout hooks and answers with 408 unless the reply went out meanwhile.
// It runs between tasks, so a handler blocking the request goroutine is never
// interrupted; the timeout answers requests waiting on asynchronous work.
func timeout(ctx *Context) {
	if ctx.Sent() {
		return
	}
	hook.RunRequest(ctx.route.hooks.Request(hook.OnTimeout), ctx, func(err error) {
		if err != nil {
			ctx.logger.Error("onTimeout hook failed",
				logger.Component("dispatch"),
				logger.Phase(hook.OnTimeout.String()),
				logger.Error(err),
			)
		}
		if !ctx.Sent() {
			ctx.Reply.fail(ErrRequestTimeout)
		}
	})
}

// abort runs onRequestAbort hooks after the client went away and closes done once
// they completed.
func abort(ctx *Context, done chan struct{}) {
	hook.RunAbort(ctx.route.hooks.Request(hook.OnRequestAbort), ctx, func(err error) {
		if err != nil {
			ctx.logger.Error("onRequestAbort hook failed",
				logger.Component("dispatch"),
				logger.Phase(hook.OnRequestAbort.String()),
				logger.Error(err),
			)
		}
		close(done)
	})
}
