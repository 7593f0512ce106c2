package hookflow

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/core/logger"
)

// Context is the per-request execution context passed by pointer through every hook
// runner. It implements context.Context by delegating to the request context.
type Context struct {
	Request *Request
	Reply   *Reply

	route  *route
	logger *slog.Logger
	start  time.Time

	// error handler cursor
	errMu       sync.Mutex
	errStarted  bool
	errNext     *ErrorHandlerNode
	rawFallback atomic.Bool

	finished   chan struct{}
	finishOnce sync.Once

	tasks taskQueue
}

func newContext(rt *route, w http.ResponseWriter, r *http.Request) *Context {
	ctx := &Context{
		Request:  newRequest(r),
		route:    rt,
		start:    time.Now(),
		finished: make(chan struct{}),
		tasks:    taskQueue{ready: make(chan struct{}, 1)},
	}
	ctx.logger = rt.scope.logger.With(logger.RequestID(ctx.Request.id))
	ctx.Reply = newReply(ctx, newResponseWriter(w))
	return ctx
}

// Deadline delegates to the request context.
func (c *Context) Deadline() (deadline time.Time, ok bool) {
	return c.Request.raw.Context().Deadline()
}

// Done delegates to the request context.
func (c *Context) Done() <-chan struct{} {
	return c.Request.raw.Context().Done()
}

// Err delegates to the request context.
func (c *Context) Err() error {
	return c.Request.raw.Context().Err()
}

// Value delegates to the request context.
func (c *Context) Value(key any) any {
	return c.Request.raw.Context().Value(key)
}

// SetValue stores a value in the request context.
func (c *Context) SetValue(key, value any) {
	c.Request.raw = c.Request.raw.WithContext(context.WithValue(c.Request.raw.Context(), key, value))
}

// Sent reports whether the reply was answered or hijacked.
func (c *Context) Sent() bool {
	return c.Reply.Sent()
}

// Hijacked reports whether the reply was hijacked.
func (c *Context) Hijacked() bool {
	return c.Reply.Hijacked()
}

// Payload returns the current request payload stream.
func (c *Context) Payload() io.Reader {
	return c.Request.Payload()
}

// SetPayload replaces the request payload stream.
func (c *Context) SetPayload(p io.Reader) {
	c.Request.SetPayload(p)
}

// Param returns a URL parameter captured by the route pattern.
func (c *Context) Param(key string) string {
	return c.Request.Param(key)
}

// Log returns the request-scoped logger.
func (c *Context) Log() *slog.Logger {
	return c.logger
}

// SetRequestID replaces the request identifier along with the logger attribute
// carrying it. Call it from onRequest hooks.
func (c *Context) SetRequestID(id string) {
	if id == "" {
		return
	}
	c.Request.SetID(id)
	c.logger = c.route.scope.logger.With(logger.RequestID(id))
}

// Route describes the matched route.
func (c *Context) Route() hook.RouteInfo {
	return c.route.info()
}

// Schedule queues fn to run on the goroutine serving the request once the work in
// progress returns. Reply and Context are not safe for concurrent use, so code running
// on other goroutines answers through Schedule. Work queued after the request
// completed is dropped.
func (c *Context) Schedule(fn func()) {
	if fn != nil {
		c.tasks.push(fn)
	}
}

// finish releases ServeHTTP. Safe to call more than once.
func (c *Context) finish() {
	c.finishOnce.Do(func() {
		close(c.finished)
	})
}

func (c *Context) isFinished() bool {
	select {
	case <-c.finished:
		return true
	default:
		return false
	}
}

// nextErrorHandler returns the node to run for the next handleError call and moves
// the cursor to its parent. A nil node means the chain is exhausted.
func (c *Context) nextErrorHandler() *ErrorHandlerNode {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	var node *ErrorHandlerNode
	if c.errStarted {
		node = c.errNext
	} else {
		node = c.route.errorHandler
		c.errStarted = true
	}
	if node != nil {
		c.errNext = node.parent
	}
	return node
}

// errorHandlingStarted reports whether an error handler already ran for this request.
func (c *Context) errorHandlingStarted() bool {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.errStarted
}

// taskQueue is an unbounded FIFO drained by the request goroutine. ready holds at
// most one pending wake-up.
type taskQueue struct {
	mu    sync.Mutex
	items []func()
	ready chan struct{}
}

func (q *taskQueue) push(fn func()) {
	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *taskQueue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	fn := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return fn, true
}
