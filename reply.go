package hookflow

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/core/logger"
)

const (
	headerContentType   = "Content-Type"
	headerContentLength = "Content-Length"

	mimeJSON        = "application/json; charset=utf-8"
	mimeText        = "text/plain; charset=utf-8"
	mimeOctetStream = "application/octet-stream"
)

// Reply is the response side of a Context. Status and headers are buffered until the
// reply is sent. Apart from Sent and Hijacked, a Reply is not safe for concurrent use.
type Reply struct {
	ctx       *Context
	w         *responseWriter
	header    http.Header
	status    int
	hasStatus bool

	answered       atomic.Bool
	hijacked       atomic.Bool
	onErrorRunning atomic.Bool
	isError        bool
}

func newReply(ctx *Context, w *responseWriter) *Reply {
	return &Reply{
		ctx:    ctx,
		w:      w,
		header: make(http.Header),
		status: http.StatusOK,
	}
}

// Code sets the response status code.
func (r *Reply) Code(status int) *Reply {
	r.status = status
	r.hasStatus = true
	return r
}

// StatusCode returns the response status code, 200 unless set.
func (r *Reply) StatusCode() int {
	return r.status
}

// HasStatusCode reports whether Code was called.
func (r *Reply) HasStatusCode() bool {
	return r.hasStatus
}

// Header sets a response header.
func (r *Reply) Header(key, value string) *Reply {
	r.header.Set(key, value)
	return r
}

// GetHeader returns the first value of a response header.
func (r *Reply) GetHeader(key string) string {
	return r.header.Get(key)
}

// HasHeader reports whether the response header is set.
func (r *Reply) HasHeader(key string) bool {
	_, ok := r.header[http.CanonicalHeaderKey(key)]
	return ok
}

// Headers returns the pending response headers.
func (r *Reply) Headers() http.Header {
	return r.header
}

// RemoveHeader deletes a response header.
func (r *Reply) RemoveHeader(key string) *Reply {
	r.header.Del(key)
	return r
}

// Type sets the Content-Type header.
func (r *Reply) Type(contentType string) *Reply {
	return r.Header(headerContentType, contentType)
}

// Sent reports whether the reply was answered or hijacked.
func (r *Reply) Sent() bool {
	return r.answered.Load() || r.hijacked.Load()
}

// Hijack tells the framework that the caller writes the response through Raw. Hook
// runners stop, and the request ends when End is called or the client goes away.
func (r *Reply) Hijack() *Reply {
	r.hijacked.Store(true)
	return r
}

// Hijacked reports whether Hijack was called.
func (r *Reply) Hijacked() bool {
	return r.hijacked.Load()
}

// End completes a hijacked request.
func (r *Reply) End() {
	r.ctx.finish()
}

// Raw returns the underlying response writer.
func (r *Reply) Raw() http.ResponseWriter {
	return r.w
}

// ElapsedTime returns the time since the request was received.
func (r *Reply) ElapsedTime() time.Duration {
	return time.Since(r.ctx.start)
}

// Send answers the request with payload. An error payload enters the error handler
// chain. Strings, byte slices, readers and nil are written as they are; any other
// value runs preSerialization hooks and the serializer. A second Send is logged and
// ignored.
func (r *Reply) Send(payload any) {
	if r.hijacked.Load() {
		return
	}
	if r.onErrorRunning.Load() {
		r.ctx.logger.Warn("reply.Send inside an onError hook is ignored", logger.Component("reply"))
		return
	}
	if r.answered.Load() {
		r.warnAlreadySent()
		return
	}

	if err, ok := payload.(error); ok || r.isError {
		r.isError = false
		if !ok {
			err = fmt.Errorf("%v", payload)
		}
		r.sendError(err)
		return
	}

	if !r.answered.CompareAndSwap(false, true) {
		r.warnAlreadySent()
		return
	}

	switch payload.(type) {
	case nil, string, []byte, io.Reader:
		r.runOnSend(payload)
	default:
		r.serialize(payload)
	}
}

// fail sends err as an error reply, used for failures raised by the pipeline itself.
func (r *Reply) fail(err error) {
	r.isError = true
	r.Send(err)
}

// retract reopens an answered reply so a failure in the send path can be reported.
func (r *Reply) retract(err error) {
	r.answered.Store(false)
	r.sendError(err)
}

func (r *Reply) warnAlreadySent() {
	r.ctx.logger.Warn("reply was already sent",
		logger.Component("reply"),
		logger.Method(r.ctx.Request.Method()),
		logger.Path(r.ctx.Request.Path()),
	)
}

// sendError runs the onError hooks once per request and hands err to the chain.
func (r *Reply) sendError(err error) {
	hooks := r.ctx.route.hooks.Request(hook.OnError)
	if len(hooks) == 0 || r.ctx.errorHandlingStarted() {
		handleError(r.ctx, err)
		return
	}

	r.onErrorRunning.Store(true)
	hook.RunError(hooks, r.ctx, err, func(hookErr error) {
		if hookErr != nil {
			r.ctx.logger.Error("onError hook failed",
				logger.Component("reply"),
				logger.Phase(hook.OnError.String()),
				logger.Error(hookErr),
			)
		}
		handleError(r.ctx, err)
	})
}

func (r *Reply) serialize(payload any) {
	hook.RunSend(r.ctx.route.hooks.Request(hook.PreSerialization), r.ctx, payload, func(err error, body any) {
		if err != nil {
			r.retract(err)
			return
		}

		data, err := r.ctx.route.scope.serialize(body)
		if err != nil {
			r.retract(ErrSerialization.WithError(err))
			return
		}
		if !r.HasHeader(headerContentType) {
			r.Type(mimeJSON)
		}
		r.runOnSend(data)
	})
}

func (r *Reply) runOnSend(payload any) {
	hooks := r.ctx.route.hooks.Request(hook.OnSend)
	if len(hooks) == 0 {
		r.writeReply(payload)
		return
	}

	hook.RunSend(hooks, r.ctx, payload, func(err error, body any) {
		if err != nil {
			r.retract(err)
			return
		}
		r.writeReply(body)
	})
}

// sendFallback delivers the fallback error payload through onSend and the normal write.
func (r *Reply) sendFallback(payload []byte) {
	if !r.answered.CompareAndSwap(false, true) {
		r.warnAlreadySent()
		return
	}
	r.runOnSend(payload)
}

// writeReply is the normal write path: status, headers, body, then onResponse hooks.
func (r *Reply) writeReply(body any) {
	var (
		data   []byte
		stream io.Reader
	)

	switch b := body.(type) {
	case nil:
	case string:
		data = []byte(b)
		r.defaultType(mimeText)
	case []byte:
		data = b
		r.defaultType(mimeOctetStream)
	case io.Reader:
		stream = b
		r.defaultType(mimeOctetStream)
	default:
		r.retract(ErrInvalidPayloadType.WithMessagef(
			"Attempted to send payload of invalid type '%T'. Expected a string, []byte or io.Reader", body))
		return
	}

	allowed := bodyAllowed(r.status)
	switch {
	case !allowed:
		r.header.Del(headerContentLength)
	case stream == nil:
		if r.ctx.Request.Method() != http.MethodHead || !r.HasHeader(headerContentLength) {
			r.header.Set(headerContentLength, strconv.Itoa(len(data)))
		}
	}

	if !r.w.commit(r.status, r.header) {
		r.ctx.logger.Debug("response headers already written", logger.Component("reply"))
		r.complete()
		return
	}

	if allowed {
		var err error
		if stream != nil {
			_, err = io.Copy(r.w, stream)
			if c, ok := stream.(io.Closer); ok {
				_ = c.Close()
			}
		} else if len(data) > 0 {
			_, err = r.w.Write(data)
		}
		if err != nil {
			r.ctx.logger.Debug("failed to write response body",
				logger.Component("reply"),
				logger.Error(err),
			)
		}
	}
	r.w.Flush()

	r.complete()
}

// complete runs onResponse hooks and releases ServeHTTP.
func (r *Reply) complete() {
	hooks := r.ctx.route.hooks.Request(hook.OnResponse)
	if len(hooks) == 0 {
		r.ctx.finish()
		return
	}

	hook.RunResponse(hooks, r.ctx, func(err error) {
		if err != nil {
			r.ctx.logger.Error("onResponse hook failed",
				logger.Component("reply"),
				logger.Phase(hook.OnResponse.String()),
				logger.Error(err),
			)
		}
		r.ctx.finish()
	})
}

// writeRaw is the last-resort write path. It bypasses every hook and writes the
// buffered status and headers straight to the transport.
func (r *Reply) writeRaw(payload []byte) {
	r.answered.Store(true)
	if r.w.commit(r.status, r.header) {
		if _, err := r.w.Write(payload); err != nil {
			r.ctx.logger.Debug("failed to write fallback error body",
				logger.Component("reply"),
				logger.Error(err),
			)
		}
	} else {
		r.ctx.logger.Error("fallback error response dropped: headers already written",
			logger.Component("reply"),
			slog.Int("status", r.status),
		)
	}
	r.ctx.finish()
}

func (r *Reply) defaultType(contentType string) {
	if !r.HasHeader(headerContentType) {
		r.Type(contentType)
	}
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
