package hookflow

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/mailru/easyjson"

	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/core/logger"
	"github.com/dmitrymomot/hookflow/pkg/async"
)

// ErrorHandlerFunc handles an error by returning a payload to send or a new error.
// Returning (nil, nil) without sending answers with an empty body.
type ErrorHandlerFunc func(ctx *Context, err error) (any, error)

// AsyncErrorHandlerFunc handles an error through a future. A resolved value is sent
// unless the reply was already sent; a rejection is sent as a new error.
type AsyncErrorHandlerFunc func(ctx *Context, err error) *async.Future[any]

// RawErrorHandlerFunc handles an error by driving ctx.Reply itself.
type RawErrorHandlerFunc func(ctx *Context, err error)

// ErrorSerializer turns the fallback error body into a string or []byte payload.
type ErrorSerializer func(body ErrorBody, status int) (any, error)

// ErrorHandlerNode is one link of an error handler chain. Each scope points at the
// node it installed or inherited; an error sent from inside a handler moves on to
// the node's parent.
type ErrorHandlerNode struct {
	invoke func(ctx *Context, err error)
	parent *ErrorHandlerNode
}

// Parent returns the next node in the chain.
func (n *ErrorHandlerNode) Parent() *ErrorHandlerNode {
	return n.parent
}

// rootErrorHandler is the built-in handler at the end of every chain.
var rootErrorHandler = &ErrorHandlerNode{invoke: defaultErrorHandler}

// DefaultErrorHandler returns the built-in root of every error handler chain.
func DefaultErrorHandler() *ErrorHandlerNode {
	return rootErrorHandler
}

// BuildErrorHandler links fn in front of parent. A nil fn returns parent unchanged.
func BuildErrorHandler(parent *ErrorHandlerNode, fn any) (*ErrorHandlerNode, error) {
	if fn == nil {
		return parent, nil
	}

	invoke, err := classifyErrorHandler(fn)
	if err != nil {
		return nil, err
	}
	if invoke == nil {
		return parent, nil
	}
	return &ErrorHandlerNode{invoke: invoke, parent: parent}, nil
}

func classifyErrorHandler(fn any) (func(*Context, error), error) {
	switch f := fn.(type) {
	case ErrorHandlerFunc:
		return syncErrorHandler(f), nil
	case func(*Context, error) (any, error):
		return syncErrorHandler(f), nil
	case AsyncErrorHandlerFunc:
		return asyncErrorHandler(f), nil
	case func(*Context, error) *async.Future[any]:
		return asyncErrorHandler(f), nil
	case RawErrorHandlerFunc:
		return rawErrorHandler(f), nil
	case func(*Context, error):
		return rawErrorHandler(f), nil
	default:
		return nil, fmt.Errorf("%w: unsupported signature %T", ErrInvalidErrorHandler, fn)
	}
}

func syncErrorHandler(f ErrorHandlerFunc) func(*Context, error) {
	if f == nil {
		return nil
	}
	return func(ctx *Context, err error) {
		v, herr := f(ctx, err)
		switch {
		case herr != nil:
			ctx.Reply.Send(herr)
		case v != nil:
			ctx.Reply.Send(v)
		case !ctx.Sent():
			ctx.Reply.Send(nil)
		}
	}
}

func asyncErrorHandler(f AsyncErrorHandlerFunc) func(*Context, error) {
	if f == nil {
		return nil
	}
	return func(ctx *Context, err error) {
		future := f(ctx, err)
		if future == nil {
			if !ctx.Sent() {
				ctx.Reply.Send(nil)
			}
			return
		}
		future.Then(
			func(v any) {
				ctx.Schedule(func() {
					if v != nil || !ctx.Sent() {
						ctx.Reply.Send(v)
					}
				})
			},
			func(rerr error) {
				if rerr == nil {
					rerr = hook.ErrUndefined
				}
				ctx.Schedule(func() { ctx.Reply.Send(rerr) })
			},
		)
	}
}

func rawErrorHandler(f RawErrorHandlerFunc) func(*Context, error) {
	if f == nil {
		return nil
	}
	return func(ctx *Context, err error) {
		f(ctx, err)
	}
}

// handleError dispatches err to the next error handler in the chain. Once the chain
// is exhausted the fallback handler answers through onSend hooks; a failure on that
// path is answered with writeRaw, bypassing every hook.
func handleError(ctx *Context, err error) {
	reply := ctx.Reply
	reply.onErrorRunning.Store(false)

	if ctx.rawFallback.Load() {
		fallbackErrorHandler(ctx, err, reply.writeRaw)
		return
	}

	node := ctx.nextErrorHandler()
	reply.RemoveHeader(headerContentType)
	reply.RemoveHeader(headerContentLength)

	if node == nil {
		ctx.rawFallback.Store(true)
		fallbackErrorHandler(ctx, err, reply.sendFallback)
		return
	}

	defer func() {
		if p := recover(); p != nil {
			reply.Send(hook.NewPanicError(p))
		}
	}()
	node.invoke(ctx, err)
}

// defaultErrorHandler picks a status for err, logs it and sends it on to the next
// node, which in a root scope is the fallback handler. The status is the error's own
// when it is at least 400, else the status already set on the reply when that is at
// least 400, else 500. A status below 400 set before the failure is replaced.
// Headers carried by the error are copied onto the reply.
func defaultErrorHandler(ctx *Context, err error) {
	reply := ctx.Reply
	for k, v := range errorHeaders(err) {
		reply.header[http.CanonicalHeaderKey(k)] = slices.Clone(v)
	}

	switch status := errorStatus(err); {
	case status >= http.StatusBadRequest:
		reply.Code(status)
	case reply.StatusCode() >= http.StatusBadRequest:
	default:
		reply.Code(http.StatusInternalServerError)
	}

	attrs := []any{
		logger.Component("error_handler"),
		logger.Method(ctx.Request.Method()),
		logger.Path(ctx.Request.Path()),
		logger.StatusCode(reply.StatusCode()),
		logger.Error(err),
	}
	if perr, ok := err.(hook.PanicError); ok {
		attrs = append(attrs, slog.String("stack", string(perr.Stack())))
	}
	if reply.StatusCode() < http.StatusInternalServerError {
		ctx.logger.Info("request failed", attrs...)
	} else {
		ctx.logger.Error("request failed", attrs...)
	}

	reply.Send(err)
}

// fallbackErrorHandler serializes err as an ErrorBody and hands the bytes to write.
func fallbackErrorHandler(ctx *Context, err error, write func([]byte)) {
	reply := ctx.Reply

	status := reply.StatusCode()
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
		reply.Code(status)
	}
	if !reply.HasHeader(headerContentType) {
		reply.Type(mimeJSON)
	}

	payload, serr := serializeErrorBody(ctx.route.scope.root.errorSerializer, newErrorBody(err, status))
	if serr != nil {
		ctx.logger.Error("failed to serialize an error",
			logger.Component("error_handler"),
			logger.Error(serr),
		)
		status = http.StatusInternalServerError
		reply.Code(status)
		ferr := ErrFailedErrorSerialization.WithMessagef(
			"Failed to serialize an error. Error: %s. Original error: %s", serr.Error(), errorMessage(err))
		payload, _ = easyjson.Marshal(newErrorBody(ferr, status))
	}

	data, ok := payloadBytes(payload)
	if !ok {
		ierr := ErrInvalidPayloadType.WithMessagef(
			"Attempted to send payload of invalid type '%T'. Expected a string or []byte.", payload)
		data, _ = easyjson.Marshal(newErrorBody(ierr, status))
	}

	reply.Header(headerContentLength, strconv.Itoa(len(data)))
	write(data)
}

func serializeErrorBody(serializer ErrorSerializer, body ErrorBody) (payload any, err error) {
	if serializer == nil {
		return easyjson.Marshal(body)
	}

	defer func() {
		if p := recover(); p != nil {
			err = hook.NewPanicError(p)
		}
	}()
	return serializer(body, body.StatusCode)
}

func payloadBytes(payload any) ([]byte, bool) {
	switch p := payload.(type) {
	case []byte:
		return p, true
	case string:
		return []byte(p), true
	default:
		return nil, false
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
