package hook

import (
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/dmitrymomot/hookflow/pkg/async"
)

// Context is the per-request state every runner inspects between hooks.
type Context interface {
	// Sent reports whether the response has been answered.
	Sent() bool
	// Hijacked reports whether the caller took over the response.
	Hijacked() bool
}

// Scheduler is implemented by contexts that run all of a request's work on one
// goroutine. Hook.Call hands async and continuation completions to Schedule instead
// of resuming the chain on whichever goroutine settled the hook.
type Scheduler interface {
	Schedule(fn func())
}

// PayloadContext is a Context with a replaceable request payload stream.
type PayloadContext interface {
	Context
	Payload() io.Reader
	SetPayload(io.Reader)
}

// Completion callbacks passed to continuation-style hooks.
type (
	Done        func(err error)
	PayloadDone func(err error, payload io.Reader)
	SendDone    func(err error, body any)
)

// Request phase shapes: onRequest, preValidation, preHandler, onResponse, onTimeout, onRequestAbort.
type (
	Func[C Context]      func(ctx C) error
	AsyncFunc[C Context] func(ctx C) *async.Future[struct{}]
	NextFunc[C Context]  func(ctx C, done Done)
)

// Payload phase shapes: preParsing.
type (
	PayloadFunc[C Context]      func(ctx C, payload io.Reader) (io.Reader, error)
	PayloadAsyncFunc[C Context] func(ctx C, payload io.Reader) *async.Future[io.Reader]
	PayloadNextFunc[C Context]  func(ctx C, payload io.Reader, done PayloadDone)
)

// Send phase shapes: preSerialization, onSend.
type (
	SendFunc[C Context]      func(ctx C, body any) (any, error)
	SendAsyncFunc[C Context] func(ctx C, body any) *async.Future[any]
	SendNextFunc[C Context]  func(ctx C, body any, done SendDone)
)

// Error phase shapes: onError. Results are ignored; a failure stops the remaining hooks.
type (
	ErrorFunc[C Context]      func(ctx C, err error) error
	ErrorAsyncFunc[C Context] func(ctx C, err error) *async.Future[struct{}]
	ErrorNextFunc[C Context]  func(ctx C, err error, done Done)
)

// Kind is the calling convention of a hook, decided once at registration.
type Kind uint8

const (
	KindSync Kind = iota + 1
	KindAsync
	KindContinuation
)

func (k Kind) String() string {
	switch k {
	case KindSync:
		return "sync"
	case KindAsync:
		return "async"
	case KindContinuation:
		return "continuation"
	default:
		return "unknown"
	}
}

// next is the normalized completion signal: an error and an optional replacement value.
type next func(err error, out any)

// Hook is a classified per-request hook.
type Hook[C Context] struct {
	phase  Phase
	kind   Kind
	call   func(ctx C, in any, done next)
	logger *slog.Logger
}

// Phase returns the phase the hook was registered for.
func (h Hook[C]) Phase() Phase { return h.phase }

// Kind returns the calling convention of the hook.
func (h Hook[C]) Kind() Kind { return h.kind }

// Call invokes the hook with input in and reports completion through done exactly once.
// Duplicate completion signals are logged and dropped. When ctx is a Scheduler, done
// runs through Schedule for every hook that is not synchronous.
func (h Hook[C]) Call(ctx C, in any, done func(err error, out any)) {
	resume := done
	if s, ok := any(ctx).(Scheduler); ok && h.kind != KindSync {
		resume = func(err error, out any) {
			s.Schedule(func() { done(err, out) })
		}
	}

	var signalled atomic.Bool
	once := func(err error, out any) {
		if !signalled.CompareAndSwap(false, true) {
			h.log().Warn("hook signalled completion more than once",
				slog.String("phase", h.phase.String()),
				slog.String("kind", h.kind.String()),
			)
			return
		}
		resume(err, out)
	}

	defer func() {
		if p := recover(); p != nil {
			if signalled.Load() {
				panic(p)
			}
			once(NewPanicError(p), nil)
		}
	}()

	h.call(ctx, in, once)
}

func (h Hook[C]) log() *slog.Logger {
	if h.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h.logger
}

// newHook classifies fn for phase. Named function types and plain literals are both accepted.
func newHook[C Context](phase Phase, fn any, logger *slog.Logger) (Hook[C], error) {
	var (
		kind Kind
		call func(C, any, next)
	)

	switch phase.family() {
	case familyRequest:
		kind, call = classifyRequest[C](fn)
	case familyPayload:
		kind, call = classifyPayload[C](fn)
	case familySend:
		kind, call = classifySend[C](fn)
	case familyError:
		kind, call = classifyError[C](fn)
	}

	if call == nil {
		return Hook[C]{}, invalidHandler(phase, fn)
	}
	return Hook[C]{phase: phase, kind: kind, call: call, logger: logger}, nil
}

func classifyRequest[C Context](fn any) (Kind, func(C, any, next)) {
	switch f := fn.(type) {
	case Func[C]:
		return requestSync(f)
	case func(C) error:
		return requestSync(Func[C](f))
	case AsyncFunc[C]:
		return requestAsync(f)
	case func(C) *async.Future[struct{}]:
		return requestAsync(AsyncFunc[C](f))
	case NextFunc[C]:
		return requestNext(f)
	case func(C, Done):
		return requestNext(NextFunc[C](f))
	case func(C, func(error)):
		if f == nil {
			return 0, nil
		}
		return requestNext(func(ctx C, done Done) { f(ctx, done) })
	}
	return 0, nil
}

func requestSync[C Context](f Func[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindSync, func(ctx C, _ any, done next) {
		done(f(ctx), nil)
	}
}

func requestAsync[C Context](f AsyncFunc[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindAsync, func(ctx C, _ any, done next) {
		awaitEmpty(f(ctx), done)
	}
}

func requestNext[C Context](f NextFunc[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindContinuation, func(ctx C, _ any, done next) {
		f(ctx, func(err error) { done(err, nil) })
	}
}

func classifyPayload[C Context](fn any) (Kind, func(C, any, next)) {
	switch f := fn.(type) {
	case PayloadFunc[C]:
		return payloadSync(f)
	case func(C, io.Reader) (io.Reader, error):
		return payloadSync(PayloadFunc[C](f))
	case PayloadAsyncFunc[C]:
		return payloadAsync(f)
	case func(C, io.Reader) *async.Future[io.Reader]:
		return payloadAsync(PayloadAsyncFunc[C](f))
	case PayloadNextFunc[C]:
		return payloadNext(f)
	case func(C, io.Reader, PayloadDone):
		return payloadNext(PayloadNextFunc[C](f))
	case func(C, io.Reader, func(error, io.Reader)):
		if f == nil {
			return 0, nil
		}
		return payloadNext(func(ctx C, payload io.Reader, done PayloadDone) { f(ctx, payload, done) })
	}
	return 0, nil
}

func payloadSync[C Context](f PayloadFunc[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindSync, func(ctx C, in any, done next) {
		out, err := f(ctx, asReader(in))
		done(err, readerValue(out))
	}
}

func payloadAsync[C Context](f PayloadAsyncFunc[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindAsync, func(ctx C, in any, done next) {
		future := f(ctx, asReader(in))
		if future == nil {
			done(nil, nil)
			return
		}
		future.Then(
			func(out io.Reader) { done(nil, readerValue(out)) },
			func(err error) { done(normalize(err), nil) },
		)
	}
}

func payloadNext[C Context](f PayloadNextFunc[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindContinuation, func(ctx C, in any, done next) {
		f(ctx, asReader(in), func(err error, out io.Reader) { done(err, readerValue(out)) })
	}
}

func classifySend[C Context](fn any) (Kind, func(C, any, next)) {
	switch f := fn.(type) {
	case SendFunc[C]:
		return sendSync(f)
	case func(C, any) (any, error):
		return sendSync(SendFunc[C](f))
	case SendAsyncFunc[C]:
		return sendAsync(f)
	case func(C, any) *async.Future[any]:
		return sendAsync(SendAsyncFunc[C](f))
	case SendNextFunc[C]:
		return sendNext(f)
	case func(C, any, SendDone):
		return sendNext(SendNextFunc[C](f))
	case func(C, any, func(error, any)):
		if f == nil {
			return 0, nil
		}
		return sendNext(func(ctx C, body any, done SendDone) { f(ctx, body, done) })
	}
	return 0, nil
}

func sendSync[C Context](f SendFunc[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindSync, func(ctx C, in any, done next) {
		out, err := f(ctx, in)
		done(err, out)
	}
}

func sendAsync[C Context](f SendAsyncFunc[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindAsync, func(ctx C, in any, done next) {
		future := f(ctx, in)
		if future == nil {
			done(nil, nil)
			return
		}
		future.Then(
			func(out any) { done(nil, out) },
			func(err error) { done(normalize(err), nil) },
		)
	}
}

func sendNext[C Context](f SendNextFunc[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindContinuation, func(ctx C, in any, done next) {
		f(ctx, in, func(err error, out any) { done(err, out) })
	}
}

func classifyError[C Context](fn any) (Kind, func(C, any, next)) {
	switch f := fn.(type) {
	case ErrorFunc[C]:
		return errorSync(f)
	case func(C, error) error:
		return errorSync(ErrorFunc[C](f))
	case ErrorAsyncFunc[C]:
		return errorAsync(f)
	case func(C, error) *async.Future[struct{}]:
		return errorAsync(ErrorAsyncFunc[C](f))
	case ErrorNextFunc[C]:
		return errorNext(f)
	case func(C, error, Done):
		return errorNext(ErrorNextFunc[C](f))
	case func(C, error, func(error)):
		if f == nil {
			return 0, nil
		}
		return errorNext(func(ctx C, err error, done Done) { f(ctx, err, done) })
	}
	return 0, nil
}

func errorSync[C Context](f ErrorFunc[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindSync, func(ctx C, in any, done next) {
		done(f(ctx, asError(in)), nil)
	}
}

func errorAsync[C Context](f ErrorAsyncFunc[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindAsync, func(ctx C, in any, done next) {
		awaitEmpty(f(ctx, asError(in)), done)
	}
}

func errorNext[C Context](f ErrorNextFunc[C]) (Kind, func(C, any, next)) {
	if f == nil {
		return 0, nil
	}
	return KindContinuation, func(ctx C, in any, done next) {
		f(ctx, asError(in), func(err error) { done(err, nil) })
	}
}

// awaitEmpty completes done when future settles. A nil future counts as resolved.
func awaitEmpty(future *async.Future[struct{}], done next) {
	if future == nil {
		done(nil, nil)
		return
	}
	future.Then(
		func(struct{}) { done(nil, nil) },
		func(err error) { done(normalize(err), nil) },
	)
}

// normalize turns a reason-less rejection into ErrUndefined.
func normalize(err error) error {
	if err == nil {
		return ErrUndefined
	}
	return err
}

func asReader(v any) io.Reader {
	r, _ := v.(io.Reader)
	return r
}

func asError(v any) error {
	err, _ := v.(error)
	return err
}

// readerValue keeps a nil reader from turning into a non-nil interface value.
func readerValue(r io.Reader) any {
	if r == nil {
		return nil
	}
	return r
}
