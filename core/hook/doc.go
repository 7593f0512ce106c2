// Package hook implements the hook registry and the hook runners of the request lifecycle.
//
// A hook is a callback registered for a named Phase. Hooks come in three shapes that are
// classified once, when they are added to a Registry:
//
//   - Sync: returns an error (and a replacement value for payload and send phases).
//   - Async: returns an *async.Future; completion happens when the future settles.
//   - Continuation: receives a completion callback and calls it exactly once.
//
// Runners execute an ordered list of hooks against a per-request context, one at a time,
// without parking a goroutine while a hook is suspended:
//
//	hook.Run(reg.Request(hook.PreHandler), hook.RequestIterator[*Ctx], ctx, func(err error) {
//		if err != nil {
//			handleError(ctx, err)
//			return
//		}
//		invokeHandler(ctx)
//	})
//
// The request iterator stops a phase silently once ctx.Sent() reports true. RunAbort
// ignores that flag, RunPayload threads a replacement request payload and RunSend threads
// a replacement response body.
//
// # Registration errors
//
//   - ErrInvalidPhaseType: the phase name is empty
//   - ErrUnsupportedPhase: the phase name is not a known phase
//   - ErrRegistrySealed: the registry was sealed when the application became ready
//   - ErrInvalidHandler: the function is nil or its signature does not match the phase
//
// A failed Add never mutates the registry.
//
// # Completion
//
// Every invocation carries a one-shot guard: the first completion signal wins and later
// ones are logged and dropped. A panic inside a hook that has not yet signalled becomes a
// PanicError. A future rejected without an error becomes ErrUndefined.
//
// When the context implements Scheduler, completions of async and continuation hooks
// are handed to its Schedule method, so the rest of the chain runs wherever the
// context drains its work.
package hook
