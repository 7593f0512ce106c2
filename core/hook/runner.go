package hook

// Iterator invokes a single hook on behalf of a runner. It may decide not to call the
// hook at all, in which case the phase halts without reaching the completion callback.
type Iterator[C Context] func(h Hook[C], ctx C, in any, done func(err error, out any))

// RequestIterator calls the hook unless the response was already answered.
func RequestIterator[C Context](h Hook[C], ctx C, in any, done func(error, any)) {
	if ctx.Sent() {
		return
	}
	h.Call(ctx, in, done)
}

// ResponseIterator calls the hook unconditionally.
func ResponseIterator[C Context](h Hook[C], ctx C, in any, done func(error, any)) {
	h.Call(ctx, in, done)
}

// Run executes hooks in order through iterator and calls done once: with the first
// error, or with nil after the last hook. The phase stops silently when the context is
// hijacked between hooks, or when the iterator declines a hook.
func Run[C Context](hooks []Hook[C], iterator Iterator[C], ctx C, done Done) {
	sequence(hooks, iterator, ctx, true, nil, nil, func(err error, _ any) {
		done(err)
	})
}

// RunRequest runs hooks with RequestIterator.
func RunRequest[C Context](hooks []Hook[C], ctx C, done Done) {
	Run(hooks, RequestIterator[C], ctx, done)
}

// RunResponse runs hooks with ResponseIterator.
func RunResponse[C Context](hooks []Hook[C], ctx C, done Done) {
	Run(hooks, ResponseIterator[C], ctx, done)
}

// sequence is the shared runner skeleton. The value threaded between hooks starts as
// in; thread maps each hook output onto the current value and may be nil when outputs
// are ignored.
func sequence[C Context](
	hooks []Hook[C],
	iterator Iterator[C],
	ctx C,
	haltOnHijack bool,
	in any,
	thread func(out, current any) any,
	done func(err error, current any),
) {
	current := in

	var step func(i int)
	step = func(i int) {
		if haltOnHijack && ctx.Hijacked() {
			return
		}
		if i >= len(hooks) {
			done(nil, current)
			return
		}
		iterator(hooks[i], ctx, current, func(err error, out any) {
			if err != nil {
				done(err, current)
				return
			}
			if thread != nil {
				current = thread(out, current)
			}
			step(i + 1)
		})
	}

	step(0)
}
