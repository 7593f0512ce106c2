package hook

import "io"

// RunAbort notifies every onRequestAbort hook. Answered and hijacked state are ignored.
func RunAbort[C Context](hooks []Hook[C], ctx C, done Done) {
	sequence(hooks, ResponseIterator[C], ctx, false, nil, nil, func(err error, _ any) {
		done(err)
	})
}

// RunPayload runs preParsing hooks. A hook that returns a non-nil reader replaces the
// context payload before the next hook runs; done receives the final payload.
func RunPayload[C PayloadContext](hooks []Hook[C], ctx C, payload io.Reader, done PayloadDone) {
	sequence(hooks, RequestIterator[C], ctx, true, readerValue(payload),
		func(out, current any) any {
			if r, ok := out.(io.Reader); ok && r != nil {
				ctx.SetPayload(r)
				return r
			}
			return current
		},
		func(err error, current any) {
			done(err, asReader(current))
		},
	)
}

// RunSend runs preSerialization or onSend hooks. A non-nil hook result replaces the
// outgoing body; done receives the final body.
func RunSend[C Context](hooks []Hook[C], ctx C, body any, done SendDone) {
	sequence(hooks, ResponseIterator[C], ctx, false, body,
		func(out, current any) any {
			if out != nil {
				return out
			}
			return current
		},
		func(err error, current any) {
			done(err, current)
		},
	)
}

// RunError runs onError hooks with cause as their input. Hook results are ignored;
// a failing hook stops the remaining ones and its error is passed to done.
func RunError[C Context](hooks []Hook[C], ctx C, cause error, done Done) {
	sequence(hooks, ResponseIterator[C], ctx, false, cause, nil, func(err error, _ any) {
		done(err)
	})
}
