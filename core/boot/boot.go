package boot

import (
	"context"
	"io"
	"log/slog"

	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/core/logger"
)

// Scope is a node of the application tree.
type Scope interface {
	// ScopeName identifies the scope in logs.
	ScopeName() string
	// LifecycleHooks returns the scope's own hooks for phase.
	LifecycleHooks(phase hook.Phase) []hook.AppHook
	// ChildScopes returns the child scopes in registration order.
	ChildScopes() []Scope
}

// Run executes phase over scope and its descendants in pre-order and then calls done.
// A scope without hooks or children for the phase calls done immediately.
func Run(ctx context.Context, scope Scope, phase hook.Phase, done hook.Done) {
	hooks := scope.LifecycleHooks(phase)
	children := scope.ChildScopes()
	if len(hooks) == 0 && len(children) == 0 {
		done(nil)
		return
	}

	var child func(i int)
	child = func(i int) {
		if i >= len(children) {
			done(nil)
			return
		}
		Run(ctx, children[i], phase, func(err error) {
			if err != nil {
				done(err)
				return
			}
			child(i + 1)
		})
	}

	var own func(i int)
	own = func(i int) {
		if i >= len(hooks) {
			child(0)
			return
		}
		hooks[i].Call(ctx, func(err error) {
			if err != nil {
				done(err)
				return
			}
			own(i + 1)
		})
	}

	own(0)
}

// Exec runs phase and blocks until the traversal completes or ctx is done.
func Exec(ctx context.Context, scope Scope, phase hook.Phase) error {
	result := make(chan error, 1)
	Run(ctx, scope, phase, func(err error) {
		result <- err
	})

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Broadcast runs phase over every scope of the tree and blocks until all hooks have
// completed or ctx is done. Failures are logged and never stop the traversal.
func Broadcast(ctx context.Context, scope Scope, phase hook.Phase, log *slog.Logger) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	finished := make(chan struct{})
	broadcast(ctx, scope, phase, log, func() { close(finished) })

	select {
	case <-finished:
	case <-ctx.Done():
	}
}

func broadcast(ctx context.Context, scope Scope, phase hook.Phase, log *slog.Logger, done func()) {
	hooks := scope.LifecycleHooks(phase)
	children := scope.ChildScopes()

	var child func(i int)
	child = func(i int) {
		if i >= len(children) {
			done()
			return
		}
		broadcast(ctx, children[i], phase, log, func() { child(i + 1) })
	}

	var own func(i int)
	own = func(i int) {
		if i >= len(hooks) {
			child(0)
			return
		}
		hooks[i].Call(ctx, func(err error) {
			if err != nil {
				log.ErrorContext(ctx, "lifecycle hook failed",
					logger.Component("boot"),
					logger.Phase(phase.String()),
					logger.Scope(scope.ScopeName()),
					logger.Error(err),
				)
			}
			own(i + 1)
		})
	}

	own(0)
}
