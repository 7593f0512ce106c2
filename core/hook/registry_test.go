package hook_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/pkg/async"
)

func TestRegistryAdd(t *testing.T) {
	t.Parallel()

	t.Run("appends in registration order", func(t *testing.T) {
		t.Parallel()

		reg := newRegistry()
		require.NoError(t, reg.Add(hook.PreHandler, tracer("a")))
		require.NoError(t, reg.Add(hook.PreHandler, tracer("b")))

		ctx := &testCtx{}
		hook.RunRequest(reg.Request(hook.PreHandler), ctx, func(err error) {
			assert.NoError(t, err)
		})
		assert.Equal(t, []string{"a", "b"}, ctx.trace)
	})

	t.Run("classifies hook shapes", func(t *testing.T) {
		t.Parallel()

		reg := newRegistry()
		require.NoError(t, reg.Add(hook.OnRequest, func(*testCtx) error { return nil }))
		require.NoError(t, reg.Add(hook.OnRequest, func(*testCtx) *async.Future[struct{}] { return nil }))
		require.NoError(t, reg.Add(hook.OnRequest, func(_ *testCtx, done hook.Done) { done(nil) }))
		require.NoError(t, reg.Add(hook.OnRequest, hook.Func[*testCtx](func(*testCtx) error { return nil })))

		hooks := reg.Request(hook.OnRequest)
		require.Len(t, hooks, 4)
		assert.Equal(t, hook.KindSync, hooks[0].Kind())
		assert.Equal(t, hook.KindAsync, hooks[1].Kind())
		assert.Equal(t, hook.KindContinuation, hooks[2].Kind())
		assert.Equal(t, hook.KindSync, hooks[3].Kind())
		assert.Equal(t, hook.OnRequest, hooks[0].Phase())
	})

	t.Run("accepts every phase family", func(t *testing.T) {
		t.Parallel()

		reg := newRegistry()
		require.NoError(t, reg.Add(hook.PreParsing, func(_ *testCtx, r io.Reader) (io.Reader, error) { return r, nil }))
		require.NoError(t, reg.Add(hook.OnSend, func(_ *testCtx, body any) (any, error) { return body, nil }))
		require.NoError(t, reg.Add(hook.OnError, func(*testCtx, error) error { return nil }))
		require.NoError(t, reg.Add(hook.OnReady, func(context.Context) error { return nil }))
		require.NoError(t, reg.Add(hook.OnClose, func(_ context.Context, done hook.Done) { done(nil) }))
		require.NoError(t, reg.Add(hook.OnRoute, func(hook.RouteInfo) error { return nil }))
		require.NoError(t, reg.Add(hook.OnRegister, func(hook.ScopeInfo) error { return nil }))

		assert.Equal(t, 1, reg.Len(hook.PreParsing))
		assert.Equal(t, 1, reg.Len(hook.OnSend))
		assert.Equal(t, 1, reg.Len(hook.OnError))
		assert.Equal(t, 1, reg.Len(hook.OnReady))
		assert.Equal(t, 1, reg.Len(hook.OnClose))
		assert.Len(t, reg.RouteHooks(), 1)
		assert.Len(t, reg.RegisterHooks(), 1)
	})
}

func TestRegistryAddErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		phase hook.Phase
		fn    any
		want  error
	}{
		{"empty phase", "", tracer("x"), hook.ErrInvalidPhaseType},
		{"unknown phase", "onSomething", tracer("x"), hook.ErrUnsupportedPhase},
		{"nil function", hook.PreHandler, nil, hook.ErrInvalidHandler},
		{"typed nil function", hook.PreHandler, hook.Func[*testCtx](nil), hook.ErrInvalidHandler},
		{"not a function", hook.PreHandler, "handler", hook.ErrInvalidHandler},
		{"wrong shape for phase", hook.PreParsing, tracer("x"), hook.ErrInvalidHandler},
		{"async route hook", hook.OnRoute, func(hook.RouteInfo) *async.Future[struct{}] { return nil }, hook.ErrInvalidHandler},
		{"request shape on lifecycle phase", hook.OnReady, tracer("x"), hook.ErrInvalidHandler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg := newRegistry()
			err := reg.Add(tt.phase, tt.fn)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			for _, p := range hook.RequestPhases {
				assert.Zero(t, reg.Len(p), "phase %s must stay empty", p)
			}
			for _, p := range hook.ApplicationPhases {
				assert.Zero(t, reg.Len(p), "phase %s must stay empty", p)
			}
		})
	}
}

func TestRegistrySeal(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	require.NoError(t, reg.Add(hook.OnRequest, tracer("a")))
	reg.Seal()
	assert.True(t, reg.Sealed())

	err := reg.Add(hook.OnRequest, tracer("b"))
	assert.ErrorIs(t, err, hook.ErrRegistrySealed)
	assert.Equal(t, 1, reg.Len(hook.OnRequest))

	// Unknown phases are still reported as such.
	assert.ErrorIs(t, reg.Add("bogus", tracer("c")), hook.ErrUnsupportedPhase)
}

func TestRegistryClone(t *testing.T) {
	t.Parallel()

	parent := newRegistry()
	require.NoError(t, parent.Add(hook.PreHandler, tracer("parent")))
	require.NoError(t, parent.Add(hook.OnRoute, func(hook.RouteInfo) error { return nil }))
	require.NoError(t, parent.Add(hook.OnReady, func(context.Context) error { return nil }))
	require.NoError(t, parent.Add(hook.OnClose, func(context.Context) error { return nil }))
	parent.Seal()

	child := parent.Clone()
	assert.False(t, child.Sealed())
	assert.Equal(t, 1, child.Len(hook.PreHandler))
	assert.Equal(t, 1, child.Len(hook.OnRoute))
	assert.Zero(t, child.Len(hook.OnReady), "lifecycle hooks are not inherited")
	assert.Zero(t, child.Len(hook.OnClose), "lifecycle hooks are not inherited")

	require.NoError(t, child.Add(hook.PreHandler, tracer("child")))
	assert.Equal(t, 2, child.Len(hook.PreHandler))
	assert.Equal(t, 1, parent.Len(hook.PreHandler), "child additions must not leak into parent")
}

func TestPhase(t *testing.T) {
	t.Parallel()

	for _, p := range hook.RequestPhases {
		assert.True(t, p.Valid(), p)
		assert.True(t, p.IsRequest(), p)
		assert.False(t, p.IsLifecycle(), p)
	}
	for _, p := range hook.ApplicationPhases {
		assert.True(t, p.Valid(), p)
		assert.False(t, p.IsRequest(), p)
	}
	assert.True(t, hook.OnReady.IsLifecycle())
	assert.False(t, hook.OnRoute.IsLifecycle())
	assert.False(t, hook.Phase("nope").Valid())
	assert.Equal(t, "preHandler", hook.PreHandler.String())
	assert.True(t, errors.Is(hook.NewPanicError(io.EOF), io.EOF))
}
