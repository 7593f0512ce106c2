package hookflow_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookflow"
	"github.com/dmitrymomot/hookflow/core/config"
	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/core/server"
)

func okHandler(ctx *hookflow.Context) (any, error) {
	return "ok", nil
}

func TestApp_Register(t *testing.T) {
	t.Parallel()

	t.Run("hooks are encapsulated", func(t *testing.T) {
		t.Parallel()

		var ev events
		app := hookflow.New()
		require.NoError(t, app.AddHook(hook.OnRequest, ev.hook("parent")))
		app.Get("/parent", okHandler)

		require.NoError(t, app.Register(func(child *hookflow.App) error {
			if err := child.AddHook(hook.OnRequest, ev.hook("child")); err != nil {
				return err
			}
			child.Get("/child", okHandler)
			return nil
		}))

		serve(app, newRequest(http.MethodGet, "/child", "", ""))
		serve(app, newRequest(http.MethodGet, "/parent", "", ""))

		assert.Equal(t, []string{"parent", "child", "parent"}, ev.all())
	})

	t.Run("hooks added later to parent stay in parent", func(t *testing.T) {
		t.Parallel()

		var ev events
		app := hookflow.New()
		require.NoError(t, app.Register(func(child *hookflow.App) error {
			child.Get("/child", okHandler)
			return nil
		}))
		require.NoError(t, app.AddHook(hook.OnRequest, ev.hook("late")))

		serve(app, newRequest(http.MethodGet, "/child", "", ""))

		assert.Empty(t, ev.all())
	})

	t.Run("prefixes nest", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		require.NoError(t, app.Register(func(api *hookflow.App) error {
			api.Get("/", okHandler)
			return api.Register(func(v1 *hookflow.App) error {
				v1.Get("/users/{id}", func(ctx *hookflow.Context) (any, error) {
					return ctx.Param("id"), nil
				})
				return nil
			}, hookflow.WithPrefix("v1"), hookflow.WithScopeName("v1"))
		}, hookflow.WithPrefix("/api/"), hookflow.WithScopeName("api")))

		rec := serve(app, newRequest(http.MethodGet, "/api", "", ""))
		assert.Equal(t, "ok", rec.Body.String())

		rec = serve(app, newRequest(http.MethodGet, "/api/v1/users/7", "", ""))
		assert.Equal(t, "7", rec.Body.String())

		routes := app.Routes()
		require.Len(t, routes, 2)
		assert.Equal(t, "/api", routes[0].Path)
		assert.Equal(t, "api", routes[0].Scope)
		assert.Equal(t, "/api/v1/users/{id}", routes[1].Path)
		assert.Equal(t, "/api/v1", routes[1].Prefix)
	})

	t.Run("use shares scope", func(t *testing.T) {
		t.Parallel()

		var ev events
		app := hookflow.New()
		require.NoError(t, app.Use(func(a *hookflow.App) error {
			return a.AddHook(hook.OnRequest, ev.hook("shared"))
		}))
		app.Get("/", okHandler)

		serve(app, newRequest(http.MethodGet, "/", "", ""))

		assert.Equal(t, []string{"shared"}, ev.all())
		assert.ErrorIs(t, app.Use(nil), hookflow.ErrNilPlugin)
	})

	t.Run("plugin errors", func(t *testing.T) {
		t.Parallel()

		errPlugin := errors.New("plugin failed")
		app := hookflow.New()

		assert.ErrorIs(t, app.Register(nil), hookflow.ErrNilPlugin)
		assert.ErrorIs(t, app.Register(func(*hookflow.App) error { return errPlugin }), errPlugin)
	})

	t.Run("failed plugin leaves nothing behind", func(t *testing.T) {
		t.Parallel()

		errPlugin := errors.New("plugin failed")
		var readyCalls int
		app := hookflow.New()

		err := app.Register(func(child *hookflow.App) error {
			if err := child.AddHook(hook.OnReady, func(context.Context) error {
				readyCalls++
				return nil
			}); err != nil {
				return err
			}
			child.Get("/leak", okHandler)
			child.SetNotFoundHandler(func(ctx *hookflow.Context) (any, error) {
				return "custom", nil
			})
			return child.Register(func(nested *hookflow.App) error {
				nested.Get("/nested", okHandler)
				return errPlugin
			})
		})
		require.ErrorIs(t, err, errPlugin)

		require.NoError(t, app.Ready(context.Background()))
		assert.Zero(t, readyCalls)
		assert.Empty(t, app.Routes())

		rec := serve(app, newRequest(http.MethodGet, "/leak", "", ""))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotEqual(t, "custom", rec.Body.String())
	})

	t.Run("nested routes mount after outer plugin succeeds", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		require.NoError(t, app.Register(func(child *hookflow.App) error {
			child.Get("/outer", okHandler)
			return child.Register(func(nested *hookflow.App) error {
				nested.Get("/inner", okHandler)
				return nil
			}, hookflow.WithPrefix("/v1"))
		}))

		assert.Len(t, app.Routes(), 2)
		assert.Equal(t, http.StatusOK, serve(app, newRequest(http.MethodGet, "/outer", "", "")).Code)
		assert.Equal(t, http.StatusOK, serve(app, newRequest(http.MethodGet, "/v1/inner", "", "")).Code)
	})

	t.Run("on register hooks", func(t *testing.T) {
		t.Parallel()

		var scopes []hook.ScopeInfo
		app := hookflow.New()
		require.NoError(t, app.AddHook(hook.OnRegister, func(info hook.ScopeInfo) error {
			scopes = append(scopes, info)
			if info.Name == "forbidden" {
				return errors.New("not allowed")
			}
			return nil
		}))

		require.NoError(t, app.Register(func(*hookflow.App) error { return nil },
			hookflow.WithScopeName("users"), hookflow.WithPrefix("/users")))

		called := false
		err := app.Register(func(*hookflow.App) error {
			called = true
			return nil
		}, hookflow.WithScopeName("forbidden"))
		require.Error(t, err)
		assert.False(t, called)

		require.Len(t, scopes, 2)
		assert.Equal(t, hook.ScopeInfo{Name: "users", Prefix: "/users", Parent: "root"}, scopes[0])
	})

	t.Run("on route hooks", func(t *testing.T) {
		t.Parallel()

		var routes []hook.RouteInfo
		app := hookflow.New()
		require.NoError(t, app.AddHook(hook.OnRoute, func(info hook.RouteInfo) error {
			routes = append(routes, info)
			if info.Path == "/admin" {
				return errors.New("reserved")
			}
			return nil
		}))

		app.Get("/users", okHandler, hookflow.WithTimeout(time.Second))
		assert.Panics(t, func() { app.Get("/admin", okHandler) })

		require.Len(t, routes, 2)
		assert.Equal(t, hook.RouteInfo{
			Method:  http.MethodGet,
			Path:    "/users",
			Scope:   "root",
			Timeout: time.Second,
		}, routes[0])
	})
}

func TestApp_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("ready runs parent then child once", func(t *testing.T) {
		t.Parallel()

		var ev events
		ready := func(name string) func(context.Context) error {
			return func(context.Context) error {
				ev.add(name)
				return nil
			}
		}

		app := hookflow.New()
		require.NoError(t, app.AddHook(hook.OnReady, ready("parent")))
		require.NoError(t, app.Register(func(child *hookflow.App) error {
			return child.AddHook(hook.OnReady, ready("child"))
		}))

		require.NoError(t, app.Ready(context.Background()))
		require.NoError(t, app.Ready(context.Background()))

		assert.Equal(t, []string{"parent", "child"}, ev.all())
	})

	t.Run("ready seals the application", func(t *testing.T) {
		t.Parallel()

		app := hookflow.New()
		require.NoError(t, app.Ready(context.Background()))

		assert.ErrorIs(t, app.AddHook(hook.OnRequest, func(*hookflow.Context) error { return nil }), hook.ErrRegistrySealed)
		assert.ErrorIs(t, app.Register(func(*hookflow.App) error { return nil }), hookflow.ErrAppReady)
		assert.ErrorIs(t, app.SetErrorHandler(func(*hookflow.Context, error) {}), hookflow.ErrAppReady)
		assert.Panics(t, func() { app.Get("/", okHandler) })
	})

	t.Run("ready error is sticky", func(t *testing.T) {
		t.Parallel()

		errDB := errors.New("database unreachable")
		app := hookflow.New()
		require.NoError(t, app.AddHook(hook.OnReady, func(context.Context) error { return errDB }))

		assert.ErrorIs(t, app.Ready(context.Background()), errDB)
		assert.ErrorIs(t, app.Ready(context.Background()), errDB)
	})

	t.Run("close runs every phase", func(t *testing.T) {
		t.Parallel()

		errPre := errors.New("pre close failed")
		var ev events
		app := hookflow.New()
		require.NoError(t, app.AddHook(hook.PreClose, func(context.Context) error {
			ev.add("preClose")
			return errPre
		}))
		require.NoError(t, app.AddHook(hook.OnClose, func(context.Context) error {
			ev.add("onClose")
			return nil
		}))

		err := app.Close(context.Background())
		assert.ErrorIs(t, err, errPre)
		assert.Equal(t, []string{"preClose", "onClose"}, ev.all())

		assert.ErrorIs(t, app.Close(context.Background()), errPre)
		assert.Len(t, ev.all(), 2)
	})
}

func TestApp_Run(t *testing.T) {
	t.Parallel()

	listening := make(chan struct{})
	closed := make(chan struct{})

	app := hookflow.New(hookflow.WithAddr("127.0.0.1:0"))
	require.NoError(t, app.AddHook(hook.OnListen, func(context.Context) error {
		close(listening)
		return nil
	}))
	require.NoError(t, app.AddHook(hook.OnClose, func(context.Context) error {
		close(closed)
		return nil
	}))
	app.Get("/ping", func(ctx *hookflow.Context) (any, error) {
		return "pong", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run(ctx)
	}()

	select {
	case <-listening:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + app.Addr() + "/ping")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}

	select {
	case <-closed:
	default:
		t.Fatal("onClose hooks did not run")
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Setenv("APP_NAME", "orders")
	t.Setenv("APP_BODY_LIMIT", "8")
	t.Setenv("SERVER_ADDR", "127.0.0.1:9999")

	var cfg hookflow.Config
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "orders", cfg.Name)
	assert.Equal(t, int64(8), cfg.BodyLimit)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, server.DefaultConfig().ReadTimeout, cfg.Server.ReadTimeout)

	app := hookflow.NewFromConfig(cfg)
	assert.Equal(t, "orders", app.Name())
	assert.Equal(t, "127.0.0.1:9999", app.Addr())

	app.Post("/", echoBody)
	rec := serve(app, newRequest(http.MethodPost, "/", "123456789", "text/plain"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
