package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/hookflow"
	"github.com/dmitrymomot/hookflow/core/hook"
)

// Plugin checks the client when the application becomes ready and closes it when
// the application closes.
func Plugin(client redis.UniversalClient) hookflow.Plugin {
	return func(app *hookflow.App) error {
		if err := app.AddHook(hook.OnReady, Healthcheck(client)); err != nil {
			return err
		}
		return app.AddHook(hook.OnClose, func(context.Context) error {
			return client.Close()
		})
	}
}
