package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/hookflow"
	"github.com/dmitrymomot/hookflow/core/hook"
)

// Plugin pings the deployment when the application becomes ready and disconnects
// the client when the application closes.
func Plugin(client *mongo.Client) hookflow.Plugin {
	return func(app *hookflow.App) error {
		if err := app.AddHook(hook.OnReady, Healthcheck(client)); err != nil {
			return err
		}
		return app.AddHook(hook.OnClose, func(ctx context.Context) error {
			return client.Disconnect(ctx)
		})
	}
}
