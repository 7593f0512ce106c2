// Package mongo connects a MongoDB client and ties its lifetime to a hookflow application.
//
//	client, err := mongo.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := app.Register(mongo.Plugin(client)); err != nil {
//		return err
//	}
//
// The plugin pings the deployment in onReady and disconnects the client in onClose.
package mongo
