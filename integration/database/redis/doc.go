// Package redis connects a go-redis client and ties its lifetime to a hookflow application.
//
// Connect parses the connection URL, pings the server with retries and returns the client.
// Plugin registers an onReady hook that pings the server and an onClose hook that
// closes the client:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := app.Register(redis.Plugin(client)); err != nil {
//		return err
//	}
package redis
