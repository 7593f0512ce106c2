// Package server wraps http.Server with graceful shutdown, functional options and a
// listen notification used to fire the application's onListen hooks.
//
// # Basic Usage
//
//	srv := server.New(":8080",
//		server.WithLogger(log),
//		server.WithOnListen(func(ctx context.Context, addr net.Addr) {
//			log.Info("listening", "addr", addr.String())
//		}),
//	)
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, handler))
//	if err := g.Wait(); err != nil {
//		log.Error("server stopped", "error", err)
//	}
//
// Start blocks until the context is canceled, the server fails, or Stop is called.
// Stop shuts the server down within the configured shutdown timeout.
//
// # Configuration
//
// Config carries env tags for use with core/config:
//
//	var cfg server.Config
//	config.MustLoad(&cfg)
//	srv, err := server.NewFromConfig(cfg)
package server
