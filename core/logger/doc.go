// Package logger provides slog construction and attribute helpers shared by the
// framework and its plugins.
//
// # Basic Usage
//
//	log := logger.New(
//		logger.WithDevelopment("myapp"),
//		logger.WithLevel(slog.LevelDebug),
//	)
//
//	log.Info("route registered",
//		logger.Component("router"),
//		logger.Route(http.MethodGet, "/users/{id}"),
//	)
//
// # Context Values
//
// Attributes can be pulled from the context of every record:
//
//	log := logger.New(
//		logger.WithProduction("myapp"),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.InfoContext(ctx, "processing")
//
// # Attribute Helpers
//
// Helpers return an empty slog.Attr for zero values, which slog drops:
//
//	log.Error("hook failed",
//		logger.Error(err),
//		logger.Phase("preHandler"),
//		logger.Scope("api"),
//	)
//
// Use Nop in tests and as the default for optional loggers.
package logger
