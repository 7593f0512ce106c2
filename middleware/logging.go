package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/hookflow"
	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/core/logger"
)

// LoggingConfig configures the access log plugin.
type LoggingConfig struct {
	// Skip bypasses the hook for matching requests.
	Skip func(ctx *hookflow.Context) bool

	// Logger defaults to the request logger, which already carries the request ID.
	Logger *slog.Logger

	// LogLevel for successful requests (default: slog.LevelInfo).
	LogLevel slog.Level

	// SlowRequestThreshold logs slower requests at warning level (default: 5s).
	SlowRequestThreshold time.Duration

	Component string
}

// Logging writes one access log line per completed request.
func Logging() hookflow.Plugin {
	return LoggingWithConfig(LoggingConfig{})
}

// LoggingWithConfig returns an onResponse hook that logs the method, path, status,
// latency and bytes written of every answered request. 5xx replies are logged at
// error level; 4xx replies and slow requests at warning level.
func LoggingWithConfig(cfg LoggingConfig) hookflow.Plugin {
	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}
	if cfg.Component == "" {
		cfg.Component = "http"
	}

	return func(app *hookflow.App) error {
		return app.AddHook(hook.OnResponse, func(ctx *hookflow.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return nil
			}

			latency := ctx.Reply.ElapsedTime()
			status := ctx.Reply.StatusCode()

			attrs := []slog.Attr{
				logger.Component(cfg.Component),
				logger.Event("response"),
				logger.Method(ctx.Request.Method()),
				logger.Path(ctx.Request.Path()),
				logger.StatusCode(status),
				logger.Latency(latency),
			}
			if w, ok := ctx.Reply.Raw().(interface{ BytesWritten() int64 }); ok {
				attrs = append(attrs, slog.Int64("bytes_out", w.BytesWritten()))
			}
			if ua := ctx.Request.Header("User-Agent"); ua != "" {
				attrs = append(attrs, logger.UserAgent(ua))
			}

			log := cfg.Logger
			if log == nil {
				log = ctx.Log()
			} else {
				attrs = append(attrs, logger.RequestID(ctx.Request.ID()))
			}

			level := cfg.LogLevel
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest, latency >= cfg.SlowRequestThreshold:
				level = max(level, slog.LevelWarn)
			}

			log.LogAttrs(ctx, level, "request completed", attrs...)
			return nil
		})
	}
}
