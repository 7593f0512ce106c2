package middleware

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/hookflow"
	"github.com/dmitrymomot/hookflow/core/hook"
)

type requestIDContextKey struct{}

// RequestIDConfig configures the request ID plugin.
type RequestIDConfig struct {
	// Skip bypasses the hook for matching requests.
	Skip func(ctx *hookflow.Context) bool
	// Generator creates new request IDs (default: UUID v4).
	Generator func() string
	// HeaderName is the request and response header carrying the ID (default: "X-Request-ID").
	HeaderName string
	// UseExisting keeps the ID sent by the client when present.
	UseExisting bool
}

// RequestID assigns a fresh UUID to every request. The ID replaces the one the
// request logger carries, is stored on the context and echoed in X-Request-ID.
func RequestID() hookflow.Plugin {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig is RequestID with custom configuration.
func RequestIDWithConfig(cfg RequestIDConfig) hookflow.Plugin {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Request-ID"
	}
	if cfg.Generator == nil {
		cfg.Generator = uuid.NewString
	}

	return func(app *hookflow.App) error {
		return app.AddHook(hook.OnRequest, func(ctx *hookflow.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return nil
			}

			var id string
			if cfg.UseExisting {
				id = ctx.Request.Header(cfg.HeaderName)
			}
			if id == "" {
				id = cfg.Generator()
			}

			ctx.SetRequestID(id)
			ctx.SetValue(requestIDContextKey{}, id)
			ctx.Reply.Header(cfg.HeaderName, id)
			return nil
		})
	}
}

// GetRequestID returns the ID stored by the RequestID plugin.
func GetRequestID(ctx *hookflow.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey{}).(string)
	return id, ok
}
