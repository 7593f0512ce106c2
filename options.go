package hookflow

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/mailru/easyjson"

	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/core/server"
)

// Option configures the root scope.
type Option func(*App)

// WithName sets the root scope name used in logs.
func WithName(name string) Option {
	return func(a *App) {
		if name != "" {
			a.name = name
		}
	}
}

// WithLogger sets the logger. Nil loggers are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithBodyLimit sets the maximum request body size in bytes.
func WithBodyLimit(limit int64) Option {
	return func(a *App) {
		if limit > 0 {
			a.bodyLimit = limit
		}
	}
}

// WithRequestTimeout answers requests with 408 when the reply is not sent within d.
// Zero disables the timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *App) {
		a.requestTimeout = d
	}
}

// WithSerializer replaces the payload serializer. Values implementing
// easyjson.Marshaler are only special-cased by the default serializer.
func WithSerializer(s Serializer) Option {
	return func(a *App) {
		if s != nil {
			a.serializer = s
		}
	}
}

// WithErrorSerializer replaces the encoder of the fallback error body.
func WithErrorSerializer(s ErrorSerializer) Option {
	return func(a *App) {
		a.errorSerializer = s
	}
}

// WithErrorHandler installs the root error handler in front of the built-in one.
func WithErrorHandler(fn any) Option {
	return func(a *App) {
		a.errorHandlerFn = fn
	}
}

// WithServerConfig sets the HTTP server configuration used by Run.
func WithServerConfig(cfg server.Config) Option {
	return func(a *App) {
		a.serverConfig = cfg
	}
}

// WithAddr sets the listen address used by Run.
func WithAddr(addr string) Option {
	return func(a *App) {
		a.serverConfig.Addr = addr
	}
}

// WithServerOptions appends options applied to the HTTP server created by Run.
func WithServerOptions(opts ...server.Option) Option {
	return func(a *App) {
		a.serverOpts = append(a.serverOpts, opts...)
	}
}

type registerOptions struct {
	name   string
	prefix string
}

// RegisterOption configures a child scope created by Register.
type RegisterOption func(*registerOptions)

// WithPrefix prefixes every route of the child scope.
func WithPrefix(prefix string) RegisterOption {
	return func(o *registerOptions) {
		prefix = strings.TrimSuffix(strings.TrimSpace(prefix), "/")
		if prefix != "" && !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		o.prefix = prefix
	}
}

// WithScopeName names the child scope in logs and lifecycle errors.
func WithScopeName(name string) RegisterOption {
	return func(o *registerOptions) {
		o.name = name
	}
}

// RouteOption configures a single route.
type RouteOption func(*routeOptions)

// WithRouteHook adds a request phase hook that runs after the scope hooks for phase.
func WithRouteHook(phase hook.Phase, fn any) RouteOption {
	return func(o *routeOptions) {
		o.hooks = append(o.hooks, routeHook{phase: phase, fn: fn})
	}
}

// WithRouteErrorHandler links fn in front of the scope error handler for this route.
func WithRouteErrorHandler(fn any) RouteOption {
	return func(o *routeOptions) {
		o.errorHandler = fn
	}
}

// WithValidator runs fn after preValidation hooks. Errors without an HTTP status
// are answered as 400 validation errors.
func WithValidator(fn func(*Context) error) RouteOption {
	return func(o *routeOptions) {
		o.validator = fn
	}
}

// WithTimeout overrides the request timeout for this route. Zero disables it.
func WithTimeout(d time.Duration) RouteOption {
	return func(o *routeOptions) {
		o.timeout = d
	}
}

// WithRouteBodyLimit overrides the body limit for this route.
func WithRouteBodyLimit(limit int64) RouteOption {
	return func(o *routeOptions) {
		if limit > 0 {
			o.bodyLimit = limit
		}
	}
}

// serializeJSON is the default Serializer.
func serializeJSON(v any) ([]byte, error) {
	if m, ok := v.(easyjson.Marshaler); ok {
		return easyjson.Marshal(m)
	}
	return json.Marshal(v)
}
