package middleware

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/hookflow"
	"github.com/dmitrymomot/hookflow/core/hook"
)

// CORSConfig defines the Cross-Origin Resource Sharing policy.
type CORSConfig struct {
	// Skip bypasses the hook for matching requests.
	Skip func(ctx *hookflow.Context) bool

	// AllowOrigins lists allowed origins. Empty or "*" allows all of them.
	AllowOrigins []string

	// AllowMethods defaults to GET, HEAD, PUT, PATCH, POST, DELETE.
	AllowMethods []string

	// AllowHeaders defaults to common headers including Authorization and Content-Type.
	AllowHeaders []string

	ExposeHeaders []string

	// AllowCredentials is ignored for wildcard origins.
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int

	// AllowOriginFunc takes precedence over AllowOrigins when set.
	AllowOriginFunc func(origin string) (string, bool)
}

// CORS allows every origin with the default methods and headers.
func CORS() hookflow.Plugin {
	return CORSWithConfig(CORSConfig{})
}

// CORSWithConfig returns an onRequest hook that answers preflight requests with 204
// (or 403 for a disallowed origin or method) and adds CORS headers to every other
// reply of an allowed origin. Preflights for paths without an OPTIONS route reach the
// not-found route, so add the plugin to the root scope with App.Use.
func CORSWithConfig(cfg CORSConfig) hookflow.Plugin {
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPut,
			http.MethodPatch,
			http.MethodPost,
			http.MethodDelete,
		}
	}
	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = []string{
			"Accept",
			"Accept-Language",
			"Content-Language",
			"Content-Type",
			"Origin",
			"Authorization",
			"X-Request-ID",
		}
	}

	allowMethods := strings.Join(cfg.AllowMethods, ",")
	allowHeaders := strings.Join(cfg.AllowHeaders, ",")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ",")

	origins := make(map[string]bool, len(cfg.AllowOrigins))
	for _, origin := range cfg.AllowOrigins {
		origins[origin] = true
	}

	allowOrigin := func(origin string) (string, bool) {
		switch {
		case cfg.AllowOriginFunc != nil:
			return cfg.AllowOriginFunc(origin)
		case len(origins) == 0 || origins["*"]:
			return "*", true
		case origins[origin]:
			return origin, true
		}
		return "", false
	}

	return func(app *hookflow.App) error {
		return app.AddHook(hook.OnRequest, func(ctx *hookflow.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return nil
			}

			allowedOrigin, allowed := allowOrigin(ctx.Request.Header("Origin"))
			reply := ctx.Reply
			headers := reply.Headers()

			requestMethod := ctx.Request.Header("Access-Control-Request-Method")
			if ctx.Request.Method() == http.MethodOptions && requestMethod != "" {
				if !allowed || !slices.Contains(cfg.AllowMethods, requestMethod) {
					reply.Code(http.StatusForbidden).Send(nil)
					return nil
				}

				headers.Set("Access-Control-Allow-Origin", allowedOrigin)
				headers.Set("Access-Control-Allow-Methods", allowMethods)
				if ctx.Request.Header("Access-Control-Request-Headers") != "" {
					headers.Set("Access-Control-Allow-Headers", allowHeaders)
				}
				if cfg.AllowCredentials && allowedOrigin != "*" {
					headers.Set("Access-Control-Allow-Credentials", "true")
				}
				if cfg.MaxAge > 0 {
					headers.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				headers.Add("Vary", "Origin")
				headers.Add("Vary", "Access-Control-Request-Method")
				headers.Add("Vary", "Access-Control-Request-Headers")

				reply.Code(http.StatusNoContent).Send(nil)
				return nil
			}

			if !allowed {
				return nil
			}
			headers.Set("Access-Control-Allow-Origin", allowedOrigin)
			if cfg.AllowCredentials && allowedOrigin != "*" {
				headers.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposeHeaders != "" {
				headers.Set("Access-Control-Expose-Headers", exposeHeaders)
			}
			headers.Add("Vary", "Origin")
			return nil
		})
	}
}

// AllowOriginWildcard allows any non-empty origin and echoes it back, which keeps
// credentials usable.
func AllowOriginWildcard() func(origin string) (string, bool) {
	return func(origin string) (string, bool) {
		if origin == "" {
			return "", false
		}
		return origin, true
	}
}

// AllowOriginSubdomain allows domain and all of its subdomains on any port. Pass the
// domain without a scheme, e.g. "example.com".
func AllowOriginSubdomain(domain string) func(origin string) (string, bool) {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(domain, "*."), "."))
	suffix := "." + domain

	return func(origin string) (string, bool) {
		if origin == "" {
			return "", false
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return "", false
		}

		host := strings.ToLower(u.Hostname())
		if host == domain || strings.HasSuffix(host, suffix) {
			return origin, true
		}
		return "", false
	}
}
