package hookflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/hookflow/core/boot"
	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/core/logger"
	"github.com/dmitrymomot/hookflow/core/server"
)

// Plugin configures a scope: it adds hooks, routes, parsers and child scopes.
type Plugin func(app *App) error

// Serializer encodes a reply payload that is not a string, []byte or io.Reader.
type Serializer func(v any) ([]byte, error)

// App is a scope of the application tree. The value returned by New is the root;
// Register creates child scopes that inherit a snapshot of the parent's hooks,
// error handler and content type parsers.
type App struct {
	name     string
	prefix   string
	parent   *App
	root     *App
	children []*App
	// detached is set while the scope's plugin runs; its routes stay off the
	// router until the registration succeeds.
	detached bool
	notFound *route

	hooks          *hook.Registry[*Context]
	errorHandler   *ErrorHandlerNode
	parsers        parsers
	routes         []*route
	logger         *slog.Logger
	bodyLimit      int64
	requestTimeout time.Duration

	// root only
	router          chi.Router
	serializer      Serializer
	errorSerializer ErrorSerializer
	serverConfig    server.Config
	serverOpts      []server.Option
	errorHandlerFn  any

	mu        sync.Mutex
	server    *server.Server
	ready     atomic.Bool
	readyOnce sync.Once
	readyErr  error
	closeOnce sync.Once
	closeErr  error
}

// New creates the root scope. It panics if WithErrorHandler got an unsupported signature.
func New(opts ...Option) *App {
	a := &App{
		name:         "root",
		parsers:      defaultParsers(),
		logger:       logger.Nop(),
		bodyLimit:    DefaultBodyLimit,
		router:       chi.NewRouter(),
		serializer:   serializeJSON,
		serverConfig: server.DefaultConfig(),
	}
	a.root = a

	for _, opt := range opts {
		opt(a)
	}

	a.hooks = hook.NewRegistry[*Context](a.logger)
	node, err := BuildErrorHandler(rootErrorHandler, a.errorHandlerFn)
	if err != nil {
		panic(err)
	}
	a.errorHandler = node

	a.notFound = a.mustRoute("", "/*", "/*", HandlerFunc(notFoundHandler), nil)
	a.router.NotFound(a.serveNotFound)
	a.router.MethodNotAllowed(a.serveNotFound)

	return a
}

// NewFromConfig creates the root scope from cfg. Options override config values.
func NewFromConfig(cfg Config, opts ...Option) *App {
	configOpts := make([]Option, 0, 4+len(opts))
	if cfg.Name != "" {
		configOpts = append(configOpts, WithName(cfg.Name))
	}
	if cfg.BodyLimit > 0 {
		configOpts = append(configOpts, WithBodyLimit(cfg.BodyLimit))
	}
	if cfg.RequestTimeout > 0 {
		configOpts = append(configOpts, WithRequestTimeout(cfg.RequestTimeout))
	}
	configOpts = append(configOpts, WithServerConfig(cfg.Server))
	return New(append(configOpts, opts...)...)
}

// Name returns the scope name.
func (a *App) Name() string {
	return a.name
}

// Prefix returns the route prefix of the scope.
func (a *App) Prefix() string {
	return a.prefix
}

// Parent returns the parent scope, or nil for the root.
func (a *App) Parent() *App {
	return a.parent
}

// Root returns the root scope.
func (a *App) Root() *App {
	return a.root
}

// Logger returns the scope logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// AddHook registers fn for phase in this scope. Routes see the hooks of their scope
// as they were when the application became ready.
func (a *App) AddHook(phase hook.Phase, fn any) error {
	return a.hooks.Add(phase, fn)
}

// SetErrorHandler links fn in front of the error handler the scope currently uses.
func (a *App) SetErrorHandler(fn any) error {
	if a.root.ready.Load() {
		return ErrAppReady
	}
	node, err := BuildErrorHandler(a.errorHandler, fn)
	if err != nil {
		return err
	}
	a.errorHandler = node
	return nil
}

// ErrorHandler returns the head of the scope's error handler chain.
func (a *App) ErrorHandler() *ErrorHandlerNode {
	return a.errorHandler
}

// Register runs plugin in a new child scope. onRegister hooks visible to the parent
// run first; an error from either aborts the registration. The child is linked into
// the tree and its routes are mounted only once the plugin returned without error, so
// a failed registration leaves no hooks, routes or not-found handler behind.
func (a *App) Register(plugin Plugin, opts ...RegisterOption) error {
	if plugin == nil {
		return ErrNilPlugin
	}
	if a.root.ready.Load() {
		return ErrAppReady
	}

	var ro registerOptions
	for _, opt := range opts {
		opt(&ro)
	}
	name := ro.name
	if name == "" {
		name = fmt.Sprintf("%s.%d", a.name, len(a.children)+1)
	}

	child := &App{
		name:           name,
		prefix:         joinPath(a.prefix, ro.prefix),
		parent:         a,
		root:           a.root,
		hooks:          a.hooks.Clone(),
		errorHandler:   a.errorHandler,
		parsers:        a.parsers.clone(),
		logger:         a.logger.With(logger.Scope(name)),
		bodyLimit:      a.bodyLimit,
		requestTimeout: a.requestTimeout,
		detached:       true,
	}

	info := hook.ScopeInfo{Name: child.name, Prefix: child.prefix, Parent: a.name}
	for _, fn := range child.hooks.RegisterHooks() {
		if err := fn(info); err != nil {
			return fmt.Errorf("register %s: onRegister hook: %w", child.name, err)
		}
	}

	if err := plugin(child); err != nil {
		return fmt.Errorf("register %s: %w", child.name, err)
	}

	child.detached = false
	a.children = append(a.children, child)
	if a.mounted() {
		child.mount()
	}

	a.logger.Debug("scope registered",
		logger.Component("app"),
		slog.String("child", child.name),
		slog.String("prefix", child.prefix),
	)
	return nil
}

// Use runs plugins in this scope without creating a child, so their hooks and
// routes are visible to the caller's scope.
func (a *App) Use(plugins ...Plugin) error {
	for _, plugin := range plugins {
		if plugin == nil {
			return ErrNilPlugin
		}
		if err := plugin(a); err != nil {
			return err
		}
	}
	return nil
}

// Route registers handler for method and pattern under the scope prefix. It panics
// when the method, pattern, handler, route options or an onRoute hook are invalid.
func (a *App) Route(method, pattern string, handler any, opts ...RouteOption) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if !validMethod(method) {
		panic(fmt.Errorf("%w: %q", ErrInvalidMethod, method))
	}
	if !strings.HasPrefix(pattern, "/") {
		panic(fmt.Errorf("%w: %q", ErrInvalidPattern, pattern))
	}
	if a.root.ready.Load() {
		panic(ErrAppReady)
	}

	rt := a.mustRoute(method, pattern, joinPath(a.prefix, pattern), handler, opts)
	for _, fn := range a.hooks.RouteHooks() {
		if err := fn(rt.info()); err != nil {
			panic(fmt.Errorf("%w: %s %s: %w", ErrRouteHook, method, rt.path, err))
		}
	}

	a.routes = append(a.routes, rt)
	if a.mounted() {
		a.root.router.Method(method, rt.path, rt)
	}

	a.logger.Debug("route registered",
		logger.Component("router"),
		logger.Route(method, rt.path),
	)
}

// Get registers a GET route.
func (a *App) Get(pattern string, handler any, opts ...RouteOption) {
	a.Route(http.MethodGet, pattern, handler, opts...)
}

// Post registers a POST route.
func (a *App) Post(pattern string, handler any, opts ...RouteOption) {
	a.Route(http.MethodPost, pattern, handler, opts...)
}

// Put registers a PUT route.
func (a *App) Put(pattern string, handler any, opts ...RouteOption) {
	a.Route(http.MethodPut, pattern, handler, opts...)
}

// Patch registers a PATCH route.
func (a *App) Patch(pattern string, handler any, opts ...RouteOption) {
	a.Route(http.MethodPatch, pattern, handler, opts...)
}

// Delete registers a DELETE route.
func (a *App) Delete(pattern string, handler any, opts ...RouteOption) {
	a.Route(http.MethodDelete, pattern, handler, opts...)
}

// Head registers a HEAD route.
func (a *App) Head(pattern string, handler any, opts ...RouteOption) {
	a.Route(http.MethodHead, pattern, handler, opts...)
}

// Options registers an OPTIONS route.
func (a *App) Options(pattern string, handler any, opts ...RouteOption) {
	a.Route(http.MethodOptions, pattern, handler, opts...)
}

// SetNotFoundHandler answers unmatched requests with handler, running this scope's hooks.
func (a *App) SetNotFoundHandler(handler any, opts ...RouteOption) {
	if a.root.ready.Load() {
		panic(ErrAppReady)
	}
	a.notFound = a.mustRoute("", "/*", joinPath(a.prefix, "/*"), handler, opts)
	if a.mounted() {
		a.root.notFound = a.notFound
	}
}

// Routes describes every registered route in registration order, depth-first.
func (a *App) Routes() []hook.RouteInfo {
	infos := make([]hook.RouteInfo, 0, len(a.routes))
	for _, rt := range a.routes {
		infos = append(infos, rt.info())
	}
	for _, child := range a.children {
		infos = append(infos, child.Routes()...)
	}
	return infos
}

// ServeHTTP dispatches through the shared router.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.root.router.ServeHTTP(w, r)
}

// Ready seals every scope, fixes route hooks and runs onReady hooks over the scope
// tree in pre-order. It runs once; later calls return the first result.
func (a *App) Ready(ctx context.Context) error {
	root := a.root
	root.readyOnce.Do(func() {
		root.ready.Store(true)
		root.seal()
		root.readyErr = boot.Exec(ctx, root, hook.OnReady)
		if root.readyErr == nil {
			root.logger.Info("application ready",
				logger.Component("app"),
				slog.Int("routes", len(root.Routes())),
			)
		}
	})
	return root.readyErr
}

func (a *App) seal() {
	a.hooks.Seal()
	for _, rt := range a.routes {
		rt.freeze()
	}
	if a.notFound != nil {
		a.notFound.freeze()
	}
	for _, child := range a.children {
		child.seal()
	}
}

// Run readies the application, serves it and closes it when ctx is canceled or the
// server stops. onListen hooks run once the listener is bound.
func (a *App) Run(ctx context.Context) error {
	root := a.root
	if err := root.Ready(ctx); err != nil {
		return err
	}

	opts := make([]server.Option, 0, len(root.serverOpts)+2)
	opts = append(opts, server.WithLogger(root.logger))
	opts = append(opts, root.serverOpts...)
	opts = append(opts, server.WithOnListen(func(ctx context.Context, _ net.Addr) {
		boot.Broadcast(ctx, root, hook.OnListen, root.logger)
	}))
	srv, err := server.NewFromConfig(root.serverConfig, opts...)
	if err != nil {
		return err
	}
	root.mu.Lock()
	root.server = srv
	root.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	gctx, stop := context.WithCancel(gctx)
	g.Go(func() error {
		defer stop()
		err := srv.Start(gctx, root)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		return root.Close(context.WithoutCancel(ctx))
	})
	return g.Wait()
}

// Addr returns the bound address while running, otherwise the configured one.
func (a *App) Addr() string {
	root := a.root
	root.mu.Lock()
	srv := root.server
	root.mu.Unlock()
	if srv != nil {
		return srv.Addr()
	}
	return root.serverConfig.Addr
}

// Close runs preClose hooks, stops the server and runs onClose hooks. Every step runs
// even if an earlier one failed; the errors are joined. It runs once.
func (a *App) Close(ctx context.Context) error {
	root := a.root
	root.closeOnce.Do(func() {
		errs := []error{boot.Exec(ctx, root, hook.PreClose)}

		root.mu.Lock()
		srv := root.server
		root.mu.Unlock()
		if srv != nil {
			errs = append(errs, srv.Stop())
		}

		errs = append(errs, boot.Exec(ctx, root, hook.OnClose))
		root.closeErr = errors.Join(errs...)
		root.logger.Info("application closed", logger.Component("app"))
	})
	return root.closeErr
}

// ScopeName implements boot.Scope.
func (a *App) ScopeName() string {
	return a.name
}

// LifecycleHooks implements boot.Scope.
func (a *App) LifecycleHooks(phase hook.Phase) []hook.AppHook {
	return a.hooks.App(phase)
}

// ChildScopes implements boot.Scope.
func (a *App) ChildScopes() []boot.Scope {
	scopes := make([]boot.Scope, len(a.children))
	for i, child := range a.children {
		scopes[i] = child
	}
	return scopes
}

func (a *App) mustRoute(method, pattern, path string, handler any, opts []RouteOption) *route {
	rt, err := newRoute(a, method, pattern, path, handler, opts)
	if err != nil {
		panic(err)
	}
	return rt
}

func (a *App) serveNotFound(w http.ResponseWriter, r *http.Request) {
	a.root.notFound.ServeHTTP(w, r)
}

// mounted reports whether the scope and all its ancestors finished registering.
func (a *App) mounted() bool {
	for s := a; s != nil; s = s.parent {
		if s.detached {
			return false
		}
	}
	return true
}

// mount puts the routes of a freshly registered subtree on the router.
func (a *App) mount() {
	for _, rt := range a.routes {
		a.root.router.Method(rt.method, rt.path, rt)
	}
	if a.notFound != nil {
		a.root.notFound = a.notFound
	}
	for _, child := range a.children {
		child.mount()
	}
}

func (a *App) serialize(v any) (data []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = hook.NewPanicError(p)
		}
	}()
	return a.root.serializer(v)
}

func notFoundHandler(ctx *Context) (any, error) {
	ctx.Reply.Code(http.StatusNotFound)
	return ErrorBody{
		Error:      http.StatusText(http.StatusNotFound),
		Message:    fmt.Sprintf("Route %s:%s not found", ctx.Request.Method(), ctx.Request.Path()),
		StatusCode: http.StatusNotFound,
	}, nil
}

func joinPath(prefix, pattern string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	switch {
	case prefix == "":
		return pattern
	case pattern == "" || pattern == "/":
		return prefix
	case strings.HasPrefix(pattern, "/"):
		return prefix + pattern
	default:
		return prefix + "/" + pattern
	}
}

func validMethod(method string) bool {
	if method == "" {
		return false
	}
	for _, c := range method {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
	default:
		chi.RegisterMethod(method)
	}
	return true
}
