// Package hookflow is an HTTP framework built around a request lifecycle of ordered,
// encapsulated hooks.
//
// Every request walks the same pipeline:
//
//	onRequest -> preParsing -> body parsing -> preValidation -> validator ->
//	preHandler -> handler -> preSerialization -> serializer -> onSend -> write ->
//	onResponse
//
// A hook may answer the request itself; the remaining request hooks are skipped once
// the reply is sent. Errors raised anywhere in the pipeline run onError hooks once and
// then walk the error handler chain, from the route's handler up through its scopes
// to the built-in default handler and finally a fallback that always answers.
//
// # Scopes
//
// The value returned by New is the root scope. Register runs a Plugin in a child scope
// that inherits a snapshot of the parent's hooks, error handler and body parsers;
// changes made inside the child never leak back to the parent.
//
//	app := hookflow.New(hookflow.WithLogger(logger.New()))
//
//	_ = app.AddHook(hook.OnRequest, func(ctx *hookflow.Context) error {
//		ctx.Log().Info("incoming request")
//		return nil
//	})
//
//	_ = app.Register(func(api *hookflow.App) error {
//		api.Get("/users/{id}", func(ctx *hookflow.Context) (any, error) {
//			return map[string]string{"id": ctx.Param("id")}, nil
//		})
//		return nil
//	}, hookflow.WithPrefix("/api"))
//
// # Handlers
//
// Route handlers and error handlers come in three shapes: returning (value, error),
// returning *async.Future[any], or answering through ctx.Reply directly.
// Hooks accept the shapes documented in package hook.
//
// A request is served on one goroutine. Future completions, the route timeout and
// onRequestAbort hooks are queued and run there between steps, so a timeout answers
// a request waiting on asynchronous work but never interrupts a blocking handler.
// Code answering from another goroutine goes through ctx.Schedule.
//
// # Lifecycle
//
// Ready seals the scopes and runs onReady hooks. Run serves the application, runs
// onListen hooks once the listener is bound and, when its context ends, Close runs
// preClose hooks, stops the server and runs onClose hooks.
package hookflow
