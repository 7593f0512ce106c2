// Package middleware provides hookflow plugins for cross-cutting request concerns.
//
// Each plugin registers request lifecycle hooks on the scope it is added to:
//
//   - RequestID assigns an identifier in onRequest, updates the request logger and
//     echoes the ID in a response header.
//   - CORS answers preflight requests and decorates replies in onRequest.
//   - Logging writes an access log line in onResponse.
//
// Add them with App.Use to affect the scope itself, or inside a Register plugin to
// limit them to that child scope:
//
//	app := hookflow.New()
//	if err := app.Use(
//		middleware.RequestID(),
//		middleware.CORS(),
//		middleware.Logging(),
//	); err != nil {
//		return err
//	}
//
// Hooks run in registration order, so add RequestID before Logging to get the
// assigned ID in the access log.
package middleware
