// Package boot runs application lifecycle hooks across a tree of scopes.
//
// A Scope owns its lifecycle hooks and an ordered list of child scopes. Run executes a
// scope's own hooks for a phase, then each child depth-first in declaration order, then
// the continuation. The first failure halts the traversal and is reported to the
// continuation; sibling subtrees that already ran are not rolled back.
//
//	err := boot.Exec(ctx, app, hook.OnReady)
//
// Broadcast is the best-effort variant used for onListen: failures are logged and every
// scope is visited.
package boot
