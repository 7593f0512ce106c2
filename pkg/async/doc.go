// Package async provides a settle-once Future for callback-driven pipelines.
//
// A Future is settled exactly once, either resolved with a value or rejected with an
// error. Consumers either block on it (Await, AwaitWithTimeout) or register callbacks
// with Then, which run on the goroutine that settles the future, or inline when the
// future is already settled. The hook runners in this module use Then so that a
// suspended request never parks a goroutine of its own.
//
// # Usage
//
// Running a function asynchronously:
//
//	future := async.Async(ctx, 123, fetchUser)
//	user, err := future.Await(ctx)
//
// Settling a future by hand, e.g. from a hook that hands work to a worker:
//
//	f := async.New[struct{}]()
//	go func() {
//		if err := flush(); err != nil {
//			f.Reject(err)
//			return
//		}
//		f.Resolve(struct{}{})
//	}()
//	return f
//
// Chaining without blocking:
//
//	future.Then(
//		func(u User) { log.Println("loaded", u.ID) },
//		func(err error) { log.Println("failed", err) },
//	)
//
// # Errors
//
//   - ErrTimeout: returned when AwaitWithTimeout exceeds its duration
//   - ErrNoFutures: returned when WaitAny is called with no futures
//   - ErrRejected: returned by Await when a future was rejected without an error
//
// # Concurrency Safety
//
// All methods are safe for concurrent use. Settling is guarded by a mutex and
// only the first Resolve or Reject takes effect.
package async
