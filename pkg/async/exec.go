package async

import "context"

// Exec runs fn asynchronously when only its error matters.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *Future[struct{}] {
	return Async(ctx, param, func(ctx context.Context, p T) (struct{}, error) {
		return struct{}{}, fn(ctx, p)
	})
}

// ExecAll waits for all futures and returns the first error in argument order.
func ExecAll(ctx context.Context, futures ...*Future[struct{}]) error {
	_, err := WaitAll(ctx, futures...)
	return err
}
