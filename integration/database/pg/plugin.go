package pg

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/hookflow"
	"github.com/dmitrymomot/hookflow/core/hook"
	"github.com/dmitrymomot/hookflow/core/logger"
)

// Plugin checks the pool when the application becomes ready and closes it when the
// application closes.
func Plugin(pool *pgxpool.Pool) hookflow.Plugin {
	return func(app *hookflow.App) error {
		if err := app.AddHook(hook.OnReady, Healthcheck(pool)); err != nil {
			return err
		}
		return app.AddHook(hook.OnClose, func(context.Context) error {
			pool.Close()
			return nil
		})
	}
}

// Transaction begins a transaction in preHandler and stores it on the request context.
// onSend commits it for replies below 400 and rolls it back otherwise. A commit
// failure replaces the reply with an error. onResponse and onRequestAbort roll back
// whatever is still open.
func Transaction(pool *pgxpool.Pool) hookflow.Plugin {
	return func(app *hookflow.App) error {
		if err := app.AddHook(hook.PreHandler, func(ctx *hookflow.Context) error {
			tx, err := pool.Begin(ctx)
			if err != nil {
				return hookflow.ErrServiceUnavailable.WithError(err)
			}
			ctx.SetValue(txContextKey{}, tx)
			return nil
		}); err != nil {
			return err
		}

		if err := app.AddHook(hook.OnSend, func(ctx *hookflow.Context, body any) (any, error) {
			tx, ok := TxFromContext(ctx)
			if !ok {
				return body, nil
			}
			if ctx.Reply.StatusCode() >= http.StatusBadRequest {
				rollback(ctx, tx)
				return body, nil
			}
			if err := tx.Commit(ctx); err != nil && !IsTxClosedError(err) {
				return nil, hookflow.ErrInternalServerError.WithError(err)
			}
			return body, nil
		}); err != nil {
			return err
		}

		if err := app.AddHook(hook.OnResponse, func(ctx *hookflow.Context) error {
			if tx, ok := TxFromContext(ctx); ok {
				rollback(ctx, tx)
			}
			return nil
		}); err != nil {
			return err
		}

		return app.AddHook(hook.OnRequestAbort, func(ctx *hookflow.Context) error {
			if tx, ok := TxFromContext(ctx); ok {
				rollback(ctx, tx)
			}
			return nil
		})
	}
}

// rollback closes tx unless it was already committed or rolled back.
func rollback(ctx *hookflow.Context, tx pgx.Tx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !IsTxClosedError(err) {
		ctx.Log().Error("transaction rollback failed",
			logger.Component("pg"),
			logger.Error(err),
		)
	}
}
