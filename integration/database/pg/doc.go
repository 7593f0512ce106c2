// Package pg connects a pgx connection pool and ties it to a hookflow application.
//
// Plugin pings the pool when the application becomes ready and closes it when the
// application closes. Transaction opens a transaction per request before the handler
// runs, commits it when the reply status is below 400 and rolls it back otherwise:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := app.Use(pg.Plugin(pool)); err != nil {
//		return err
//	}
//
//	err = app.Register(func(api *hookflow.App) error {
//		api.Post("/users", func(ctx *hookflow.Context) (any, error) {
//			tx, _ := pg.TxFromContext(ctx)
//			return createUser(ctx, tx)
//		})
//		return api.Use(pg.Transaction(pool))
//	})
//
// Transaction hooks follow the scope they are added to, so routes outside that scope
// run without a transaction.
package pg
