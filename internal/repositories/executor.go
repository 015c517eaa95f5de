package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// executorFrom returns the transaction bound to ctx when there is one, otherwise db.
// Every statement of a request must go through it: SQLite runs with a single connection.
func executorFrom(ctx context.Context, db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) sqlx.ExtContext {
	if txGetter != nil {
		if tx := txGetter(ctx); tx != nil {
			return tx
		}
	}
	return db
}
