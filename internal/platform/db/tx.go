package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errNoConn = errors.New("no database connection in context")

// TxFromContext returns the transaction started by WithTx or BeginTx, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(TxKey).(pgx.Tx)
	return tx
}

// WithTx begins a transaction on the office connection of ctx.
func WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	return BeginTx(ctx, nil)
}

// BeginTx begins a transaction on the office connection of ctx, falling
// back to pool when the request has none. The returned context carries the
// transaction so repositories pick it up.
func BeginTx(ctx context.Context, pool *pgxpool.Pool) (context.Context, pgx.Tx, error) {
	var (
		tx  pgx.Tx
		err error
	)
	switch conn := ConnFromContext(ctx); {
	case conn != nil:
		tx, err = conn.Begin(ctx)
	case pool != nil:
		tx, err = pool.Begin(ctx)
	default:
		return ctx, nil, errNoConn
	}
	if err != nil {
		return ctx, nil, err
	}
	return context.WithValue(ctx, TxKey, tx), tx, nil
}
