package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"dtx/tx"
)

// Querier is the minimal surface repositories need, satisfied by both
// *pgxpool.Pool (outside any transaction) and pgx.Tx (inside one) — the
// same shape the teacher's tx_manager.go used to decide which one to hand
// back.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CurrentQuerier returns the EntityManager of the ambient tx.Context if one
// is active, or pool itself otherwise — letting a repository work
// correctly whether or not it is called from inside a Transactional body.
func CurrentQuerier(ctx context.Context, pool *Pool) Querier {
	if em := tx.CurrentEntityManager(ctx); em != nil {
		if q, ok := em.(Querier); ok {
			return q
		}
	}
	return pool.Pool
}
