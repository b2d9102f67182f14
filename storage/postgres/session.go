package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dtx/querylog"
	"dtx/tx"
)

// Compile-time checks that Session/DataSource implement the tx contracts.
var (
	_ tx.Session    = (*Session)(nil)
	_ tx.DataSource = (*DataSource)(nil)
)

// isolationToPgx translates the canonical tx.IsolationLevel constant to
// pgx's expected spelling. Because tx.Options.Isolation is a typed Go
// constant rather than a free-form string, there is exactly one spelling a
// caller can produce — the ambiguity between underscore and spaced forms
// the original system accumulated across revisions cannot recur here.
func isolationToPgx(level tx.IsolationLevel) pgx.TxIsoLevel {
	switch level {
	case tx.ReadUncommitted:
		return pgx.ReadUncommitted
	case tx.ReadCommitted:
		return pgx.ReadCommitted
	case tx.RepeatableRead:
		return pgx.RepeatableRead
	case tx.Serializable:
		return pgx.Serializable
	default:
		return "" // database default
	}
}

// Session implements tx.Session on top of a single pgx connection and the
// pgx.Tx it begins.
type Session struct {
	pool *pgxpool.Pool
	conn *pgxpool.Conn
	pgTx pgx.Tx
	log  *querylog.Adapter

	active   bool
	released bool
}

func newSession(pool *pgxpool.Pool, log *querylog.Adapter) *Session {
	return &Session{pool: pool, log: log}
}

func (s *Session) logEvent(ctx context.Context, kind querylog.Kind, statement string, start time.Time, err error) {
	if s.log == nil {
		return
	}
	s.log.Log(ctx, querylog.Event{
		Kind:     kind,
		SQL:      statement,
		Duration: time.Since(start),
		Err:      err,
	})
}

func (s *Session) Connect(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	s.conn = conn
	return nil
}

func (s *Session) Begin(ctx context.Context, isolation tx.IsolationLevel) error {
	start := time.Now()
	opts := pgx.TxOptions{IsoLevel: isolationToPgx(isolation)}
	pgTx, err := s.conn.BeginTx(ctx, opts)
	s.logEvent(ctx, querylog.KindTransaction, "BEGIN", start, err)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	s.pgTx = pgTx
	s.active = true
	return nil
}

func (s *Session) SetReadOnly(ctx context.Context) error {
	return s.Execute(ctx, "SET TRANSACTION READ ONLY")
}

func (s *Session) Savepoint(ctx context.Context, name string) error {
	return s.Execute(ctx, "SAVEPOINT "+name)
}

func (s *Session) ReleaseSavepoint(ctx context.Context, name string) error {
	return s.Execute(ctx, "RELEASE SAVEPOINT "+name)
}

func (s *Session) RollbackToSavepoint(ctx context.Context, name string) error {
	return s.Execute(ctx, "ROLLBACK TO SAVEPOINT "+name)
}

func (s *Session) Commit(ctx context.Context) error {
	start := time.Now()
	err := s.pgTx.Commit(ctx)
	s.logEvent(ctx, querylog.KindTransaction, "COMMIT", start, err)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.active = false
	return nil
}

func (s *Session) Rollback(ctx context.Context) error {
	if s.pgTx == nil {
		return nil
	}
	start := time.Now()
	err := s.pgTx.Rollback(ctx)
	s.logEvent(ctx, querylog.KindTransaction, "ROLLBACK", start, err)
	if err != nil {
		s.active = false
		return fmt.Errorf("rollback: %w", err)
	}
	s.active = false
	return nil
}

func (s *Session) Release(ctx context.Context) error {
	if s.released || s.conn == nil {
		return nil
	}
	s.conn.Release()
	s.released = true
	return nil
}

func (s *Session) Execute(ctx context.Context, statement string) error {
	start := time.Now()
	var err error
	if s.pgTx != nil {
		_, err = s.pgTx.Exec(ctx, statement)
	} else {
		_, err = s.conn.Exec(ctx, statement)
	}
	s.logEvent(ctx, querylog.KindQuery, statement, start, err)
	if err != nil {
		return fmt.Errorf("execute %q: %w", statement, err)
	}
	return nil
}

func (s *Session) IsTransactionActive() bool { return s.active }
func (s *Session) IsReleased() bool          { return s.released }

// EntityManager returns the pgx.Tx (or the bare connection, pre-begin) as
// the opaque query handle CurrentEntityManager hands back to callers.
func (s *Session) EntityManager() any {
	if s.pgTx != nil {
		return s.pgTx
	}
	return s.conn
}

// DataSource implements tx.DataSource on top of a pooled *Pool.
type DataSource struct {
	pool *Pool
	log  *querylog.Adapter
}

// NewDataSource wraps an already-constructed connection pool. log may be
// nil, in which case every Session it hands out skips query-log emission
// entirely (Session.logEvent no-ops on a nil adapter).
func NewDataSource(pool *Pool, log *querylog.Adapter) *DataSource {
	return &DataSource{pool: pool, log: log}
}

func (d *DataSource) NewSession(ctx context.Context) (tx.Session, error) {
	return newSession(d.pool.Pool, d.log), nil
}

func (d *DataSource) PoolStatus(ctx context.Context) tx.PoolStatus {
	if d.pool == nil || d.pool.Pool == nil {
		return tx.PoolStatus{}
	}
	return tx.PoolStatus{Initialized: true, HasMetadata: true}
}

// Ping satisfies datasource.Pinger for the registry's health-check loop.
func (d *DataSource) Ping(ctx context.Context) error {
	return d.pool.Pool.Ping(ctx)
}
