package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"dtx/tx"
)

// fakeQuerier is a minimal Querier double used only to verify
// CurrentQuerier's selection logic; its methods are never actually called.
type fakeQuerier struct{}

func (fakeQuerier) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func TestCurrentQuerier_FallsBackToPoolOutsideTransaction(t *testing.T) {
	pool := &Pool{}
	q := CurrentQuerier(context.Background(), pool)
	assert.Equal(t, pool.Pool, q)
}

// stubSession implements tx.Session just enough for EntityManager() to hand
// back a fakeQuerier.
type stubSession struct{ em any }

func (s *stubSession) Connect(ctx context.Context) error                          { return nil }
func (s *stubSession) Begin(ctx context.Context, isolation tx.IsolationLevel) error { return nil }
func (s *stubSession) SetReadOnly(ctx context.Context) error                      { return nil }
func (s *stubSession) Savepoint(ctx context.Context, name string) error           { return nil }
func (s *stubSession) ReleaseSavepoint(ctx context.Context, name string) error    { return nil }
func (s *stubSession) RollbackToSavepoint(ctx context.Context, name string) error { return nil }
func (s *stubSession) Commit(ctx context.Context) error                          { return nil }
func (s *stubSession) Rollback(ctx context.Context) error                        { return nil }
func (s *stubSession) Release(ctx context.Context) error                         { return nil }
func (s *stubSession) Execute(ctx context.Context, statement string) error       { return nil }
func (s *stubSession) IsTransactionActive() bool                                 { return true }
func (s *stubSession) IsReleased() bool                                          { return false }
func (s *stubSession) EntityManager() any                                        { return s.em }

func TestCurrentQuerier_UsesAmbientEntityManagerInsideTransaction(t *testing.T) {
	pool := &Pool{}
	fq := fakeQuerier{}
	txCtx := &tx.Context{Session: &stubSession{em: fq}}

	var got Querier
	err := tx.RunIn(context.Background(), txCtx, func(ctx context.Context) error {
		got = CurrentQuerier(ctx, pool)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, fq, got)
}
