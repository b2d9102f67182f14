package datasource

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtx/tx"
)

// stubDataSource is a minimal tx.DataSource double that is also a Pinger;
// Ping counts its calls and returns failPing.
type stubDataSource struct {
	pingCount atomic.Int32
	failPing  error
}

func (s *stubDataSource) NewSession(ctx context.Context) (tx.Session, error) {
	return nil, nil
}

func (s *stubDataSource) PoolStatus(ctx context.Context) tx.PoolStatus {
	return tx.PoolStatus{Initialized: true}
}

func (s *stubDataSource) Ping(ctx context.Context) error {
	s.pingCount.Add(1)
	return s.failPing
}

var _ tx.DataSource = (*stubDataSource)(nil)
var _ Pinger = (*stubDataSource)(nil)

func TestRegistry_InstallAndGetMetaData(t *testing.T) {
	r := NewRegistry(Config{})
	defer r.Close()

	ds := &stubDataSource{}
	require.NoError(t, r.Install("DB", ds))

	meta, ok := r.GetMetaData("DB")
	require.True(t, ok)
	assert.True(t, meta.IsInitialized)
	assert.Same(t, ds, meta.DataSource)

	_, ok = r.GetMetaData("MISSING")
	assert.False(t, ok)
}

func TestRegistry_InstallRejectsBeyondMax(t *testing.T) {
	r := NewRegistry(Config{MaxDataSources: 1})
	defer r.Close()

	require.NoError(t, r.Install("A", &stubDataSource{}))
	err := r.Install("B", &stubDataSource{})
	require.ErrorIs(t, err, ErrMaxDataSources)

	// Re-installing the same name is allowed even at the limit.
	require.NoError(t, r.Install("A", &stubDataSource{}))
}

func TestRegistry_RemoveAndNames(t *testing.T) {
	r := NewRegistry(Config{})
	defer r.Close()

	require.NoError(t, r.Install("A", &stubDataSource{}))
	require.NoError(t, r.Install("B", &stubDataSource{}))
	assert.ElementsMatch(t, []string{"A", "B"}, r.Names())

	r.Remove("A")
	assert.ElementsMatch(t, []string{"B"}, r.Names())

	_, ok := r.GetMetaData("A")
	assert.False(t, ok)
}

func TestRegistry_EvictIdleRemovesStaleEntries(t *testing.T) {
	r := NewRegistry(Config{IdleTimeout: time.Millisecond})
	defer r.Close()

	require.NoError(t, r.Install("A", &stubDataSource{}))
	// Force lastUsed into the past.
	v, _ := r.entries.Load("A")
	v.(*entry).lastUsed.Store(time.Now().Add(-time.Hour).Unix())

	r.evictIdle()
	assert.Empty(t, r.Names())
}

func TestRegistry_EvictIdleSkipsReferencedEntries(t *testing.T) {
	r := NewRegistry(Config{IdleTimeout: time.Millisecond})
	defer r.Close()

	require.NoError(t, r.Install("A", &stubDataSource{}))
	v, _ := r.entries.Load("A")
	e := v.(*entry)
	e.lastUsed.Store(time.Now().Add(-time.Hour).Unix())
	e.refCount.Store(1)

	r.evictIdle()
	assert.ElementsMatch(t, []string{"A"}, r.Names())
}

func TestRegistry_CheckHealthMarksUnhealthy(t *testing.T) {
	r := NewRegistry(Config{})
	defer r.Close()

	ds := &stubDataSource{failPing: errors.New("connection refused")}
	require.NoError(t, r.Install("A", ds))

	r.checkHealth()
	assert.Equal(t, int32(1), ds.pingCount.Load())

	v, _ := r.entries.Load("A")
	assert.NotZero(t, v.(*entry).unhealthySince.Load())

	ds.failPing = nil
	r.checkHealth()
	assert.Zero(t, v.(*entry).unhealthySince.Load())
}
