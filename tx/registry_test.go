package tx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddRemoveCount(t *testing.T) {
	r := newRegistry()
	c1 := &Context{ContextID: "a", Session: newMockSession("a"), StartTime: time.Now()}
	c2 := &Context{ContextID: "b", Session: newMockSession("b"), StartTime: time.Now()}

	r.add(c1)
	r.add(c2)
	assert.Equal(t, 2, r.count())

	r.remove("a")
	assert.Equal(t, 1, r.count())
	assert.Equal(t, []*Context{c2}, r.snapshot())
}

func TestRegistry_SweepReclaimsAbandonedContexts(t *testing.T) {
	r := newRegistry()
	sess := newMockSession("leaked")
	leaked := &Context{
		ContextID: "leaked",
		Session:   sess,
		StartTime: time.Now().Add(-time.Hour),
	}
	leaked.setActive(true)
	r.add(leaked)

	fresh := &Context{
		ContextID: "fresh",
		Session:   newMockSession("fresh"),
		StartTime: time.Now(),
	}
	r.add(fresh)

	r.sweep(time.Minute)

	assert.Equal(t, 1, r.count())
	assert.Equal(t, []*Context{fresh}, r.snapshot())
	assert.Contains(t, sess.calls(), "rollback")
	assert.Contains(t, sess.calls(), "release")
	assert.False(t, leaked.Active())
}

func TestRegistry_SweepLeavesYoungContextsAlone(t *testing.T) {
	r := newRegistry()
	sess := newMockSession("young")
	young := &Context{
		ContextID: "young",
		Session:   sess,
		StartTime: time.Now(),
	}
	young.setActive(true)
	r.add(young)

	r.sweep(time.Hour)

	assert.Equal(t, 1, r.count())
	assert.Empty(t, sess.calls())
}

func TestRegistry_StopCleanupIsIdempotent(t *testing.T) {
	r := newRegistry()
	r.startCleanup(time.Millisecond, time.Hour)
	r.stopCleanup()
	require.NotPanics(t, func() { r.stopCleanup() })
}
