package tx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrent_NilWhenUnset(t *testing.T) {
	assert.Nil(t, Current(context.Background()))
}

func TestRunIn_BindsContextForDynamicExtent(t *testing.T) {
	txCtx := &Context{ContextID: "c1"}
	var seen *Context
	err := RunIn(context.Background(), txCtx, func(ctx context.Context) error {
		seen = Current(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, txCtx, seen)
}

func TestRunOutside_SuspendsAmbientContext(t *testing.T) {
	txCtx := &Context{ContextID: "c1"}
	var sawNil bool
	err := RunIn(context.Background(), txCtx, func(ctx context.Context) error {
		return RunOutside(ctx, func(ctx context.Context) error {
			sawNil = Current(ctx) == nil
			return nil
		})
	})
	require.NoError(t, err)
	assert.True(t, sawNil)
}

func TestContext_RootWalksToOwner(t *testing.T) {
	root := &Context{ContextID: "root"}
	mid := &Context{ContextID: "mid", Parent: root, Depth: 1}
	leaf := &Context{ContextID: "leaf", Parent: mid, Depth: 2}

	assert.Same(t, root, leaf.root())
	assert.Same(t, root, mid.root())
	assert.Same(t, root, root.root())
}

func TestContext_SavepointStackPushPop(t *testing.T) {
	c := &Context{ContextID: "root"}
	c.pushSavepoint("sp_a")
	c.pushSavepoint("sp_b")
	c.pushSavepoint("sp_c")
	assert.Equal(t, []string{"sp_a", "sp_b", "sp_c"}, c.Savepoints())

	// Truncating pop (rollback) discards everything layered on top.
	c.popSavepoint("sp_b", true)
	assert.Equal(t, []string{"sp_a"}, c.Savepoints())
}

func TestContext_SavepointStackPopNonTruncating(t *testing.T) {
	c := &Context{ContextID: "root"}
	c.pushSavepoint("sp_a")
	c.pushSavepoint("sp_b")

	// Releasing only removes the named entry.
	c.popSavepoint("sp_a", false)
	assert.Equal(t, []string{"sp_b"}, c.Savepoints())
}

func TestNewContextID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newContextID()
		require.False(t, seen[id], "duplicate context id generated")
		seen[id] = true
	}
}
