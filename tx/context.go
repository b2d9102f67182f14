package tx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Context is the central entity of the transaction manager: it binds one
// logical transaction to exactly one Session for its entire lifetime.
type Context struct {
	ContextID  string
	Session    Session
	DataSource DataSource
	Options    Options
	StartTime  time.Time
	Parent     *Context
	Depth      int

	mu         sync.Mutex
	savepoints []string
	active     bool
}

// Savepoints returns a snapshot of the savepoint names currently
// outstanding on this context's session, outermost first.
func (c *Context) Savepoints() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.savepoints))
	copy(out, c.savepoints)
	return out
}

func (c *Context) pushSavepoint(name string) {
	c.mu.Lock()
	c.savepoints = append(c.savepoints, name)
	c.mu.Unlock()
}

// popSavepoint removes the named savepoint. With truncate set (the
// RollbackToSavepoint case) every savepoint created after it is discarded
// too, since a rollback invalidates everything layered on top of the
// target; without it (the release case) only the named entry is removed.
func (c *Context) popSavepoint(name string, truncate bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, sp := range c.savepoints {
		if sp == name {
			if truncate {
				c.savepoints = c.savepoints[:i]
			} else {
				c.savepoints = append(c.savepoints[:i], c.savepoints[i+1:]...)
			}
			return
		}
	}
}

// Active reports whether the context is between begin and commit/rollback.
func (c *Context) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Context) setActive(v bool) {
	c.mu.Lock()
	c.active = v
	c.mu.Unlock()
}

// Duration returns how long this context has been alive.
func (c *Context) Duration() time.Duration {
	return time.Since(c.StartTime)
}

// root walks the Parent chain to the context that actually owns the
// session (depth 0), since nested contexts only borrow it.
func (c *Context) root() *Context {
	for c.Parent != nil {
		c = c.Parent
	}
	return c
}

// contextKey is the lookup key used to bind a *Context to a
// context.Context. Deliberately unexported: business code must go through
// Current/RunIn/RunOutside, never read the value directly.
type contextKey struct{}

// Current returns the Context bound to ctx by the most recent RunIn on its
// ancestry, or nil if there is none (including inside a RunOutside scope).
func Current(ctx context.Context) *Context {
	if v, ok := ctx.Value(contextKey{}).(*Context); ok {
		return v
	}
	return nil
}

// RunIn executes fn such that Current(ctx) returns txCtx for fn's entire
// dynamic extent, including anything fn awaits through the ctx it is
// handed. Because Go carries context.Context explicitly through every call,
// this is simply binding a value on a derived context — the propagation
// guarantee Context Store implementations on other runtimes have to build
// explicitly comes for free here as long as callers thread ctx through.
func RunIn(ctx context.Context, txCtx *Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, contextKey{}, txCtx))
}

// RunOutside executes fn such that Current(ctx) returns nil inside it,
// regardless of what was bound on ctx. Used by NOT_SUPPORTED propagation to
// suspend an outer transaction for the inner call's duration.
func RunOutside(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, contextKey{}, (*Context)(nil)))
}

var idSequence atomic.Uint64

// newContextID generates an opaque id that is monotonically unique within
// the process: a millisecond timestamp plus a per-process counter plus a
// few random bytes, so ids sort roughly chronologically without needing a
// full UUID dependency for something never exposed outside logs.
func newContextID() string {
	seq := idSequence.Add(1)
	var rnd [4]byte
	_, _ = rand.Read(rnd[:])
	return fmt.Sprintf("%x-%x-%s", time.Now().UnixMilli(), seq, hex.EncodeToString(rnd[:]))
}
