package tx

import (
	"context"
	"sync"
	"time"

	"dtx/pkg/logger"
)

// registry is a process-wide mapping from context id to live Context,
// used solely for leak detection and forced reclamation of contexts that
// outlived maxContextAge — never for lookup by business code.
type registry struct {
	mu    sync.Mutex
	live  map[string]*Context
	stopC chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func newRegistry() *registry {
	return &registry{
		live:  make(map[string]*Context),
		stopC: make(chan struct{}),
	}
}

func (r *registry) add(c *Context) {
	r.mu.Lock()
	r.live[c.ContextID] = c
	r.mu.Unlock()
}

func (r *registry) remove(contextID string) {
	r.mu.Lock()
	delete(r.live, contextID)
	r.mu.Unlock()
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// snapshot returns every live Context at the moment of the call; the
// cleanup sweep iterates this copy rather than holding the lock for the
// duration of reclamation.
func (r *registry) snapshot() []*Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Context, 0, len(r.live))
	for _, c := range r.live {
		out = append(out, c)
	}
	return out
}

// startCleanup launches a background sweep that reclaims any context older
// than maxAge: rolls back its session if still active, releases it if not
// released, logs a warning, and removes it from the registry. It never
// blocks the caller and is safe to call at most once per registry.
func (r *registry) startCleanup(interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep(maxAge)
			case <-r.stopC:
				return
			}
		}
	}()
}

func (r *registry) sweep(maxAge time.Duration) {
	ctx := context.Background()
	for _, c := range r.snapshot() {
		if c.Duration() <= maxAge {
			continue
		}
		if c.Active() {
			if err := c.Session.Rollback(ctx); err != nil {
				logger.Error(ctx, "registry reclamation: rollback failed",
					"context_id", c.ContextID, "error", err)
			}
			c.setActive(false)
		}
		if !c.Session.IsReleased() {
			if err := c.Session.Release(ctx); err != nil {
				logger.Error(ctx, "registry reclamation: release failed",
					"context_id", c.ContextID, "error", err)
			}
		}
		r.remove(c.ContextID)
		logger.Warn(ctx, "reclaimed abandoned transaction context",
			"context_id", c.ContextID,
			"age", c.Duration().String(),
			"name", c.Options.Name)
	}
}

// stopCleanup cancels the sweep goroutine, if running, and waits for it to
// exit. Safe to call more than once and safe to call when the sweep was
// never started.
func (r *registry) stopCleanup() {
	r.once.Do(func() { close(r.stopC) })
	r.wg.Wait()
}
