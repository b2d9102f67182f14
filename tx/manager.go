package tx

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"dtx/pkg/logger"
)

var tracer = otel.Tracer("dtx/tx")

// Manager is the public facade of the declarative transaction manager: the
// Aspect (dispatch logic lives in aspect.go) plus the Registry, Statistics
// Collector, and mutable Config, all scoped to one MetadataProvider.
type Manager struct {
	metadata MetadataProvider

	cfgMu sync.RWMutex
	cfg   Config

	reg   *registry
	stats *statistics
	log   *logger.Logger
}

// NewManager constructs a Manager bound to the given MetadataProvider. If
// cfg is the zero value, DefaultConfig is used.
func NewManager(metadata MetadataProvider, cfg Config) *Manager {
	if (cfg == Config{}) {
		cfg = DefaultConfig()
	}
	m := &Manager{
		metadata: metadata,
		cfg:      cfg,
		reg:      newRegistry(),
		stats:    newStatistics(cfg.EnableStats),
		log:      logger.Default().WithComponent("tx-manager"),
	}
	m.reg.startCleanup(cfg.CleanupInterval, cfg.MaxContextAge)
	m.log.Info("transaction manager started",
		"cleanup_interval", cfg.CleanupInterval,
		"max_context_age", cfg.MaxContextAge,
		"max_nested_depth", cfg.MaxNestedDepth,
	)
	return m
}

// Configure replaces the Manager's active config with cfg as a whole; fields
// left at their zero value are not filled in from the previous config. If
// CleanupInterval differs from the previous value, the cleanup sweep is
// restarted with a fresh registry: the old
// goroutine is cancelled and a fresh one launched with the new period,
// following the same cancel-and-relaunch shape the pool manager uses for
// its eviction loop rather than retargeting a running ticker in place.
func (m *Manager) Configure(cfg Config) {
	m.cfgMu.Lock()
	prevInterval := m.cfg.CleanupInterval
	m.cfg = cfg
	m.stats.enabled.Store(cfg.EnableStats)
	restart := cfg.CleanupInterval != prevInterval
	m.cfgMu.Unlock()

	if restart {
		m.reg.stopCleanup()
		m.reg = newRegistry()
		m.reg.startCleanup(cfg.CleanupInterval, cfg.MaxContextAge)
	}
}

// GetConfig returns a read-only snapshot of the active Config.
func (m *Manager) GetConfig() Config {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return m.cfg
}

// GetStats returns a snapshot of accumulated statistics.
func (m *Manager) GetStats() Stats {
	return m.stats.snapshot()
}

// ResetStats zeroes all counters and aggregates.
func (m *Manager) ResetStats() {
	m.stats.reset()
}

// StopCleanup cancels the background reclamation sweep. Intended for tests
// and graceful shutdown.
func (m *Manager) StopCleanup() {
	m.reg.stopCleanup()
}

// GetConnectionPoolStatus returns pool diagnostics for the current
// context's data source, or the zero PoolStatus with ok=false when there
// is no current context.
func (m *Manager) GetConnectionPoolStatus(ctx context.Context) (PoolStatus, bool) {
	c := Current(ctx)
	if c == nil || c.DataSource == nil {
		return PoolStatus{}, false
	}
	return c.DataSource.PoolStatus(ctx), true
}

// RunInTransaction runs fn under REQUIRED propagation with default options,
// preserving the convenience-wrapper shape business code already relies on.
func (m *Manager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Transactional(ctx, Options{}, fn)
}

// ReadOnly runs fn under REQUIRED propagation with ReadOnly set.
func (m *Manager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Transactional(ctx, Options{ReadOnly: true}, fn)
}

// --- Ambient helpers: thin ctx.Value lookups mirroring appctx's pattern ---

// CurrentSession returns the Session bound to the current Context, or nil.
func CurrentSession(ctx context.Context) Session {
	if c := Current(ctx); c != nil {
		return c.Session
	}
	return nil
}

// CurrentEntityManager returns the current Session's higher-level query
// handle, or nil outside any transaction. Aliased to Session.EntityManager
// since this module has no separate ORM entity-manager type.
func CurrentEntityManager(ctx context.Context) any {
	if c := Current(ctx); c != nil && c.Session != nil {
		return c.Session.EntityManager()
	}
	return nil
}

// CurrentDataSource returns the DataSource bound to the current Context, or
// nil.
func CurrentDataSource(ctx context.Context) DataSource {
	if c := Current(ctx); c != nil {
		return c.DataSource
	}
	return nil
}

// CurrentOptions returns the effective Options of the current Context.
func CurrentOptions(ctx context.Context) (Options, bool) {
	if c := Current(ctx); c != nil {
		return c.Options, true
	}
	return Options{}, false
}

// CurrentStartTime returns when the current Context was created.
func CurrentStartTime(ctx context.Context) (time.Time, bool) {
	if c := Current(ctx); c != nil {
		return c.StartTime, true
	}
	return time.Time{}, false
}

// CurrentDuration returns how long the current Context has been alive.
func CurrentDuration(ctx context.Context) (durationMs int64, ok bool) {
	if c := Current(ctx); c != nil {
		return c.Duration().Milliseconds(), true
	}
	return 0, false
}

// IsInTransaction reports whether ctx has an active Context bound to it.
func IsInTransaction(ctx context.Context) bool {
	c := Current(ctx)
	return c != nil && c.Active()
}

// spanKind labels an otel span as either a root transaction or a nested
// savepoint scope.
func spanKind(nested bool) string {
	if nested {
		return "nested"
	}
	return "root"
}
