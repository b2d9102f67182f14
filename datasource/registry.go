package datasource

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dtx/pkg/logger"
	"dtx/tx"
)

// Config configures Registry lifecycle behavior: same shape the teacher's
// multi-tenant pool manager uses, since a multi-datasource deployment has
// exactly the same pooling/health-check/idle-eviction needs as a
// multi-tenant one.
type Config struct {
	MaxDataSources    int           // 0 = unlimited
	IdleTimeout       time.Duration // evict an unused entry after this long (0 = never)
	HealthCheckPeriod time.Duration // how often to ping entries (0 = disabled)
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		MaxDataSources:    50,
		IdleTimeout:       30 * time.Minute,
		HealthCheckPeriod: time.Minute,
	}
}

// Pinger is implemented by data sources capable of a cheap liveness check.
// The health-check loop uses it when present; data sources that don't
// implement it are assumed always healthy.
type Pinger interface {
	Ping(ctx context.Context) error
}

// entry wraps a tx.DataSource with lifecycle tracking.
type entry struct {
	name           string
	ds             tx.DataSource
	initialized    atomic.Bool
	lastUsed       atomic.Int64
	refCount       atomic.Int32
	unhealthySince atomic.Int64
}

func (e *entry) touch() {
	e.lastUsed.Store(time.Now().Unix())
}

// Registry resolves data source names to live tx.DataSource instances. It
// implements tx.MetadataProvider so a tx.Manager can be handed a Registry
// directly.
type Registry struct {
	cfg Config
	log *logger.Logger

	entries sync.Map // map[string]*entry
	count   atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry constructs a Registry and starts its background workers.
func NewRegistry(cfg Config) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		cfg:    cfg,
		log:    logger.Default().WithComponent("datasource-registry"),
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.IdleTimeout > 0 {
		r.wg.Add(1)
		go r.evictionLoop()
	}
	if cfg.HealthCheckPeriod > 0 {
		r.wg.Add(1)
		go r.healthCheckLoop()
	}

	r.log.Info("data source registry started",
		"max_data_sources", cfg.MaxDataSources,
		"idle_timeout", cfg.IdleTimeout,
		"health_check_period", cfg.HealthCheckPeriod,
	)
	return r
}

// Install registers ds under name, immediately initialized. Used by
// bootstrap to wire a statically-configured data source in.
func (r *Registry) Install(name string, ds tx.DataSource) error {
	if r.cfg.MaxDataSources > 0 && int(r.count.Load()) >= r.cfg.MaxDataSources {
		if _, exists := r.entries.Load(name); !exists {
			return fmt.Errorf("%w (%d)", ErrMaxDataSources, r.cfg.MaxDataSources)
		}
	}

	e := &entry{name: name, ds: ds}
	e.initialized.Store(true)
	e.touch()

	_, loaded := r.entries.LoadOrStore(name, e)
	if !loaded {
		r.count.Add(1)
	} else {
		r.entries.Store(name, e)
	}

	r.log.Info("installed data source", "name", name, "total", r.count.Load())
	return nil
}

// Remove uninstalls a data source by name. It does not close anything; the
// caller owns the tx.DataSource's lifecycle.
func (r *Registry) Remove(name string) {
	if _, ok := r.entries.LoadAndDelete(name); ok {
		r.count.Add(-1)
	}
}

// GetMetaData implements tx.MetadataProvider.
func (r *Registry) GetMetaData(name string) (tx.Metadata, bool) {
	v, ok := r.entries.Load(name)
	if !ok {
		return tx.Metadata{}, false
	}
	e := v.(*entry)
	e.touch()
	return tx.Metadata{
		DataSource:    e.ds,
		IsInitialized: e.initialized.Load(),
	}, true
}

// Names returns every currently-registered data source name.
func (r *Registry) Names() []string {
	var names []string
	r.entries.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	return names
}

func (r *Registry) evictionLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *Registry) evictIdle() {
	threshold := time.Now().Add(-r.cfg.IdleTimeout).Unix()
	r.entries.Range(func(key, value any) bool {
		name := key.(string)
		e := value.(*entry)
		if e.refCount.Load() > 0 {
			return true
		}
		if e.lastUsed.Load() < threshold {
			r.Remove(name)
			r.log.Info("evicted idle data source", "name", name)
		}
		return true
	})
}

func (r *Registry) healthCheckLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.HealthCheckPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.checkHealth()
		}
	}
}

func (r *Registry) checkHealth() {
	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()

	r.entries.Range(func(key, value any) bool {
		name := key.(string)
		e := value.(*entry)

		pinger, ok := e.ds.(Pinger)
		if !ok {
			return true
		}

		if err := pinger.Ping(ctx); err != nil {
			if e.unhealthySince.Load() == 0 {
				e.unhealthySince.Store(time.Now().Unix())
			}
			r.log.Warn("data source health check failed", "name", name, "error", err)
			return true
		}
		e.unhealthySince.Store(0)
		return true
	})
}

// Close stops the background workers. It does not close the underlying
// data sources; callers retain ownership of those.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()
}

var _ tx.MetadataProvider = (*Registry)(nil)
