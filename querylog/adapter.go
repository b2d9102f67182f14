// Package querylog forwards driver query events to the application
// logger, as the out-of-core "query-log adapter" of spec.md §6/§9.
package querylog

import (
	"context"
	"time"

	"dtx/pkg/logger"
)

// Kind identifies which driver event an Event carries.
type Kind string

const (
	KindQuery       Kind = "query"
	KindSlowQuery   Kind = "slow_query"
	KindSchema      Kind = "schema"
	KindMigration   Kind = "migration"
	KindTransaction Kind = "transaction"
)

// Event is the minimal shape the storage adapter emits for every
// query/slow-query/schema/migration occurrence.
type Event struct {
	Kind     Kind
	SQL      string
	Args     []any
	Duration time.Duration
	Err      error
}

// Adapter forwards Events to a logger.Logger. enabled is read once at
// construction and checked before any formatting work, so a disabled
// adapter does zero allocation per event.
type Adapter struct {
	log          *logger.Logger
	enabled      bool
	slowQueryMin time.Duration
}

// Config configures an Adapter.
type Config struct {
	// Enabled toggles all logging; cached at construction for hot-path
	// efficiency, matching spec.md §9's "cached at adapter construction"
	// requirement.
	Enabled bool

	// SlowQueryThreshold reclassifies a KindQuery event as a slow-query
	// warning when its Duration exceeds this. Zero disables reclassification.
	SlowQueryThreshold time.Duration
}

// New constructs an Adapter bound to log.
func New(log *logger.Logger, cfg Config) *Adapter {
	return &Adapter{
		log:          log,
		enabled:      cfg.Enabled,
		slowQueryMin: cfg.SlowQueryThreshold,
	}
}

// Log forwards a single Event. A no-op when the adapter was constructed
// with Enabled=false.
func (a *Adapter) Log(ctx context.Context, ev Event) {
	if !a.enabled {
		return
	}

	kind := ev.Kind
	if kind == KindQuery && a.slowQueryMin > 0 && ev.Duration > a.slowQueryMin {
		kind = KindSlowQuery
	}

	fields := []any{
		"kind", kind,
		"sql", ev.SQL,
		"duration_ms", ev.Duration.Milliseconds(),
	}
	if ev.Err != nil {
		fields = append(fields, "error", ev.Err)
		a.log.WithContext(ctx).Errorw("query event", fields...)
		return
	}

	switch kind {
	case KindSlowQuery:
		a.log.WithContext(ctx).Warnw("slow query", fields...)
	default:
		a.log.WithContext(ctx).Debugw("query event", fields...)
	}
}
