package tx

import (
	"time"
)

// Config governs the behavior of every Manager that does not override a
// setting through its own Options. It plays the same role for the
// transaction aspect that ManagerConfig plays for a pool manager: one
// struct, sane defaults, overridable at startup.
type Config struct {
	// DefaultTimeout is applied to a transaction body when Options.Timeout
	// is left at zero, in milliseconds.
	DefaultTimeout int

	// DefaultIsolation is applied when Options.Isolation is IsolationUnset.
	DefaultIsolation IsolationLevel

	// MaxNestedDepth caps how deep NESTED propagation may recurse before
	// NewNestingLimitExceeded is raised.
	MaxNestedDepth int

	// EnableStats turns the Statistics Collector on or off. Disabled by
	// default in tests to avoid atomic overhead that isn't being asserted on.
	EnableStats bool

	// EnableLogging gates the aspect's commit-failure log line. Hook,
	// rollback, and release failures are logged whatever its value.
	EnableLogging bool

	// CleanupInterval is how often the registry sweeps for abandoned
	// contexts (registered but never finalized, e.g. because the body
	// never returned).
	CleanupInterval time.Duration

	// MaxContextAge is how old a registered context may get before the
	// cleanup sweep force-reclaims it and logs a leak warning.
	MaxContextAge time.Duration
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:   0, // unset: the body is not raced against a timer
		DefaultIsolation: ReadCommitted,
		MaxNestedDepth:   10,
		EnableStats:      true,
		EnableLogging:    true,
		CleanupInterval:  5 * time.Minute,
		MaxContextAge:    30 * time.Minute,
	}
}
