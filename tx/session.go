package tx

import "context"

// Session is a single stateful channel to a database, capable of starting,
// finishing, and releasing one transaction. A Context owns exactly one
// Session for its entire lifetime; nothing else is allowed to touch it
// concurrently.
type Session interface {
	// Connect acquires the underlying connection (e.g. from a pool). It is
	// called exactly once per Session, before Begin.
	Connect(ctx context.Context) error

	// Begin starts the transaction. isolation may be IsolationUnset, in
	// which case the database default applies.
	Begin(ctx context.Context, isolation IsolationLevel) error

	// SetReadOnly marks the already-begun transaction as read-only. Called
	// only when Options.ReadOnly is true.
	SetReadOnly(ctx context.Context) error

	// Savepoint creates a named savepoint on the current transaction.
	Savepoint(ctx context.Context, name string) error

	// ReleaseSavepoint releases a previously created savepoint, keeping its
	// effects.
	ReleaseSavepoint(ctx context.Context, name string) error

	// RollbackToSavepoint undoes everything since the named savepoint was
	// created, without aborting the enclosing transaction.
	RollbackToSavepoint(ctx context.Context, name string) error

	// Commit commits the transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the transaction. Implementations should tolerate being
	// called with a context whose deadline has already passed (the Aspect
	// may use a detached context for rollback/release during cleanup).
	Rollback(ctx context.Context) error

	// Release returns the underlying connection to its pool. Idempotent:
	// calling it more than once must not panic or error.
	Release(ctx context.Context) error

	// Execute runs a raw statement against the session (the Postgres
	// adapter routes its read-only and savepoint statements through it).
	Execute(ctx context.Context, statement string) error

	// IsTransactionActive reports whether Begin has succeeded and neither
	// Commit nor Rollback has completed yet.
	IsTransactionActive() bool

	// IsReleased reports whether Release has already completed.
	IsReleased() bool

	// EntityManager returns the higher-level ORM/query handle bound to this
	// session's current transaction (or to the bare connection, if no
	// transaction has begun). dtx/tx treats the return value opaquely; it
	// exists purely so CurrentEntityManager can hand it back to callers.
	EntityManager() any
}

// DataSource creates Sessions and reports coarse pool diagnostics. One
// DataSource corresponds to one physical database; a process may register
// several under distinct names through a MetadataProvider.
type DataSource interface {
	// NewSession acquires a fresh, unconnected Session.
	NewSession(ctx context.Context) (Session, error)

	// PoolStatus reports whether the pool is initialized and whether
	// metadata about it is available, for GetConnectionPoolStatus.
	PoolStatus(ctx context.Context) PoolStatus
}

// PoolStatus is the diagnostic shape returned by GetConnectionPoolStatus.
type PoolStatus struct {
	Initialized bool
	HasMetadata bool
}

// Metadata is what a MetadataProvider returns for a registered data source
// name.
type Metadata struct {
	DataSource    DataSource
	IsInitialized bool
}

// MetadataProvider resolves a datasourceName to its DataSource, playing the
// role of the host application's metadata registry in §6 of the design:
// the Aspect never talks to a connection pool directly, only through this
// indirection.
type MetadataProvider interface {
	GetMetaData(name string) (Metadata, bool)
}
