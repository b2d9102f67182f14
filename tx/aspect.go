package tx

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dtx/pkg/logger"
)

// Transactional is the decorator surface of §6: the primitive every other
// entry point (RunInTransaction, ReadOnly) is built from. It applies
// global defaults to unset option fields, observes the ambient Context,
// and dispatches by (propagation, currentCtx) per the table in §4.4.
func (m *Manager) Transactional(ctx context.Context, opts Options, fn func(ctx context.Context) error) error {
	opts = opts.withDefaults(m.GetConfig())
	current := Current(ctx)

	start := time.Now()
	var callErr error

	switch opts.Propagation {
	case Required:
		if current != nil {
			callErr = m.runWithoutBegin(ctx, current, fn)
		} else {
			callErr = m.runNewRoot(ctx, nil, opts, fn)
		}

	case RequiresNew:
		// The outer context, if any, is left open untouched; a fresh root
		// is created regardless.
		callErr = m.runNewRoot(ctx, nil, opts, fn)

	case Supports:
		if current != nil {
			callErr = m.runWithoutBegin(ctx, current, fn)
		} else {
			callErr = fn(ctx)
		}

	case NotSupported:
		if current != nil {
			callErr = RunOutside(ctx, fn)
		} else {
			callErr = fn(ctx)
		}

	case Never:
		if current != nil {
			callErr = newPropagationViolation(Never, "called inside an active transaction")
		} else {
			callErr = fn(ctx)
		}

	case Mandatory:
		if current != nil {
			callErr = m.runWithoutBegin(ctx, current, fn)
		} else {
			callErr = newPropagationViolation(Mandatory, "no transaction is active")
		}

	case Nested:
		if current == nil {
			callErr = m.runNewRoot(ctx, nil, opts, fn)
		} else {
			callErr = m.runNested(ctx, current, fn)
		}

	default:
		callErr = fmt.Errorf("unknown propagation mode %d", int(opts.Propagation))
	}

	m.stats.update(time.Since(start).Milliseconds(), callErr == nil)
	return callErr
}

// runWithoutBegin executes fn under an already-open Context without
// touching the underlying session's transaction state. Statistics are
// still updated by the caller (Transactional); this path itself is a pure
// pass-through.
func (m *Manager) runWithoutBegin(ctx context.Context, current *Context, fn func(ctx context.Context) error) error {
	return RunIn(ctx, current, fn)
}

// runNewRoot implements §4.4.1: resolve datasource, acquire session,
// begin, apply read-only, fire BeforeCommit, run the body (racing a
// timeout if configured), then commit/AfterCommit or
// BeforeRollback/rollback/AfterRollback, and clean up unconditionally.
func (m *Manager) runNewRoot(ctx context.Context, parent *Context, opts Options, fn func(ctx context.Context) error) (err error) {
	meta, ok := m.metadata.GetMetaData(opts.DataSourceName)
	if !ok || !meta.IsInitialized {
		return newDataSourceUnavailable(opts.DataSourceName, nil)
	}

	session, err := meta.DataSource.NewSession(ctx)
	if err != nil {
		return newDataSourceUnavailable(opts.DataSourceName, err)
	}

	depth := 0
	if parent != nil {
		depth = parent.Depth + 1
	}
	txCtx := &Context{
		ContextID:  newContextID(),
		Session:    session,
		DataSource: meta.DataSource,
		Options:    opts,
		StartTime:  time.Now(),
		Parent:     parent,
		Depth:      depth,
	}

	spanCtx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.context_id", txCtx.ContextID),
			attribute.String("tx.kind", spanKind(false)),
			attribute.String("tx.propagation", opts.Propagation.String()),
			attribute.String("tx.isolation", opts.Isolation.String()),
			attribute.Bool("tx.read_only", opts.ReadOnly),
		))
	defer span.End()
	ctx = spanCtx

	if err := session.Connect(ctx); err != nil {
		return fmt.Errorf("connect session: %w", err)
	}
	if err := session.Begin(ctx, opts.Isolation); err != nil {
		_ = session.Release(ctx)
		return fmt.Errorf("begin transaction: %w", err)
	}

	if opts.ReadOnly {
		if err := session.SetReadOnly(ctx); err != nil {
			m.abortRoot(ctx, txCtx, err)
			return fmt.Errorf("set read only: %w", err)
		}
	}

	if opts.Hooks.BeforeCommit != nil {
		if err := opts.Hooks.BeforeCommit(ctx); err != nil {
			m.abortRoot(ctx, txCtx, err)
			return err
		}
	}

	txCtx.setActive(true)
	m.reg.add(txCtx)

	bodyErr := m.runBody(ctx, txCtx, opts, fn)

	if bodyErr != nil {
		m.rollbackRoot(ctx, txCtx, opts)
		m.finishRoot(ctx, txCtx)
		return bodyErr
	}

	if err := session.Commit(ctx); err != nil {
		m.logIfEnabled(opts, "commit failed", "context_id", txCtx.ContextID, "error", err)
		m.finishRoot(ctx, txCtx)
		return fmt.Errorf("commit transaction: %w", err)
	}

	if opts.Hooks.AfterCommit != nil {
		if err := opts.Hooks.AfterCommit(ctx); err != nil {
			logger.Error(ctx, "after-commit hook failed",
				"context_id", txCtx.ContextID, "error", err)
		}
	}

	m.finishRoot(ctx, txCtx)
	return nil
}

// runBody runs fn under the Context Store binding, optionally racing a
// per-call timeout. Timer expiry is treated as a failure and abandons the
// body from the Aspect's perspective; the rollback path proceeds
// immediately.
func (m *Manager) runBody(ctx context.Context, txCtx *Context, opts Options, fn func(ctx context.Context) error) error {
	if opts.Timeout <= 0 {
		return RunIn(ctx, txCtx, fn)
	}

	resultC := make(chan error, 1)
	go func() {
		resultC <- RunIn(ctx, txCtx, fn)
	}()

	timer := time.NewTimer(time.Duration(opts.Timeout) * time.Millisecond)
	defer timer.Stop()

	select {
	case err := <-resultC:
		return err
	case <-timer.C:
		return newTransactionTimeout(txCtx.ContextID, opts.Timeout)
	}
}

// rollbackRoot drives the BeforeRollback/rollback/AfterRollback sequence
// for a failed root, logging and swallowing every secondary failure so the
// original body error remains what the caller sees.
func (m *Manager) rollbackRoot(ctx context.Context, txCtx *Context, opts Options) {
	if opts.Hooks.BeforeRollback != nil {
		if err := opts.Hooks.BeforeRollback(ctx); err != nil {
			logger.Error(ctx, "before-rollback hook failed",
				"context_id", txCtx.ContextID, "error", err)
		}
	}

	if txCtx.Session.IsTransactionActive() {
		if err := txCtx.Session.Rollback(ctx); err != nil {
			logger.Error(ctx, "rollback failed",
				"context_id", txCtx.ContextID, "error", err)
		}
	}

	if opts.Hooks.AfterRollback != nil {
		if err := opts.Hooks.AfterRollback(ctx); err != nil {
			logger.Error(ctx, "after-rollback hook failed",
				"context_id", txCtx.ContextID, "error", err)
		}
	}
}

// abortRoot is used for failures between begin and the body actually
// running (read-only setup, BeforeCommit): no body ever executed, so there
// is no BeforeRollback/AfterRollback pair to fire, but the session must
// still be rolled back, released, and removed from the registry.
func (m *Manager) abortRoot(ctx context.Context, txCtx *Context, cause error) {
	if txCtx.Session.IsTransactionActive() {
		if err := txCtx.Session.Rollback(ctx); err != nil {
			logger.Error(ctx, "rollback during abort failed",
				"context_id", txCtx.ContextID, "error", err)
		}
	}
	m.finishRoot(ctx, txCtx)
}

// finishRoot is the unconditional cleanup of §4.4.1 step 9: release the
// session if not already released, remove the context from the registry.
// Always runs, success or failure.
func (m *Manager) finishRoot(ctx context.Context, txCtx *Context) {
	txCtx.setActive(false)
	if !txCtx.Session.IsReleased() {
		if err := txCtx.Session.Release(ctx); err != nil {
			logger.Error(ctx, "session release failed",
				"context_id", txCtx.ContextID, "error", err)
		}
	}
	m.reg.remove(txCtx.ContextID)
}

// runNested implements §4.4.2: create a deterministically-named savepoint,
// run the body under the *same* Context, and release or roll back to the
// savepoint depending on outcome. The enclosing root is never touched.
func (m *Manager) runNested(ctx context.Context, current *Context, fn func(ctx context.Context) error) error {
	cfg := m.GetConfig()
	if current.Depth >= cfg.MaxNestedDepth {
		return newNestingLimitExceeded(current.Depth, cfg.MaxNestedDepth)
	}

	// Savepoints belong to the session, so the stack lives on the root
	// context that actually owns it — not on whichever nested Context
	// happened to be current, which may itself be several levels deep.
	root := current.root()
	name := fmt.Sprintf("sp_%s_%d", root.ContextID, len(root.Savepoints()))

	spanCtx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.context_id", root.ContextID),
			attribute.String("tx.kind", spanKind(true)),
			attribute.String("tx.savepoint", name),
			attribute.String("tx.propagation", Nested.String()),
		))
	defer span.End()
	ctx = spanCtx

	if err := current.Session.Savepoint(ctx, name); err != nil {
		return fmt.Errorf("create savepoint %s: %w", name, err)
	}
	root.pushSavepoint(name)

	nestedCtx := &Context{
		ContextID:  root.ContextID,
		Session:    current.Session,
		DataSource: current.DataSource,
		Options:    current.Options,
		StartTime:  current.StartTime,
		Parent:     current,
		Depth:      current.Depth + 1,
	}
	nestedCtx.setActive(true)

	bodyErr := RunIn(ctx, nestedCtx, fn)

	if bodyErr != nil {
		if err := current.Session.RollbackToSavepoint(ctx, name); err != nil {
			logger.Error(ctx, "rollback to savepoint failed",
				"savepoint", name, "error", err)
		}
		root.popSavepoint(name, true)
		return bodyErr
	}

	if err := current.Session.ReleaseSavepoint(ctx, name); err != nil {
		root.popSavepoint(name, true)
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	root.popSavepoint(name, false)
	return nil
}

func (m *Manager) logIfEnabled(opts Options, msg string, keysAndValues ...any) {
	cfg := m.GetConfig()
	if !cfg.EnableLogging {
		return
	}
	logger.Error(context.Background(), msg, append([]any{"name", opts.Name}, keysAndValues...)...)
}
