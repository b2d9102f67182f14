package tx

import (
	"fmt"

	"dtx/apperror"
)

// PropagationViolationError is raised before any session is acquired, when
// the requested propagation mode's precondition is not met: NEVER invoked
// inside a transaction, or MANDATORY invoked outside one.
type PropagationViolationError struct {
	Propagation Propagation
	Reason      string
}

func (e *PropagationViolationError) Error() string {
	return fmt.Sprintf("propagation %s violated: %s", e.Propagation, e.Reason)
}

func (e *PropagationViolationError) AppError() *apperror.AppError {
	return apperror.NewPropagationViolation(e.Propagation.String(), e.Reason)
}

func newPropagationViolation(p Propagation, reason string) error {
	return &PropagationViolationError{Propagation: p, Reason: reason}
}

// NestingLimitExceededError is raised before any savepoint is created, when
// a NESTED chain would exceed Config.MaxNestedDepth.
type NestingLimitExceededError struct {
	Depth int
	Max   int
}

func (e *NestingLimitExceededError) Error() string {
	return fmt.Sprintf("nested transaction depth %d exceeds limit %d", e.Depth, e.Max)
}

func (e *NestingLimitExceededError) AppError() *apperror.AppError {
	return apperror.NewNestingLimitExceeded(e.Depth, e.Max)
}

func newNestingLimitExceeded(depth, max int) error {
	return &NestingLimitExceededError{Depth: depth, Max: max}
}

// DataSourceUnavailableError is raised before any session is acquired, when
// the named data source is absent from the registry or not initialized.
type DataSourceUnavailableError struct {
	Name  string
	Cause error
}

func (e *DataSourceUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("data source %q unavailable: %v", e.Name, e.Cause)
	}
	return fmt.Sprintf("data source %q unavailable", e.Name)
}

func (e *DataSourceUnavailableError) Unwrap() error { return e.Cause }

func (e *DataSourceUnavailableError) AppError() *apperror.AppError {
	return apperror.NewDataSourceUnavailable(e.Name, e.Cause)
}

func newDataSourceUnavailable(name string, cause error) error {
	return &DataSourceUnavailableError{Name: name, Cause: cause}
}

// TransactionTimeoutError is raised when a per-call timeout elapses during
// the body's execution. It carries enough context to correlate with logs.
type TransactionTimeoutError struct {
	ContextID string
	TimeoutMs int
}

func (e *TransactionTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s exceeded timeout of %dms", e.ContextID, e.TimeoutMs)
}

func (e *TransactionTimeoutError) AppError() *apperror.AppError {
	return apperror.NewTransactionTimeout(e.ContextID, e.TimeoutMs)
}

func newTransactionTimeout(contextID string, timeoutMs int) error {
	return &TransactionTimeoutError{ContextID: contextID, TimeoutMs: timeoutMs}
}
