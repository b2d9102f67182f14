package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorIncludesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestAsAppError_ExtractsFromWrappedChain(t *testing.T) {
	original := NewNotFound("account", "abc")
	wrapped := errors.Join(errors.New("outer"), original)

	got, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeNotFound, got.Code)
}

func TestAsAppError_FalseForPlainError(t *testing.T) {
	_, ok := AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestWithDetail_AddsEntries(t *testing.T) {
	err := NewValidation("bad input").WithDetail("field", "amount")
	assert.Equal(t, "amount", err.Details["field"])
}

func TestNewPropagationViolation(t *testing.T) {
	err := NewPropagationViolation("NEVER", "called inside an active transaction")
	assert.Equal(t, CodePropagationViolation, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.Equal(t, "NEVER", err.Details["propagation"])
}

func TestNewNestingLimitExceeded(t *testing.T) {
	err := NewNestingLimitExceeded(11, 10)
	assert.Equal(t, CodeNestingLimitExceeded, err.Code)
	assert.Equal(t, 11, err.Details["depth"])
	assert.Equal(t, 10, err.Details["max"])
}

func TestNewDataSourceUnavailable(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewDataSourceUnavailable("DB", cause)
	assert.Equal(t, CodeDataSourceUnavailable, err.Code)
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
	assert.Same(t, cause, err.Err)
}

func TestNewTransactionTimeout(t *testing.T) {
	err := NewTransactionTimeout("ledger.Transfer", 5000)
	assert.Equal(t, CodeTransactionTimeout, err.Code)
	assert.Equal(t, http.StatusRequestTimeout, err.HTTPStatus)
	assert.Equal(t, 5000, err.Details["timeout_ms"])
}

func TestGetHTTPStatus_DefaultsToInternalForPlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("plain")))
}
