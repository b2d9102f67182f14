package querylog

import (
	"context"
	"errors"
	"testing"
	"time"

	"dtx/pkg/logger"
)

func TestAdapter_DisabledIsNoOp(t *testing.T) {
	a := New(logger.Default(), Config{Enabled: false})
	// Must not panic even with a zero-value Event.
	a.Log(context.Background(), Event{})
}

func TestAdapter_LogsQueryEvent(t *testing.T) {
	a := New(logger.Default(), Config{Enabled: true})
	a.Log(context.Background(), Event{Kind: KindQuery, SQL: "select 1", Duration: time.Millisecond})
}

func TestAdapter_ReclassifiesSlowQuery(t *testing.T) {
	a := New(logger.Default(), Config{Enabled: true, SlowQueryThreshold: time.Millisecond})
	a.Log(context.Background(), Event{
		Kind:     KindQuery,
		SQL:      "select pg_sleep(1)",
		Duration: 10 * time.Millisecond,
	})
}

func TestAdapter_LogsErrorEvent(t *testing.T) {
	a := New(logger.Default(), Config{Enabled: true})
	a.Log(context.Background(), Event{
		Kind: KindQuery,
		SQL:  "insert into x values (1)",
		Err:  errors.New("constraint violation"),
	})
}
