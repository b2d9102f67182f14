package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"dtx/tx"
)

func TestIsolationToPgx(t *testing.T) {
	cases := []struct {
		in   tx.IsolationLevel
		want pgx.TxIsoLevel
	}{
		{tx.IsolationUnset, ""},
		{tx.ReadUncommitted, pgx.ReadUncommitted},
		{tx.ReadCommitted, pgx.ReadCommitted},
		{tx.RepeatableRead, pgx.RepeatableRead},
		{tx.Serializable, pgx.Serializable},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, isolationToPgx(c.in))
	}
}
