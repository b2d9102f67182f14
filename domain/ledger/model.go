// Package ledger is a small demo domain — accounts and transfers — built
// to exercise dtx/tx's REQUIRED, NESTED, and read-only propagation against
// a realistic pgx-shaped repository, standing in for the kind of caller a
// transaction manager actually serves.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"dtx/core/id"
)

// Account holds a monetary balance in a single currency.
type Account struct {
	ID        id.ID           `db:"id"`
	Owner     string          `db:"owner"`
	Currency  string          `db:"currency"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// TransferStatus is the lifecycle state of a Transfer record.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"
)

// Transfer moves funds from one account to another. Its audit line is
// written under NESTED propagation, so a failed audit write rolls back to
// its savepoint without aborting the transfer; a transfer that rolls back
// takes its audit line with it.
type Transfer struct {
	ID        id.ID           `db:"id"`
	FromID    id.ID           `db:"from_account_id"`
	ToID      id.ID           `db:"to_account_id"`
	Amount    decimal.Decimal `db:"amount"`
	Status    TransferStatus  `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
}

// AuditLine is a single append-only audit record.
type AuditLine struct {
	ID         id.ID     `db:"id"`
	TransferID id.ID     `db:"transfer_id"`
	Message    string    `db:"message"`
	CreatedAt  time.Time `db:"created_at"`
}

// InsufficientFundsError is returned when a transfer would overdraw the
// source account.
type InsufficientFundsError struct {
	AccountID id.ID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return "insufficient funds in account " + e.AccountID.String()
}
