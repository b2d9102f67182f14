package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"dtx/core/id"
	"dtx/pkg/logger"
	"dtx/tx"
)

// Service is the ledger's application-level entry point: it wraps a
// Repository with a *tx.Manager and exposes operations that demonstrate
// REQUIRED, NESTED, and read-only propagation end to end.
type Service struct {
	mgr  *tx.Manager
	repo *Repository
}

func NewService(mgr *tx.Manager, repo *Repository) *Service {
	return &Service{mgr: mgr, repo: repo}
}

// Transfer moves amount from fromID to toID. It runs under REQUIRED
// propagation: if the caller is already inside a transaction, the transfer
// joins it; otherwise a new root transaction is opened. The audit line is
// written under NESTED propagation on its own savepoint, so a failure
// writing the audit trail rolls back only the audit write, not the
// transfer itself. A failure in the transfer proper rolls back the whole
// transaction, audit line included.
func (s *Service) Transfer(ctx context.Context, fromID, toID id.ID, amount decimal.Decimal) (*Transfer, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("transfer: amount must be positive")
	}

	transfer := &Transfer{
		ID:     id.New(),
		FromID: fromID,
		ToID:   toID,
		Amount: amount,
		Status: TransferPending,
	}

	err := s.mgr.Transactional(ctx, tx.Options{
		Propagation: tx.Required,
		Name:        "ledger.Transfer",
	}, func(ctx context.Context) error {
		from, err := s.repo.GetAccountForUpdate(ctx, fromID)
		if err != nil {
			return fmt.Errorf("load source account: %w", err)
		}
		if from.Balance.LessThan(amount) {
			return &InsufficientFundsError{
				AccountID: fromID,
				Available: from.Balance,
				Requested: amount,
			}
		}

		to, err := s.repo.GetAccountForUpdate(ctx, toID)
		if err != nil {
			return fmt.Errorf("load destination account: %w", err)
		}

		if err := s.repo.CreateTransfer(ctx, transfer); err != nil {
			return fmt.Errorf("record transfer: %w", err)
		}

		if err := s.repo.SetBalance(ctx, fromID, from.Balance.Sub(amount)); err != nil {
			return fmt.Errorf("debit source account: %w", err)
		}
		if err := s.repo.SetBalance(ctx, toID, to.Balance.Add(amount)); err != nil {
			return fmt.Errorf("credit destination account: %w", err)
		}

		if err := s.writeAudit(ctx, transfer.ID, "debit/credit applied"); err != nil {
			logger.Warn(ctx, "audit line rolled back to its savepoint; transfer continues",
				"transfer_id", transfer.ID, "error", err)
		}

		transfer.Status = TransferCompleted
		return s.repo.SetTransferStatus(ctx, transfer.ID, TransferCompleted)
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// writeAudit appends an audit line under its own NESTED scope: a savepoint
// inside the enclosing transaction, rolled back on its own if the write
// fails.
func (s *Service) writeAudit(ctx context.Context, transferID id.ID, message string) error {
	return s.mgr.Transactional(ctx, tx.Options{
		Propagation: tx.Nested,
		Name:        "ledger.writeAudit",
	}, func(ctx context.Context) error {
		return s.repo.CreateAuditLine(ctx, &AuditLine{
			ID:         id.New(),
			TransferID: transferID,
			Message:    message,
		})
	})
}

// Balance reads an account's current balance under SUPPORTS propagation:
// it joins an ambient transaction if one exists (to see uncommitted
// writes from the same unit of work), but runs without one otherwise.
func (s *Service) Balance(ctx context.Context, accountID id.ID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.mgr.Transactional(ctx, tx.Options{
		Propagation: tx.Supports,
		ReadOnly:    true,
		Name:        "ledger.Balance",
	}, func(ctx context.Context) error {
		acc, err := s.repo.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		balance = acc.Balance
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return balance, nil
}

// OpenAccount creates a new account with the given opening balance, always
// in its own root transaction regardless of any ambient one.
func (s *Service) OpenAccount(ctx context.Context, owner, currency string, opening decimal.Decimal) (*Account, error) {
	acc := &Account{
		ID:       id.New(),
		Owner:    owner,
		Currency: currency,
		Balance:  opening,
	}
	err := s.mgr.Transactional(ctx, tx.Options{
		Propagation: tx.RequiresNew,
		Name:        "ledger.OpenAccount",
	}, func(ctx context.Context) error {
		return s.repo.CreateAccount(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}
