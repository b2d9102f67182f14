package ledger

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"dtx/apperror"
	"dtx/core/id"
	"dtx/storage/postgres"
)

// Repository is the storage boundary for the ledger demo domain, built on
// squirrel for statement construction and scany/pgxscan for row scanning —
// the same pairing the teacher repo's catalog repositories use.
type Repository struct {
	pool *postgres.Pool
}

func NewRepository(pool *postgres.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repository) querier(ctx context.Context) postgres.Querier {
	return postgres.CurrentQuerier(ctx, r.pool)
}

// GetAccount retrieves an account by id.
func (r *Repository) GetAccount(ctx context.Context, accountID id.ID) (*Account, error) {
	var acc Account
	sql, args, err := r.builder().
		Select("id", "owner", "currency", "balance", "created_at", "updated_at").
		From("ledger_accounts").
		Where(squirrel.Eq{"id": accountID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get account query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), &acc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", accountID.String())
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acc, nil
}

// GetAccountForUpdate retrieves an account with a row lock, for use inside
// a transfer's transaction.
func (r *Repository) GetAccountForUpdate(ctx context.Context, accountID id.ID) (*Account, error) {
	var acc Account
	sql, args, err := r.builder().
		Select("id", "owner", "currency", "balance", "created_at", "updated_at").
		From("ledger_accounts").
		Where(squirrel.Eq{"id": accountID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get account for update query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), &acc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", accountID.String())
		}
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return &acc, nil
}

// CreateAccount inserts a new account with the given opening balance.
func (r *Repository) CreateAccount(ctx context.Context, acc *Account) error {
	sql, args, err := r.builder().
		Insert("ledger_accounts").
		Columns("id", "owner", "currency", "balance").
		Values(acc.ID, acc.Owner, acc.Currency, acc.Balance).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create account: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// SetBalance updates an account's balance.
func (r *Repository) SetBalance(ctx context.Context, accountID id.ID, balance decimal.Decimal) error {
	sql, args, err := r.builder().
		Update("ledger_accounts").
		Set("balance", balance).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": accountID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set balance: %w", err)
	}
	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("account", accountID.String())
	}
	return nil
}

// CreateTransfer inserts a transfer record.
func (r *Repository) CreateTransfer(ctx context.Context, t *Transfer) error {
	sql, args, err := r.builder().
		Insert("ledger_transfers").
		Columns("id", "from_account_id", "to_account_id", "amount", "status").
		Values(t.ID, t.FromID, t.ToID, t.Amount, t.Status).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create transfer: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

// SetTransferStatus updates a transfer's status.
func (r *Repository) SetTransferStatus(ctx context.Context, transferID id.ID, status TransferStatus) error {
	sql, args, err := r.builder().
		Update("ledger_transfers").
		Set("status", status).
		Where(squirrel.Eq{"id": transferID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set transfer status: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("set transfer status: %w", err)
	}
	return nil
}

// CreateAuditLine inserts an audit trail entry. Called from within a
// NESTED scope so it can be rolled back to its own savepoint without
// affecting the enclosing transfer.
func (r *Repository) CreateAuditLine(ctx context.Context, line *AuditLine) error {
	sql, args, err := r.builder().
		Insert("ledger_audit_lines").
		Columns("id", "transfer_id", "message").
		Values(line.ID, line.TransferID, line.Message).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create audit line: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("create audit line: %w", err)
	}
	return nil
}
