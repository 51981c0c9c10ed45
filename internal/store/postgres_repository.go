/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It holds the coin ledger queries and the helpers shared by the other
 * postgres_repository_*.go files.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scholarbridge/request-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const coinAccountColumns = `id, user_id, user_model, balance, last_updated, created_at`

// debitCoinAccountSQL carries the balance guard in its WHERE clause, so concurrent debits cannot
// both pass it.
const debitCoinAccountSQL = `
		UPDATE coin_accounts
		SET balance = balance - $3,
			last_updated = NOW()
		WHERE user_id = $1
		  AND user_model = $2
		  AND balance >= $3
		RETURNING ` + coinAccountColumns

func scanCoinAccount(row pgx.Row) (*domain.CoinAccount, error) {
	var (
		account domain.CoinAccount
		model   string
	)
	if err := row.Scan(
		&account.ID,
		&account.Owner.ID,
		&model,
		&account.Balance,
		&account.LastUpdated,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}
	account.Owner.Model = domain.UserModel(model)
	return &account, nil
}

func ensureCoinAccount(ctx context.Context, q querier, owner domain.UserRef, defaultBalance int64) error {
	if defaultBalance < 0 {
		defaultBalance = domain.DefaultCoinBalance
	}
	_, err := q.Exec(ctx, `
		INSERT INTO coin_accounts (id, user_id, user_model, balance)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, user_model) DO NOTHING
	`, uuid.New(), owner.ID, string(owner.Model), defaultBalance)
	if err != nil {
		return fmt.Errorf("failed to ensure coin account: %w", err)
	}
	return nil
}

// GetOrCreateCoinAccount returns the persisted account, creating it with defaultBalance on first use.
func (r *PostgresRepository) GetOrCreateCoinAccount(ctx context.Context, owner domain.UserRef, defaultBalance int64) (*domain.CoinAccount, error) {
	if err := ensureCoinAccount(ctx, r.db, owner, defaultBalance); err != nil {
		return nil, err
	}
	return scanCoinAccount(r.db.QueryRow(ctx,
		`SELECT `+coinAccountColumns+` FROM coin_accounts WHERE user_id = $1 AND user_model = $2`,
		owner.ID, string(owner.Model),
	))
}

// DebitCoins atomically decrements the balance only when it covers the amount.
func (r *PostgresRepository) DebitCoins(ctx context.Context, mutation domain.CoinMutation) (*domain.CoinAccount, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := debitCoinsTx(ctx, tx, mutation)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return account, nil
}

// CreditCoins atomically increments the balance.
func (r *PostgresRepository) CreditCoins(ctx context.Context, mutation domain.CoinMutation) (*domain.CoinAccount, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := creditCoinsTx(ctx, tx, mutation)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return account, nil
}

func debitCoinsTx(ctx context.Context, tx pgx.Tx, mutation domain.CoinMutation) (*domain.CoinAccount, error) {
	if err := ensureCoinAccount(ctx, tx, mutation.Owner, mutation.DefaultBalance); err != nil {
		return nil, err
	}

	account, err := scanCoinAccount(tx.QueryRow(ctx, debitCoinAccountSQL,
		mutation.Owner.ID, string(mutation.Owner.Model), mutation.Amount,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}

	if err := insertCoinLedgerEntryTx(ctx, tx, account, -mutation.Amount, mutation.Reason, mutation.ReferenceID); err != nil {
		return nil, err
	}
	return account, nil
}

func creditCoinsTx(ctx context.Context, tx pgx.Tx, mutation domain.CoinMutation) (*domain.CoinAccount, error) {
	if err := ensureCoinAccount(ctx, tx, mutation.Owner, mutation.DefaultBalance); err != nil {
		return nil, err
	}

	account, err := scanCoinAccount(tx.QueryRow(ctx, `
		UPDATE coin_accounts
		SET balance = balance + $3,
			last_updated = NOW()
		WHERE user_id = $1
		  AND user_model = $2
		RETURNING `+coinAccountColumns,
		mutation.Owner.ID, string(mutation.Owner.Model), mutation.Amount,
	))
	if err != nil {
		return nil, err
	}

	if err := insertCoinLedgerEntryTx(ctx, tx, account, mutation.Amount, mutation.Reason, mutation.ReferenceID); err != nil {
		return nil, err
	}
	return account, nil
}

func insertCoinLedgerEntryTx(ctx context.Context, tx pgx.Tx, account *domain.CoinAccount, amount int64, reason string, referenceID *uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO coin_ledger_entries (id, account_id, user_id, user_model, amount, balance_after, reason, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.New(), account.ID, account.Owner.ID, string(account.Owner.Model), amount, account.Balance, reason, referenceID)
	if err != nil {
		return fmt.Errorf("failed to write coin ledger entry: %w", err)
	}
	return nil
}

// ListCoinLedgerEntries returns the newest entries first.
func (r *PostgresRepository) ListCoinLedgerEntries(ctx context.Context, owner domain.UserRef, limit, offset int) ([]domain.CoinLedgerEntry, error) {
	limit = ClampLimit(limit, 50, 100)
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, user_id, user_model, amount, balance_after, reason, reference_id, created_at
		FROM coin_ledger_entries
		WHERE user_id = $1 AND user_model = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, owner.ID, string(owner.Model), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.CoinLedgerEntry, 0, limit)
	for rows.Next() {
		var (
			entry domain.CoinLedgerEntry
			model string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Owner.ID,
			&model,
			&entry.Amount,
			&entry.BalanceAfter,
			&entry.Reason,
			&entry.ReferenceID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Owner.Model = domain.UserModel(model)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// FindUserContact reads the email directory maintained by the user service.
func (r *PostgresRepository) FindUserContact(ctx context.Context, user domain.UserRef) (*domain.UserContact, error) {
	contact := domain.UserContact{User: user}
	err := r.db.QueryRow(ctx,
		`SELECT email, COALESCE(name, '') FROM user_contacts WHERE user_id = $1 AND user_model = $2`,
		user.ID, string(user.Model),
	).Scan(&contact.Email, &contact.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	return &contact, nil
}
