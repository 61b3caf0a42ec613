package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkarsten/bankledger/internal/domain"
)

// Postgres error codes: unique constraint breach and deadlock abort.
const (
	uniqueViolation  = "23505"
	deadlockDetected = "40P01"
)

// Postgres is the production LedgerStore engine backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ LedgerStore = (*Postgres)(nil)

// NewPostgres connects a pool and registers the NUMERIC <-> decimal.Decimal
// codec on every connection.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) FindAccountByIBAN(ctx context.Context, iban string) (*domain.Account, error) {
	var account domain.Account
	err := p.pool.QueryRow(ctx,
		"SELECT id, iban, owner_name, balance, created_at, version FROM accounts WHERE iban = $1",
		iban,
	).Scan(&account.ID, &account.IBAN, &account.OwnerName, &account.Balance, &account.CreatedAt, &account.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	return &account, nil
}

func (p *Postgres) AccountExists(ctx context.Context, iban string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM accounts WHERE iban = $1)", iban,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("account existence check failed: %w", err)
	}
	return exists, nil
}

func (p *Postgres) InsertAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	inserted := *account
	err := p.pool.QueryRow(ctx,
		"INSERT INTO accounts (iban, owner_name, balance, created_at, version) VALUES ($1, $2, $3, $4, 1) RETURNING id, version",
		account.IBAN, account.OwnerName, account.Balance, account.CreatedAt,
	).Scan(&inserted.ID, &inserted.Version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("account insert failed: %w", err)
	}
	return &inserted, nil
}

// CommitAtomic persists the listed account updates and transactions in one
// database transaction. Each account row is updated conditioned on its
// expected version; zero rows affected means a concurrent writer got there
// first and the whole commit rolls back with ErrVersionConflict.
func (p *Postgres) CommitAtomic(ctx context.Context, updates []AccountUpdate, transactions []*domain.Transaction) ([]*domain.Transaction, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Update rows in ID order so concurrent commits touching the same
	// accounts always acquire row locks in the same sequence. Without this,
	// opposite-direction transfers deadlock instead of hitting a plain
	// version conflict.
	for _, u := range orderByAccountID(updates) {
		ct, err := tx.Exec(ctx,
			"UPDATE accounts SET balance = $1, version = version + 1 WHERE id = $2 AND version = $3",
			u.Account.Balance, u.Account.ID, u.ExpectedVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("account update failed: %w", mapCommitError(err))
		}
		if ct.RowsAffected() == 0 {
			return nil, fmt.Errorf("account %d at version %d: %w", u.Account.ID, u.ExpectedVersion, ErrVersionConflict)
		}
	}

	for _, t := range transactions {
		err := tx.QueryRow(ctx,
			"INSERT INTO transactions (account_id, amount, type, reference, timestamp) VALUES ($1, $2, $3, $4, $5) RETURNING id",
			t.AccountID, t.Amount, t.Type, t.Reference, t.Timestamp,
		).Scan(&t.ID)
		if err != nil {
			return nil, fmt.Errorf("transaction insert failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", mapCommitError(err))
	}

	for _, u := range updates {
		u.Account.Version = u.ExpectedVersion + 1
	}
	return transactions, nil
}

// orderByAccountID returns the updates sorted by account ID, leaving the
// caller's slice untouched.
func orderByAccountID(updates []AccountUpdate) []AccountUpdate {
	ordered := make([]AccountUpdate, len(updates))
	copy(ordered, updates)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Account.ID < ordered[j].Account.ID
	})
	return ordered
}

// mapCommitError turns a Postgres deadlock abort into ErrVersionConflict so
// callers retry from fresh reads instead of failing hard. Any other error is
// returned unchanged.
func mapCommitError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == deadlockDetected {
		return fmt.Errorf("deadlock between concurrent commits: %w", ErrVersionConflict)
	}
	return err
}

func (p *Postgres) ListTransactions(ctx context.Context, iban string) ([]*domain.Transaction, error) {
	exists, err := p.AccountExists(ctx, iban)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrAccountNotFound
	}

	rows, err := p.pool.Query(ctx,
		`SELECT t.id, t.account_id, t.amount, t.type, t.reference, t.timestamp
		 FROM transactions t
		 JOIN accounts a ON a.id = t.account_id
		 WHERE a.iban = $1
		 ORDER BY t.timestamp DESC, t.id DESC`,
		iban,
	)
	if err != nil {
		return nil, fmt.Errorf("transaction query failed: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Type, &t.Reference, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("transaction scan failed: %w", err)
		}
		transactions = append(transactions, &t)
	}
	return transactions, rows.Err()
}
