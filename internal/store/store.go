// Package store defines the ledger store contract and its two engines:
// Postgres for real deployments and an in-memory engine for tests and
// local development.
package store

import (
	"context"
	"errors"

	"github.com/mkarsten/bankledger/internal/domain"
)

// ErrVersionConflict signals that an account was modified between read and
// commit. The commit is rejected as a whole; the caller retries from fresh
// reads or gives up.
var ErrVersionConflict = errors.New("account version conflict")

// AccountUpdate is one version-conditioned account write inside an atomic
// commit. The write is accepted only if the stored version still equals
// ExpectedVersion.
type AccountUpdate struct {
	Account         *domain.Account
	ExpectedVersion int64
}

// LedgerStore is the durable keyed storage for accounts and their
// append-only transaction log.
//
// CommitAtomic persists all listed account updates and transactions as one
// all-or-nothing unit. Any failed version check aborts the whole commit with
// ErrVersionConflict. On success the updated accounts carry their new
// versions and the returned transactions carry assigned IDs.
type LedgerStore interface {
	FindAccountByIBAN(ctx context.Context, iban string) (*domain.Account, error)
	AccountExists(ctx context.Context, iban string) (bool, error)
	InsertAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	CommitAtomic(ctx context.Context, updates []AccountUpdate, transactions []*domain.Transaction) ([]*domain.Transaction, error)
	ListTransactions(ctx context.Context, iban string) ([]*domain.Transaction, error)
}
