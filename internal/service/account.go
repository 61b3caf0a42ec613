// Package service orchestrates domain logic against the ledger store.
package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mkarsten/bankledger/internal/domain"
	"github.com/mkarsten/bankledger/internal/store"
)

// BookingFunc is the shared signature of Credit and Debit.
type BookingFunc func(ctx context.Context, iban string, amount decimal.Decimal, reference string) (*domain.Transaction, error)

// AccountService handles single-account operations: create, read, credit,
// debit, and transaction history. Every mutation runs load -> domain logic ->
// atomic commit, so the account row and its transaction record are persisted
// all-or-nothing.
type AccountService struct {
	store  store.LedgerStore
	logger *zap.Logger
}

func NewAccountService(s store.LedgerStore, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{store: s, logger: logger}
}

// CreateAccount registers a new IBAN with zero balance.
func (s *AccountService) CreateAccount(ctx context.Context, iban, ownerName string) (*domain.Account, error) {
	iban = strings.TrimSpace(iban)
	if iban == "" {
		return nil, domain.ErrInvalidIBAN
	}
	if strings.TrimSpace(ownerName) == "" {
		return nil, domain.ErrInvalidOwnerName
	}

	exists, err := s.store.AccountExists(ctx, iban)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateAccount
	}

	account, err := s.store.InsertAccount(ctx, domain.NewAccount(iban, ownerName))
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", zap.String("iban", account.IBAN), zap.Int64("id", account.ID))
	return account, nil
}

// GetAccount returns the current snapshot for an IBAN.
func (s *AccountService) GetAccount(ctx context.Context, iban string) (*domain.Account, error) {
	return s.store.FindAccountByIBAN(ctx, iban)
}

// Credit books amount onto the account and returns the created transaction.
func (s *AccountService) Credit(ctx context.Context, iban string, amount decimal.Decimal, reference string) (*domain.Transaction, error) {
	account, err := s.store.FindAccountByIBAN(ctx, iban)
	if err != nil {
		return nil, err
	}

	updated, transaction, err := account.Credit(amount, reference)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.CommitAtomic(ctx,
		[]store.AccountUpdate{{Account: &updated, ExpectedVersion: account.Version}},
		[]*domain.Transaction{&transaction},
	); err != nil {
		return nil, err
	}
	return &transaction, nil
}

// Debit books amount off the account and returns the created transaction.
// The insufficient-funds check happens in the domain logic before anything
// is written.
func (s *AccountService) Debit(ctx context.Context, iban string, amount decimal.Decimal, reference string) (*domain.Transaction, error) {
	account, err := s.store.FindAccountByIBAN(ctx, iban)
	if err != nil {
		return nil, err
	}

	updated, transaction, err := account.Debit(amount, reference)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.CommitAtomic(ctx,
		[]store.AccountUpdate{{Account: &updated, ExpectedVersion: account.Version}},
		[]*domain.Transaction{&transaction},
	); err != nil {
		return nil, err
	}
	return &transaction, nil
}

// ListTransactions returns the account's ledger entries, most recent first.
func (s *AccountService) ListTransactions(ctx context.Context, iban string) ([]*domain.Transaction, error) {
	return s.store.ListTransactions(ctx, iban)
}
