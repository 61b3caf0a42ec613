// Package domain holds the ledger entities and the pure booking logic.
// Credit and Debit operate on an account snapshot by value and return the
// updated snapshot plus the resulting transaction record; persistence is the
// store's job.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes the two legs of a booking.
type TransactionType string

const (
	TransactionDebit  TransactionType = "DEBIT"
	TransactionCredit TransactionType = "CREDIT"
)

// Account is the current balance of one IBAN. Version backs the store's
// optimistic concurrency check: it is incremented on every committed update,
// and a write conditioned on a stale version is rejected.
type Account struct {
	ID        int64           `json:"id"`
	IBAN      string          `json:"iban"`
	OwnerName string          `json:"owner_name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	Version   int64           `json:"version"`
}

// NewAccount returns an unsaved account with zero balance. The store assigns
// ID and initial version on insert.
func NewAccount(iban, ownerName string) *Account {
	return &Account{
		IBAN:      iban,
		OwnerName: ownerName,
		Balance:   decimal.Zero,
		CreatedAt: time.Now(),
	}
}

// Transaction is one append-only ledger entry. Once committed it is never
// updated or deleted.
type Transaction struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      TransactionType `json:"type"`
	Reference string          `json:"reference,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Credit adds amount to the snapshot and produces the CREDIT leg. The
// receiver is taken by value, so a validation failure leaves the caller's
// account untouched.
func (a Account) Credit(amount decimal.Decimal, reference string) (Account, Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return a, Transaction{}, err
	}

	a.Balance = a.Balance.Add(amount)

	return a, Transaction{
		AccountID: a.ID,
		Amount:    amount,
		Type:      TransactionCredit,
		Reference: reference,
		Timestamp: time.Now(),
	}, nil
}

// Debit subtracts amount from the snapshot and produces the DEBIT leg.
// The funds check happens strictly before mutation; a failed debit never
// produces a partial result.
func (a Account) Debit(amount decimal.Decimal, reference string) (Account, Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return a, Transaction{}, err
	}

	if a.Balance.LessThan(amount) {
		return a, Transaction{}, ErrInsufficientFunds
	}

	a.Balance = a.Balance.Sub(amount)

	return a, Transaction{
		AccountID: a.ID,
		Amount:    amount,
		Type:      TransactionDebit,
		Reference: reference,
		Timestamp: time.Now(),
	}, nil
}

// validateAmount accepts strictly positive amounts with scale <= 2.
func validateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amount.Exponent() < -2 {
		return ErrInvalidAmount
	}
	return nil
}
