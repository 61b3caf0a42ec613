// Package models holds the request and response shapes of the HTTP surface.
// Responses are pure projections from domain entities.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkarsten/bankledger/internal/domain"
	"github.com/mkarsten/bankledger/internal/service"
)

// CreateAccountRequest is the payload for opening an account.
type CreateAccountRequest struct {
	IBAN      string `json:"iban"`
	OwnerName string `json:"owner_name"`
}

// TransactionRequest is the payload for a credit or debit booking.
type TransactionRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// TransferRequest is the payload for moving money between two IBANs.
type TransferRequest struct {
	FromIBAN  string          `json:"from_iban"`
	ToIBAN    string          `json:"to_iban"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// AccountResponse is the external view of an account.
type AccountResponse struct {
	ID        int64           `json:"id"`
	IBAN      string          `json:"iban"`
	OwnerName string          `json:"owner_name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

func AccountResponseFrom(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		IBAN:      a.IBAN,
		OwnerName: a.OwnerName,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
	}
}

// TransactionResponse is the external view of one ledger entry.
type TransactionResponse struct {
	ID        int64                  `json:"id"`
	Amount    decimal.Decimal        `json:"amount"`
	Type      domain.TransactionType `json:"type"`
	Reference string                 `json:"reference,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func TransactionResponseFrom(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        t.ID,
		Amount:    t.Amount,
		Type:      t.Type,
		Reference: t.Reference,
		Timestamp: t.Timestamp,
	}
}

// TransferResponse echoes a committed transfer with both leg IDs.
type TransferResponse struct {
	DebitTransactionID  int64           `json:"debit_transaction_id"`
	CreditTransactionID int64           `json:"credit_transaction_id"`
	FromIBAN            string          `json:"from_iban"`
	ToIBAN              string          `json:"to_iban"`
	Amount              decimal.Decimal `json:"amount"`
	Reference           string          `json:"reference"`
	Timestamp           time.Time       `json:"timestamp"`
}

func TransferResponseFrom(r *service.TransferResult) TransferResponse {
	return TransferResponse{
		DebitTransactionID:  r.DebitTransactionID,
		CreditTransactionID: r.CreditTransactionID,
		FromIBAN:            r.FromIBAN,
		ToIBAN:              r.ToIBAN,
		Amount:              r.Amount,
		Reference:           r.Reference,
		Timestamp:           r.Timestamp,
	}
}
