package domain

import "errors"

// Domain failure kinds. Callers branch on these with errors.Is; the API
// layer maps each one to an HTTP status.
var (
	// ErrInvalidAmount rejects amounts that are non-positive or carry more
	// than two decimal places.
	ErrInvalidAmount = errors.New("amount must be positive with at most two decimal places")

	// ErrInsufficientFunds rejects a debit that would drive the balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound means the referenced IBAN does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateAccount means the IBAN is already registered.
	ErrDuplicateAccount = errors.New("account with this IBAN already exists")

	// ErrSameAccountTransfer rejects a transfer where source and destination match.
	ErrSameAccountTransfer = errors.New("cannot transfer to same account")

	// ErrInvalidIBAN rejects a blank IBAN.
	ErrInvalidIBAN = errors.New("iban must not be blank")

	// ErrInvalidOwnerName rejects a blank owner name.
	ErrInvalidOwnerName = errors.New("owner name must not be blank")

	// ErrTransferConflict is the terminal failure after the transfer retry
	// ceiling is exhausted by repeated version conflicts. The caller must
	// resubmit.
	ErrTransferConflict = errors.New("transfer aborted due to concurrent modifications")
)
