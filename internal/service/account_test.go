package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkarsten/bankledger/internal/domain"
	"github.com/mkarsten/bankledger/internal/store"
)

func uniqueIBAN() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "DE" + raw[:20]
}

func newAccountService() *AccountService {
	return NewAccountService(store.NewMemory(), zap.NewNop())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateAndGetAccountRoundTrip(t *testing.T) {
	svc := newAccountService()
	ctx := context.Background()
	iban := uniqueIBAN()

	created, err := svc.CreateAccount(ctx, iban, "Clara Immerwahr")
	require.NoError(t, err)

	got, err := svc.GetAccount(ctx, iban)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Clara Immerwahr", got.OwnerName)
	assert.True(t, got.Balance.IsZero())
	assert.False(t, got.CreatedAt.After(time.Now()))
}

func TestCreateAccountValidation(t *testing.T) {
	svc := newAccountService()
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "   ", "Owner")
	assert.ErrorIs(t, err, domain.ErrInvalidIBAN)

	_, err = svc.CreateAccount(ctx, uniqueIBAN(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidOwnerName)
}

func TestCreateAccountDuplicateIBAN(t *testing.T) {
	svc := newAccountService()
	ctx := context.Background()
	iban := uniqueIBAN()

	_, err := svc.CreateAccount(ctx, iban, "First")
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, iban, "Second")
	assert.ErrorIs(t, err, domain.ErrDuplicateAccount)
}

func TestGetAccountNotFound(t *testing.T) {
	svc := newAccountService()

	_, err := svc.GetAccount(context.Background(), uniqueIBAN())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestCreditAndDebitPersistBalanceAndLog(t *testing.T) {
	svc := newAccountService()
	ctx := context.Background()
	iban := uniqueIBAN()

	_, err := svc.CreateAccount(ctx, iban, "Owner")
	require.NoError(t, err)

	creditTx, err := svc.Credit(ctx, iban, dec("100.00"), "opening")
	require.NoError(t, err)
	assert.NotZero(t, creditTx.ID)
	assert.Equal(t, domain.TransactionCredit, creditTx.Type)

	debitTx, err := svc.Debit(ctx, iban, dec("40.50"), "groceries")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionDebit, debitTx.Type)

	account, err := svc.GetAccount(ctx, iban)
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(dec("59.50")), "balance = %s", account.Balance)

	listed, err := svc.ListTransactions(ctx, iban)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	// Most recent first.
	assert.Equal(t, debitTx.ID, listed[0].ID)
	assert.Equal(t, creditTx.ID, listed[1].ID)
}

func TestFailedBookingLeavesNoTrace(t *testing.T) {
	svc := newAccountService()
	ctx := context.Background()
	iban := uniqueIBAN()

	_, err := svc.CreateAccount(ctx, iban, "Owner")
	require.NoError(t, err)
	_, err = svc.Credit(ctx, iban, dec("10.00"), "")
	require.NoError(t, err)

	cases := []struct {
		name string
		run  func() error
		want error
	}{
		{"invalid credit", func() error { _, err := svc.Credit(ctx, iban, dec("-1"), ""); return err }, domain.ErrInvalidAmount},
		{"invalid debit", func() error { _, err := svc.Debit(ctx, iban, dec("0"), ""); return err }, domain.ErrInvalidAmount},
		{"overdraft", func() error { _, err := svc.Debit(ctx, iban, dec("10.01"), ""); return err }, domain.ErrInsufficientFunds},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.run(), tc.want)

			account, err := svc.GetAccount(ctx, iban)
			require.NoError(t, err)
			assert.True(t, account.Balance.Equal(dec("10.00")))

			listed, err := svc.ListTransactions(ctx, iban)
			require.NoError(t, err)
			assert.Len(t, listed, 1)
		})
	}
}

func TestBookingOnMissingAccount(t *testing.T) {
	svc := newAccountService()
	ctx := context.Background()

	_, err := svc.Credit(ctx, uniqueIBAN(), dec("5.00"), "")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = svc.Debit(ctx, uniqueIBAN(), dec("5.00"), "")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestListTransactionsEmptyAndMissing(t *testing.T) {
	svc := newAccountService()
	ctx := context.Background()
	iban := uniqueIBAN()

	_, err := svc.CreateAccount(ctx, iban, "Owner")
	require.NoError(t, err)

	listed, err := svc.ListTransactions(ctx, iban)
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = svc.ListTransactions(ctx, uniqueIBAN())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
