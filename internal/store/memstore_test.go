package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarsten/bankledger/internal/domain"
)

func insertTestAccount(t *testing.T, m *Memory, iban string) *domain.Account {
	t.Helper()
	account, err := m.InsertAccount(context.Background(), domain.NewAccount(iban, "Owner"))
	require.NoError(t, err)
	return account
}

func TestInsertAccountAssignsIDAndVersion(t *testing.T) {
	m := NewMemory()

	a := insertTestAccount(t, m, "DE01")
	b := insertTestAccount(t, m, "DE02")

	assert.NotZero(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, int64(1), a.Version)
	assert.True(t, a.Balance.IsZero())
}

func TestInsertAccountDuplicateIBAN(t *testing.T) {
	m := NewMemory()
	insertTestAccount(t, m, "DE01")

	_, err := m.InsertAccount(context.Background(), domain.NewAccount("DE01", "Other"))
	assert.ErrorIs(t, err, domain.ErrDuplicateAccount)
}

func TestFindAccountByIBAN(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	inserted := insertTestAccount(t, m, "DE01")

	found, err := m.FindAccountByIBAN(ctx, "DE01")
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, found.ID)
	assert.Equal(t, "Owner", found.OwnerName)

	_, err = m.FindAccountByIBAN(ctx, "DE99")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestFindReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	insertTestAccount(t, m, "DE01")

	found, err := m.FindAccountByIBAN(ctx, "DE01")
	require.NoError(t, err)
	found.Balance = decimal.NewFromInt(1_000_000)

	again, err := m.FindAccountByIBAN(ctx, "DE01")
	require.NoError(t, err)
	assert.True(t, again.Balance.IsZero())
}

func TestCommitAtomicBumpsVersion(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	account := insertTestAccount(t, m, "DE01")

	account.Balance = decimal.RequireFromString("10.00")
	tx := &domain.Transaction{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("10.00"),
		Type:      domain.TransactionCredit,
		Timestamp: time.Now(),
	}

	persisted, err := m.CommitAtomic(ctx,
		[]AccountUpdate{{Account: account, ExpectedVersion: 1}},
		[]*domain.Transaction{tx},
	)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.NotZero(t, persisted[0].ID)
	assert.Equal(t, int64(2), account.Version)

	stored, err := m.FindAccountByIBAN(ctx, "DE01")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("10.00")))
}

func TestCommitAtomicStaleVersionRejected(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	account := insertTestAccount(t, m, "DE01")

	account.Balance = decimal.RequireFromString("5.00")
	_, err := m.CommitAtomic(ctx,
		[]AccountUpdate{{Account: account, ExpectedVersion: 1}},
		nil,
	)
	require.NoError(t, err)

	// Replaying the same expected version must conflict.
	_, err = m.CommitAtomic(ctx,
		[]AccountUpdate{{Account: account, ExpectedVersion: 1}},
		nil,
	)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestCommitAtomicConflictLeavesNoPartialState(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a := insertTestAccount(t, m, "DE01")
	b := insertTestAccount(t, m, "DE02")

	a.Balance = decimal.RequireFromString("100.00")
	tx := &domain.Transaction{
		AccountID: a.ID,
		Amount:    decimal.RequireFromString("100.00"),
		Type:      domain.TransactionCredit,
		Timestamp: time.Now(),
	}

	// Second update carries a stale version; the whole commit must abort.
	_, err := m.CommitAtomic(ctx,
		[]AccountUpdate{
			{Account: a, ExpectedVersion: 1},
			{Account: b, ExpectedVersion: 99},
		},
		[]*domain.Transaction{tx},
	)
	require.ErrorIs(t, err, ErrVersionConflict)

	storedA, err := m.FindAccountByIBAN(ctx, "DE01")
	require.NoError(t, err)
	assert.True(t, storedA.Balance.IsZero())
	assert.Equal(t, int64(1), storedA.Version)

	entries, err := m.ListTransactions(ctx, "DE01")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListTransactionsOrderAndIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	account := insertTestAccount(t, m, "DE01")

	base := time.Now()
	txs := []*domain.Transaction{
		{AccountID: account.ID, Amount: decimal.NewFromInt(1), Type: domain.TransactionCredit, Timestamp: base.Add(-2 * time.Minute)},
		{AccountID: account.ID, Amount: decimal.NewFromInt(2), Type: domain.TransactionCredit, Timestamp: base},
		{AccountID: account.ID, Amount: decimal.NewFromInt(3), Type: domain.TransactionCredit, Timestamp: base.Add(-1 * time.Minute)},
	}
	_, err := m.CommitAtomic(ctx, nil, txs)
	require.NoError(t, err)

	listed, err := m.ListTransactions(ctx, "DE01")
	require.NoError(t, err)
	require.Len(t, listed, 3)

	// Most recent first.
	assert.True(t, listed[0].Amount.Equal(decimal.NewFromInt(2)))
	assert.True(t, listed[1].Amount.Equal(decimal.NewFromInt(3)))
	assert.True(t, listed[2].Amount.Equal(decimal.NewFromInt(1)))

	_, err = m.ListTransactions(ctx, "DE99")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestListTransactionsEmptyAccount(t *testing.T) {
	m := NewMemory()
	insertTestAccount(t, m, "DE01")

	listed, err := m.ListTransactions(context.Background(), "DE01")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestAccountExists(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	insertTestAccount(t, m, "DE01")

	exists, err := m.AccountExists(ctx, "DE01")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = m.AccountExists(ctx, "DE99")
	require.NoError(t, err)
	assert.False(t, exists)
}
