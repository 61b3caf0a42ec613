package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mkarsten/bankledger/internal/domain"
)

// Memory is an in-memory LedgerStore engine. A single mutex serializes all
// state changes, so every commit is atomic and the version bookkeeping
// matches the Postgres engine's semantics. Reads hand out value copies, never
// internal pointers.
type Memory struct {
	mu            sync.Mutex
	nextAccountID int64
	nextTxID      int64
	accounts      map[string]*domain.Account      // keyed by IBAN
	byID          map[int64]*domain.Account       // same records, keyed by ID
	transactions  map[int64][]*domain.Transaction // accountID -> append-only log
}

var _ LedgerStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[string]*domain.Account),
		byID:         make(map[int64]*domain.Account),
		transactions: make(map[int64][]*domain.Transaction),
	}
}

func (m *Memory) FindAccountByIBAN(_ context.Context, iban string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[iban]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) AccountExists(_ context.Context, iban string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.accounts[iban]
	return ok, nil
}

func (m *Memory) InsertAccount(_ context.Context, account *domain.Account) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[account.IBAN]; ok {
		return nil, domain.ErrDuplicateAccount
	}

	m.nextAccountID++
	stored := *account
	stored.ID = m.nextAccountID
	stored.Version = 1

	m.accounts[stored.IBAN] = &stored
	m.byID[stored.ID] = &stored

	cp := stored
	return &cp, nil
}

// CommitAtomic applies all updates and transactions inside one critical
// section. Versions are verified before anything is touched, so a conflict
// leaves no partial state behind.
func (m *Memory) CommitAtomic(_ context.Context, updates []AccountUpdate, transactions []*domain.Transaction) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range updates {
		stored, ok := m.byID[u.Account.ID]
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		if stored.Version != u.ExpectedVersion {
			return nil, fmt.Errorf("account %d at version %d: %w", u.Account.ID, u.ExpectedVersion, ErrVersionConflict)
		}
	}

	for _, u := range updates {
		stored := m.byID[u.Account.ID]
		stored.Balance = u.Account.Balance
		stored.Version = u.ExpectedVersion + 1
		u.Account.Version = stored.Version
	}

	for _, t := range transactions {
		m.nextTxID++
		t.ID = m.nextTxID
		entry := *t
		m.transactions[t.AccountID] = append(m.transactions[t.AccountID], &entry)
	}

	return transactions, nil
}

func (m *Memory) ListTransactions(_ context.Context, iban string) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[iban]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	log := m.transactions[a.ID]
	out := make([]*domain.Transaction, 0, len(log))
	for _, t := range log {
		cp := *t
		out = append(out, &cp)
	}

	// Most recent first; IDs break timestamp ties deterministically.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
