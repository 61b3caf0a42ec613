package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mkarsten/bankledger/internal/domain"
	"github.com/mkarsten/bankledger/internal/store"
)

var (
	transferConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_transfer_conflicts_total",
		Help: "Version conflicts detected while committing transfers",
	})

	transferRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_transfer_retries_total",
		Help: "Transfer attempts restarted after a version conflict",
	})
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 10 * time.Millisecond

	// defaultReference labels transfers whose caller supplied no reference.
	defaultReference = "Transfer"
)

// TransferService moves money between two accounts as one atomic unit.
//
// Each attempt reads fresh snapshots of both accounts, applies the debit and
// credit in memory, and submits both updated accounts plus both transaction
// legs as a single version-conditioned commit. A version conflict discards
// the attempt entirely and restarts from new reads, up to maxAttempts in
// total, sleeping attempt*backoffBase between tries. Exhaustion surfaces
// domain.ErrTransferConflict with the last conflict as cause.
type TransferService struct {
	store       store.LedgerStore
	logger      *zap.Logger
	maxAttempts int
	backoffBase time.Duration
}

func NewTransferService(s store.LedgerStore, logger *zap.Logger, maxAttempts int, backoffBase time.Duration) *TransferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if backoffBase <= 0 {
		backoffBase = defaultBackoffBase
	}
	return &TransferService{
		store:       s,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
	}
}

// TransferResult echoes the committed transfer: both leg IDs, the endpoints,
// and the commit timestamp.
type TransferResult struct {
	DebitTransactionID  int64
	CreditTransactionID int64
	FromIBAN            string
	ToIBAN              string
	Amount              decimal.Decimal
	Reference           string
	Timestamp           time.Time
}

// Transfer moves amount from fromIBAN to toIBAN. Validation failures
// (missing account, insufficient funds, bad amount) are returned immediately
// without retry; only version conflicts trigger the retry loop.
func (s *TransferService) Transfer(ctx context.Context, fromIBAN, toIBAN string, amount decimal.Decimal, reference string) (*TransferResult, error) {
	if fromIBAN == toIBAN {
		return nil, domain.ErrSameAccountTransfer
	}

	if reference == "" {
		reference = defaultReference
	}

	var lastConflict error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result, err := s.attemptTransfer(ctx, fromIBAN, toIBAN, amount, reference)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, err
		}

		lastConflict = err
		transferConflictsTotal.Inc()

		if attempt == s.maxAttempts {
			break
		}

		transferRetriesTotal.Inc()
		s.logger.Warn("transfer hit version conflict, retrying",
			zap.String("from", fromIBAN),
			zap.String("to", toIBAN),
			zap.Int("attempt", attempt),
		)
		if err := sleepContext(ctx, time.Duration(attempt)*s.backoffBase); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", domain.ErrTransferConflict, s.maxAttempts, lastConflict)
}

// attemptTransfer is one full read-modify-conditional-write cycle. It holds
// no state between calls, so restarting it after a conflict is safe.
func (s *TransferService) attemptTransfer(ctx context.Context, fromIBAN, toIBAN string, amount decimal.Decimal, reference string) (*TransferResult, error) {
	from, err := s.store.FindAccountByIBAN(ctx, fromIBAN)
	if err != nil {
		return nil, err
	}
	to, err := s.store.FindAccountByIBAN(ctx, toIBAN)
	if err != nil {
		return nil, err
	}

	// Each leg embeds the counterparty IBAN so the records stay
	// self-describing when read independently.
	updatedFrom, debitTx, err := from.Debit(amount, "Transfer to "+toIBAN+": "+reference)
	if err != nil {
		return nil, err
	}
	updatedTo, creditTx, err := to.Credit(amount, "Transfer from "+fromIBAN+": "+reference)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.CommitAtomic(ctx,
		[]store.AccountUpdate{
			{Account: &updatedFrom, ExpectedVersion: from.Version},
			{Account: &updatedTo, ExpectedVersion: to.Version},
		},
		[]*domain.Transaction{&debitTx, &creditTx},
	); err != nil {
		return nil, err
	}

	return &TransferResult{
		DebitTransactionID:  debitTx.ID,
		CreditTransactionID: creditTx.ID,
		FromIBAN:            fromIBAN,
		ToIBAN:              toIBAN,
		Amount:              amount,
		Reference:           reference,
		Timestamp:           debitTx.Timestamp,
	}, nil
}

// sleepContext waits for d but returns early if ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
