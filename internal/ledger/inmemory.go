package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryStore struct {
	mu       sync.Mutex
	balances map[string]int64
	entries  map[string]*Transaction // keyed by reference
	base     time.Time
	seq      int64
}

// NewInMemory creates a concurrency-safe in-memory ledger store. It honors
// the same atomicity and idempotency semantics as the Postgres store and is
// the backend the engine tests run against.
func NewInMemory() Store {
	return &inMemoryStore{
		balances: make(map[string]int64),
		entries:  make(map[string]*Transaction),
		base:     time.Now().UTC(),
	}
}

func (s *inMemoryStore) EnsureWallet(_ context.Context, walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.balances[walletID]; !exists {
		s.balances[walletID] = 0
	}
	return nil
}

func (s *inMemoryStore) Balance(_ context.Context, walletID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, exists := s.balances[walletID]
	if !exists {
		return 0, ErrWalletNotFound
	}
	return balance, nil
}

func (s *inMemoryStore) Transfer(_ context.Context, args TransferArgs) (TransferResult, error) {
	if args.Amount <= 0 {
		return TransferResult{}, fmt.Errorf("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fromBalance, ok := s.balances[args.FromWalletID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	toBalance, ok := s.balances[args.ToWalletID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	if _, exists := s.entries[args.Reference+"_debit"]; exists {
		return TransferResult{}, ErrDuplicateReference
	}
	if fromBalance < args.Amount {
		return TransferResult{}, &InsufficientFundsError{Balance: fromBalance, Required: args.Amount}
	}

	debit := &Transaction{
		ID:        uuid.NewString(),
		Reference: args.Reference + "_debit",
		WalletID:  args.FromWalletID,
		UserID:    args.FromUserID,
		Kind:      KindTransfer,
		Direction: DirectionDebit,
		Amount:    args.Amount,
		Status:    StatusSuccess,
		Metadata:  map[string]string{"counterparty_wallet": args.ToWalletID},
		CreatedAt: s.tick(),
	}
	credit := &Transaction{
		ID:        uuid.NewString(),
		Reference: args.Reference + "_credit",
		WalletID:  args.ToWalletID,
		UserID:    args.ToUserID,
		Kind:      KindTransfer,
		Direction: DirectionCredit,
		Amount:    args.Amount,
		Status:    StatusSuccess,
		Metadata:  map[string]string{"counterparty_wallet": args.FromWalletID},
		CreatedAt: s.tick(),
	}
	debit.RelatedTxID = credit.ID
	credit.RelatedTxID = debit.ID

	s.entries[debit.Reference] = debit
	s.entries[credit.Reference] = credit
	s.balances[args.FromWalletID] = fromBalance - args.Amount
	s.balances[args.ToWalletID] = toBalance + args.Amount

	return TransferResult{
		DebitTxID:   debit.ID,
		CreditTxID:  credit.ID,
		FromBalance: fromBalance - args.Amount,
		ToBalance:   toBalance + args.Amount,
	}, nil
}

func (s *inMemoryStore) CreatePendingDeposit(_ context.Context, walletID, userID, reference string, amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.balances[walletID]; !ok {
		return "", ErrWalletNotFound
	}
	if _, exists := s.entries[reference]; exists {
		return "", ErrDuplicateReference
	}

	entry := &Transaction{
		ID:        uuid.NewString(),
		Reference: reference,
		WalletID:  walletID,
		UserID:    userID,
		Kind:      KindDeposit,
		Direction: DirectionCredit,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: s.tick(),
	}
	s.entries[reference] = entry
	return entry.ID, nil
}

func (s *inMemoryStore) FinalizeDeposit(_ context.Context, reference string, reportedAmount int64, succeeded bool) (FinalizeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[reference]
	if !ok {
		return FinalizeResult{}, ErrTransactionNotFound
	}
	if entry.Status.Terminal() {
		return FinalizeResult{
			TxID:          entry.ID,
			Status:        entry.Status,
			WalletBalance: s.balances[entry.WalletID],
			AlreadyFinal:  true,
		}, nil
	}

	if !succeeded {
		entry.Status = StatusFailed
		return FinalizeResult{TxID: entry.ID, Status: StatusFailed, WalletBalance: s.balances[entry.WalletID]}, nil
	}
	if reportedAmount != entry.Amount {
		entry.Status = StatusFailed
		if entry.Metadata == nil {
			entry.Metadata = map[string]string{}
		}
		entry.Metadata["failure_reason"] = "amount mismatch"
		return FinalizeResult{TxID: entry.ID, Status: StatusFailed, WalletBalance: s.balances[entry.WalletID]},
			&AmountMismatchError{Reference: reference, Expected: entry.Amount, Reported: reportedAmount}
	}

	entry.Status = StatusSuccess
	s.balances[entry.WalletID] += entry.Amount
	return FinalizeResult{TxID: entry.ID, Status: StatusSuccess, WalletBalance: s.balances[entry.WalletID]}, nil
}

func (s *inMemoryStore) MarkDepositFailed(_ context.Context, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[reference]
	if !ok {
		return ErrTransactionNotFound
	}
	if !entry.Status.Terminal() {
		entry.Status = StatusFailed
	}
	return nil
}

func (s *inMemoryStore) TransactionByReference(_ context.Context, reference string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[reference]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return *entry, nil
}

func (s *inMemoryStore) TransactionsForWallet(_ context.Context, walletID string) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []Transaction
	for _, entry := range s.entries {
		if entry.WalletID == walletID {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// tick produces strictly increasing timestamps so history ordering is stable
// even when entries are written within the same wall-clock nanosecond.
func (s *inMemoryStore) tick() time.Time {
	s.seq++
	return s.base.Add(time.Duration(s.seq))
}
