package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/kudipay/kudipay/internal/ledger"
	"github.com/kudipay/kudipay/internal/logging"
	"github.com/kudipay/kudipay/internal/notification"
	"github.com/kudipay/kudipay/internal/wallet"
)

type testNotifier struct {
	mu   sync.Mutex
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = msg
	return nil
}

func setup(t *testing.T) (*Service, *wallet.Service, ledger.Store, *testNotifier) {
	t.Helper()
	store := ledger.NewInMemory()
	wallets := wallet.NewService(wallet.NewMemoryRepository(), store)
	notifier := &testNotifier{}
	return NewService(wallets, store, notifier, logging.Discard()), wallets, store, notifier
}

func TestTransferMovesExactlyTheAmount(t *testing.T) {
	svc, wallets, store, notifier := setup(t)
	ctx := context.Background()

	sender, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")
	receiver, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")
	ledger.SeedBalance(store, sender.ID, 5_000)

	res, err := svc.Transfer(ctx, Input{SenderUserID: sender.UserID, WalletNumber: receiver.WalletNumber, Amount: 1_000})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.Amount != 1_000 || res.Destination != receiver.WalletNumber {
		t.Fatalf("unexpected result %+v", res)
	}

	senderBalance, _ := store.Balance(ctx, sender.ID)
	receiverBalance, _ := store.Balance(ctx, receiver.ID)
	if senderBalance != 4_000 || receiverBalance != 1_000 {
		t.Fatalf("conservation violated: sender %d receiver %d", senderBalance, receiverBalance)
	}

	entries, _ := store.TransactionsForWallet(ctx, sender.ID)
	if len(entries) != 1 || entries[0].Direction != ledger.DirectionDebit || entries[0].Status != ledger.StatusSuccess {
		t.Fatalf("unexpected sender entries %+v", entries)
	}

	if notifier.last.Kind != notification.KindTransferReceived || notifier.last.Destination != receiver.UserID {
		t.Fatalf("receiver not notified: %+v", notifier.last)
	}
}

func TestTransferRejectsInvalidAmounts(t *testing.T) {
	svc, wallets, _, _ := setup(t)
	ctx := context.Background()

	sender, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")
	receiver, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")

	for _, amount := range []int64{0, -100} {
		if _, err := svc.Transfer(ctx, Input{SenderUserID: sender.UserID, WalletNumber: receiver.WalletNumber, Amount: amount}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestTransferRejectsSelfTransfer(t *testing.T) {
	svc, wallets, store, _ := setup(t)
	ctx := context.Background()

	sender, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")
	ledger.SeedBalance(store, sender.ID, 5_000)

	if _, err := svc.Transfer(ctx, Input{SenderUserID: sender.UserID, WalletNumber: sender.WalletNumber, Amount: 100}); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
	if balance, _ := store.Balance(ctx, sender.ID); balance != 5_000 {
		t.Fatalf("self transfer changed balance: %d", balance)
	}
}

func TestTransferUnknownDestination(t *testing.T) {
	svc, wallets, _, _ := setup(t)
	ctx := context.Background()

	sender, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")

	if _, err := svc.Transfer(ctx, Input{SenderUserID: sender.UserID, WalletNumber: "0000000000000000", Amount: 100}); !errors.Is(err, ledger.ErrWalletNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}

func TestTransferInsufficientBalanceDetail(t *testing.T) {
	svc, wallets, store, _ := setup(t)
	ctx := context.Background()

	sender, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")
	receiver, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")
	ledger.SeedBalance(store, sender.ID, 500)

	_, err := svc.Transfer(ctx, Input{SenderUserID: sender.UserID, WalletNumber: receiver.WalletNumber, Amount: 1_000})
	var insufficient *ledger.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if insufficient.Balance != 500 || insufficient.Required != 1_000 {
		t.Fatalf("unexpected detail %+v", insufficient)
	}

	senderBalance, _ := store.Balance(ctx, sender.ID)
	receiverBalance, _ := store.Balance(ctx, receiver.ID)
	if senderBalance != 500 || receiverBalance != 0 {
		t.Fatalf("failed transfer moved funds: %d/%d", senderBalance, receiverBalance)
	}
}

func TestConcurrentTransfersFromSameWallet(t *testing.T) {
	svc, wallets, store, _ := setup(t)
	ctx := context.Background()

	sender, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")
	dest1, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")
	dest2, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")
	ledger.SeedBalance(store, sender.ID, 1_000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	numbers := []string{dest1.WalletNumber, dest2.WalletNumber}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transfer(ctx, Input{SenderUserID: sender.UserID, WalletNumber: numbers[i], Amount: 1_000})
		}(i)
	}
	wg.Wait()

	var successes, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ledger.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || insufficient != 1 {
		t.Fatalf("expected one success and one insufficiency, got %d/%d", successes, insufficient)
	}
	if balance, _ := store.Balance(ctx, sender.ID); balance != 0 {
		t.Fatalf("sender balance after race: %d", balance)
	}
}

type conflictingStore struct {
	ledger.Store
	mu        sync.Mutex
	conflicts int
}

func (s *conflictingStore) Transfer(ctx context.Context, args ledger.TransferArgs) (ledger.TransferResult, error) {
	s.mu.Lock()
	remaining := s.conflicts
	if remaining > 0 {
		s.conflicts--
	}
	s.mu.Unlock()
	if remaining > 0 {
		return ledger.TransferResult{}, ledger.ErrConflict
	}
	return s.Store.Transfer(ctx, args)
}

func TestTransferRetriesOnConflict(t *testing.T) {
	inner := ledger.NewInMemory()
	wallets := wallet.NewService(wallet.NewMemoryRepository(), inner)
	store := &conflictingStore{Store: inner, conflicts: 2}
	svc := NewService(wallets, store, nil, logging.Discard())

	ctx := context.Background()
	sender, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")
	receiver, _ := wallets.Provision(ctx, uuid.NewString(), "NGN")
	ledger.SeedBalance(inner, sender.ID, 1_000)

	if _, err := svc.Transfer(ctx, Input{SenderUserID: sender.UserID, WalletNumber: receiver.WalletNumber, Amount: 500}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}

	// Conflicts beyond the retry limit surface to the caller.
	store.mu.Lock()
	store.conflicts = maxAttempts + 1
	store.mu.Unlock()
	if _, err := svc.Transfer(ctx, Input{SenderUserID: sender.UserID, WalletNumber: receiver.WalletNumber, Amount: 100}); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected conflict to surface, got %v", err)
	}
}
