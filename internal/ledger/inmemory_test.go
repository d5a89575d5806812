package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func fundWallet(t *testing.T, s Store, walletID string, amount int64) {
	t.Helper()
	ref := fmt.Sprintf("dep_seed_%s_%d", walletID, amount)
	if _, err := s.CreatePendingDeposit(context.Background(), walletID, "user-seed", ref, amount); err != nil {
		t.Fatalf("create pending deposit: %v", err)
	}
	if _, err := s.FinalizeDeposit(context.Background(), ref, amount, true); err != nil {
		t.Fatalf("finalize deposit: %v", err)
	}
}

func TestTransferConservesTotalAndMatchesEntrySum(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	s.EnsureWallet(ctx, "w1")
	s.EnsureWallet(ctx, "w2")
	fundWallet(t, s, "w1", 5_000)

	res, err := s.Transfer(ctx, TransferArgs{
		Reference:    "txf_1",
		FromWalletID: "w1",
		FromUserID:   "u1",
		ToWalletID:   "w2",
		ToUserID:     "u2",
		Amount:       1_000,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.FromBalance != 4_000 || res.ToBalance != 1_000 {
		t.Fatalf("unexpected balances: %+v", res)
	}

	for _, walletID := range []string{"w1", "w2"} {
		balance, err := s.Balance(ctx, walletID)
		if err != nil {
			t.Fatalf("balance %s: %v", walletID, err)
		}
		if sum := EntrySum(s, walletID); sum != balance {
			t.Fatalf("wallet %s: balance %d != entry sum %d", walletID, balance, sum)
		}
	}

	debit, err := s.TransactionByReference(ctx, "txf_1_debit")
	if err != nil {
		t.Fatalf("debit lookup: %v", err)
	}
	credit, err := s.TransactionByReference(ctx, "txf_1_credit")
	if err != nil {
		t.Fatalf("credit lookup: %v", err)
	}
	if debit.RelatedTxID != credit.ID || credit.RelatedTxID != debit.ID {
		t.Fatal("transfer legs are not cross-linked")
	}
	if debit.Amount != credit.Amount || debit.Status != StatusSuccess || credit.Status != StatusSuccess {
		t.Fatalf("legs disagree: debit %+v credit %+v", debit, credit)
	}
}

func TestTransferDuplicateReference(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.EnsureWallet(ctx, "w1")
	s.EnsureWallet(ctx, "w2")
	SeedBalance(s, "w1", 5_000)

	args := TransferArgs{Reference: "txf_dup", FromWalletID: "w1", ToWalletID: "w2", Amount: 500}
	if _, err := s.Transfer(ctx, args); err != nil {
		t.Fatalf("initial transfer: %v", err)
	}
	if _, err := s.Transfer(ctx, args); !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected duplicate reference, got %v", err)
	}
}

func TestTransferInsufficiencyBoundary(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.EnsureWallet(ctx, "w1")
	s.EnsureWallet(ctx, "w2")
	SeedBalance(s, "w1", 500)

	_, err := s.Transfer(ctx, TransferArgs{Reference: "txf_a", FromWalletID: "w1", ToWalletID: "w2", Amount: 501})
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if insufficient.Balance != 500 || insufficient.Required != 501 {
		t.Fatalf("unexpected detail: %+v", insufficient)
	}
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatal("InsufficientFundsError should match ErrInsufficientFunds")
	}

	// Failed attempt must leave no trace.
	if balance, _ := s.Balance(ctx, "w1"); balance != 500 {
		t.Fatalf("sender balance changed after failed transfer: %d", balance)
	}
	if entries, _ := s.TransactionsForWallet(ctx, "w1"); len(entries) != 0 {
		t.Fatalf("failed transfer wrote %d entries", len(entries))
	}

	// Exactly the balance drains the wallet to zero.
	res, err := s.Transfer(ctx, TransferArgs{Reference: "txf_b", FromWalletID: "w1", ToWalletID: "w2", Amount: 500})
	if err != nil {
		t.Fatalf("transfer of full balance: %v", err)
	}
	if res.FromBalance != 0 {
		t.Fatalf("expected sender balance 0, got %d", res.FromBalance)
	}
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.EnsureWallet(ctx, "w1")
	s.EnsureWallet(ctx, "w2")
	s.EnsureWallet(ctx, "w3")
	SeedBalance(s, "w1", 1_000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	destinations := []string{"w2", "w3"}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Transfer(ctx, TransferArgs{
				Reference:    fmt.Sprintf("txf_conc_%d", i),
				FromWalletID: "w1",
				ToWalletID:   destinations[i],
				Amount:       1_000,
			})
		}(i)
	}
	wg.Wait()

	var successes, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || insufficient != 1 {
		t.Fatalf("expected exactly one success and one insufficiency, got %d/%d", successes, insufficient)
	}
	if balance, _ := s.Balance(ctx, "w1"); balance != 0 {
		t.Fatalf("sender over- or under-drawn: %d", balance)
	}
}

func TestDepositLifecycle(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.EnsureWallet(ctx, "w1")

	if _, err := s.CreatePendingDeposit(ctx, "w1", "u1", "dep_1", 5_000); err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if _, err := s.CreatePendingDeposit(ctx, "w1", "u1", "dep_1", 5_000); !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected duplicate reference, got %v", err)
	}

	res, err := s.FinalizeDeposit(ctx, "dep_1", 5_000, true)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.Status != StatusSuccess || res.WalletBalance != 5_000 {
		t.Fatalf("unexpected finalize result: %+v", res)
	}

	// Redelivery is a no-op: balance stays, state reported as already final.
	again, err := s.FinalizeDeposit(ctx, "dep_1", 5_000, true)
	if err != nil {
		t.Fatalf("refinalize: %v", err)
	}
	if !again.AlreadyFinal || again.WalletBalance != 5_000 {
		t.Fatalf("redelivery changed state: %+v", again)
	}
}

func TestDepositAmountMismatchFailsWithoutCredit(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.EnsureWallet(ctx, "w1")

	if _, err := s.CreatePendingDeposit(ctx, "w1", "u1", "dep_2", 5_000); err != nil {
		t.Fatalf("create pending: %v", err)
	}

	res, err := s.FinalizeDeposit(ctx, "dep_2", 3_000, true)
	var mismatch *AmountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected AmountMismatchError, got %v", err)
	}
	if mismatch.Expected != 5_000 || mismatch.Reported != 3_000 {
		t.Fatalf("unexpected mismatch detail: %+v", mismatch)
	}
	if res.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", res.Status)
	}
	if balance, _ := s.Balance(ctx, "w1"); balance != 0 {
		t.Fatalf("mismatched deposit credited wallet: %d", balance)
	}

	entry, err := s.TransactionByReference(ctx, "dep_2")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if entry.Status != StatusFailed {
		t.Fatalf("entry not terminal failed: %s", entry.Status)
	}
}

func TestDepositFailureOutcome(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.EnsureWallet(ctx, "w1")

	if _, err := s.CreatePendingDeposit(ctx, "w1", "u1", "dep_3", 2_000); err != nil {
		t.Fatalf("create pending: %v", err)
	}
	res, err := s.FinalizeDeposit(ctx, "dep_3", 2_000, false)
	if err != nil {
		t.Fatalf("finalize failure: %v", err)
	}
	if res.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}
	if balance, _ := s.Balance(ctx, "w1"); balance != 0 {
		t.Fatalf("failed deposit credited wallet: %d", balance)
	}
}

func TestMarkDepositFailedLeavesTerminalEntries(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.EnsureWallet(ctx, "w1")

	if _, err := s.CreatePendingDeposit(ctx, "w1", "u1", "dep_4", 2_000); err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if _, err := s.FinalizeDeposit(ctx, "dep_4", 2_000, true); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := s.MarkDepositFailed(ctx, "dep_4"); err != nil {
		t.Fatalf("mark failed on terminal: %v", err)
	}
	entry, _ := s.TransactionByReference(ctx, "dep_4")
	if entry.Status != StatusSuccess {
		t.Fatalf("terminal entry mutated: %s", entry.Status)
	}

	if err := s.MarkDepositFailed(ctx, "dep_missing"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransactionsForWalletNewestFirst(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.EnsureWallet(ctx, "w1")

	for _, amount := range []int64{1_000, 2_000, 3_000} {
		fundWallet(t, s, "w1", amount)
	}

	entries, err := s.TransactionsForWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.After(entries[i-1].CreatedAt) {
			t.Fatal("entries not ordered newest first")
		}
	}
	if entries[0].Amount != 3_000 {
		t.Fatalf("expected newest entry first, got amount %d", entries[0].Amount)
	}
}
