package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrWalletNotFound occurs when a wallet id or wallet number resolves to nothing.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTransactionNotFound occurs when a reference matches no ledger entry.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrDuplicateReference indicates the unique transaction reference already
	// exists; the operation that generated it must not be applied again.
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrConflict indicates the store aborted the transaction due to concurrent
	// modification. The whole operation is safe to retry with its original
	// inputs.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrInsufficientFunds is the errors.Is target for InsufficientFundsError.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAmountMismatch is the errors.Is target for AmountMismatchError.
	ErrAmountMismatch = errors.New("deposit amount mismatch")
)

// InsufficientFundsError carries the balance detail clients need to render a
// precise failure message.
type InsufficientFundsError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %d, required %d", e.Balance, e.Required)
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

// AmountMismatchError flags a confirmed deposit whose reported amount differs
// from the initiated amount. It is never auto-resolved; the transaction is
// marked failed and the anomaly surfaced for manual review.
type AmountMismatchError struct {
	Reference string
	Expected  int64
	Reported  int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("deposit %s amount mismatch: expected %d, provider reported %d", e.Reference, e.Expected, e.Reported)
}

func (e *AmountMismatchError) Is(target error) bool { return target == ErrAmountMismatch }

// Kind classifies a ledger entry.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindTransfer   Kind = "transfer"
	KindWithdrawal Kind = "withdrawal"
)

// Direction marks which side of a balance change an entry records.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Status is the entry lifecycle state. Entries are immutable once terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool { return s == StatusSuccess || s == StatusFailed }

// Transaction is one immutable balance-affecting ledger entry.
type Transaction struct {
	ID          string
	Reference   string
	WalletID    string
	UserID      string
	Kind        Kind
	Direction   Direction
	Amount      int64
	Status      Status
	RelatedTxID string
	Metadata    map[string]string
	CreatedAt   time.Time
}

// TransferArgs names the rows a transfer posting touches. Reference is the
// shared transfer reference; the two entry references derive from it.
type TransferArgs struct {
	Reference    string
	FromWalletID string
	FromUserID   string
	ToWalletID   string
	ToUserID     string
	Amount       int64
}

// TransferResult reports the two linked entries and post-transfer balances.
type TransferResult struct {
	DebitTxID   string
	CreditTxID  string
	FromBalance int64
	ToBalance   int64
}

// FinalizeResult reports the deposit state after a provider confirmation was
// applied (or found already applied).
type FinalizeResult struct {
	TxID          string
	Status        Status
	WalletBalance int64
	AlreadyFinal  bool
}

// Store is the durable ledger contract. Every mutating call runs inside one
// atomic unit of work: either all row changes commit or none do. Wallet rows
// are locked in ascending wallet-id order so opposite-direction transfers
// cannot deadlock.
type Store interface {
	// EnsureWallet verifies (or, for volatile backends, registers) the wallet
	// row so later postings can rely on it existing.
	EnsureWallet(ctx context.Context, walletID string) error

	// Balance returns the wallet's current balance in kobo.
	Balance(ctx context.Context, walletID string) (int64, error)

	// Transfer atomically debits the source wallet and credits the destination,
	// inserting exactly two linked success entries of equal amount. No partial
	// outcome is ever observable.
	Transfer(ctx context.Context, args TransferArgs) (TransferResult, error)

	// CreatePendingDeposit inserts a single pending credit entry carrying a
	// fresh unique reference. No balance changes until finalization.
	CreatePendingDeposit(ctx context.Context, walletID, userID, reference string, amount int64) (string, error)

	// FinalizeDeposit transitions the referenced pending deposit to a terminal
	// state, crediting the wallet when succeeded and the reported amount
	// matches. Calling it on an already-terminal entry is a no-op.
	FinalizeDeposit(ctx context.Context, reference string, reportedAmount int64, succeeded bool) (FinalizeResult, error)

	// MarkDepositFailed fails a pending deposit whose provider session could
	// not be created. Terminal entries are left untouched.
	MarkDepositFailed(ctx context.Context, reference string) error

	// TransactionByReference fetches a single entry.
	TransactionByReference(ctx context.Context, reference string) (Transaction, error)

	// TransactionsForWallet lists the wallet's entries, most recent first.
	TransactionsForWallet(ctx context.Context, walletID string) ([]Transaction, error)
}
