package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kudipay/kudipay/internal/ledger"
	"github.com/kudipay/kudipay/internal/notification"
	"github.com/kudipay/kudipay/internal/wallet"
)

var (
	// ErrInvalidAmount rejects non-positive transfer amounts.
	ErrInvalidAmount = errors.New("amount must be greater than 0")

	// ErrSelfTransfer rejects transfers where sender and destination are the
	// same wallet.
	ErrSelfTransfer = errors.New("cannot transfer to own wallet")
)

const (
	// Conflicts are retried with the caller's original inputs, never with
	// re-read state, so a retry can't apply a stale balance.
	maxAttempts  = 3
	retryBackoff = 25 * time.Millisecond
)

// Service orchestrates wallet-to-wallet transfers against the ledger store.
type Service struct {
	wallets  *wallet.Service
	store    ledger.Store
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a transfer service.
func NewService(wallets *wallet.Service, store ledger.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{wallets: wallets, store: store, notifier: notifier, logger: logger}
}

// Input captures the data needed to move funds between wallets.
type Input struct {
	SenderUserID string
	WalletNumber string // destination handle
	Amount       int64
}

// Result describes the completed transfer.
type Result struct {
	Reference   string
	Amount      int64
	Destination string
	FromBalance int64
	CompletedAt time.Time
}

// Transfer debits the sender and credits the destination wallet atomically.
// Validation happens before any storage write; a failure at any step leaves
// both balances untouched.
func (s *Service) Transfer(ctx context.Context, input Input) (Result, error) {
	if input.Amount <= 0 {
		return Result{}, ErrInvalidAmount
	}

	sender, err := s.wallets.GetByUser(ctx, input.SenderUserID)
	if err != nil {
		return Result{}, err
	}
	destination, err := s.wallets.GetByNumber(ctx, input.WalletNumber)
	if err != nil {
		return Result{}, err
	}
	if destination.ID == sender.ID {
		return Result{}, ErrSelfTransfer
	}

	reference := fmt.Sprintf("txf_%s", uuid.NewString()[:16])
	args := ledger.TransferArgs{
		Reference:    reference,
		FromWalletID: sender.ID,
		FromUserID:   sender.UserID,
		ToWalletID:   destination.ID,
		ToUserID:     destination.UserID,
		Amount:       input.Amount,
	}

	var res ledger.TransferResult
	for attempt := 1; ; attempt++ {
		res, err = s.store.Transfer(ctx, args)
		if err == nil || !errors.Is(err, ledger.ErrConflict) || attempt == maxAttempts {
			break
		}
		if s.logger != nil {
			s.logger.Warn("transfer conflict, retrying",
				slog.String("reference", reference), slog.Int("attempt", attempt))
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	if err != nil {
		return Result{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: destination.UserID,
			Body:        fmt.Sprintf("You received %d kobo from wallet %s", input.Amount, sender.WalletNumber),
		})
	}

	return Result{
		Reference:   reference,
		Amount:      input.Amount,
		Destination: destination.WalletNumber,
		FromBalance: res.FromBalance,
		CompletedAt: time.Now().UTC(),
	}, nil
}
