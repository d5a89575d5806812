package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kudipay/kudipay/internal/identity"
	"github.com/kudipay/kudipay/internal/ledger"
	"github.com/kudipay/kudipay/internal/notification"
	"github.com/kudipay/kudipay/internal/paystack"
	"github.com/kudipay/kudipay/internal/wallet"
	"github.com/kudipay/kudipay/internal/webhook"
)

// ErrProviderInit indicates the payment provider rejected or failed the
// session creation. The pending entry is marked failed before this surfaces,
// so no local state is left dangling.
var ErrProviderInit = errors.New("payment initialization failed")

// AmountTooSmallError rejects deposits below the configured minimum.
type AmountTooSmallError struct {
	Minimum  int64
	Provided int64
}

func (e *AmountTooSmallError) Error() string {
	return fmt.Sprintf("minimum deposit is %d kobo, got %d", e.Minimum, e.Provided)
}

// Provider is the slice of the Paystack client the deposit engine consumes.
type Provider interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (paystack.InitializeResponse, error)
	VerifyTransaction(ctx context.Context, reference string) (paystack.VerifyData, error)
}

// Service coordinates the two-phase deposit flow: create a pending entry and
// a hosted provider session now, credit the wallet exactly once when the
// provider confirms asynchronously.
type Service struct {
	wallets   *wallet.Service
	store     ledger.Store
	events    webhook.Store
	users     identity.Repository
	provider  Provider
	notifier  notification.Notifier
	minAmount int64
	logger    *slog.Logger
}

// NewService constructs a deposit service.
func NewService(wallets *wallet.Service, store ledger.Store, events webhook.Store, users identity.Repository, provider Provider, notifier notification.Notifier, minAmount int64, logger *slog.Logger) *Service {
	if minAmount <= 0 {
		minAmount = 100
	}
	return &Service{
		wallets:   wallets,
		store:     store,
		events:    events,
		users:     users,
		provider:  provider,
		notifier:  notifier,
		minAmount: minAmount,
		logger:    logger,
	}
}

// InitiateResult is the hosted session handle returned to the caller.
type InitiateResult struct {
	Reference        string
	AuthorizationURL string
}

// Initiate creates a pending deposit entry and requests a hosted payment
// session. The entry stays pending until the provider webhook finalizes it.
func (s *Service) Initiate(ctx context.Context, userID string, amount int64) (InitiateResult, error) {
	if amount < s.minAmount {
		return InitiateResult{}, &AmountTooSmallError{Minimum: s.minAmount, Provided: amount}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return InitiateResult{}, err
	}
	w, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		return InitiateResult{}, err
	}

	reference := fmt.Sprintf("dep_%s", uuid.NewString()[:16])
	if _, err := s.store.CreatePendingDeposit(ctx, w.ID, userID, reference, amount); err != nil {
		return InitiateResult{}, err
	}

	session, err := s.provider.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:     user.Email,
		Amount:    amount,
		Reference: reference,
	})
	if err != nil {
		if markErr := s.store.MarkDepositFailed(ctx, reference); markErr != nil && s.logger != nil {
			s.logger.Error("failed to mark deposit failed after provider error",
				slog.String("reference", reference), slog.Any("error", markErr))
		}
		return InitiateResult{}, fmt.Errorf("%w: %v", ErrProviderInit, err)
	}

	return InitiateResult{Reference: reference, AuthorizationURL: session.AuthorizationURL}, nil
}

// Event is a verified provider notification. The transport layer has already
// checked the signature; the engine trusts reference, amount and outcome.
type Event struct {
	Provider  string
	Reference string
	Amount    int64
	Succeeded bool
	Payload   []byte
}

// HandleProviderEvent applies an external confirmation at most once. The
// durable (provider, reference) guard filters redeliveries; finalization is
// additionally a terminal-state no-op, so even a guard gap cannot credit a
// wallet twice. A nil return means the event is durably accepted.
func (s *Service) HandleProviderEvent(ctx context.Context, evt Event) error {
	isNew, err := s.events.RecordIfNew(ctx, evt.Provider, evt.Reference, evt.Payload)
	if err != nil {
		return err
	}
	if !isNew {
		// Replay. The only work left to do is recovering a finalize that
		// failed transiently after the event was recorded: if the entry is
		// still pending, apply the outcome; otherwise nothing happens.
		tx, err := s.store.TransactionByReference(ctx, evt.Reference)
		if err != nil || tx.Status.Terminal() {
			return nil
		}
		if s.logger != nil {
			s.logger.Info("recovering unfinalized deposit on redelivery", slog.String("reference", evt.Reference))
		}
	}

	res, err := s.store.FinalizeDeposit(ctx, evt.Reference, evt.Amount, evt.Succeeded)
	switch {
	case errors.Is(err, ledger.ErrTransactionNotFound):
		// Unknown or foreign reference: log and accept so the provider does
		// not keep retrying.
		if s.logger != nil {
			s.logger.Warn("provider event for unknown reference",
				slog.String("provider", evt.Provider), slog.String("reference", evt.Reference))
		}
		return s.events.MarkProcessed(ctx, evt.Provider, evt.Reference)
	case errors.Is(err, ledger.ErrAmountMismatch):
		// Anomaly: entry is marked failed, nothing credited. Accept the event
		// but surface loudly for manual review.
		if s.logger != nil {
			s.logger.Error("deposit amount mismatch, flagged for review",
				slog.String("reference", evt.Reference), slog.Any("error", err))
		}
		return s.events.MarkProcessed(ctx, evt.Provider, evt.Reference)
	case err != nil:
		return err
	}

	if res.Status == ledger.StatusSuccess && !res.AlreadyFinal && s.notifier != nil {
		tx, txErr := s.store.TransactionByReference(ctx, evt.Reference)
		if txErr == nil {
			_ = s.notifier.Send(ctx, notification.Message{
				Kind:        notification.KindDepositConfirmed,
				Destination: tx.UserID,
				Body:        fmt.Sprintf("Your deposit of %d kobo is confirmed", tx.Amount),
			})
		}
	}

	return s.events.MarkProcessed(ctx, evt.Provider, evt.Reference)
}

// StatusResult reports a deposit's internal state, enriched best-effort with
// the provider-side status.
type StatusResult struct {
	Reference      string
	Status         ledger.Status
	Amount         int64
	ProviderStatus string
}

// Status returns the deposit state for the owning user. Foreign references
// report not-found rather than revealing they exist.
func (s *Service) Status(ctx context.Context, userID, reference string) (StatusResult, error) {
	tx, err := s.store.TransactionByReference(ctx, reference)
	if err != nil {
		return StatusResult{}, err
	}
	if tx.UserID != userID {
		return StatusResult{}, ledger.ErrTransactionNotFound
	}

	result := StatusResult{Reference: reference, Status: tx.Status, Amount: tx.Amount}
	if data, err := s.provider.VerifyTransaction(ctx, reference); err == nil {
		result.ProviderStatus = data.Status
	} else if s.logger != nil {
		s.logger.Warn("provider verification failed, returning internal status",
			slog.String("reference", reference), slog.Any("error", err))
	}
	return result, nil
}
