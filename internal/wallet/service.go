package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kudipay/kudipay/internal/ledger"
)

const defaultCurrency = "NGN"

// Service exposes wallet operations backed by the ledger store.
type Service struct {
	repo  Repository
	store ledger.Store
}

// NewService builds a wallet service instance.
func NewService(repo Repository, store ledger.Store) *Service {
	return &Service{repo: repo, store: store}
}

// Balance pairs an amount with the wallet currency at a point in time.
type Balance struct {
	WalletID string
	Amount   int64
	Currency string
	AsOf     time.Time
}

// Provision creates the user's wallet exactly once, with a zero balance.
func (s *Service) Provision(ctx context.Context, userID, currency string) (Wallet, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return Wallet{}, err
	}
	if currency == "" {
		currency = defaultCurrency
	}

	wallet := Wallet{
		ID:           uuid.NewString(),
		UserID:       userID,
		WalletNumber: NewWalletNumber(),
		Currency:     currency,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}
	if err := s.store.EnsureWallet(ctx, wallet.ID); err != nil {
		return Wallet{}, err
	}
	return wallet, nil
}

// GetByUser resolves the user's wallet.
func (s *Service) GetByUser(ctx context.Context, userID string) (Wallet, error) {
	return s.repo.GetByUser(ctx, userID)
}

// GetByNumber resolves a wallet from its transfer handle.
func (s *Service) GetByNumber(ctx context.Context, walletNumber string) (Wallet, error) {
	return s.repo.GetByNumber(ctx, walletNumber)
}

// Balance returns the current ledger balance for the user's wallet.
func (s *Service) Balance(ctx context.Context, userID string) (Balance, error) {
	wallet, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	amount, err := s.store.Balance(ctx, wallet.ID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: wallet.ID, Amount: amount, Currency: wallet.Currency, AsOf: time.Now().UTC()}, nil
}

// Transactions lists the user's ledger history, newest first.
func (s *Service) Transactions(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	wallet, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.TransactionsForWallet(ctx, wallet.ID)
}
