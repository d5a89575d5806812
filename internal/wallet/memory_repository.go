package wallet

import (
	"context"
	"errors"
	"sync"

	"github.com/kudipay/kudipay/internal/ledger"
)

type memoryRepository struct {
	mu     sync.RWMutex
	byUser map[string]Wallet
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{byUser: make(map[string]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUser[wallet.UserID]; exists {
		return errors.New("wallet exists for user")
	}
	r.byUser[wallet.UserID] = wallet
	return nil
}

func (r *memoryRepository) GetByUser(_ context.Context, userID string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.byUser[userID]
	if !ok {
		return Wallet{}, ledger.ErrWalletNotFound
	}
	return wallet, nil
}

func (r *memoryRepository) GetByNumber(_ context.Context, walletNumber string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, wallet := range r.byUser {
		if wallet.WalletNumber == walletNumber {
			return wallet, nil
		}
	}
	return Wallet{}, ledger.ErrWalletNotFound
}
