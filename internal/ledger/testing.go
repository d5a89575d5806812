package ledger

// SeedBalance is a test helper that force-sets a wallet balance when using the
// in-memory store.
func SeedBalance(s Store, walletID string, amount int64) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[walletID] = amount
	}
}

// EntrySum is a test helper returning the signed sum of success entries for a
// wallet in the in-memory store, for asserting the balance invariant.
func EntrySum(s Store, walletID string) int64 {
	mem, ok := s.(*inMemoryStore)
	if !ok {
		return 0
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	var sum int64
	for _, entry := range mem.entries {
		if entry.WalletID != walletID || entry.Status != StatusSuccess {
			continue
		}
		if entry.Direction == DirectionCredit {
			sum += entry.Amount
		} else {
			sum -= entry.Amount
		}
	}
	return sum
}
