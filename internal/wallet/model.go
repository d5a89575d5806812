package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Wallet is a stored-value account holding a non-negative kobo balance. One
// wallet exists per user; the wallet number is the shareable transfer handle.
type Wallet struct {
	ID           string
	UserID       string
	WalletNumber string
	Currency     string
	CreatedAt    time.Time
}

// NewWalletNumber produces a 16-hex-char human-shareable handle.
func NewWalletNumber() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic("wallet: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
