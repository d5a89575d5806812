package apikey

import (
	"time"

	"github.com/kudipay/kudipay/internal/access"
)

// Key is a long-lived API credential scoped to a subset of wallet
// permissions. Only a bcrypt hash of the secret is stored; the plaintext is
// shown once at issuance.
type Key struct {
	ID          string
	UserID      string
	Name        string
	SecretHash  []byte
	Permissions []access.Permission
	ExpiresAt   time.Time
	Revoked     bool
	CreatedAt   time.Time
}

// Active reports whether the key can authenticate requests at the given time.
func (k Key) Active(now time.Time) bool {
	return !k.Revoked && now.Before(k.ExpiresAt)
}
