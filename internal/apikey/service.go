package apikey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kudipay/kudipay/internal/access"
)

const (
	keyPrefix     = "sk_live"
	maxActiveKeys = 5
	secretBytes   = 16
)

var (
	// ErrKeyLimitReached rejects issuance beyond the active-key cap.
	ErrKeyLimitReached = fmt.Errorf("at most %d active keys per user", maxActiveKeys)

	// ErrInvalidKey covers malformed keys and secret mismatches. Callers get
	// no hint which part failed.
	ErrInvalidKey = errors.New("invalid api key")

	// ErrKeyExpired indicates the key's lifetime has elapsed.
	ErrKeyExpired = errors.New("api key expired")

	// ErrKeyRevoked indicates the key was explicitly disabled.
	ErrKeyRevoked = errors.New("api key revoked")

	// ErrInvalidExpiry rejects lifetimes outside the fixed windows.
	ErrInvalidExpiry = errors.New("expiry must be one of 1H, 1D, 1M, 1Y")

	// ErrNoPermissions rejects keys that would grant nothing.
	ErrNoPermissions = errors.New("at least one permission required")
)

// Service issues and verifies scoped API keys.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new API key service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// IssueInput describes the key being requested.
type IssueInput struct {
	UserID string
	Name   string
	Scopes []string
	Expiry string
}

// Issue mints a new key. The returned plaintext is shown exactly once; only
// its bcrypt hash survives.
func (s *Service) Issue(ctx context.Context, input IssueInput) (Key, string, error) {
	if len(input.Scopes) == 0 {
		return Key{}, "", ErrNoPermissions
	}
	perms, err := access.ParseAll(input.Scopes)
	if err != nil {
		return Key{}, "", err
	}
	ttl, err := expiryDuration(input.Expiry)
	if err != nil {
		return Key{}, "", err
	}

	existing, err := s.repo.ListByUser(ctx, input.UserID)
	if err != nil {
		return Key{}, "", err
	}
	now := s.now().UTC()
	active := 0
	for _, key := range existing {
		if key.Active(now) {
			active++
		}
	}
	if active >= maxActiveKeys {
		return Key{}, "", ErrKeyLimitReached
	}

	id, err := randomHex(8)
	if err != nil {
		return Key{}, "", err
	}
	secret, err := randomHex(secretBytes)
	if err != nil {
		return Key{}, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return Key{}, "", err
	}

	key := Key{
		ID:          id,
		UserID:      input.UserID,
		Name:        input.Name,
		SecretHash:  hash,
		Permissions: perms,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return Key{}, "", err
	}

	return key, fmt.Sprintf("%s_%s_%s", keyPrefix, id, secret), nil
}

// Verify authenticates a presented plaintext key. The embedded key id makes
// the lookup direct; only one bcrypt comparison runs per request.
func (s *Service) Verify(ctx context.Context, plaintext string) (Key, error) {
	parts := strings.Split(plaintext, "_")
	if len(parts) != 4 || parts[0]+"_"+parts[1] != keyPrefix {
		return Key{}, ErrInvalidKey
	}
	key, err := s.repo.FindByID(ctx, parts[2])
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return Key{}, ErrInvalidKey
		}
		return Key{}, err
	}
	if bcrypt.CompareHashAndPassword(key.SecretHash, []byte(parts[3])) != nil {
		return Key{}, ErrInvalidKey
	}
	if key.Revoked {
		return Key{}, ErrKeyRevoked
	}
	if !s.now().UTC().Before(key.ExpiresAt) {
		return Key{}, ErrKeyExpired
	}
	return key, nil
}

// List returns the user's keys, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Key, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Revoke permanently disables one of the user's keys.
func (s *Service) Revoke(ctx context.Context, userID, id string) error {
	return s.repo.Revoke(ctx, userID, id)
}

func expiryDuration(window string) (time.Duration, error) {
	switch strings.ToUpper(window) {
	case "1H":
		return time.Hour, nil
	case "1D":
		return 24 * time.Hour, nil
	case "1M":
		return 30 * 24 * time.Hour, nil
	case "1Y":
		return 365 * 24 * time.Hour, nil
	default:
		return 0, ErrInvalidExpiry
	}
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
