package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Service manages identity lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FindOrCreate resolves a verified Google profile to a local user, creating
// the account on first sign-in. The second return reports whether the user
// was newly created, so the caller can provision a wallet.
func (s *Service) FindOrCreate(ctx context.Context, profile Profile) (User, bool, error) {
	if profile.GoogleID == "" || profile.Email == "" {
		return User{}, false, errors.New("incomplete profile")
	}

	user, err := s.repo.FindByGoogleID(ctx, profile.GoogleID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, false, err
	}

	user = User{
		ID:        uuid.New().String(),
		FullName:  profile.FullName,
		Email:     profile.Email,
		GoogleID:  profile.GoogleID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, false, err
	}
	return user, true, nil
}

// Get returns a user by internal id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
