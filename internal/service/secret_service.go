package service

import (
	"context"
	"log/slog"

	"github.com/secretwall/internal/domain"
	"github.com/secretwall/internal/validation"
)

// secretService implements the SecretService interface
type secretService struct {
	store  domain.UserStore
	logger *slog.Logger
}

// NewSecretService creates a new secret service
func NewSecretService(store domain.UserStore, logger *slog.Logger) domain.SecretService {
	return &secretService{
		store:  store,
		logger: logger,
	}
}

// Wall returns the secrets of every user that has at least one
func (s *secretService) Wall(ctx context.Context) ([]domain.SecretWallEntry, error) {
	users, err := s.store.ListWithSecrets(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.SecretWallEntry, 0, len(users))
	for _, u := range users {
		if len(u.Secrets) == 0 {
			continue
		}
		entries = append(entries, domain.SecretWallEntry{
			UserID:  u.ID,
			Secrets: u.Secrets,
		})
	}
	return entries, nil
}

// Own returns the user's own secrets in submission order
func (s *secretService) Own(ctx context.Context, userID string) ([]string, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Secrets, nil
}

// Submit appends a secret to the user's list
func (s *secretService) Submit(ctx context.Context, userID, secret string) error {
	if err := validation.ValidateSecret(secret); err != nil {
		return domain.WrapValidationError("secret", err)
	}

	if err := s.store.AppendSecret(ctx, userID, secret); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "secret submitted", "user_id", userID, "length", len(secret))
	return nil
}

// Remove deletes the first exact match of secret. A secret that is not in the
// list leaves it unchanged and is not an error.
func (s *secretService) Remove(ctx context.Context, userID, secret string) (bool, error) {
	removed, err := s.store.RemoveSecret(ctx, userID, secret)
	if err != nil {
		return false, err
	}

	if removed {
		s.logger.InfoContext(ctx, "secret removed", "user_id", userID)
	} else {
		s.logger.DebugContext(ctx, "secret to remove not found", "user_id", userID)
	}
	return removed, nil
}
