package service

import (
	"context"
	"log/slog"

	"github.com/go-pkgz/auth/token"

	"github.com/secretwall/internal/domain"
	"github.com/secretwall/internal/validation"
)

// rehashChecker is implemented by hashers that can tell when a stored
// credential was made with weaker parameters than the current ones
type rehashChecker interface {
	NeedsRehash(cred domain.Credential) bool
}

// accountService implements the AccountService interface
type accountService struct {
	store  domain.UserStore
	hasher domain.PasswordHasher
	logger *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(store domain.UserStore, hasher domain.PasswordHasher, logger *slog.Logger) domain.AccountService {
	return &accountService{
		store:  store,
		hasher: hasher,
		logger: logger,
	}
}

// Register creates a local user. A taken username yields ErrUserAlreadyExists
// and no record is written.
func (s *accountService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, domain.WrapValidationError("username", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, domain.WrapValidationError("password", err)
	}

	cred, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, err
	}

	user, err := s.store.CreateLocal(ctx, username, cred)
	if err != nil {
		if domain.IsConflictError(err) {
			s.logger.InfoContext(ctx, "registration refused, username taken", "username", username)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", username)
	return user, nil
}

// Login checks a username and password. Unknown users, users without a
// password and wrong passwords all yield ErrInvalidCredentials.
func (s *accountService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" || len(password) > validation.MaxPasswordBytes {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, user.Credential())
	if err != nil {
		s.logger.ErrorContext(ctx, "stored credential unreadable", "user_id", user.ID, "error", err)
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	if rc, ok := s.hasher.(rehashChecker); ok && rc.NeedsRehash(user.Credential()) {
		s.logger.InfoContext(ctx, "password hash uses outdated parameters", "user_id", user.ID)
	}

	return user, nil
}

// LoginWithGoogle finds the user linked to the Google account or creates one
// without a password
func (s *accountService) LoginWithGoogle(ctx context.Context, profile domain.GoogleProfile) (*domain.User, error) {
	if profile.ID == "" {
		return nil, domain.WrapOAuthFailed("profile", nil)
	}

	user, created, err := s.store.FindOrCreateByGoogleID(ctx, profile)
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.InfoContext(ctx, "user created from google account", "user_id", user.ID)
	}
	return user, nil
}

// Resolve loads the stored user behind a session principal
func (s *accountService) Resolve(ctx context.Context, principal token.User) (*domain.User, error) {
	if principal.ID == "" {
		return nil, domain.ErrSessionNotFound
	}
	return s.store.GetByID(ctx, principal.ID)
}
