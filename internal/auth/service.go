package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"

	"github.com/dealdesk/dealdesk/internal/config"
	"github.com/dealdesk/dealdesk/internal/logging"
)

// UserStore is the persistence surface the session service needs. The
// mongo-backed implementation lives in internal/store.
type UserStore interface {
	// Create persists a new user. The write path hashes the password and
	// stamps createdAt; a duplicate email surfaces as a conflict.
	Create(ctx context.Context, user *User) (*User, error)
	// GetByEmail returns the full record including the password hash.
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByID returns the record with the password excluded at the query
	// level.
	GetByID(ctx context.Context, id string) (*User, error)
}

// TokenDenylist is a persisted set of revoked refresh-token strings.
// Entries expire on their own after the configured retention window.
type TokenDenylist interface {
	Add(ctx context.Context, token string) error
	Contains(ctx context.Context, token string) (bool, error)
}

// Service orchestrates registration, login, logout, profile retrieval and
// token issuance.
type Service struct {
	users    UserStore
	denylist TokenDenylist
	codec    *Codec
	cfg      config.Auth
	logger   logging.Logger
}

// NewService creates the auth session service.
func NewService(users UserStore, denylist TokenDenylist, codec *Codec, cfg config.Auth, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	if codec == nil {
		codec = NewCodec(logger)
	}
	return &Service{
		users:    users,
		denylist: denylist,
		codec:    codec,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register creates a user with the default role and returns a fresh token
// pair for the new identity. The email check here is check-then-insert; the
// store's unique index on email is the backstop for concurrent registration.
func (s *Service) Register(ctx context.Context, email, password string) (*TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing user").
			WithCode(goerrors.CodeInternal)
	}

	user, err := s.users.Create(ctx, &User{
		Email:    email,
		Password: password,
		Role:     RoleUser,
	})
	if err != nil {
		var rich *goerrors.Error
		if goerrors.As(err, &rich) && rich.Category == goerrors.CategoryConflict {
			return nil, ErrEmailTaken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist user").
			WithCode(goerrors.CodeInternal)
	}

	s.logger.Info("registered user %s", user.Email)

	return s.IssueTokenPair(ClaimsForUser(user))
}

// Login verifies credentials and returns a fresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user").
			WithCode(goerrors.CodeInternal)
	}

	if err := ComparePasswordAndHash(password, user.Password); err != nil {
		return nil, ErrBadCredentials
	}

	return s.IssueTokenPair(ClaimsForUser(user))
}

// Logout denylists the given refresh-token string. The string is not
// verified first; denylisting an arbitrary or already-denylisted string is
// harmless.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.denylist.Add(ctx, refreshToken); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to denylist token").
			WithCode(goerrors.CodeInternal)
	}
	return nil
}

// GetUserByID returns the user record without the password field.
func (s *Service) GetUserByID(ctx context.Context, id string) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user").
			WithCode(goerrors.CodeInternal)
	}
	return user, nil
}

// IssueTokenPair signs an access and a refresh token carrying the same
// identity claims, each with its own secret and lifetime.
func (s *Service) IssueTokenPair(claims Claims) (*TokenPair, error) {
	if s.cfg.AccessSecret == "" || s.cfg.RefreshSecret == "" {
		return nil, ErrSigningSecretMissing
	}

	access, err := s.codec.Sign(claims, s.cfg.AccessSecret, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := s.codec.Sign(claims, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RefreshAccessToken mints a new access token for an already-verified
// refresh-token identity.
func (s *Service) RefreshAccessToken(claims Claims) (string, error) {
	if s.cfg.AccessSecret == "" {
		return "", ErrSigningSecretMissing
	}
	return s.codec.Sign(claims, s.cfg.AccessSecret, s.cfg.AccessTTL)
}
