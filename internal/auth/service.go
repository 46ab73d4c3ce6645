// Package auth is the session orchestrator: it composes the credential
// verifier, the token codec, and the revocation store into the
// register / login / refresh / logout flows and owns rotation policy.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maurya-kamminana/taskmaster/internal/models"
	"github.com/maurya-kamminana/taskmaster/internal/password"
	"github.com/maurya-kamminana/taskmaster/internal/session"
	"github.com/maurya-kamminana/taskmaster/internal/token"
)

// UserStore is the identity lookup the orchestrator depends on. A lookup
// miss is (nil, nil), not an error.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

// Result is returned by every flow that issues tokens. The refresh token
// travels back to the client in an httpOnly cookie, never in the body.
type Result struct {
	User         models.User
	AccessToken  string
	RefreshToken string
}

// Service implements the session state machine.
type Service struct {
	users  UserStore
	codec  *token.Codec
	store  *session.Store
	hasher *password.Hasher
}

// NewService wires the orchestrator's collaborators.
func NewService(users UserStore, codec *token.Codec, store *session.Store, hasher *password.Hasher) *Service {
	return &Service{users: users, codec: codec, store: store, hasher: hasher}
}

// Register creates an identity and opens an authenticated session.
// A duplicate username OR email fails with the generic ErrUserExists.
func (s *Service) Register(ctx context.Context, username, email, secret string) (Result, error) {
	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return Result{}, fmt.Errorf("checking existing user: %w", err)
	}
	if exists {
		return Result{}, ErrUserExists
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return Result{}, fmt.Errorf("hashing secret: %w", err)
	}

	user, err := s.users.Create(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return Result{}, fmt.Errorf("creating user: %w", err)
	}

	logrus.WithField("user_id", user.ID).Info("user registered")
	return s.openSession(ctx, user)
}

// Login verifies credentials and opens an authenticated session. Unknown
// email and wrong secret produce the same failure.
func (s *Service) Login(ctx context.Context, email, secret string) (Result, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		return Result{}, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(secret, user.PasswordHash)
	if err != nil {
		logrus.WithField("user_id", user.ID).WithError(err).Error("stored credential digest unreadable")
		return Result{}, ErrInvalidCredentials
	}
	if !ok {
		return Result{}, ErrInvalidCredentials
	}

	return s.openSession(ctx, *user)
}

// Refresh rotates a session: it verifies the presented refresh token,
// atomically consumes its store entry, and issues a fresh token pair. The
// consume step is the race arbiter — of two concurrent calls with the
// same token, exactly one observes the removal and wins; the loser fails
// as if the token were forged.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Result, error) {
	identity, jti, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return Result{}, translateTokenErr(err)
	}

	removed, err := s.store.Revoke(ctx, jti)
	if err != nil {
		return Result{}, err
	}
	if !removed {
		// Rotated out, logged out, or never recorded. Indistinguishable
		// from a forgery on purpose.
		logrus.WithField("user_id", identity.SubjectID).Warn("refresh attempted with unrecorded token")
		return Result{}, ErrTokenInvalid
	}

	user, err := s.users.FindByID(ctx, identity.SubjectID)
	if err != nil {
		return Result{}, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		return Result{}, ErrTokenInvalid
	}

	return s.openSession(ctx, *user)
}

// Logout revokes the presented refresh token's store entry. The returned
// bool distinguishes "logout succeeded" from "already logged out"; a
// token that does not verify has no live entry by construction.
func (s *Service) Logout(ctx context.Context, refreshToken string) (bool, error) {
	_, jti, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return false, nil
	}
	return s.store.Revoke(ctx, jti)
}

// RevokeAllSessions force-logs-out every device for a subject.
func (s *Service) RevokeAllSessions(ctx context.Context, subjectID string) (int, error) {
	return s.store.RevokeAll(ctx, subjectID)
}

func (s *Service) openSession(ctx context.Context, user models.User) (Result, error) {
	identity := token.Identity{
		SubjectID: user.ID,
		Email:     user.Email,
		Username:  user.Username,
	}

	access, err := s.codec.IssueAccess(identity)
	if err != nil {
		return Result{}, fmt.Errorf("issuing access token: %w", err)
	}

	refresh, jti, err := s.codec.IssueRefresh(identity)
	if err != nil {
		return Result{}, fmt.Errorf("issuing refresh token: %w", err)
	}

	if err := s.store.Record(ctx, jti, user.ID, s.codec.RefreshTTL()); err != nil {
		return Result{}, err
	}

	return Result{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func translateTokenErr(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrBadSignature), errors.Is(err, token.ErrMalformed):
		return ErrTokenInvalid
	default:
		return ErrTokenInvalid
	}
}
