// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, logout, token refresh and
// the current-user lookup. The single refresh token kept on the user row is
// the session: issuing a new one invalidates the previous one.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/cartkeeper/internal/apperr"
	"github.com/dmitrijs2005/cartkeeper/internal/common"
	"github.com/dmitrijs2005/cartkeeper/internal/server/auth"
	"github.com/dmitrijs2005/cartkeeper/internal/server/models"
	"github.com/dmitrijs2005/cartkeeper/internal/server/repositories/repomanager"
)

// Client-facing messages.
const (
	MsgAllFieldsRequired   = "All fields are required"
	MsgUserExists          = "User with emailID already exists"
	MsgEmailRequired       = "Email is required"
	MsgUserDoesNotExist    = "User does not exist"
	MsgInvalidCredentials  = "Invalid user credentials"
	MsgUnauthorizedRequest = "Unauthorized request"
	MsgInvalidRefreshToken = "Invalid refresh token"
	MsgRefreshTokenUsed    = "Refresh token is expired or used"
	MsgTokenGeneration     = "Something went wrong while generating refresh and access token"
	MsgRegistration        = "Something went wrong while registering the user"
	MsgUnexpected          = "Unexpected error occurred"
	MsgPasswordTooLong     = "Password must be at most 72 bytes"
)

// LoginResult is what a successful login hands back to the transport.
type LoginResult struct {
	User   *models.User
	Tokens *auth.TokenPair
}

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint a token pair
// - Refresh: rotate the refresh token and mint a new access token
// - Logout: drop the stored refresh token
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	tokens      *auth.TokenIssuer
}

// NewUserService constructs a UserService from its collaborators.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher, tokens *auth.TokenIssuer) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
	}
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user. The password is hashed exactly once here;
// no session is established.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || strings.TrimSpace(password) == "" {
		return nil, apperr.Validation(MsgAllFieldsRequired)
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperr.Validation(MsgPasswordTooLong)
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperr.Conflict(MsgUserExists)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, apperr.Internal(err, MsgRegistration)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperr.Wrap(apperr.KindValidation, err, MsgPasswordTooLong)
		}
		return nil, apperr.Internal(err, MsgRegistration)
	}

	u, err := repo.Create(ctx, &models.User{Name: name, Email: email, PasswordHash: digest})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, apperr.Conflict(MsgUserExists)
		}
		return nil, apperr.Internal(err, MsgRegistration)
	}

	return u.Sanitized(), nil
}

// Login verifies credentials and starts a new session, replacing whatever
// refresh token was on file.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation(MsgEmailRequired)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.NotFound(MsgUserDoesNotExist)
		}
		return nil, apperr.Internal(err, "")
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, apperr.Internal(err, "")
	}
	if !ok {
		return nil, apperr.Unauthorized(MsgInvalidCredentials)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, apperr.Internal(err, MsgTokenGeneration)
	}
	if err := repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, apperr.Internal(err, MsgTokenGeneration)
	}

	return &LoginResult{User: user.Sanitized(), Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair. The stored token is
// swapped only if it still equals the presented one, so of two concurrent
// refreshes with the same token exactly one wins.
func (s *UserService) Refresh(ctx context.Context, presented string) (*auth.TokenPair, error) {
	if presented == "" {
		return nil, apperr.Unauthorized(MsgUnauthorizedRequest)
	}

	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuth, err, MsgInvalidRefreshToken)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.Wrap(apperr.KindAuth, err, MsgInvalidRefreshToken)
		}
		return nil, apperr.Internal(err, "")
	}

	if !user.HasSession() || !sameToken(*user.RefreshToken, presented) {
		return nil, apperr.Unauthorized(MsgRefreshTokenUsed)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, apperr.Internal(err, MsgTokenGeneration)
	}

	if err := repo.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, common.ErrorStaleRefreshToken) {
			return nil, apperr.Wrap(apperr.KindAuth, err, MsgRefreshTokenUsed)
		}
		return nil, apperr.Internal(err, MsgTokenGeneration)
	}

	return pair, nil
}

// Logout clears the stored refresh token. Calling it again is harmless.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).ClearRefreshToken(ctx, userID); err != nil {
		return apperr.Internal(err, "")
	}
	return nil
}

// GetCurrentUser returns the sanitized user. A missing user is reported as
// a server error, not as 404.
func (s *UserService) GetCurrentUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.Internal(err, MsgUnexpected)
		}
		return nil, apperr.Internal(err, "")
	}
	return user.Sanitized(), nil
}

func sameToken(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
