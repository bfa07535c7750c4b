// Package auth contains the token issuer and password hasher used by the
// session flows.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cartkeeper/internal/common"
	"github.com/dmitrijs2005/cartkeeper/internal/server/config"
	"github.com/dmitrijs2005/cartkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// RefreshClaims is the payload of a refresh token. The random ID (jti)
// keeps two tokens minted for the same user in the same second distinct.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"_id"`
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenIssuer signs and verifies the two token kinds. Secrets and lifetimes
// are fixed at construction.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenIssuer(cfg *config.Config) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenValidityDuration,
		refreshTTL:    cfg.RefreshTokenValidityDuration,
		now:           time.Now,
	}
}

func (i *TokenIssuer) registered(ttl time.Duration) (jwt.RegisteredClaims, time.Time) {
	now := i.now()
	exp := now.Add(ttl)
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}, exp
}

// IssueAccess signs {id, email, name} with the access secret.
func (i *TokenIssuer) IssueAccess(user *models.User) (string, time.Time, error) {
	rc, exp := i.registered(i.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: rc,
		UserID:           user.ID,
		Email:            user.Email,
		Name:             user.Name,
	})

	s, err := token.SignedString(i.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// IssueRefresh signs {id} with the refresh secret.
func (i *TokenIssuer) IssueRefresh(user *models.User) (string, time.Time, error) {
	jti, err := common.MakeRandHexString(16)
	if err != nil {
		return "", time.Time{}, err
	}

	rc, exp := i.registered(i.refreshTTL)
	rc.ID = jti
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: rc,
		UserID:           user.ID,
	})

	s, err := token.SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// IssuePair mints a fresh access and refresh token for user.
func (i *TokenIssuer) IssuePair(user *models.User) (*TokenPair, error) {
	access, accessExp, err := i.IssueAccess(user)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := i.IssueRefresh(user)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess checks signature and expiry of an access token.
func (i *TokenIssuer) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.parse(tokenString, claims, i.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh checks signature and expiry of a refresh token.
func (i *TokenIssuer) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(tokenString, claims, i.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// parse verifies tokenString into claims. Expired tokens yield
// common.ErrTokenExpired, every other failure common.ErrInvalidToken; the
// library error stays in the chain.
func (i *TokenIssuer) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %w", common.ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return common.ErrInvalidToken
	}

	return nil
}
