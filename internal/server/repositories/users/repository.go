package users

import (
	"context"

	"github.com/dmitrijs2005/cartkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)

	// SetRefreshToken overwrites the stored token unconditionally.
	SetRefreshToken(ctx context.Context, id, token string) error
	// RotateRefreshToken replaces oldToken with newToken only if oldToken is
	// still the one on file; otherwise it returns common.ErrorStaleRefreshToken.
	RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) error
	ClearRefreshToken(ctx context.Context, id string) error
}
