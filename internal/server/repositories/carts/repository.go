package carts

import (
	"context"

	"github.com/dmitrijs2005/cartkeeper/internal/server/models"
)

type Repository interface {
	// Create stores the cart and its items; ID and timestamps are filled in.
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	AppendHistory(ctx context.Context, userID, cartID string) error
	// ListHistory returns the user's carts in the order they were appended.
	ListHistory(ctx context.Context, userID string) ([]*models.Cart, error)
}
