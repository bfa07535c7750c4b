package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/cartkeeper/internal/apperr"
	"github.com/dmitrijs2005/cartkeeper/internal/common"
	"github.com/dmitrijs2005/cartkeeper/internal/dbx"
	"github.com/dmitrijs2005/cartkeeper/internal/server/models"
	"github.com/dmitrijs2005/cartkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	MsgUserNotFound     = "User not found"
	MsgInvalidUserID    = "Invalid user id"
	MsgEmptyCart        = "Cart must contain at least one item"
	MsgInvalidCartItem  = "Invalid cart item"
	MsgDeliveryRequired = "Address and phone number are required"
	MsgTotalOutOfRange  = "Cart total is out of range"
	MsgCartSave         = "Something went wrong while saving the cart"
	MsgHistoryFetch     = "Something went wrong while fetching purchase history"
)

const (
	defaultItemQuantity = 1
	minimumItemQuantity = 1
)

// ImageResolver turns a stored image reference into a URL a browser can load.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// CartItemInput is one requested line; a nil Quantity means 1.
type CartItemInput struct {
	ProductID int64
	Title     string
	Price     float64
	Quantity  *int
	Image     string
}

// AddToCartInput is a checkout request.
type AddToCartInput struct {
	UserID      string
	Items       []CartItemInput
	Address     string
	PhoneNumber string
}

// CartService records completed purchases and serves purchase history.
type CartService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	images      ImageResolver
}

func NewCartService(db *sql.DB, m repomanager.RepositoryManager, images ImageResolver) *CartService {
	return &CartService{db: db, repomanager: m, images: images}
}

// AddToCart validates the request, computes the total and stores the cart
// together with its history entry in one transaction.
func (s *CartService) AddToCart(ctx context.Context, in AddToCartInput) (*models.Cart, error) {
	cart, err := buildCart(in)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := s.repomanager.Users(tx).Exists(ctx, cart.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrorNotFound
		}

		carts := s.repomanager.Carts(tx)
		if _, err := carts.Create(ctx, cart); err != nil {
			return err
		}
		return carts.AppendHistory(ctx, cart.UserID, cart.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.NotFound(MsgUserNotFound)
		}
		return nil, apperr.Internal(err, MsgCartSave)
	}

	return cart, nil
}

// History returns the user's purchases in checkout order.
func (s *CartService) History(ctx context.Context, userID string) ([]*models.Cart, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, apperr.NotFound(MsgUserNotFound)
	}

	ok, err := s.repomanager.Users(s.db).Exists(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err, MsgHistoryFetch)
	}
	if !ok {
		return nil, apperr.NotFound(MsgUserNotFound)
	}

	history, err := s.repomanager.Carts(s.db).ListHistory(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err, MsgHistoryFetch)
	}

	for _, c := range history {
		for i := range c.Items {
			url, err := s.images.Resolve(ctx, c.Items[i].Image)
			if err != nil {
				return nil, apperr.Internal(fmt.Errorf("resolve image of item %d: %w", c.Items[i].ProductID, err), MsgHistoryFetch)
			}
			c.Items[i].Image = url
		}
	}

	return history, nil
}

func buildCart(in AddToCartInput) (*models.Cart, error) {
	if _, err := uuid.Parse(in.UserID); err != nil {
		return nil, apperr.Validation(MsgInvalidUserID)
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation(MsgEmptyCart)
	}

	var problems []string
	items := make([]models.CartItem, 0, len(in.Items))
	for i, it := range in.Items {
		qty := defaultItemQuantity
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		if qty < minimumItemQuantity {
			problems = append(problems, fmt.Sprintf("items[%d].quantity must be at least %d", i, minimumItemQuantity))
		}
		switch {
		case math.IsNaN(it.Price) || math.IsInf(it.Price, 0):
			problems = append(problems, fmt.Sprintf("items[%d].price must be a finite number", i))
		case it.Price < 0:
			problems = append(problems, fmt.Sprintf("items[%d].price must not be negative", i))
		case !finite(it.Price * float64(qty)):
			problems = append(problems, fmt.Sprintf("items[%d] subtotal is out of range", i))
		}
		if strings.TrimSpace(it.Image) == "" {
			problems = append(problems, fmt.Sprintf("items[%d].image is required", i))
		}
		items = append(items, models.CartItem{
			ProductID: it.ProductID,
			Title:     it.Title,
			Price:     it.Price,
			Quantity:  qty,
			Image:     it.Image,
		})
	}
	if len(problems) > 0 {
		return nil, apperr.Validation(MsgInvalidCartItem, problems...)
	}

	address := strings.TrimSpace(in.Address)
	phone := strings.TrimSpace(in.PhoneNumber)
	if address == "" || phone == "" {
		return nil, apperr.Validation(MsgDeliveryRequired)
	}

	total := models.CartTotal(items)
	if !finite(total) {
		return nil, apperr.Validation(MsgTotalOutOfRange)
	}

	return &models.Cart{
		UserID:      in.UserID,
		Items:       items,
		Address:     address,
		PhoneNumber: phone,
		Total:       total,
		Status:      models.CartStatusCompleted,
	}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
