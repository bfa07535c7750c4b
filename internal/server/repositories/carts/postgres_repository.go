package carts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/cartkeeper/internal/dbx"
	"github.com/dmitrijs2005/cartkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create is not atomic on its own; callers run it inside dbx.WithTx.
func (r *PostgresRepository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {

	query :=
		`INSERT INTO carts (user_id, address, phone_number, total, status)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		cart.UserID, cart.Address, cart.PhoneNumber, cart.Total, cart.Status).
		Scan(&cart.ID, &cart.CreatedAt, &cart.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	itemQuery :=
		`INSERT INTO cart_items (cart_id, position, product_id, title, image, price, quantity)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	for pos, it := range cart.Items {
		_, err := r.db.ExecContext(ctx, itemQuery,
			cart.ID, pos, it.ProductID, it.Title, it.Image, it.Price, it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}

	return cart, nil
}

func (r *PostgresRepository) AppendHistory(ctx context.Context, userID, cartID string) error {
	query :=
		`INSERT INTO purchase_history (user_id, cart_id)
         VALUES ($1, $2)
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, cartID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListHistory(ctx context.Context, userID string) ([]*models.Cart, error) {
	query :=
		`SELECT c.id, c.user_id, c.address, c.phone_number, c.total, c.status, c.created_at, c.updated_at,
		        i.product_id, i.title, i.price, i.quantity, i.image
		 FROM purchase_history h
		 JOIN carts c ON c.id = h.cart_id
		 LEFT JOIN cart_items i ON i.cart_id = c.id
		 WHERE h.user_id = $1
		 ORDER BY h.id, i.position
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Cart{}
	var current *models.Cart

	for rows.Next() {
		var (
			c         models.Cart
			productID sql.NullInt64
			title     sql.NullString
			price     sql.NullFloat64
			quantity  sql.NullInt32
			image     sql.NullString
		)

		err := rows.Scan(&c.ID, &c.UserID, &c.Address, &c.PhoneNumber, &c.Total, &c.Status, &c.CreatedAt, &c.UpdatedAt,
			&productID, &title, &price, &quantity, &image)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		// rows of one cart are adjacent
		if current == nil || current.ID != c.ID {
			c.Items = []models.CartItem{}
			current = &c
			result = append(result, current)
		}

		if productID.Valid {
			current.Items = append(current.Items, models.CartItem{
				ProductID: productID.Int64,
				Title:     title.String,
				Price:     price.Float64,
				Quantity:  int(quantity.Int32),
				Image:     image.String,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
