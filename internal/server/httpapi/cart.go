package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/cartkeeper/internal/server/models"
	"github.com/dmitrijs2005/cartkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type cartItemRequest struct {
	ProductID int64   `json:"productId"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  *int    `json:"quantity"`
	Image     string  `json:"image"`
}

type addToCartRequest struct {
	UserID      string             `json:"userId"`
	Items       []cartItemRequest  `json:"items"`
	Address     string             `json:"address"`
	PhoneNumber models.PhoneNumber `json:"phoneNumber"`
}

func (req addToCartRequest) input() services.AddToCartInput {
	items := make([]services.CartItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.CartItemInput{
			ProductID: it.ProductID,
			Title:     it.Title,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}
	return services.AddToCartInput{
		UserID:      req.UserID,
		Items:       items,
		Address:     req.Address,
		PhoneNumber: string(req.PhoneNumber),
	}
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(w, r, MaxBodyBytes, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	cart, err := s.carts.AddToCart(r.Context(), req.input())
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	respond(w, http.StatusCreated, map[string]any{"cart": cart}, MsgCartSaved)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.carts.History(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	respond(w, http.StatusOK, map[string]any{"purchaseHistory": history}, MsgHistoryFetched)
}
