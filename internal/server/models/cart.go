package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Cart statuses.
const (
	CartStatusPending   = "pending"
	CartStatusCompleted = "completed"
)

// CartItem is one line of a purchase snapshot.
type CartItem struct {
	ProductID int64   `json:"productId"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image"`
}

// Subtotal is price times quantity.
func (i CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Cart is a completed purchase owned by a user.
type Cart struct {
	ID          string     `json:"_id"`
	UserID      string     `json:"userId"`
	Items       []CartItem `json:"items"`
	Address     string     `json:"address"`
	PhoneNumber string     `json:"phoneNumber"`
	Total       float64    `json:"total"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CartTotal sums the item subtotals in order.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// PhoneNumber accepts either a JSON string or a JSON number.
type PhoneNumber string

func (p *PhoneNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = PhoneNumber(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("phone number must be a string or a number: %w", err)
	}
	*p = PhoneNumber(n.String())
	return nil
}
