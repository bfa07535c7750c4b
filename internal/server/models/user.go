// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the stored identity record. PasswordHash and RefreshToken never
// leave the server: both are excluded from JSON.
type User struct {
	ID              string    `json:"_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	RefreshToken    *string   `json:"-"`
	PurchaseHistory []string  `json:"purchaseHistory"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// HasSession reports whether a refresh token is on file.
func (u *User) HasSession() bool {
	return u.RefreshToken != nil
}

// Sanitized returns a copy of u without credentials, safe to hand to callers.
func (u *User) Sanitized() *User {
	c := *u
	c.PasswordHash = ""
	c.RefreshToken = nil
	c.PurchaseHistory = make([]string, len(u.PurchaseHistory))
	copy(c.PurchaseHistory, u.PurchaseHistory)
	return &c
}
