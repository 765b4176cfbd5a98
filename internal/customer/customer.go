package customer

import (
	"strings"
	"time"
)

// Customer places orders. Registered customers are linked to a user account;
// guests have no UserID and are identified by the email given at checkout.
type Customer struct {
	ID        int       `json:"id"`
	UserID    *int      `json:"userId,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsGuest reports whether the customer has no user account.
func (c Customer) IsGuest() bool {
	return c.UserID == nil
}

// NormalizeEmail is the key guests are matched on: trimmed and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
