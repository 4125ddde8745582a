package models

import "time"

// DateLayout is the storage format for an expense's incurred date.
const DateLayout = "2006-01-02"

// SuggestedCategories is the fixed set offered in the add/edit forms.
// Picking "Other" together with a custom value stores the custom value instead.
var SuggestedCategories = []string{"Food", "Travel", "Shopping", "Bills", "Health", "Other"}

// Expense represents a single recorded spending transaction.
type Expense struct {
	ID       int64   `json:"id"`
	UserID   int64   `json:"user_id,omitempty"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	SpentOn  string  `json:"spent_on"` // YYYY-MM-DD; empty only on rows predating the date column
	Note     string  `json:"note"`
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session represents a user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CategoryTotal is one row of a period aggregation. Rows keep the order in
// which their category was first recorded.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}
