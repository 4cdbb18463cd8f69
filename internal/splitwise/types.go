package splitwise

import "time"

// CurrentUser is the authenticated foreign identity.
type CurrentUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Member is one participant of a foreign group.
type Member struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Group is a foreign expense group with its member list.
type Group struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

// ExpenseUser is one participant's paid/owed shares on a foreign expense.
// Shares are decimal strings on the wire.
type ExpenseUser struct {
	UserID    int64  `json:"user_id"`
	PaidShare string `json:"paid_share"`
	OwedShare string `json:"owed_share"`
}

// Expense is one foreign expense record. DeletedAt is set for soft-deleted
// expenses, which importers must skip.
type Expense struct {
	ID          int64         `json:"id"`
	Description string        `json:"description"`
	Cost        string        `json:"cost"`
	Date        time.Time     `json:"date"`
	DeletedAt   *time.Time    `json:"deleted_at"`
	Users       []ExpenseUser `json:"users"`
}

// Friend is one entry of the foreign friend list.
type Friend struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Response envelopes: every endpoint wraps its payload in a named field.
type currentUserResponse struct {
	User CurrentUser `json:"user"`
}

type groupsResponse struct {
	Groups []Group `json:"groups"`
}

type expensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

type friendsResponse struct {
	Friends []Friend `json:"friends"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
