package models

// Expense represents an amount paid by one user and split across debtors.
// It stores the complete record including the embedded split list.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to. Empty means a direct
	// person-to-person expense outside any group.
	GroupID string

	// Description is the human-readable name for the expense.
	Description string

	// Amount is the total paid. Always positive.
	Amount float64

	// PaidBy is the ID of the user who paid.
	PaidBy string

	// AddedBy is the ID of the user who recorded the expense. Used for
	// edit/delete authorization, independent of who paid.
	AddedBy string

	// Date is the occurrence date of the expense ("2006-01-02").
	Date string

	// ForeignID is the source-system record ID for imported expenses, used
	// as the primary dedup key on re-import. Empty for native expenses.
	ForeignID string

	// Splits is the ordered list of debtor shares. The expense exclusively
	// owns its splits; they have no independent identity.
	Splits []Split

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Split represents one debtor's share of an expense.
// Amounts are non-negative; the splits need not sum to the expense amount
// (partial splitting is permitted).
type Split struct {
	// UserID is the debtor who owes this share.
	UserID string

	// Amount is the share owed to the payer.
	Amount float64
}
