// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/owetrack/owetrack/internal/models"
)

// Store defines the ledger store: durable CRUD and query operations for
// users, groups, and expenses. This abstraction allows swapping storage
// backends (SQLite, PostgreSQL, etc.) without changing the callers.
//
// Get* methods return an error when the record does not exist. Find* and
// lookup-by-attribute methods are probes: they return (nil, nil) on a miss.
type Store interface {
	// CreateUser persists a new user. The user.ID must already be set.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by email, compared case-insensitively.
	// Returns (nil, nil) if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByDisplayName retrieves a user by display name.
	// Returns (nil, nil) if no user has that name.
	GetUserByDisplayName(ctx context.Context, name string) (*models.User, error)

	// UpdateUser rewrites all mutable fields of an existing user.
	UpdateUser(ctx context.Context, user *models.User) error

	// SetMigrationStatus persists the user's foreign-ledger import state.
	SetMigrationStatus(ctx context.Context, userID string, status models.MigrationStatus) error

	// AddFriendLink records the symmetric friendship userID<->friendID as
	// two directed rows. Adding an existing link is a no-op. If only one
	// side can be written the error reports the half-written state.
	AddFriendLink(ctx context.Context, userID, friendID string) error

	// AreFriends reports whether a directed friend row a->b exists.
	AreFriends(ctx context.Context, a, b string) (bool, error)

	// ListFriends returns the users linked to userID.
	ListFriends(ctx context.Context, userID string) ([]*models.User, error)

	// CreateGroup persists a new group with its member sets.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by ID, including members and past members.
	GetGroup(ctx context.Context, id string) (*models.Group, error)

	// UpdateGroup rewrites the group row and replaces its member sets in a
	// single transaction (the read-modify-write unit for membership edits).
	UpdateGroup(ctx context.Context, group *models.Group) error

	// ListGroupsByMember returns groups where userID is an active member.
	ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error)

	// FindGroupByNameAndMember probes for a group with exactly this name
	// that has userID as an active member. Returns (nil, nil) on a miss.
	FindGroupByNameAndMember(ctx context.Context, name, userID string) (*models.Group, error)

	// ListGroupsBySettleUpDate returns groups whose settle-up date equals
	// the given calendar date ("2006-01-02").
	ListGroupsBySettleUpDate(ctx context.Context, date string) ([]*models.Group, error)

	// CreateExpense persists an expense and its splits atomically.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its splits.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)

	// DeleteExpense removes an expense and its splits.
	DeleteExpense(ctx context.Context, id string) error

	// ListExpensesByGroup returns all expenses recorded against a group.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListDirectExpensesBetween returns groupless expenses where a and b are
	// the payer and/or debtors (the person-to-person ledger slice).
	ListDirectExpensesBetween(ctx context.Context, a, b string) ([]*models.Expense, error)

	// FindExpenseByForeignID probes for an imported expense by its
	// source-system ID. Returns (nil, nil) on a miss.
	FindExpenseByForeignID(ctx context.Context, foreignID string) (*models.Expense, error)

	// FindExpenseByNaturalKey probes for an expense matching description,
	// absolute amount, date, and group. Returns (nil, nil) on a miss.
	FindExpenseByNaturalKey(ctx context.Context, groupID, description string, amount float64, date string) (*models.Expense, error)

	// Close releases any resources held by the store.
	Close() error
}
