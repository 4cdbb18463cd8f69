package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MigrationStatus tracks how far a user's foreign-ledger import has gone.
// The status is persisted before any foreign data is written, so a crash
// mid-migration leaves a durable "pending" marker.
type MigrationStatus string

const (
	MigrationNone      MigrationStatus = "none"
	MigrationPending   MigrationStatus = "pending"
	MigrationCompleted MigrationStatus = "completed"
)

// ErrNotGhost is returned by Promote when the user already has real credentials.
var ErrNotGhost = errors.New("user is not a ghost account")

// User represents a person who can pay for and owe shares of expenses.
//
// A user is either a registered account or a ghost: a placeholder created by
// the identity resolver during import for someone who has not signed up yet.
// Ghosts hold real references (memberships, splits, friend links) but carry
// an unusable random credential.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address. Unique, compared case-insensitively;
	// stores the lower-cased form.
	Email string

	// DisplayName is the unique display name shown in groups and balances.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password. For ghosts this
	// is the hash of a random UUID and cannot be used to log in.
	PasswordHash string

	// IsGhost marks a placeholder account created during import.
	IsGhost bool

	// Initials is a short display form derived from the foreign member's
	// name, set only for ghosts.
	Initials string

	// MigrationStatus records the state of this user's foreign-ledger import.
	MigrationStatus MigrationStatus

	// CreatedAt is the Unix timestamp when the user was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64
}

// NewUser creates a registered user with the given credentials.
// The email is lower-cased so lookups are case-insensitive.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:              uuid.New().String(),
		Email:           strings.ToLower(email),
		DisplayName:     displayName,
		PasswordHash:    passwordHash,
		MigrationStatus: MigrationNone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Promote turns a ghost into a registered account, setting real credentials
// and display name. The user ID never changes, so every existing reference
// (memberships, splits, friend links) remains valid.
func (u *User) Promote(displayName, passwordHash string) error {
	if !u.IsGhost {
		return ErrNotGhost
	}
	u.DisplayName = displayName
	u.PasswordHash = passwordHash
	u.IsGhost = false
	u.Initials = ""
	u.UpdatedAt = time.Now().Unix()
	return nil
}
