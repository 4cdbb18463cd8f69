// Package identity maps foreign-system member records to local users,
// creating ghost placeholder accounts when no match exists.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/owetrack/owetrack/internal/models"
	"github.com/owetrack/owetrack/internal/storage"
)

// ErrNoEmail marks a foreign member that cannot be resolved: without an
// email there is no identity key, so no account may be fabricated.
var ErrNoEmail = errors.New("foreign member has no email")

// ForeignMember is the foreign-system record the resolver works from.
type ForeignMember struct {
	ForeignID string
	Email     string
	FirstName string
	LastName  string
}

// Resolver turns foreign member records into local user references.
type Resolver struct {
	store storage.Store
}

// NewResolver creates a resolver backed by the given store.
func NewResolver(store storage.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the local user for a foreign member.
//
// An existing user with the same email (case-insensitive) is returned
// unmodified, so resolving is idempotent and never overwrites a real
// account. Otherwise a ghost user is created: display name slugged from the
// member's name, an unusable random credential, and initials for display.
// Members without an email yield ErrNoEmail.
func (r *Resolver) Resolve(ctx context.Context, member ForeignMember) (*models.User, error) {
	if member.Email == "" {
		return nil, ErrNoEmail
	}

	existing, err := r.store.GetUserByEmail(ctx, member.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", member.Email, err)
	}
	if existing != nil {
		return existing, nil
	}

	displayName, err := r.uniqueDisplayName(ctx, member)
	if err != nil {
		return nil, err
	}

	// A random UUID behind bcrypt: a real credential shape that nobody can
	// ever present.
	placeholder, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create placeholder credential: %w", err)
	}

	ghost := models.NewUser(member.Email, displayName, string(placeholder))
	ghost.IsGhost = true
	ghost.Initials = initials(member.FirstName, member.LastName)

	if err := r.store.CreateUser(ctx, ghost); err != nil {
		return nil, fmt.Errorf("failed to create ghost user: %w", err)
	}

	slog.Info("Created ghost user",
		"user_id", ghost.ID,
		"email", ghost.Email,
		"display_name", ghost.DisplayName,
		"foreign_id", member.ForeignID,
	)

	return ghost, nil
}

// uniqueDisplayName slugs the member's name and disambiguates collisions
// with a time-derived suffix.
func (r *Resolver) uniqueDisplayName(ctx context.Context, member ForeignMember) (string, error) {
	base := slugify(strings.TrimSpace(member.FirstName + " " + member.LastName))
	if base == "" {
		// Fall back to the local part of the email.
		local, _, _ := strings.Cut(member.Email, "@")
		base = slugify(local)
	}
	if base == "" {
		base = "user"
	}

	taken, err := r.store.GetUserByDisplayName(ctx, base)
	if err != nil {
		return "", fmt.Errorf("failed to check display name: %w", err)
	}
	if taken == nil {
		return base, nil
	}
	return fmt.Sprintf("%s-%d", base, time.Now().UnixMilli()%1000000), nil
}

// slugify normalizes a name to lowercase letters, digits, and single dashes.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// initials builds a short display form from the member's name, e.g. "JD".
func initials(first, last string) string {
	var b strings.Builder
	for _, name := range []string{first, last} {
		for _, r := range strings.TrimSpace(name) {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	return b.String()
}
