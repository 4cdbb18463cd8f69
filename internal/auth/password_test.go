package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/owetrack/owetrack/internal/identity"
	"github.com/owetrack/owetrack/internal/storage/sqlite"
)

func newTestAuthenticator(t *testing.T) (*PasswordAuthenticator, *sqlite.SQLiteStore) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "owetrack-auth-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewPasswordAuthenticator(store), store
}

func TestRegisterAndAuthenticate(t *testing.T) {
	auth, _ := newTestAuthenticator(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "Alice@Example.com", "alice", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Email not normalized: got %s", user.Email)
	}

	if _, err := auth.Register(ctx, "alice@example.com", "alice2", "hunter2hunter2"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("Duplicate email: got %v, want ErrEmailExists", err)
	}
	if _, err := auth.Register(ctx, "bob@example.com", "alice", "hunter2hunter2"); !errors.Is(err, ErrNameExists) {
		t.Errorf("Duplicate name: got %v, want ErrNameExists", err)
	}
	if _, err := auth.Register(ctx, "bob@example.com", "bob", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Weak password: got %v, want ErrWeakPassword", err)
	}

	got, err := auth.Authenticate(ctx, "alice@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Authenticate: got user %s, want %s", got.ID, user.ID)
	}
	if _, err := auth.Authenticate(ctx, "alice@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Bad password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := auth.Authenticate(ctx, "nobody@example.com", "hunter2hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Unknown email: got %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterPromotesGhost(t *testing.T) {
	auth, store := newTestAuthenticator(t)
	ctx := context.Background()

	resolver := identity.NewResolver(store)
	ghost, err := resolver.Resolve(ctx, identity.ForeignMember{
		ForeignID: "42",
		Email:     "bea@example.com",
		FirstName: "Bea",
		LastName:  "Smith",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !ghost.IsGhost {
		t.Fatal("Expected a ghost account")
	}

	// Ghosts cannot log in before claiming the account.
	if _, err := auth.Authenticate(ctx, "bea@example.com", "anything at all"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Ghost login: got %v, want ErrInvalidCredentials", err)
	}

	promoted, err := auth.Register(ctx, "bea@example.com", "bea", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Register over ghost failed: %v", err)
	}
	if promoted.ID != ghost.ID {
		t.Errorf("Promotion changed the user ID: got %s, want %s", promoted.ID, ghost.ID)
	}
	if promoted.IsGhost {
		t.Error("Promoted user still flagged as ghost")
	}

	got, err := auth.Authenticate(ctx, "bea@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Authenticate after promotion failed: %v", err)
	}
	if got.ID != ghost.ID {
		t.Errorf("Authenticate: got user %s, want %s", got.ID, ghost.ID)
	}
}
