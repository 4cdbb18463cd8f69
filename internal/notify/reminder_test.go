package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/owetrack/owetrack/internal/models"
	"github.com/owetrack/owetrack/internal/storage/sqlite"
)

// recordingSink captures sends and optionally fails for chosen addresses.
type recordingSink struct {
	sent    []string // "to|subject"
	bodies  map[string]string
	failFor map[string]bool
}

func (s *recordingSink) Send(ctx context.Context, to, subject, body string) error {
	if s.failFor[to] {
		return errors.New("smtp down")
	}
	s.sent = append(s.sent, to+"|"+subject)
	if s.bodies == nil {
		s.bodies = map[string]string{}
	}
	s.bodies[to] = body
	return nil
}

func setupReminder(t *testing.T) (*sqlite.SQLiteStore, *recordingSink, *Reminder) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "notify-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sink := &recordingSink{failFor: map[string]bool{}}
	return store, sink, NewReminder(store, sink)
}

func TestReminderRun(t *testing.T) {
	store, sink, reminder := setupReminder(t)
	ctx := context.Background()

	alice := models.NewUser("alice@example.com", "alice", "hash")
	bob := models.NewUser("bob@example.com", "bob", "hash")
	ghost := models.NewUser("ghost@example.com", "ghost-user", "hash")
	ghost.IsGhost = true
	for _, u := range []*models.User{alice, bob, ghost} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	due := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	group := &models.Group{
		Name:         "Roommates",
		CreatedBy:    alice.ID,
		Members:      []string{alice.ID, bob.ID, ghost.ID},
		SettleUpDate: "2026-08-31",
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	// A group due on another day must not fire.
	other := &models.Group{
		Name: "Later", CreatedBy: alice.ID,
		Members: []string{alice.ID}, SettleUpDate: "2026-12-01",
	}
	if err := store.CreateGroup(ctx, other); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	expense := &models.Expense{
		GroupID:     group.ID,
		Description: "Rent",
		Amount:      100,
		PaidBy:      alice.ID,
		AddedBy:     alice.ID,
		Date:        "2026-08-01",
		Splits:      []models.Split{{UserID: bob.ID, Amount: 50}},
	}
	if err := store.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	sent, err := reminder.Run(ctx, due)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// alice and bob get mail; the ghost is skipped.
	if sent != 2 {
		t.Errorf("sent = %d, want 2", sent)
	}

	if body := sink.bodies["bob@example.com"]; !strings.Contains(body, "You owe alice 50.00") {
		t.Errorf("bob's body missing debt line:\n%s", body)
	}
	if body := sink.bodies["alice@example.com"]; !strings.Contains(body, "bob owes you 50.00") {
		t.Errorf("alice's body missing credit line:\n%s", body)
	}
	for _, s := range sink.sent {
		if strings.HasPrefix(s, "ghost@example.com") {
			t.Error("ghost should not be notified")
		}
		if !strings.HasSuffix(s, "Settle up: Roommates") {
			t.Errorf("unexpected subject in %q", s)
		}
	}
}

func TestReminderRun_SendFailureIsNonFatal(t *testing.T) {
	store, sink, reminder := setupReminder(t)
	ctx := context.Background()

	alice := models.NewUser("alice@example.com", "alice", "hash")
	bob := models.NewUser("bob@example.com", "bob", "hash")
	for _, u := range []*models.User{alice, bob} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}
	group := &models.Group{
		Name: "Trip", CreatedBy: alice.ID,
		Members: []string{alice.ID, bob.ID}, SettleUpDate: "2026-08-31",
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	sink.failFor["alice@example.com"] = true

	sent, err := reminder.Run(ctx, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1 (bob despite alice's failure)", sent)
	}
}
